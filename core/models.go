package core

import (
	"encoding/binary"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier derived from content.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// TranscriptEntry is a single timestamped caption line.
// Entries are ordered chronologically and are immutable once fetched.
type TranscriptEntry struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`    // seconds from the beginning of the source
	Duration float64 `json:"duration"` // seconds
}

// Chunk is a bounded text span with the start time of the nearest preceding entry.
// It is the unit of retrieval.
type Chunk struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
}

// SearchResult is a chunk returned from similarity search with its cosine score.
type SearchResult struct {
	Chunk Chunk
	Score float32
}

// Status is the terminal state of an ingestion run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Outcome is the structured result of ingesting one source.
type Outcome struct {
	Status  Status `json:"status"`
	Summary string `json:"summary,omitempty"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`
	Cached  bool   `json:"cached"`
}

// Succeeded builds a success outcome.
func Succeeded(summary, title string, cached bool) *Outcome {
	return &Outcome{
		Status:  StatusSuccess,
		Summary: summary,
		Title:   title,
		Cached:  cached,
	}
}

// Failed builds an error outcome carrying a human-readable message.
func Failed(message string) *Outcome {
	return &Outcome{
		Status:  StatusError,
		Message: message,
	}
}

// OK reports whether the outcome is a success.
func (o *Outcome) OK() bool {
	return o != nil && o.Status == StatusSuccess
}
