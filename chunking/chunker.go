// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package chunking

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
	"github.com/poiesic/tubescribe/core"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	// DefaultTargetSize is the default chunk length in tokens.
	DefaultTargetSize = 400

	// DefaultOverlap is the default number of tokens shared by consecutive chunks.
	DefaultOverlap = 50

	encodingName = "cl100k_base"
)

var (
	// ErrInvalidTargetSize indicates a non-positive target chunk size.
	ErrInvalidTargetSize = errors.New("target size must be positive")

	// ErrInvalidOverlap indicates an overlap outside [0, target).
	ErrInvalidOverlap = errors.New("overlap must be non-negative and smaller than the target size")
)

func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// Chunker splits transcripts into token-bounded chunks that carry the start
// time of the transcript entry they begin in.
type Chunker struct {
	targetSize int
	overlap    int
	logger     *slog.Logger
}

// Option configures a Chunker.
type Option func(*Chunker) error

// WithTargetSize sets the chunk length in tokens.
func WithTargetSize(size int) Option {
	return func(c *Chunker) error {
		c.targetSize = size
		return nil
	}
}

// WithOverlap sets the number of tokens shared by consecutive chunks.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) error {
		c.overlap = overlap
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chunker) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// New creates a Chunker. Defaults are 400 tokens with an overlap of 50.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		targetSize: DefaultTargetSize,
		overlap:    DefaultOverlap,
		logger:     slog.Default().With("component", "chunker"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.targetSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTargetSize, c.targetSize)
	}
	if c.overlap < 0 || c.overlap >= c.targetSize {
		return nil, fmt.Errorf("%w: overlap %d, target %d", ErrInvalidOverlap, c.overlap, c.targetSize)
	}
	return c, nil
}

// Chunk splits entries using targetSize and overlap.
func Chunk(entries []core.TranscriptEntry, targetSize, overlap int) ([]core.Chunk, error) {
	c, err := New(WithTargetSize(targetSize), WithOverlap(overlap))
	if err != nil {
		return nil, err
	}
	return c.Chunk(entries)
}

// Chunk splits entries into chunks in transcript order. Start times are
// non-decreasing when entry start times are.
func (c *Chunker) Chunk(entries []core.TranscriptEntry) ([]core.Chunk, error) {
	text, offsets := concatenate(entries)
	if strings.TrimSpace(text) == "" {
		return []core.Chunk{}, nil
	}

	splitter := textsplitter.NewTokenSplitter(
		textsplitter.WithEncodingName(encodingName),
		textsplitter.WithChunkSize(c.targetSize),
		textsplitter.WithChunkOverlap(c.overlap),
		textsplitter.WithAllowedSpecial([]string{}),
		textsplitter.WithDisallowedSpecial([]string{}),
	)
	spans, err := splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("failed to split transcript: %w", err)
	}

	chunks := make([]core.Chunk, 0, len(spans))
	cursor := 0
	for _, span := range spans {
		if strings.TrimSpace(span) == "" {
			continue
		}
		pos := cursor
		if cursor <= len(text) {
			if i := strings.Index(text[cursor:], span); i >= 0 {
				pos = cursor + i
			}
		}
		chunks = append(chunks, core.Chunk{
			Text:  span,
			Start: startAt(offsets, entries, pos),
		})
		cursor = pos + 1
	}

	c.logger.Debug("chunked transcript", "entries", len(entries), "chunks", len(chunks))
	return chunks, nil
}

// concatenate joins entry texts, each followed by a space, and returns the
// character offset at which every entry begins.
func concatenate(entries []core.TranscriptEntry) (string, []int) {
	var b strings.Builder
	offsets := make([]int, len(entries))
	for i, entry := range entries {
		offsets[i] = b.Len()
		b.WriteString(entry.Text)
		b.WriteByte(' ')
	}
	return b.String(), offsets
}

// startAt returns the start time of the last entry beginning at or before pos.
func startAt(offsets []int, entries []core.TranscriptEntry, pos int) float64 {
	i := sort.Search(len(offsets), func(i int) bool { return offsets[i] > pos })
	if i == 0 {
		return 0
	}
	return entries[i-1].Start
}
