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

package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/tubescribe/ai"
	"github.com/poiesic/tubescribe/cache"
	"github.com/poiesic/tubescribe/chunking"
	"github.com/poiesic/tubescribe/core"
	"github.com/poiesic/tubescribe/records"
	"github.com/poiesic/tubescribe/source"
	"github.com/poiesic/tubescribe/vectorindex"
)

// sectionCount is the number of timestamp sections handed to the summarizer.
const sectionCount = 6

// Dependencies are the collaborators of an Orchestrator. Records is optional.
type Dependencies struct {
	Cache       *cache.Cache
	Indexes     *vectorindex.Opener
	Chunker     *chunking.Chunker
	Transcripts source.TranscriptSource
	Titles      source.TitleSource
	Summarizer  ai.Summarizer
	Records     records.Store
}

func (d Dependencies) validate() error {
	switch {
	case d.Cache == nil:
		return ErrCacheRequired
	case d.Indexes == nil:
		return ErrIndexOpenerRequired
	case d.Chunker == nil:
		return ErrChunkerRequired
	case d.Transcripts == nil:
		return ErrTranscriptSourceRequired
	case d.Titles == nil:
		return ErrTitleSourceRequired
	case d.Summarizer == nil:
		return ErrSummarizerRequired
	}
	return nil
}

// Orchestrator ingests one source at a time. It is safe for concurrent use;
// concurrent runs for the same source never duplicate indexed chunks.
type Orchestrator struct {
	deps   Dependencies
	logger *slog.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator) error

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewOrchestrator creates an orchestrator over deps.
func NewOrchestrator(deps Dependencies, opts ...OrchestratorOption) (*Orchestrator, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	o := &Orchestrator{
		deps:   deps,
		logger: slog.Default().With("component", "orchestrator"),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Process ingests sourceID. Validation failures are reported as an error
// outcome with a nil error; any other failure is returned as an error and
// may succeed when retried.
func (o *Orchestrator) Process(ctx context.Context, sourceID string) (*core.Outcome, error) {
	outcome, err := o.process(ctx, sourceID)
	if err != nil {
		if core.IsValidation(err) {
			o.logger.Info("source rejected", "source_id", sourceID, "reason", core.ValidationMessage(err))
			return core.Failed(core.ValidationMessage(err)), nil
		}
		return nil, err
	}
	return outcome, nil
}

func (o *Orchestrator) process(ctx context.Context, sourceID string) (*core.Outcome, error) {
	if err := core.ValidateSourceID(sourceID); err != nil {
		return nil, err
	}
	logger := o.logger.With("source_id", sourceID)

	summary, summaryCached, err := o.deps.Cache.GetSummary(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	index, err := o.deps.Indexes.Open(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if summaryCached && index.Len() > 0 {
		logger.Debug("serving cached summary")
		title := o.deps.Titles.FetchTitle(ctx, sourceID)
		return core.Succeeded(summary, title, true), nil
	}

	entries, err := o.transcript(ctx, logger, sourceID)
	if err != nil {
		return nil, err
	}

	if index.Len() == 0 {
		chunks, err := o.deps.Chunker.Chunk(entries)
		if err != nil {
			return nil, fmt.Errorf("chunking %s: %w", sourceID, err)
		}
		if len(chunks) > 0 {
			added, err := index.Populate(ctx, chunks)
			if err != nil {
				return nil, fmt.Errorf("indexing %s: %w", sourceID, err)
			}
			logger.Debug("index ready", "chunks", index.Len(), "populated", added)
		}
	}

	title := o.deps.Titles.FetchTitle(ctx, sourceID)
	sections := core.TimestampSections(entries, sectionCount)

	if !summaryCached {
		summary, err = o.deps.Summarizer.Summarize(ctx, core.FullText(entries), title, sections)
		if err != nil {
			return nil, fmt.Errorf("summarizing %s: %w", sourceID, err)
		}
		if err := o.deps.Cache.SetSummary(ctx, sourceID, summary); err != nil {
			logger.Warn("failed to cache summary", "error", err)
		}
	}

	if o.deps.Records != nil {
		if err := o.deps.Records.SaveRecord(ctx, sourceID, title, summary); err != nil {
			logger.Warn("failed to save record", "error", err)
		}
	}

	return core.Succeeded(summary, title, false), nil
}

// transcript returns the cached transcript or fetches and caches it.
func (o *Orchestrator) transcript(ctx context.Context, logger *slog.Logger, sourceID string) ([]core.TranscriptEntry, error) {
	entries, ok, err := o.deps.Cache.GetTranscript(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if !ok {
		entries, err = o.deps.Transcripts.Fetch(ctx, sourceID)
		if err != nil {
			return nil, err
		}
		if isBlank(entries) {
			return nil, core.ErrTranscriptUnavailable
		}
		if err := o.deps.Cache.SetTranscript(ctx, sourceID, entries); err != nil {
			logger.Warn("failed to cache transcript", "error", err)
		}
	}
	if isBlank(entries) {
		return nil, core.ErrTranscriptUnavailable
	}
	return entries, nil
}

func isBlank(entries []core.TranscriptEntry) bool {
	return strings.TrimSpace(core.FullText(entries)) == ""
}
