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

package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/poiesic/tubescribe/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/prompts"
)

// Summarizer implements ai.Summarizer using OpenAI-compatible chat APIs.
type Summarizer struct {
	config    *ai.Config
	maxTokens int
	prompt    prompts.PromptTemplate
	logger    *slog.Logger

	once    sync.Once
	client  llms.Model
	initErr error
	closed  atomic.Bool
}

// newSummarizer is an internal constructor that returns the concrete type.
func newSummarizer(config *ai.Config) (*Summarizer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Summarizer{
		config:    config,
		maxTokens: config.MaxTranscriptTokens,
		prompt:    summaryPrompt(),
		logger:    slog.Default().With("component", "openai-summarizer"),
	}, nil
}

// NewSummarizer creates a new summarizer using the provided configuration.
//
// Returns ai.Summarizer interface to enforce abstraction.
func NewSummarizer(config *ai.Config) (ai.Summarizer, error) {
	return newSummarizer(config)
}

func (s *Summarizer) model() (llms.Model, error) {
	s.once.Do(func() {
		if s.client != nil {
			return
		}
		s.client, s.initErr = openai.New(
			openai.WithBaseURL(s.config.SummarizerHost),
			openai.WithToken(s.config.APIToken),
			openai.WithModel(s.config.SummarizerModel),
		)
	})
	return s.client, s.initErr
}

// Summarize renders the summary prompt with the transcript truncated to the
// token budget and returns the model's completion.
func (s *Summarizer) Summarize(ctx context.Context, fullText, title, sections string) (string, error) {
	if s.closed.Load() {
		return "", ai.ErrProviderClosed
	}
	client, err := s.model()
	if err != nil {
		return "", err
	}

	enc, err := encoding()
	if err != nil {
		return "", fmt.Errorf("failed to load tokenizer: %w", err)
	}
	transcript := truncateToTokens(enc, fullText, s.maxTokens)
	if len(transcript) < len(fullText) {
		s.logger.Debug("transcript truncated", "original", len(fullText), "truncated", len(transcript))
	}
	if strings.TrimSpace(sections) == "" {
		sections = noSectionsPlaceholder
	}

	prompt, err := s.prompt.Format(map[string]any{
		"title":              title,
		"transcript":         transcript,
		"timestamp_sections": sections,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render summary prompt: %w", err)
	}

	summary, err := llms.GenerateFromSinglePrompt(ctx, client, prompt, llms.WithTemperature(0.3))
	if err != nil {
		s.logger.Error("failed to generate summary", "err", err)
		return "", err
	}
	return strings.TrimSpace(summary), nil
}

func (s *Summarizer) close() {
	s.closed.Store(true)
}
