package mock

import (
	"context"
	"fmt"
	"sync/atomic"
)

// MockSummarizer is a test double for ai.Summarizer.
type MockSummarizer struct {
	// SummarizeFunc is called by Summarize if set.
	// If nil, returns a short summary naming the title.
	SummarizeFunc func(ctx context.Context, fullText, title, sections string) (string, error)

	callCount atomic.Int64
}

// NewMockSummarizer creates a mock summarizer with default behavior.
func NewMockSummarizer() *MockSummarizer {
	return &MockSummarizer{}
}

// Summarize returns the injected result or a canned summary.
func (m *MockSummarizer) Summarize(ctx context.Context, fullText, title, sections string) (string, error) {
	m.callCount.Add(1)

	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, fullText, title, sections)
	}
	return fmt.Sprintf("Summary of %s (%d chars)", title, len(fullText)), nil
}

// CallCount returns the number of Summarize calls.
func (m *MockSummarizer) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and injected behavior.
func (m *MockSummarizer) Reset() {
	m.callCount.Store(0)
	m.SummarizeFunc = nil
}
