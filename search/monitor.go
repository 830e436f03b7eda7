package search

import "github.com/poiesic/tubescribe/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to trace the stages of a query.
type SearchMonitor interface {
	Start(sourceID, query string)
	AfterIndexOpen(chunks int)
	Finish(results []core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_, _ string) {}
func (n *noopMonitor) AfterIndexOpen(_ int) {}
func (n *noopMonitor) Finish(_ []core.SearchResult) {}
