// Package ingestion turns a source identifier into an indexed, summarized
// source.
//
// The Orchestrator runs the ingestion state machine for one source:
//   - validate the identifier
//   - short-circuit when both the summary and the index are cached
//   - load the transcript from cache or from the transcript source
//   - chunk and index the transcript once per source
//   - fetch the title and derive timestamp sections
//   - summarize when no summary is cached
//   - record the processed source (best-effort)
//
// Validation failures become error outcomes carrying a user-facing message.
// Any other failure is returned so the Dispatcher can retry it.
//
// The Dispatcher runs orchestrations as background jobs on a worker pool,
// retrying transient failures with exponential backoff. Callers wait on a
// Job for a bounded time; the job keeps running after the wait gives up.
package ingestion
