package ingestion

import "errors"

var (
	// ErrCacheRequired is returned when a cache layer is not provided.
	ErrCacheRequired = errors.New("cache required")

	// ErrIndexOpenerRequired is returned when a vector index opener is not provided.
	ErrIndexOpenerRequired = errors.New("index opener required")

	// ErrChunkerRequired is returned when a chunker is not provided.
	ErrChunkerRequired = errors.New("chunker required")

	// ErrTranscriptSourceRequired is returned when a transcript source is not provided.
	ErrTranscriptSourceRequired = errors.New("transcript source required")

	// ErrTitleSourceRequired is returned when a title source is not provided.
	ErrTitleSourceRequired = errors.New("title source required")

	// ErrSummarizerRequired is returned when a summarizer is not provided.
	ErrSummarizerRequired = errors.New("summarizer required")

	// ErrProcessorRequired is returned when a dispatcher has nothing to run.
	ErrProcessorRequired = errors.New("processor required")

	// ErrInvalidMaxAttempts is returned when maxAttempts is not positive.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrStillProcessing is returned by Job.Wait when the timeout elapses first.
	ErrStillProcessing = errors.New("job is still processing")

	// ErrDispatcherReleased is returned when submitting to a released dispatcher.
	ErrDispatcherReleased = errors.New("dispatcher released")
)
