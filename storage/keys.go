package storage

import "fmt"

// Key prefixes shared by every KV-backed store.
const (
	VectorPrefix     = "vecidx"
	MetadataPrefix   = "vecmeta"
	TranscriptPrefix = "transcript"
	SummaryPrefix    = "summary"
	RateLimitPrefix  = "ratelimit"
)

// VectorKey returns the key holding a source's encoded vectors.
func VectorKey(sourceID string) string {
	return fmt.Sprintf("%s:%s", VectorPrefix, sourceID)
}

// MetadataKey returns the key holding a source's chunk list.
func MetadataKey(sourceID string) string {
	return fmt.Sprintf("%s:%s", MetadataPrefix, sourceID)
}

// TranscriptKey returns the key holding a cached transcript.
func TranscriptKey(sourceID string) string {
	return fmt.Sprintf("%s:%s", TranscriptPrefix, sourceID)
}

// SummaryKey returns the key holding a cached summary.
func SummaryKey(sourceID string) string {
	return fmt.Sprintf("%s:%s", SummaryPrefix, sourceID)
}

// RateLimitKey returns the counter key for a caller and action.
func RateLimitKey(action, callerID string) string {
	return fmt.Sprintf("%s:%s:%s", RateLimitPrefix, action, callerID)
}
