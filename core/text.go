package core

import (
	"fmt"
	"strings"
)

const (
	// DefaultMaxSections is the number of timestamp sections offered to the summarizer.
	DefaultMaxSections = 6

	sectionPreviewLength = 80
)

// FullText joins the entry texts with single spaces.
func FullText(entries []TranscriptEntry) string {
	texts := make([]string, len(entries))
	for i, entry := range entries {
		texts[i] = entry.Text
	}
	return strings.Join(texts, " ")
}

// TimestampSections divides the transcript into maxSections roughly equal time
// segments and renders the first non-empty entry of each as "[M:SS] preview".
// Returns the empty string when the transcript has no duration.
func TimestampSections(entries []TranscriptEntry, maxSections int) string {
	if len(entries) == 0 || maxSections <= 0 {
		return ""
	}

	last := entries[len(entries)-1]
	total := last.Start + last.Duration
	if total <= 0 {
		return ""
	}

	segment := total / float64(maxSections)
	next := 0.0
	sections := make([]string, 0, maxSections)
	for _, entry := range entries {
		text := strings.TrimSpace(entry.Text)
		if entry.Start < next || text == "" {
			continue
		}

		preview := text
		if runes := []rune(text); len(runes) > sectionPreviewLength {
			preview = strings.TrimSpace(string(runes[:sectionPreviewLength])) + "..."
		}
		sections = append(sections, fmt.Sprintf("[%s] %s", FormatTimestamp(entry.Start), preview))
		next += segment

		if len(sections) >= maxSections {
			break
		}
	}
	return strings.Join(sections, "\n")
}

// FormatTimestamp renders seconds as M:SS.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
