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

package core

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strings"
)

// SourceIDLength is the fixed length of a source identifier.
const SourceIDLength = 11

var (
	sourceIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
	// fallback for unusual URL shapes: v=<id> or /<id> followed by a delimiter or the end
	sourceIDInURL = regexp.MustCompile(`(?:v=|/)([a-zA-Z0-9_-]{11})(?:\?|&|/|$)`)
)

// ValidateSourceID checks that id has the shape of a source identifier.
func ValidateSourceID(id string) error {
	if !sourceIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidSourceID, id)
	}
	return nil
}

// ValidateTranscriptEntry validates a TranscriptEntry according to domain rules.
//
// Validation rules:
//   - Start must be finite and not negative
//   - Duration must be finite and not negative
//
// Text is NOT validated; empty caption lines are legal and simply contribute
// nothing to the concatenated transcript.
func ValidateTranscriptEntry(entry TranscriptEntry) error {
	if math.IsNaN(entry.Start) || math.IsInf(entry.Start, 0) || entry.Start < 0 {
		return fmt.Errorf("%w: start %v", ErrInvalidTranscriptEntry, entry.Start)
	}
	if math.IsNaN(entry.Duration) || math.IsInf(entry.Duration, 0) || entry.Duration < 0 {
		return fmt.Errorf("%w: duration %v", ErrInvalidTranscriptEntry, entry.Duration)
	}
	return nil
}

// ValidateTranscript validates every entry and reports the first failure with its position.
func ValidateTranscript(entries []TranscriptEntry) error {
	for i, entry := range entries {
		if err := ValidateTranscriptEntry(entry); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return nil
}

// ExtractSourceID extracts a source identifier from a bare id or a video URL.
//
// Accepted shapes:
//   - the bare 11 character identifier
//   - youtu.be/<id>
//   - youtube.com/watch?v=<id>
//   - youtube.com/embed/<id>, /v/<id>, /shorts/<id>
//
// Anything else falls back to a pattern search over the raw input.
func ExtractSourceID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if sourceIDPattern.MatchString(raw) {
		return raw, nil
	}

	parsed, err := url.Parse(raw)
	if err == nil && parsed.Scheme == "" {
		parsed, err = url.Parse("https://" + raw)
	}
	if err == nil {
		if id, ok := sourceIDFromURL(parsed); ok {
			return id, nil
		}
	}

	if m := sourceIDInURL.FindStringSubmatch(raw); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSourceID, raw)
}

func sourceIDFromURL(u *url.URL) (string, bool) {
	switch u.Hostname() {
	case "youtu.be", "www.youtu.be":
		return checkedID(strings.TrimPrefix(u.Path, "/"))
	case "youtube.com", "www.youtube.com", "m.youtube.com":
		if u.Path == "/watch" {
			return checkedID(u.Query().Get("v"))
		}
		for _, prefix := range []string{"/embed/", "/v/", "/shorts/"} {
			if strings.HasPrefix(u.Path, prefix) {
				parts := strings.Split(u.Path, "/")
				if len(parts) >= 3 {
					return checkedID(parts[2])
				}
			}
		}
	}
	return "", false
}

func checkedID(id string) (string, bool) {
	if len(id) != SourceIDLength {
		return "", false
	}
	return id, true
}
