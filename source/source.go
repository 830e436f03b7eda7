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

// Package source provides the transcript and title collaborators used during
// ingestion.
package source

import (
	"context"

	"github.com/poiesic/tubescribe/core"
)

// UnknownTitle is returned when a title cannot be fetched.
const UnknownTitle = "Unknown Title"

// TranscriptSource fetches the timed transcript of a source.
type TranscriptSource interface {
	// Fetch returns the transcript entries for sourceID. Missing or unusable
	// transcripts are reported as core.ErrTranscriptUnavailable.
	Fetch(ctx context.Context, sourceID string) ([]core.TranscriptEntry, error)
}

// TitleSource resolves a human-readable title. It never fails; UnknownTitle
// stands in for any error.
type TitleSource interface {
	FetchTitle(ctx context.Context, sourceID string) string
}
