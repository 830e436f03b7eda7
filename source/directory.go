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

package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/poiesic/tubescribe/core"
)

// Directory reads transcripts stored as <dir>/<sourceID>.json, each a JSON
// array of {"text", "start", "duration"} objects.
type Directory struct {
	dir string
}

var _ TranscriptSource = (*Directory)(nil)

// NewDirectory creates a transcript source rooted at dir.
func NewDirectory(dir string) (*Directory, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("transcript directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("transcript directory: %s is not a directory", dir)
	}
	return &Directory{dir: dir}, nil
}

// Fetch implements TranscriptSource.
func (d *Directory) Fetch(ctx context.Context, sourceID string) ([]core.TranscriptEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := core.ValidateSourceID(sourceID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(d.dir, sourceID+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: no transcript for %s", core.ErrTranscriptUnavailable, sourceID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript %s: %w", sourceID, err)
	}
	var entries []core.TranscriptEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: malformed transcript %s: %v", core.ErrTranscriptUnavailable, sourceID, err)
	}
	if err := core.ValidateTranscript(entries); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrTranscriptUnavailable, sourceID, err)
	}
	return entries, nil
}
