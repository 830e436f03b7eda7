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

// Package records persists processed sources and question/answer
// interactions for later analysis. Writes are best-effort at every call site.
package records

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// DefaultLanguage is stored when an interaction carries no language.
const DefaultLanguage = "english"

// Record is a processed source.
type Record struct {
	SourceID    string
	Title       string
	Summary     string
	ProcessedAt time.Time
}

// Interaction is one question asked about a source and its answer.
type Interaction struct {
	ID        string
	CallerID  string
	SourceID  string
	Question  string
	Answer    string
	Language  string
	CreatedAt time.Time
}

// Store persists records and interactions.
type Store interface {
	// SaveRecord inserts the record for sourceID or replaces its title and summary.
	SaveRecord(ctx context.Context, sourceID, title, summary string) error

	// SaveInteraction appends a question/answer interaction.
	SaveInteraction(ctx context.Context, callerID, sourceID, question, answer, language string) error

	Close() error
}
