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

package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS source_records (
	source_id    TEXT PRIMARY KEY,
	title        TEXT,
	summary      TEXT,
	processed_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS interactions (
	id         TEXT PRIMARY KEY,
	caller_id  TEXT NOT NULL,
	source_id  TEXT NOT NULL,
	question   TEXT NOT NULL,
	answer     TEXT NOT NULL,
	language   TEXT NOT NULL DEFAULT 'english',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_interactions_caller ON interactions(caller_id);
CREATE INDEX IF NOT EXISTS idx_interactions_source ON interactions(source_id);
`

// SQLiteStore implements Store on SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// SaveRecord implements Store.
func (s *SQLiteStore) SaveRecord(ctx context.Context, sourceID, title, summary string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO source_records (source_id, title, summary, processed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET title = excluded.title, summary = excluded.summary`,
		sourceID, title, summary, now())
	if err != nil {
		return fmt.Errorf("save record %s: %w", sourceID, err)
	}
	return nil
}

// SaveInteraction implements Store.
func (s *SQLiteStore) SaveInteraction(ctx context.Context, callerID, sourceID, question, answer, language string) error {
	if language == "" {
		language = DefaultLanguage
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO interactions (id, caller_id, source_id, question, answer, language, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ulid.Make().String(), callerID, sourceID, question, answer, language, now())
	if err != nil {
		return fmt.Errorf("save interaction: %w", err)
	}
	return nil
}

// GetRecord returns the record for sourceID.
func (s *SQLiteStore) GetRecord(ctx context.Context, sourceID string) (*Record, error) {
	var (
		r           Record
		title, summ sql.NullString
		processedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT source_id, title, summary, processed_at FROM source_records WHERE source_id = ?`,
		sourceID).Scan(&r.SourceID, &title, &summ, &processedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", sourceID, err)
	}
	r.Title = title.String
	r.Summary = summ.String
	r.ProcessedAt, _ = time.Parse(time.RFC3339Nano, processedAt)
	return &r, nil
}

// Interactions returns the interactions recorded for sourceID, oldest first.
func (s *SQLiteStore) Interactions(ctx context.Context, sourceID string) ([]Interaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, caller_id, source_id, question, answer, language, created_at
		FROM interactions WHERE source_id = ? ORDER BY id`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	var out []Interaction
	for rows.Next() {
		var (
			in        Interaction
			createdAt string
		)
		if err := rows.Scan(&in.ID, &in.CallerID, &in.SourceID, &in.Question, &in.Answer, &in.Language, &createdAt); err != nil {
			return nil, err
		}
		in.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, in)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
