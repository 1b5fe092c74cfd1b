// Package sqlitestore keeps the review queue in a local SQLite file using
// the pure Go driver, so the study client needs no CGO toolchain.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vytor/reviewsync/internal/logger"
	"github.com/vytor/reviewsync/internal/models"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS pending_reviews (
	card_id    TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

type Store struct {
	db  *sql.DB
	log *logger.Logger
}

// Open creates or opens the queue database at path. ":memory:" is accepted
// for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open queue database: %w", err)
	}
	// a single connection keeps ":memory:" databases alive and writes serial
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create queue schema: %w", err)
	}
	return &Store{db: db, log: logger.Default().WithPrefix("queue-store")}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = FULL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns every stored entry. Rows that cannot be decoded are skipped
// and logged; unknown fields in a payload are ignored.
func (s *Store) Load(ctx context.Context) ([]models.QueueEntryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT card_id, payload FROM pending_reviews ORDER BY card_id`)
	if err != nil {
		return nil, fmt.Errorf("query pending reviews: %w", err)
	}
	defer rows.Close()

	var out []models.QueueEntryRecord
	for rows.Next() {
		var cardID, payload string
		if err := rows.Scan(&cardID, &payload); err != nil {
			return nil, fmt.Errorf("scan pending review: %w", err)
		}
		var r models.QueueEntryRecord
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			s.log.WithField("card_id", cardID).Warn("skipping unreadable queue entry: %v", err)
			continue
		}
		if r.CardID == "" {
			r.CardID = cardID
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Save replaces the stored set with records in one transaction.
func (s *Store) Save(ctx context.Context, records []models.QueueEntryRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pending_reviews`); err != nil {
		return fmt.Errorf("clear pending reviews: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO pending_reviews (card_id, payload, updated_at) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, r := range records {
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode entry %s: %w", r.CardID, err)
		}
		if _, err := stmt.ExecContext(ctx, r.CardID, string(payload), now); err != nil {
			return fmt.Errorf("insert entry %s: %w", r.CardID, err)
		}
	}
	return tx.Commit()
}
