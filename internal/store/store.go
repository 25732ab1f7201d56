package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ethereum/go-ethereum/common"

	"github.com/meltingclock/autoreq_v1/internal/registry"
	"github.com/meltingclock/autoreq_v1/internal/telemetry"
)

// Outcome of a queued request as reconstructed from the event stream.
// The queue forgets terminal state; this store is where it survives.
type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeExecuted  Outcome = "executed"
	OutcomeCancelled Outcome = "cancelled"
)

type RequestRow struct {
	ID        uint64    `json:"id"`
	Queue     string    `json:"queue"` // "verified" | "unverified"
	Hash      string    `json:"hash"`
	Requester string    `json:"requester"`
	Target    string    `json:"target"`
	Outcome   Outcome   `json:"outcome"`
	AddedAt   time.Time `json:"added_at"`
	RemovedAt time.Time `json:"removed_at"`
}

const (
	queueVerified   = "verified"
	queueUnverified = "unverified"
)

// Store persists queue events to sqlite.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open event db: %w", err)
	}
	if err := initDB(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func initDB(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS requests (
			id INTEGER NOT NULL,
			queue TEXT NOT NULL,
			hash TEXT,
			requester TEXT,
			target TEXT,
			outcome TEXT NOT NULL DEFAULT 'pending',
			added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			removed_at DATETIME,
			PRIMARY KEY (id, queue)
		)
	`)
	if err != nil {
		return fmt.Errorf("init event db: %w", err)
	}
	return nil
}

func (s *Store) insertAdded(id uint64, queue string, hash, requester, target string) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO requests (id, queue, hash, requester, target, outcome, added_at)
		VALUES (?, ?, ?, ?, ?, 'pending', CURRENT_TIMESTAMP)
	`, id, queue, hash, requester, target)
	return err
}

func (s *Store) markRemoved(id uint64, queue string, executed bool) error {
	outcome := OutcomeCancelled
	if executed {
		outcome = OutcomeExecuted
	}
	_, err := s.db.Exec(`
		UPDATE requests SET outcome = ?, removed_at = CURRENT_TIMESTAMP
		WHERE id = ? AND queue = ?
	`, outcome, id, queue)
	return err
}

// Emit implements registry.EventSink. Write failures are logged, not
// propagated; the queue must not stall on local persistence.
func (s *Store) Emit(ev registry.Event) {
	var err error
	switch e := ev.(type) {
	case registry.HashedReqAdded:
		var hash common.Hash
		hash, err = registry.HashReq(e.Req)
		if err == nil {
			err = s.insertAdded(e.ID, queueVerified, hash.Hex(), e.Req.Requester.Hex(), e.Req.Target.Hex())
		}
	case registry.HashedReqRemoved:
		err = s.markRemoved(e.ID, queueVerified, e.WasExecuted)
	case registry.HashedReqUnveriAdded:
		err = s.insertAdded(e.ID, queueUnverified, e.Hash.Hex(), "", "")
	case registry.HashedReqUnveriRemoved:
		err = s.markRemoved(e.ID, queueUnverified, e.WasExecuted)
	}
	if err != nil {
		telemetry.Errorf("[store] record %s: %v", ev.EventName(), err)
	}
}

// Outcome reports the terminal state of a request id, or pending if it
// is still live (or unknown).
func (s *Store) Outcome(id uint64, unverified bool) (Outcome, error) {
	queue := queueVerified
	if unverified {
		queue = queueUnverified
	}
	var out Outcome
	err := s.db.QueryRow(`
		SELECT outcome FROM requests WHERE id = ? AND queue = ?
	`, id, queue).Scan(&out)
	if err == sql.ErrNoRows {
		return OutcomePending, nil
	}
	if err != nil {
		return "", err
	}
	return out, nil
}

// History returns recorded requests, newest first.
func (s *Store) History(limit int) ([]RequestRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, queue, hash, requester, target, outcome, added_at, COALESCE(removed_at, added_at)
		FROM requests
		ORDER BY added_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RequestRow
	for rows.Next() {
		var r RequestRow
		if err := rows.Scan(&r.ID, &r.Queue, &r.Hash, &r.Requester, &r.Target, &r.Outcome, &r.AddedAt, &r.RemovedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
