package localstore

import (
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
)

// QueuedOp is one durable row of the sync queue.
type QueuedOp struct {
	ID          string
	Type        string // models.OpType value, kept as string at the storage boundary
	Collection  string
	DocumentID  string
	Data        []byte
	Timestamp   float64
	RetryCount  int
	NextRetryAt float64
}

// FailedOp is a dead-lettered operation (moved out of sync_queue after
// exhausting retries).
type FailedOp struct {
	ID           string
	Type         string
	Collection   string
	DocumentID   string
	Data         []byte
	Timestamp    float64
	FailedAt     float64
	ErrorMessage string
	RetryCount   int
}

// maxBackoffSeconds caps exponential retry backoff (spec §4.2).
const maxBackoffSeconds = 300

// ErrNotFound is returned when a queue or dead-letter row does not exist.
var ErrNotFound = errors.New("localstore: not found")

// enqueue appends or replaces a sync_queue row, keyed on
// (collection, document_id, type) per spec §4.2: a later save collapses
// into the existing pending 'add' or 'update' row instead of piling up
// duplicates, and a delete supersedes any pending add/update for the same
// document.
func (s *Store) enqueue(tx *sql.Tx, opType, collection, documentID string, data []byte) error {
	if opType == "delete" {
		// A delete makes any other pending operation for this document moot.
		if _, err := tx.Exec(
			`DELETE FROM sync_queue WHERE collection = ? AND document_id = ? AND type != 'delete'`,
			collection, documentID,
		); err != nil {
			return fmt.Errorf("supersede pending ops before delete: %w", err)
		}
	}

	now := s.nowSeconds()
	if opType == "update" {
		// A document that was never pushed stays a single pending 'add'
		// carrying the latest data.
		res, err := tx.Exec(
			`UPDATE sync_queue SET data = ?, timestamp = ?, retry_count = 0, next_retry_time = ?
			 WHERE collection = ? AND document_id = ? AND type = 'add'`,
			data, now, now, collection, documentID,
		)
		if err != nil {
			return fmt.Errorf("fold update into pending add: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			return nil
		}
	}

	id := uuid.NewString()
	_, err := tx.Exec(
		`INSERT INTO sync_queue (id, type, collection, document_id, data, timestamp, retry_count, next_retry_time)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?)
		 ON CONFLICT(collection, document_id, type) DO UPDATE SET
			data = excluded.data,
			timestamp = excluded.timestamp,
			retry_count = 0,
			next_retry_time = excluded.next_retry_time`,
		id, opType, collection, documentID, data, now, now,
	)
	if err != nil {
		return fmt.Errorf("enqueue sync op: %w", err)
	}
	return nil
}

// readyOperations returns queued operations whose next_retry_time has
// elapsed, oldest first, so the drain loop processes them in submission
// order (spec §4.4 step 1).
func (s *Store) readyOperations(limit int) ([]QueuedOp, error) {
	now := s.nowSeconds()
	rows, err := s.conn.Query(
		`SELECT id, type, collection, document_id, data, timestamp, retry_count, next_retry_time
		 FROM sync_queue
		 WHERE next_retry_time <= ?
		 ORDER BY timestamp ASC
		 LIMIT ?`,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("read ready operations: %w", err)
	}
	defer rows.Close()

	var ops []QueuedOp
	for rows.Next() {
		var op QueuedOp
		if err := rows.Scan(&op.ID, &op.Type, &op.Collection, &op.DocumentID, &op.Data, &op.Timestamp, &op.RetryCount, &op.NextRetryAt); err != nil {
			return nil, fmt.Errorf("scan queued op: %w", err)
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// pendingCount reports how many operations currently sit in the queue,
// regardless of retry eligibility.
func (s *Store) pendingCount() (int, error) {
	var n int
	err := s.conn.QueryRow(`SELECT COUNT(*) FROM sync_queue`).Scan(&n)
	return n, err
}

// removeOp deletes a queue row outright, on confirmed success.
func (s *Store) removeOp(tx *sql.Tx, id string) error {
	_, err := tx.Exec(`DELETE FROM sync_queue WHERE id = ?`, id)
	return err
}

// backoffSeconds computes the exponential delay before op's next attempt:
// 2^retryCount seconds, capped at maxBackoffSeconds (spec §4.2).
func backoffSeconds(retryCount int) float64 {
	d := math.Pow(2, float64(retryCount))
	if d > maxBackoffSeconds {
		return maxBackoffSeconds
	}
	return d
}

// bumpRetry increments an operation's retry count and schedules its next
// attempt. Returns the new retry count so the caller can decide whether to
// dead-letter it instead.
func (s *Store) bumpRetry(tx *sql.Tx, id string) (int, error) {
	var retryCount int
	if err := tx.QueryRow(`SELECT retry_count FROM sync_queue WHERE id = ?`, id).Scan(&retryCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	retryCount++
	next := s.nowSeconds() + backoffSeconds(retryCount)
	if _, err := tx.Exec(`UPDATE sync_queue SET retry_count = ?, next_retry_time = ? WHERE id = ?`, retryCount, next, id); err != nil {
		return 0, err
	}
	return retryCount, nil
}

// deadLetter moves a queue row into failed_operations with the error that
// caused it to exhaust retries, then removes it from sync_queue. If the
// op being dead-lettered is a delete, any already-dead-lettered update for
// the same document is removed first — a delete always wins over a stale
// update failure (spec §9 open question: resolved yes). A dead-lettered
// update is not removed when a delete for the same document is merely
// queued or completes successfully.
func (s *Store) deadLetter(tx *sql.Tx, op QueuedOp, errMsg string) error {
	if op.Type == "delete" {
		if _, err := tx.Exec(
			`DELETE FROM failed_operations WHERE collection = ? AND document_id = ? AND type = 'update'`,
			op.Collection, op.DocumentID,
		); err != nil {
			return fmt.Errorf("supersede dead-lettered update before delete: %w", err)
		}
	}

	now := s.nowSeconds()
	if _, err := tx.Exec(
		`INSERT INTO failed_operations (id, type, collection, document_id, data, timestamp, failed_at, error_message, retry_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		op.ID, op.Type, op.Collection, op.DocumentID, op.Data, op.Timestamp, now, errMsg, op.RetryCount,
	); err != nil {
		return fmt.Errorf("dead-letter op: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM sync_queue WHERE id = ?`, op.ID); err != nil {
		return fmt.Errorf("remove dead-lettered op from queue: %w", err)
	}
	return nil
}

// failedOperations lists every dead-lettered op, most recent first.
func (s *Store) failedOperations() ([]FailedOp, error) {
	rows, err := s.conn.Query(
		`SELECT id, type, collection, document_id, data, timestamp, failed_at, error_message, retry_count
		 FROM failed_operations ORDER BY failed_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FailedOp
	for rows.Next() {
		var f FailedOp
		if err := rows.Scan(&f.ID, &f.Type, &f.Collection, &f.DocumentID, &f.Data, &f.Timestamp, &f.FailedAt, &f.ErrorMessage, &f.RetryCount); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// retryFailed moves a single dead-lettered operation back into sync_queue
// with its retry counter reset, so the next drain picks it up fresh.
func (s *Store) retryFailed(failedOpID string) error {
	return s.withWriteLock(func(tx *sql.Tx) error {
		var f FailedOp
		err := tx.QueryRow(
			`SELECT id, type, collection, document_id, data, timestamp, failed_at, error_message, retry_count
			 FROM failed_operations WHERE id = ?`, failedOpID,
		).Scan(&f.ID, &f.Type, &f.Collection, &f.DocumentID, &f.Data, &f.Timestamp, &f.FailedAt, &f.ErrorMessage, &f.RetryCount)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		now := s.nowSeconds()
		if _, err := tx.Exec(
			`INSERT INTO sync_queue (id, type, collection, document_id, data, timestamp, retry_count, next_retry_time)
			 VALUES (?, ?, ?, ?, ?, ?, 0, ?)
			 ON CONFLICT(collection, document_id, type) DO UPDATE SET
				data = excluded.data, timestamp = excluded.timestamp, retry_count = 0, next_retry_time = excluded.next_retry_time`,
			uuid.NewString(), f.Type, f.Collection, f.DocumentID, f.Data, now, now,
		); err != nil {
			return fmt.Errorf("requeue failed op: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM failed_operations WHERE id = ?`, f.ID); err != nil {
			return fmt.Errorf("clear dead-lettered op: %w", err)
		}
		return nil
	})
}
