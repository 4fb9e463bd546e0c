package localstore

import (
	"database/sql"
	"fmt"

	"github.com/akeen90/nutrasafe-beta-sub009/internal/models"
)

// isTombstoned reports whether the document is currently soft-deleted in
// its own table. A tombstoned row still exists locally with
// sync_status='deleted' until housekeeping or a confirmed remote delete
// reaps it. collection must be a canonical models.Collection value, which
// doubles as the table name.
func (s *Store) isTombstoned(collection models.Collection, id string) (bool, error) {
	return isTombstonedVia(s.conn, collection, id)
}

// isTombstonedVia runs the same check against any queryer — the Store's
// connection for pre-transaction guard checks, or an open *sql.Tx for
// checks made from inside withWriteLock (the single-connection pool means
// querying via s.conn while a tx holds the connection would deadlock).
func isTombstonedVia(q interface {
	QueryRow(query string, args ...any) *sql.Row
}, collection models.Collection, id string) (bool, error) {
	var status string
	err := q.QueryRow(fmt.Sprintf(`SELECT sync_status FROM %s WHERE id = ?`, string(collection)), id).Scan(&status)
	if err != nil {
		return false, nil // absent row: nothing to guard against
	}
	return status == "deleted", nil
}

// hasPendingDelete reports whether a delete operation for this document is
// currently queued, so a concurrent save can be rejected even before the
// local row itself has been flipped to 'deleted' (spec §4.1 ResurrectionGuard).
func (s *Store) hasPendingDelete(collection models.Collection, id string) (bool, error) {
	var n int
	err := s.conn.QueryRow(
		`SELECT COUNT(*) FROM sync_queue WHERE collection = ? AND document_id = ? AND type = 'delete'`,
		string(collection), id,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// guardAgainstResurrection is the single call site every save/import path
// routes through before writing: if true, the caller must silently skip
// the write rather than error (spec §4.1 — "imports and late-arriving
// callbacks must never undo a user's delete").
func (s *Store) guardAgainstResurrection(collection models.Collection, id string) (skip bool, err error) {
	tombstoned, err := s.isTombstoned(collection, id)
	if err != nil {
		return false, err
	}
	if tombstoned {
		return true, nil
	}
	pending, err := s.hasPendingDelete(collection, id)
	if err != nil {
		return false, err
	}
	return pending, nil
}
