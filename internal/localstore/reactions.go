package localstore

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/akeen90/nutrasafe-beta-sub009/internal/models"
)

// SaveReactionLog upserts a reaction log record. IndexedKey maps to
// food_name, Timestamp to occurred_at.
func (s *Store) SaveReactionLog(rec models.OpaqueRecord) error {
	skip, err := s.guardAgainstResurrection(models.CollectionReactionLogs, rec.ID)
	if err != nil {
		return fmt.Errorf("check resurrection guard: %w", err)
	}
	if skip {
		return nil
	}

	return s.withWriteLock(func(tx *sql.Tx) error {
		now := s.clock.Now().Unix()
		rec.LastModified = now
		rec.SyncStatus = models.StatusPending

		var existed bool
		if err := tx.QueryRow(`SELECT 1 FROM reaction_logs WHERE id = ?`, rec.ID).Scan(new(int)); err == nil {
			existed = true
		} else if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check existing reaction log: %w", err)
		}

		if _, err := tx.Exec(
			`INSERT INTO reaction_logs (id, user_id, food_name, occurred_at, payload, sync_status, last_modified)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				food_name = excluded.food_name, occurred_at = excluded.occurred_at, payload = excluded.payload,
				sync_status = excluded.sync_status, last_modified = excluded.last_modified`,
			rec.ID, rec.UserID, rec.IndexedKey, rec.Timestamp, rec.Payload, string(rec.SyncStatus), rec.LastModified,
		); err != nil {
			return fmt.Errorf("upsert reaction log: %w", err)
		}

		opType := models.OpAdd
		if existed {
			opType = models.OpUpdate
		}
		doc, err := models.Document(rec)
		if err != nil {
			return fmt.Errorf("encode reaction log: %w", err)
		}
		blob, err := encodeDoc(doc)
		if err != nil {
			return err
		}
		return s.enqueue(tx, string(opType), string(models.CollectionReactionLogs), rec.ID, blob)
	})
}

// DeleteReactionLog soft-deletes a reaction log and enqueues a delete.
func (s *Store) DeleteReactionLog(id string) error {
	return s.withWriteLock(func(tx *sql.Tx) error {
		now := s.clock.Now().Unix()
		res, err := tx.Exec(`UPDATE reaction_logs SET sync_status = 'deleted', last_modified = ? WHERE id = ?`, now, id)
		if err != nil {
			return fmt.Errorf("tombstone reaction log: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		return s.enqueue(tx, string(models.OpDelete), string(models.CollectionReactionLogs), id, nil)
	})
}

// ListReactionLogsForFood returns non-deleted reaction logs matching a food
// name, most recent first.
func (s *Store) ListReactionLogsForFood(foodName string) ([]models.OpaqueRecord, error) {
	rows, err := s.conn.Query(
		`SELECT id, user_id, food_name, occurred_at, payload, sync_status, last_modified
		 FROM reaction_logs WHERE food_name = ? AND sync_status != 'deleted' ORDER BY occurred_at DESC`,
		foodName,
	)
	if err != nil {
		return nil, fmt.Errorf("list reaction logs: %w", err)
	}
	defer rows.Close()

	var out []models.OpaqueRecord
	for rows.Next() {
		var rec models.OpaqueRecord
		var status string
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.IndexedKey, &rec.Timestamp, &rec.Payload, &status, &rec.LastModified); err != nil {
			return nil, fmt.Errorf("scan reaction log: %w", err)
		}
		rec.SyncStatus = models.SyncStatus(status)
		out = append(out, rec)
	}
	return out, rows.Err()
}
