package localstore

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/akeen90/nutrasafe-beta-sub009/internal/models"
)

// SaveFastingPlan upserts a fasting plan record. IndexedKey maps to the
// plan's name column; the rest of the shape lives in the opaque payload.
func (s *Store) SaveFastingPlan(rec models.OpaqueRecord) error {
	skip, err := s.guardAgainstResurrection(models.CollectionFastingPlans, rec.ID)
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
		if err := tx.QueryRow(`SELECT 1 FROM fasting_plans WHERE id = ?`, rec.ID).Scan(new(int)); err == nil {
			existed = true
		} else if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check existing fasting plan: %w", err)
		}

		if _, err := tx.Exec(
			`INSERT INTO fasting_plans (id, user_id, name, payload, sync_status, last_modified)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				name = excluded.name, payload = excluded.payload,
				sync_status = excluded.sync_status, last_modified = excluded.last_modified`,
			rec.ID, rec.UserID, rec.IndexedKey, rec.Payload, string(rec.SyncStatus), rec.LastModified,
		); err != nil {
			return fmt.Errorf("upsert fasting plan: %w", err)
		}

		opType := models.OpAdd
		if existed {
			opType = models.OpUpdate
		}
		doc, err := models.Document(rec)
		if err != nil {
			return fmt.Errorf("encode fasting plan: %w", err)
		}
		blob, err := encodeDoc(doc)
		if err != nil {
			return err
		}
		return s.enqueue(tx, string(opType), string(models.CollectionFastingPlans), rec.ID, blob)
	})
}

// DeleteFastingPlan soft-deletes a plan and enqueues a delete.
func (s *Store) DeleteFastingPlan(id string) error {
	return s.withWriteLock(func(tx *sql.Tx) error {
		now := s.clock.Now().Unix()
		res, err := tx.Exec(`UPDATE fasting_plans SET sync_status = 'deleted', last_modified = ? WHERE id = ?`, now, id)
		if err != nil {
			return fmt.Errorf("tombstone fasting plan: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		return s.enqueue(tx, string(models.OpDelete), string(models.CollectionFastingPlans), id, nil)
	})
}

// SaveFastingSession upserts a fasting session record. Timestamp maps to
// started_at so sessions can be listed chronologically without decoding
// the payload.
func (s *Store) SaveFastingSession(rec models.OpaqueRecord) error {
	skip, err := s.guardAgainstResurrection(models.CollectionFastingSess, rec.ID)
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
		if err := tx.QueryRow(`SELECT 1 FROM fasting_sessions WHERE id = ?`, rec.ID).Scan(new(int)); err == nil {
			existed = true
		} else if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check existing fasting session: %w", err)
		}

		if _, err := tx.Exec(
			`INSERT INTO fasting_sessions (id, user_id, plan_id, started_at, payload, sync_status, last_modified)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				plan_id = excluded.plan_id, started_at = excluded.started_at, payload = excluded.payload,
				sync_status = excluded.sync_status, last_modified = excluded.last_modified`,
			rec.ID, rec.UserID, rec.IndexedKey, rec.Timestamp, rec.Payload, string(rec.SyncStatus), rec.LastModified,
		); err != nil {
			return fmt.Errorf("upsert fasting session: %w", err)
		}

		opType := models.OpAdd
		if existed {
			opType = models.OpUpdate
		}
		doc, err := models.Document(rec)
		if err != nil {
			return fmt.Errorf("encode fasting session: %w", err)
		}
		blob, err := encodeDoc(doc)
		if err != nil {
			return err
		}
		return s.enqueue(tx, string(opType), string(models.CollectionFastingSess), rec.ID, blob)
	})
}

// DeleteFastingSession soft-deletes a session and enqueues a delete.
func (s *Store) DeleteFastingSession(id string) error {
	return s.withWriteLock(func(tx *sql.Tx) error {
		now := s.clock.Now().Unix()
		res, err := tx.Exec(`UPDATE fasting_sessions SET sync_status = 'deleted', last_modified = ? WHERE id = ?`, now, id)
		if err != nil {
			return fmt.Errorf("tombstone fasting session: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		return s.enqueue(tx, string(models.OpDelete), string(models.CollectionFastingSess), id, nil)
	})
}

// ListFastingSessionsSince returns non-deleted sessions started at or after
// sinceUnix, most recent first.
func (s *Store) ListFastingSessionsSince(sinceUnix int64) ([]models.OpaqueRecord, error) {
	rows, err := s.conn.Query(
		`SELECT id, user_id, plan_id, started_at, payload, sync_status, last_modified
		 FROM fasting_sessions WHERE started_at >= ? AND sync_status != 'deleted' ORDER BY started_at DESC`,
		sinceUnix,
	)
	if err != nil {
		return nil, fmt.Errorf("list fasting sessions: %w", err)
	}
	defer rows.Close()

	var out []models.OpaqueRecord
	for rows.Next() {
		var rec models.OpaqueRecord
		var status string
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.IndexedKey, &rec.Timestamp, &rec.Payload, &status, &rec.LastModified); err != nil {
			return nil, fmt.Errorf("scan fasting session: %w", err)
		}
		rec.SyncStatus = models.SyncStatus(status)
		out = append(out, rec)
	}
	return out, rows.Err()
}
