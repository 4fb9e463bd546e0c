package localstore

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/akeen90/nutrasafe-beta-sub009/internal/models"
)

// SaveFavoriteFood upserts a favorite food record. IndexedKey maps to
// food_name.
func (s *Store) SaveFavoriteFood(rec models.OpaqueRecord) error {
	skip, err := s.guardAgainstResurrection(models.CollectionFavorites, rec.ID)
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
		if err := tx.QueryRow(`SELECT 1 FROM favorite_foods WHERE id = ?`, rec.ID).Scan(new(int)); err == nil {
			existed = true
		} else if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check existing favorite food: %w", err)
		}

		if _, err := tx.Exec(
			`INSERT INTO favorite_foods (id, user_id, food_name, payload, sync_status, last_modified)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				food_name = excluded.food_name, payload = excluded.payload,
				sync_status = excluded.sync_status, last_modified = excluded.last_modified`,
			rec.ID, rec.UserID, rec.IndexedKey, rec.Payload, string(rec.SyncStatus), rec.LastModified,
		); err != nil {
			return fmt.Errorf("upsert favorite food: %w", err)
		}

		opType := models.OpAdd
		if existed {
			opType = models.OpUpdate
		}
		doc, err := models.Document(rec)
		if err != nil {
			return fmt.Errorf("encode favorite food: %w", err)
		}
		blob, err := encodeDoc(doc)
		if err != nil {
			return err
		}
		return s.enqueue(tx, string(opType), string(models.CollectionFavorites), rec.ID, blob)
	})
}

// DeleteFavoriteFood soft-deletes a favorite and enqueues a delete.
func (s *Store) DeleteFavoriteFood(id string) error {
	return s.withWriteLock(func(tx *sql.Tx) error {
		now := s.clock.Now().Unix()
		res, err := tx.Exec(`UPDATE favorite_foods SET sync_status = 'deleted', last_modified = ? WHERE id = ?`, now, id)
		if err != nil {
			return fmt.Errorf("tombstone favorite food: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		return s.enqueue(tx, string(models.OpDelete), string(models.CollectionFavorites), id, nil)
	})
}

// ListFavoriteFoods returns all non-deleted favorites.
func (s *Store) ListFavoriteFoods() ([]models.OpaqueRecord, error) {
	rows, err := s.conn.Query(
		`SELECT id, user_id, food_name, payload, sync_status, last_modified
		 FROM favorite_foods WHERE sync_status != 'deleted' ORDER BY food_name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list favorite foods: %w", err)
	}
	defer rows.Close()

	var out []models.OpaqueRecord
	for rows.Next() {
		var rec models.OpaqueRecord
		var status string
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.IndexedKey, &rec.Payload, &status, &rec.LastModified); err != nil {
			return nil, fmt.Errorf("scan favorite food: %w", err)
		}
		rec.SyncStatus = models.SyncStatus(status)
		out = append(out, rec)
	}
	return out, rows.Err()
}
