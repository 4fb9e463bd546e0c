package localstore

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/akeen90/nutrasafe-beta-sub009/internal/models"
)

// SaveWeightEntry upserts a weight measurement and enqueues the matching
// sync operation, subject to the resurrection guard.
func (s *Store) SaveWeightEntry(entry models.WeightEntry) error {
	skip, err := s.guardAgainstResurrection(models.CollectionWeight, entry.ID)
	if err != nil {
		return fmt.Errorf("check resurrection guard: %w", err)
	}
	if skip {
		return nil
	}

	return s.withWriteLock(func(tx *sql.Tx) error {
		now := s.clock.Now().Unix()
		entry.LastModified = now
		entry.SyncStatus = models.StatusPending

		_, existed, err := s.getWeightEntryTx(tx, entry.ID)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(
			`INSERT INTO weight_entries
				(id, user_id, weight, date, bmi, waist, dress_size, photos_json, sync_status, last_modified)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				weight = excluded.weight,
				date = excluded.date,
				bmi = excluded.bmi,
				waist = excluded.waist,
				dress_size = excluded.dress_size,
				photos_json = excluded.photos_json,
				sync_status = excluded.sync_status,
				last_modified = excluded.last_modified`,
			entry.ID, entry.UserID, entry.Weight, entry.Date, entry.BMI, entry.Waist, entry.DressSize,
			entry.PhotosJSON, string(entry.SyncStatus), entry.LastModified,
		); err != nil {
			return fmt.Errorf("upsert weight entry: %w", err)
		}

		opType := models.OpAdd
		if existed {
			opType = models.OpUpdate
		}
		doc, err := models.Document(entry)
		if err != nil {
			return fmt.Errorf("encode weight entry: %w", err)
		}
		blob, err := encodeDoc(doc)
		if err != nil {
			return err
		}
		return s.enqueue(tx, string(opType), string(models.CollectionWeight), entry.ID, blob)
	})
}

// DeleteWeightEntry soft-deletes the row and enqueues a delete.
func (s *Store) DeleteWeightEntry(id string) error {
	return s.withWriteLock(func(tx *sql.Tx) error {
		now := s.clock.Now().Unix()
		res, err := tx.Exec(
			`UPDATE weight_entries SET sync_status = 'deleted', last_modified = ? WHERE id = ?`,
			now, id,
		)
		if err != nil {
			return fmt.Errorf("tombstone weight entry: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		return s.enqueue(tx, string(models.OpDelete), string(models.CollectionWeight), id, nil)
	})
}

// ListWeightEntries returns non-deleted entries ordered by date ascending.
func (s *Store) ListWeightEntries() ([]models.WeightEntry, error) {
	rows, err := s.conn.Query(
		`SELECT id, user_id, weight, date, bmi, waist, COALESCE(dress_size, ''), COALESCE(photos_json, '[]'), sync_status, last_modified
		 FROM weight_entries WHERE sync_status != 'deleted' ORDER BY date ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list weight entries: %w", err)
	}
	defer rows.Close()

	var out []models.WeightEntry
	for rows.Next() {
		e, err := scanWeightEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) getWeightEntryTx(tx *sql.Tx, id string) (models.WeightEntry, bool, error) {
	const q = `SELECT id, user_id, weight, date, bmi, waist, COALESCE(dress_size, ''), COALESCE(photos_json, '[]'), sync_status, last_modified
		FROM weight_entries WHERE id = ?`

	var row *sql.Row
	if tx != nil {
		row = tx.QueryRow(q, id)
	} else {
		row = s.conn.QueryRow(q, id)
	}

	e, err := scanWeightEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.WeightEntry{}, false, nil
	}
	if err != nil {
		return models.WeightEntry{}, false, err
	}
	return e, true, nil
}

func scanWeightEntry(row scannable) (models.WeightEntry, error) {
	var e models.WeightEntry
	var status string
	err := row.Scan(&e.ID, &e.UserID, &e.Weight, &e.Date, &e.BMI, &e.Waist, &e.DressSize, &e.PhotosJSON,
		&status, &e.LastModified)
	if err != nil {
		return models.WeightEntry{}, err
	}
	e.SyncStatus = models.SyncStatus(status)
	return e, nil
}
