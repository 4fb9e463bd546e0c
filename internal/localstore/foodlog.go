package localstore

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/akeen90/nutrasafe-beta-sub009/internal/models"
)

// SaveFoodLogEntry upserts a food log row and enqueues the corresponding
// sync operation. If the entry is tombstoned or has a pending delete
// queued, the write is silently skipped (spec §4.1 ResurrectionGuard).
func (s *Store) SaveFoodLogEntry(e models.FoodLogEntry) error {
	skip, err := s.guardAgainstResurrection(models.CollectionFoodLog, e.ID)
	if err != nil {
		return fmt.Errorf("check resurrection guard: %w", err)
	}
	if skip {
		return nil
	}

	return s.withWriteLock(func(tx *sql.Tx) error {
		now := s.clock.Now().Unix()
		e.LastModified = now
		e.SyncStatus = models.StatusPending

		_, existed, err := s.getFoodLogEntryTx(tx, e.ID)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(
			`INSERT INTO food_log_entries
				(id, user_id, food_name, serving_size, serving_unit, calories, protein_g, carbs_g, fat_g,
				 micros_json, meal_type, consumed_date, logged_at, sync_status, last_modified)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				food_name = excluded.food_name,
				serving_size = excluded.serving_size,
				serving_unit = excluded.serving_unit,
				calories = excluded.calories,
				protein_g = excluded.protein_g,
				carbs_g = excluded.carbs_g,
				fat_g = excluded.fat_g,
				micros_json = excluded.micros_json,
				meal_type = excluded.meal_type,
				consumed_date = excluded.consumed_date,
				logged_at = excluded.logged_at,
				sync_status = excluded.sync_status,
				last_modified = excluded.last_modified`,
			e.ID, e.UserID, e.FoodName, e.ServingSize, e.ServingUnit, e.Calories, e.ProteinG, e.CarbsG, e.FatG,
			e.MicrosJSON, e.MealType, e.ConsumedDate, e.LoggedAt, string(e.SyncStatus), e.LastModified,
		); err != nil {
			return fmt.Errorf("upsert food log entry: %w", err)
		}

		opType := models.OpAdd
		if existed {
			opType = models.OpUpdate
		}
		doc, err := models.Document(e)
		if err != nil {
			return fmt.Errorf("encode food log entry: %w", err)
		}
		blob, err := encodeDoc(doc)
		if err != nil {
			return err
		}
		return s.enqueue(tx, string(opType), string(models.CollectionFoodLog), e.ID, blob)
	})
}

// DeleteFoodLogEntry soft-deletes the row and enqueues a delete operation.
func (s *Store) DeleteFoodLogEntry(id string) error {
	return s.withWriteLock(func(tx *sql.Tx) error {
		now := s.clock.Now().Unix()
		res, err := tx.Exec(
			`UPDATE food_log_entries SET sync_status = 'deleted', last_modified = ? WHERE id = ?`,
			now, id,
		)
		if err != nil {
			return fmt.Errorf("tombstone food log entry: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		return s.enqueue(tx, string(models.OpDelete), string(models.CollectionFoodLog), id, nil)
	})
}

// GetFoodLogEntry returns the entry, excluding tombstoned rows.
func (s *Store) GetFoodLogEntry(id string) (models.FoodLogEntry, bool, error) {
	e, found, err := s.getFoodLogEntryTx(nil, id)
	if err != nil || !found {
		return e, found, err
	}
	if e.SyncStatus == models.StatusDeleted {
		return models.FoodLogEntry{}, false, nil
	}
	return e, true, nil
}

// ListFoodLogEntriesByDate returns all non-deleted entries for a given
// consumed date (YYYY-MM-DD).
func (s *Store) ListFoodLogEntriesByDate(consumedDate string) ([]models.FoodLogEntry, error) {
	rows, err := s.conn.Query(
		`SELECT id, user_id, food_name, serving_size, serving_unit, calories, protein_g, carbs_g, fat_g,
			micros_json, meal_type, consumed_date, logged_at, sync_status, last_modified
		 FROM food_log_entries WHERE consumed_date = ? AND sync_status != 'deleted' ORDER BY logged_at ASC`,
		consumedDate,
	)
	if err != nil {
		return nil, fmt.Errorf("list food log entries: %w", err)
	}
	defer rows.Close()

	var out []models.FoodLogEntry
	for rows.Next() {
		e, err := scanFoodLogEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) getFoodLogEntryTx(tx *sql.Tx, id string) (models.FoodLogEntry, bool, error) {
	const q = `SELECT id, user_id, food_name, serving_size, serving_unit, calories, protein_g, carbs_g, fat_g,
		micros_json, meal_type, consumed_date, logged_at, sync_status, last_modified
		FROM food_log_entries WHERE id = ?`

	var row *sql.Row
	if tx != nil {
		row = tx.QueryRow(q, id)
	} else {
		row = s.conn.QueryRow(q, id)
	}

	var e models.FoodLogEntry
	var status string
	err := row.Scan(&e.ID, &e.UserID, &e.FoodName, &e.ServingSize, &e.ServingUnit, &e.Calories, &e.ProteinG, &e.CarbsG, &e.FatG,
		&e.MicrosJSON, &e.MealType, &e.ConsumedDate, &e.LoggedAt, &status, &e.LastModified)
	if errors.Is(err, sql.ErrNoRows) {
		return models.FoodLogEntry{}, false, nil
	}
	if err != nil {
		return models.FoodLogEntry{}, false, fmt.Errorf("read food log entry: %w", err)
	}
	e.SyncStatus = models.SyncStatus(status)
	return e, true, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanFoodLogEntry(row scannable) (models.FoodLogEntry, error) {
	var e models.FoodLogEntry
	var status string
	err := row.Scan(&e.ID, &e.UserID, &e.FoodName, &e.ServingSize, &e.ServingUnit, &e.Calories, &e.ProteinG, &e.CarbsG, &e.FatG,
		&e.MicrosJSON, &e.MealType, &e.ConsumedDate, &e.LoggedAt, &status, &e.LastModified)
	if err != nil {
		return models.FoodLogEntry{}, fmt.Errorf("scan food log entry: %w", err)
	}
	e.SyncStatus = models.SyncStatus(status)
	return e, nil
}
