package localstore

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/akeen90/nutrasafe-beta-sub009/internal/models"
)

// SaveSettings upserts the singleton settings row (id='current') and
// enqueues a sync op. Settings are never tombstoned — there is exactly one
// row per user and it is always present once written once — so markSynced
// for this collection is a plain singleton upsert (spec §9 open question,
// resolved: no delete path exists for settings).
func (s *Store) SaveSettings(settings models.UserSettings) error {
	settings.ID = models.SettingsID

	return s.withWriteLock(func(tx *sql.Tx) error {
		now := s.clock.Now().Unix()
		settings.LastModified = now
		settings.SyncStatus = models.StatusPending

		_, existed, err := s.getSettingsTx(tx)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(
			`INSERT INTO user_settings
				(id, user_id, calorie_goal, protein_pct, carbs_pct, fat_pct, allergens_json, sync_status, last_modified)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				user_id = excluded.user_id,
				calorie_goal = excluded.calorie_goal,
				protein_pct = excluded.protein_pct,
				carbs_pct = excluded.carbs_pct,
				fat_pct = excluded.fat_pct,
				allergens_json = excluded.allergens_json,
				sync_status = excluded.sync_status,
				last_modified = excluded.last_modified`,
			settings.ID, settings.UserID, settings.CalorieGoal, settings.ProteinPct, settings.CarbsPct,
			settings.FatPct, settings.AllergensJSON, string(settings.SyncStatus), settings.LastModified,
		); err != nil {
			return fmt.Errorf("upsert settings: %w", err)
		}

		opType := models.OpAdd
		if existed {
			opType = models.OpUpdate
		}
		doc, err := models.Document(settings)
		if err != nil {
			return fmt.Errorf("encode settings: %w", err)
		}
		blob, err := encodeDoc(doc)
		if err != nil {
			return err
		}
		return s.enqueue(tx, string(opType), string(models.CollectionSettings), settings.ID, blob)
	})
}

// GetSettings returns the singleton settings row, if one has been saved.
func (s *Store) GetSettings() (models.UserSettings, bool, error) {
	return s.getSettingsTx(nil)
}

func (s *Store) getSettingsTx(tx *sql.Tx) (models.UserSettings, bool, error) {
	const q = `SELECT id, user_id, calorie_goal, protein_pct, carbs_pct, fat_pct,
		COALESCE(allergens_json, '[]'), sync_status, last_modified
		FROM user_settings WHERE id = ?`

	var row *sql.Row
	if tx != nil {
		row = tx.QueryRow(q, models.SettingsID)
	} else {
		row = s.conn.QueryRow(q, models.SettingsID)
	}

	var settings models.UserSettings
	var status string
	err := row.Scan(&settings.ID, &settings.UserID, &settings.CalorieGoal, &settings.ProteinPct,
		&settings.CarbsPct, &settings.FatPct, &settings.AllergensJSON, &status, &settings.LastModified)
	if errors.Is(err, sql.ErrNoRows) {
		return models.UserSettings{}, false, nil
	}
	if err != nil {
		return models.UserSettings{}, false, fmt.Errorf("read settings: %w", err)
	}
	settings.SyncStatus = models.SyncStatus(status)
	return settings, true, nil
}
