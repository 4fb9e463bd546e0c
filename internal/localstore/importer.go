package localstore

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/akeen90/nutrasafe-beta-sub009/internal/models"
)

// ImportFromServer merges a batch of remote documents for one collection
// into the local store, within a single transaction. For each entity: if
// locally tombstoned, skip; if a delete is pending, skip; if ANY pending op
// exists for that document, skip entirely — local work wins until it has
// been flushed (spec §4.1 importFromServer). Surviving entities are
// upserted with sync_status='synced'. food_log_entries alone uses INSERT OR
// IGNORE, because it alone is guarded by a partial unique index
// (idx_food_log_dedup) meant to tolerate cross-device duplicates; every
// other collection keys only on id and must use ON CONFLICT DO UPDATE so a
// remote edit to an id that already exists locally actually lands.
func (s *Store) ImportFromServer(collection models.Collection, entities []map[string]any) error {
	return s.withWriteLock(func(tx *sql.Tx) error {
		for _, raw := range entities {
			id, _ := raw["id"].(string)
			if id == "" {
				continue
			}

			tombstoned, err := isTombstonedVia(tx, collection, id)
			if err != nil {
				return fmt.Errorf("check tombstone during import: %w", err)
			}
			if tombstoned {
				continue
			}

			hasPending, err := s.hasAnyPendingOp(tx, collection, id)
			if err != nil {
				return fmt.Errorf("check pending ops during import: %w", err)
			}
			if hasPending {
				continue
			}

			if err := s.importOne(tx, collection, raw); err != nil {
				return fmt.Errorf("import %s/%s: %w", collection, id, err)
			}
		}
		return nil
	})
}

// hasAnyPendingOp reports whether any queued op — add, update, or delete —
// exists for this document, regardless of type.
func (s *Store) hasAnyPendingOp(tx *sql.Tx, collection models.Collection, id string) (bool, error) {
	var n int
	err := tx.QueryRow(
		`SELECT COUNT(*) FROM sync_queue WHERE collection = ? AND document_id = ?`,
		string(collection), id,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func decode[T any](raw map[string]any) (T, error) {
	var out T
	b, err := json.Marshal(raw)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, err
	}
	return out, nil
}

func (s *Store) importOne(tx *sql.Tx, collection models.Collection, raw map[string]any) error {
	switch collection {
	case models.CollectionFoodLog:
		e, err := decode[models.FoodLogEntry](raw)
		if err != nil {
			return err
		}
		e.SyncStatus = models.StatusSynced
		_, err = tx.Exec(
			`INSERT OR IGNORE INTO food_log_entries
				(id, user_id, food_name, serving_size, serving_unit, calories, protein_g, carbs_g, fat_g,
				 micros_json, meal_type, consumed_date, logged_at, sync_status, last_modified)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.UserID, e.FoodName, e.ServingSize, e.ServingUnit, e.Calories, e.ProteinG, e.CarbsG, e.FatG,
			e.MicrosJSON, e.MealType, e.ConsumedDate, e.LoggedAt, string(e.SyncStatus), e.LastModified,
		)
		return err

	case models.CollectionPerishables:
		item, err := decode[models.PerishableItem](raw)
		if err != nil {
			return err
		}
		item.SyncStatus = models.StatusSynced
		_, err = tx.Exec(
			`INSERT INTO perishable_items
				(id, user_id, name, quantity, unit, expiry_date, added_date, metadata_json, sync_status, last_modified)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				quantity = excluded.quantity,
				unit = excluded.unit,
				expiry_date = excluded.expiry_date,
				added_date = excluded.added_date,
				metadata_json = excluded.metadata_json,
				sync_status = excluded.sync_status,
				last_modified = excluded.last_modified`,
			item.ID, item.UserID, item.Name, item.Quantity, item.Unit, item.ExpiryDate, item.AddedDate,
			item.MetadataJSON, string(item.SyncStatus), item.LastModified,
		)
		return err

	case models.CollectionWeight:
		e, err := decode[models.WeightEntry](raw)
		if err != nil {
			return err
		}
		e.SyncStatus = models.StatusSynced
		_, err = tx.Exec(
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
			e.ID, e.UserID, e.Weight, e.Date, e.BMI, e.Waist, e.DressSize, e.PhotosJSON,
			string(e.SyncStatus), e.LastModified,
		)
		return err

	case models.CollectionSettings:
		settings, err := decode[models.UserSettings](raw)
		if err != nil {
			return err
		}
		settings.ID = models.SettingsID
		settings.SyncStatus = models.StatusSynced
		_, err = tx.Exec(
			`INSERT INTO user_settings
				(id, user_id, calorie_goal, protein_pct, carbs_pct, fat_pct, allergens_json, sync_status, last_modified)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				calorie_goal = excluded.calorie_goal,
				protein_pct = excluded.protein_pct,
				carbs_pct = excluded.carbs_pct,
				fat_pct = excluded.fat_pct,
				allergens_json = excluded.allergens_json,
				sync_status = excluded.sync_status,
				last_modified = excluded.last_modified`,
			settings.ID, settings.UserID, settings.CalorieGoal, settings.ProteinPct, settings.CarbsPct,
			settings.FatPct, settings.AllergensJSON, string(settings.SyncStatus), settings.LastModified,
		)
		return err

	case models.CollectionFastingPlans:
		rec, err := decode[models.OpaqueRecord](raw)
		if err != nil {
			return err
		}
		rec.SyncStatus = models.StatusSynced
		_, err = tx.Exec(
			`INSERT INTO fasting_plans (id, user_id, name, payload, sync_status, last_modified)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				name = excluded.name, payload = excluded.payload,
				sync_status = excluded.sync_status, last_modified = excluded.last_modified`,
			rec.ID, rec.UserID, rec.IndexedKey, rec.Payload, string(rec.SyncStatus), rec.LastModified,
		)
		return err

	case models.CollectionFastingSess:
		rec, err := decode[models.OpaqueRecord](raw)
		if err != nil {
			return err
		}
		rec.SyncStatus = models.StatusSynced
		_, err = tx.Exec(
			`INSERT INTO fasting_sessions (id, user_id, plan_id, started_at, payload, sync_status, last_modified)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				plan_id = excluded.plan_id, started_at = excluded.started_at, payload = excluded.payload,
				sync_status = excluded.sync_status, last_modified = excluded.last_modified`,
			rec.ID, rec.UserID, rec.IndexedKey, rec.Timestamp, rec.Payload, string(rec.SyncStatus), rec.LastModified,
		)
		return err

	case models.CollectionReactionLogs:
		rec, err := decode[models.OpaqueRecord](raw)
		if err != nil {
			return err
		}
		rec.SyncStatus = models.StatusSynced
		_, err = tx.Exec(
			`INSERT INTO reaction_logs (id, user_id, food_name, occurred_at, payload, sync_status, last_modified)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				food_name = excluded.food_name, occurred_at = excluded.occurred_at, payload = excluded.payload,
				sync_status = excluded.sync_status, last_modified = excluded.last_modified`,
			rec.ID, rec.UserID, rec.IndexedKey, rec.Timestamp, rec.Payload, string(rec.SyncStatus), rec.LastModified,
		)
		return err

	case models.CollectionFavorites:
		rec, err := decode[models.OpaqueRecord](raw)
		if err != nil {
			return err
		}
		rec.SyncStatus = models.StatusSynced
		_, err = tx.Exec(
			`INSERT INTO favorite_foods (id, user_id, food_name, payload, sync_status, last_modified)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				food_name = excluded.food_name, payload = excluded.payload,
				sync_status = excluded.sync_status, last_modified = excluded.last_modified`,
			rec.ID, rec.UserID, rec.IndexedKey, rec.Payload, string(rec.SyncStatus), rec.LastModified,
		)
		return err

	default:
		return fmt.Errorf("import: unknown collection %q", collection)
	}
}
