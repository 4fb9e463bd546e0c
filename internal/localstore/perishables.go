package localstore

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/akeen90/nutrasafe-beta-sub009/internal/models"
)

// SavePerishableItem upserts a perishable inventory row and enqueues the
// matching sync operation, subject to the resurrection guard.
func (s *Store) SavePerishableItem(item models.PerishableItem) error {
	skip, err := s.guardAgainstResurrection(models.CollectionPerishables, item.ID)
	if err != nil {
		return fmt.Errorf("check resurrection guard: %w", err)
	}
	if skip {
		return nil
	}

	return s.withWriteLock(func(tx *sql.Tx) error {
		now := s.clock.Now().Unix()
		item.LastModified = now
		item.SyncStatus = models.StatusPending

		_, existed, err := s.getPerishableItemTx(tx, item.ID)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(
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
		); err != nil {
			return fmt.Errorf("upsert perishable item: %w", err)
		}

		opType := models.OpAdd
		if existed {
			opType = models.OpUpdate
		}
		doc, err := models.Document(item)
		if err != nil {
			return fmt.Errorf("encode perishable item: %w", err)
		}
		blob, err := encodeDoc(doc)
		if err != nil {
			return err
		}
		return s.enqueue(tx, string(opType), string(models.CollectionPerishables), item.ID, blob)
	})
}

// DeletePerishableItem soft-deletes the row and enqueues a delete.
func (s *Store) DeletePerishableItem(id string) error {
	return s.withWriteLock(func(tx *sql.Tx) error {
		now := s.clock.Now().Unix()
		res, err := tx.Exec(
			`UPDATE perishable_items SET sync_status = 'deleted', last_modified = ? WHERE id = ?`,
			now, id,
		)
		if err != nil {
			return fmt.Errorf("tombstone perishable item: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		return s.enqueue(tx, string(models.OpDelete), string(models.CollectionPerishables), id, nil)
	})
}

// ListExpiringPerishables returns non-deleted items whose expiry_date is on
// or before cutoff (YYYY-MM-DD), soonest first — the data the UI's "use
// soon" shelf is built from.
func (s *Store) ListExpiringPerishables(cutoff string) ([]models.PerishableItem, error) {
	rows, err := s.conn.Query(
		`SELECT id, user_id, name, quantity, unit, expiry_date, added_date, metadata_json, sync_status, last_modified
		 FROM perishable_items WHERE expiry_date <= ? AND sync_status != 'deleted' ORDER BY expiry_date ASC`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("list expiring perishables: %w", err)
	}
	defer rows.Close()

	var out []models.PerishableItem
	for rows.Next() {
		item, err := scanPerishableItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *Store) getPerishableItemTx(tx *sql.Tx, id string) (models.PerishableItem, bool, error) {
	const q = `SELECT id, user_id, name, quantity, unit, expiry_date, added_date, metadata_json, sync_status, last_modified
		FROM perishable_items WHERE id = ?`

	var row *sql.Row
	if tx != nil {
		row = tx.QueryRow(q, id)
	} else {
		row = s.conn.QueryRow(q, id)
	}

	item, err := scanPerishableItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PerishableItem{}, false, nil
	}
	if err != nil {
		return models.PerishableItem{}, false, err
	}
	return item, true, nil
}

func scanPerishableItem(row scannable) (models.PerishableItem, error) {
	var item models.PerishableItem
	var status string
	err := row.Scan(&item.ID, &item.UserID, &item.Name, &item.Quantity, &item.Unit, &item.ExpiryDate,
		&item.AddedDate, &item.MetadataJSON, &status, &item.LastModified)
	if err != nil {
		return models.PerishableItem{}, err
	}
	item.SyncStatus = models.SyncStatus(status)
	return item, nil
}
