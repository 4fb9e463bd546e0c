package syncengine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/akeen90/nutrasafe-beta-sub009/internal/localstore"
	"github.com/akeen90/nutrasafe-beta-sub009/internal/remote"
)

// docPath is the remote document path for a (collection, id) pair.
func docPath(collection, documentID string) string {
	return collection + "/" + documentID
}

// applyWithConflictRule implements the server-authoritative, last-write-wins
// conflict rule (spec §4.4.1): read the server document; if absent, write
// the local document with _version=1; if present and the server's version
// is ahead of what the local write assumed, record a conflict row but
// still proceed, writing _version = serverVersion + 1. Local writes are
// never dropped — the user's most recent intent always wins the write,
// conflicts are recorded for visibility only.
func applyWithConflictRule(ctx context.Context, store *localstore.Store, rs remote.Store, collection, documentID string, localDoc map[string]any, localVersion int64) (newVersion int64, conflictDetected bool, err error) {
	path := docPath(collection, documentID)

	err = rs.RunTransaction(ctx, func(ctx context.Context, tx remote.TxStore) error {
		serverDoc, present, err := tx.GetDocument(ctx, path)
		if err != nil {
			return fmt.Errorf("read server document: %w", err)
		}

		merged := cloneDoc(localDoc)
		merged["lastModified"] = rs.ServerTimestamp()

		if !present {
			newVersion = 1
			merged["_version"] = newVersion
			return tx.SetDocument(ctx, path, merged)
		}

		serverVersion := versionOf(serverDoc)
		if serverVersion > localVersion {
			conflictDetected = true
			localBlob, err := json.Marshal(localDoc)
			if err != nil {
				return fmt.Errorf("encode local document for conflict record: %w", err)
			}
			serverBlob, err := json.Marshal(serverDoc)
			if err != nil {
				return fmt.Errorf("encode server document for conflict record: %w", err)
			}
			if err := store.RecordConflict(collection, documentID, localBlob, serverBlob, localVersion, serverVersion); err != nil {
				return fmt.Errorf("record conflict: %w", err)
			}
		}

		newVersion = serverVersion + 1
		merged["_version"] = newVersion
		return tx.SetDocument(ctx, path, merged)
	})
	return newVersion, conflictDetected, err
}

func versionOf(doc map[string]any) int64 {
	v, ok := doc["_version"]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case json.Number:
		i, _ := n.Int64()
		return i
	default:
		return 0
	}
}

func cloneDoc(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
