package localstore

import "encoding/json"

// encodeDoc serializes the generic document representation used as the
// sync_queue payload, so the sync engine can replay an operation against
// the remote store without re-reading the source table.
func encodeDoc(doc map[string]any) ([]byte, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return b, nil
}
