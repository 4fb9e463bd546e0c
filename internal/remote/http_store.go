package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Sentinel errors for the HTTP error classes the sync engine's taxonomy
// cares about (spec §7).
var (
	ErrUnauthorized    = errors.New("remote: unauthorized")
	ErrForbidden       = errors.New("remote: permission denied")
	ErrVersionConflict = errors.New("remote: version conflict")
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HTTPStore is an HTTP-backed Store: bearer-token auth, JSON bodies, a
// small set of sentinel errors translated from status codes.
type HTTPStore struct {
	BaseURL  string
	APIKey   string
	DeviceID string
	HTTP     *http.Client
}

// NewHTTPStore builds an HTTPStore with a bounded default client timeout.
func NewHTTPStore(baseURL, apiKey, deviceID string) *HTTPStore {
	return &HTTPStore{
		BaseURL:  baseURL,
		APIKey:   apiKey,
		DeviceID: deviceID,
		HTTP:     &http.Client{Timeout: 30 * time.Second},
	}
}

type documentEnvelope struct {
	Data    map[string]any `json:"data"`
	Version int64          `json:"version"`
}

// GetDocument fetches a document at path. A 404 is reported as
// (nil, false, nil) rather than an error — callers treat "absent" as a
// normal outcome (spec §4.4.1 step 2).
func (c *HTTPStore) GetDocument(ctx context.Context, path string) (map[string]any, bool, error) {
	var env documentEnvelope
	err := c.doRequest(ctx, http.MethodGet, "/v1/doc/"+path, nil, &env)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return env.Data, true, nil
}

// SetDocument writes doc at path. merge=true requests a field-level merge
// on the server rather than a full overwrite.
func (c *HTTPStore) SetDocument(ctx context.Context, path string, doc map[string]any, merge bool) error {
	body := map[string]any{"data": doc, "merge": merge}
	return c.doRequest(ctx, http.MethodPut, "/v1/doc/"+path, body, nil)
}

// DeleteDocument removes the document at path.
func (c *HTTPStore) DeleteDocument(ctx context.Context, path string) error {
	err := c.doRequest(ctx, http.MethodDelete, "/v1/doc/"+path, nil, nil)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// ListCollection fetches every document under collection, optionally
// restricted to documents modified since the given epoch-seconds cutoff.
func (c *HTTPStore) ListCollection(ctx context.Context, collection string, since float64) ([]map[string]any, error) {
	path := "/v1/collections/" + collection
	if since > 0 {
		path += fmt.Sprintf("?since=%f", since)
	}
	var resp struct {
		Documents []map[string]any `json:"documents"`
	}
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Documents, nil
}

// ServerTimestamp returns the client's best estimate of server time. A
// true server-generated sentinel would require a round trip; callers that
// need exact server time use runTransaction, where the server stamps the
// write itself.
func (c *HTTPStore) ServerTimestamp() float64 {
	return float64(time.Now().UTC().UnixNano()) / 1e9
}

// httpTxStore is the TxStore handed to a RunTransaction body: reads go
// straight through, writes are buffered and sent as a single
// compare-and-swap request so the server can linearize the whole
// transaction against concurrent writers.
type httpTxStore struct {
	store       *HTTPStore
	path        string
	readPath    string
	readVersion int64
	haveRead    bool
	pending     map[string]any
}

func (tx *httpTxStore) GetDocument(ctx context.Context, path string) (map[string]any, bool, error) {
	var env documentEnvelope
	err := tx.store.doRequest(ctx, http.MethodGet, "/v1/doc/"+path, nil, &env)
	if errors.Is(err, ErrNotFound) {
		tx.readPath = path
		tx.haveRead = false
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	tx.readPath = path
	tx.readVersion = env.Version
	tx.haveRead = true
	return env.Data, true, nil
}

func (tx *httpTxStore) SetDocument(ctx context.Context, path string, doc map[string]any) error {
	tx.pending = doc
	tx.path = path
	return nil
}

// baseVersion reports the version to submit as the CAS precondition: the
// version observed by a prior GetDocument of the same path, or "no
// expectation" if the write path was never read first.
func (tx *httpTxStore) baseVersion() (version int64, haveExpected bool) {
	if tx.readPath == tx.path {
		return tx.readVersion, tx.haveRead
	}
	return 0, false
}

// RunTransaction implements optimistic concurrency: it runs fn once, then
// submits the buffered write with the version observed during the read as
// a compare-and-swap precondition. On ErrVersionConflict it runs the
// whole body again, up to 3 attempts in total, mirroring typical document-store transaction
// semantics (e.g. Firestore) without requiring server-side scripting.
func (c *HTTPStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error {
	const maxAttempts = 3
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		tx := &httpTxStore{store: c}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		if tx.pending == nil {
			return nil // the body only read, nothing to commit
		}

		expectedVersion, haveExpected := tx.baseVersion()
		body := map[string]any{
			"data":             tx.pending,
			"expected_version": expectedVersion,
			"have_expected":    haveExpected,
		}
		err := c.doRequest(ctx, http.MethodPut, "/v1/doc/"+tx.path+"/cas", body, nil)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("transaction exhausted retries: %w", lastErr)
}

func (c *HTTPStore) doRequest(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	if c.DeviceID != "" {
		req.Header.Set("X-Device-Id", c.DeviceID)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		_ = json.Unmarshal(respBody, &apiErr)
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrForbidden, apiErr.Message)
		case http.StatusNotFound:
			return ErrNotFound
		case http.StatusConflict:
			return fmt.Errorf("%w: %s", ErrVersionConflict, apiErr.Message)
		default:
			return fmt.Errorf("remote store error (status %d): %s", resp.StatusCode, apiErr.Message)
		}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
