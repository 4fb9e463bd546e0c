// Package remote defines the collaborator interfaces the sync engine talks
// to — the remote document store, the auth provider, and the network
// monitor — plus an HTTP-backed Store and a dial-probing NetworkMonitor.
// No AuthProvider implementation lives in this package.
package remote

import (
	"context"
	"errors"
)

// ErrAuthChanged is returned by AuthProvider.CheckUnchanged when the
// signed-in user has changed since the token was captured.
var ErrAuthChanged = errors.New("remote: auth state changed mid-operation")

// ErrNotFound is what HTTPStore's requests return on a 404.
// GetDocument reports that case as (nil, false, nil), and DeleteDocument
// reports it as success.
var ErrNotFound = errors.New("remote: document not found")

// TxStore is the narrow read/write surface available inside a
// Store.RunTransaction body — a document read followed by a conditional
// write, linearized by the remote store itself.
type TxStore interface {
	GetDocument(ctx context.Context, path string) (map[string]any, bool, error)
	SetDocument(ctx context.Context, path string, doc map[string]any) error
}

// Store is the abstract remote document store the sync engine drains
// into and pulls from.
type Store interface {
	GetDocument(ctx context.Context, path string) (map[string]any, bool, error)
	SetDocument(ctx context.Context, path string, doc map[string]any, merge bool) error
	DeleteDocument(ctx context.Context, path string) error
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error
	ServerTimestamp() float64

	// ListCollection fetches every document under a collection, used by
	// pullAllData (spec §4.4). since, when non-zero, restricts the fetch
	// to documents modified at or after that many seconds since epoch
	// (the initialPullWindow tunable).
	ListCollection(ctx context.Context, collection string, since float64) ([]map[string]any, error)
}

// AuthToken is an opaque snapshot of the signed-in identity, captured at
// the start of a pull and re-checked after every remote fetch.
type AuthToken struct {
	UserID     string
	Generation int64
}

// AuthEvent is published on an AuthProvider's event stream whenever the
// signed-in identity changes.
type AuthEvent struct {
	UserID     string
	Generation int64
}

// AuthProvider exposes the current identity and a cheap way to detect that
// it changed mid-operation (spec §4.4.5).
type AuthProvider interface {
	CurrentUserID() (string, bool)
	CaptureAuthState() AuthToken
	CheckUnchanged(AuthToken) error
	Subscribe() (events <-chan AuthEvent, unsubscribe func())
}

// ConnectivityEvent is one connected/disconnected edge.
type ConnectivityEvent struct {
	Connected bool
}

// NetworkMonitor exposes a stream of connectivity edges so the engine can
// debounce reconnects (spec §4.4.4).
type NetworkMonitor interface {
	Connected() bool
	Subscribe() (events <-chan ConnectivityEvent, unsubscribe func())
}
