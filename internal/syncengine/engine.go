// Package syncengine drains the local store's sync queue into a remote
// document store and pulls remote data back, applying the conflict rule,
// the resurrection guard, and a circuit breaker against a broadly failing
// backend.
package syncengine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/akeen90/nutrasafe-beta-sub009/internal/clock"
	"github.com/akeen90/nutrasafe-beta-sub009/internal/localstore"
	"github.com/akeen90/nutrasafe-beta-sub009/internal/models"
	"github.com/akeen90/nutrasafe-beta-sub009/internal/remote"
)

// Tunable constants (spec §6).
const (
	maxRetry                = 10
	maxConcurrentOperations = 5
	transactionTimeout      = 30 * time.Second
	minSyncInterval         = 30 * time.Second
	initialPullWindow       = 90 * 24 * time.Hour
)

// networkReconnectDebounce and periodicPullInterval are vars, not consts,
// so tests can shrink them instead of waiting out the real 3s/1800s windows.
var (
	networkReconnectDebounce = 3 * time.Second
	periodicPullInterval     = 1800 * time.Second
)

// Errors in the §7 taxonomy that callers of triggerSync/forceSync/
// pullAllData need to distinguish.
var (
	ErrSyncAlreadyRunning = errors.New("syncengine: sync already running")
	ErrNoNetwork          = errors.New("syncengine: no network connectivity")
	ErrAuthChanged        = errors.New("syncengine: auth changed mid-operation")
	ErrTransactionTimeout = errors.New("syncengine: remote transaction timed out")
)

// Engine owns the drain loop, the circuit breaker, and the network/auth
// guards around it. One Engine is a process-wide singleton wrapping one
// LocalStore and one RemoteStore, per spec §5 "Shared resources".
type Engine struct {
	store   *localstore.Store
	remote  remote.Store
	auth    remote.AuthProvider
	network remote.NetworkMonitor
	clock   clock.Clock
	log     *slog.Logger

	isSyncing sync.Mutex // TryLock-only gate; never held across goroutines beyond one drain

	mu          sync.Mutex
	lastAttempt time.Time

	breaker breaker

	lifecycleMu sync.Mutex
}

// Option configures an Engine at construction time.
type Option func(*Engine)

func WithClock(c clock.Clock) Option   { return func(e *Engine) { e.clock = c } }
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.log = l } }

// New builds an Engine. It does not start any background tasks; call
// Start to begin network and periodic-pull handling.
func New(store *localstore.Store, rs remote.Store, auth remote.AuthProvider, network remote.NetworkMonitor, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		remote:  rs,
		auth:    auth,
		network: network,
		clock:   clock.SystemClock{},
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TriggerSync is fire-and-forget: it returns immediately and runs the
// drain on a background goroutine if connected, not already syncing, and
// the last attempt was at least minSyncInterval ago. Otherwise it is a
// silent no-op (spec §4.4).
func (e *Engine) TriggerSync() {
	if !e.network.Connected() {
		return
	}
	e.mu.Lock()
	elapsed := e.clock.Now().Sub(e.lastAttempt)
	e.mu.Unlock()
	if elapsed < minSyncInterval {
		return
	}
	go func() {
		if err := e.drain(context.Background()); err != nil && !errors.Is(err, ErrSyncAlreadyRunning) {
			e.log.Warn("syncengine: background sync failed", "err", err)
		}
	}()
}

// ForceSync runs the drain synchronously, ignoring minSyncInterval but
// still respecting connectivity and mutual exclusion.
func (e *Engine) ForceSync(ctx context.Context) error {
	if !e.network.Connected() {
		return ErrNoNetwork
	}
	return e.drain(ctx)
}

// TriggerPull is fire-and-forget: it returns immediately and runs
// PullAllData on a background goroutine if connected, logging (not
// returning) any failure. Used by the periodic-pull timer and by the
// database-recovery watcher, neither of which has a caller to report to.
func (e *Engine) TriggerPull() {
	if !e.network.Connected() {
		return
	}
	go func() {
		if err := e.PullAllData(context.Background()); err != nil {
			e.log.Warn("syncengine: background pull failed", "err", err)
		}
	}()
}

// drain implements the push-path algorithm in spec §4.4.
func (e *Engine) drain(ctx context.Context) error {
	if !e.isSyncing.TryLock() {
		return ErrSyncAlreadyRunning
	}
	defer e.isSyncing.Unlock()

	e.mu.Lock()
	e.lastAttempt = e.clock.Now()
	e.mu.Unlock()

	ops, err := e.store.ReadyOperations(500)
	if err != nil {
		return fmt.Errorf("read ready operations: %w", err)
	}
	if len(ops) == 0 {
		return nil
	}

	newFailures := 0
	for batchStart := 0; batchStart < len(ops); batchStart += maxConcurrentOperations {
		if e.breaker.shouldSkipDrain(e.clock) {
			break
		}

		end := batchStart + maxConcurrentOperations
		if end > len(ops) {
			end = len(ops)
		}
		batch := ops[batchStart:end]

		succeeded, failed, batchNewFailures := e.runBatch(ctx, batch)
		newFailures += batchNewFailures
		e.breaker.recordBatch(e.clock, succeeded, failed)
	}

	if err := e.store.CleanupDeletedRecords(); err != nil {
		e.log.Warn("syncengine: cleanup deleted records failed", "err", err)
	}

	if newFailures > 0 {
		e.publish(localstore.EventSyncOperationsFailed, localstore.SyncOperationsFailedPayload{Count: newFailures})
	}
	totalFailures, _ := e.store.FailedOperations()
	e.publish(localstore.EventSyncCompleted, localstore.SyncCompletedPayload{
		NewFailures:   newFailures,
		TotalFailures: len(totalFailures),
	})

	return nil
}

func (e *Engine) publish(name localstore.EventName, payload any) {
	// Store.Events returns the bus; publish is unexported so route through
	// a store-owned helper instead of reaching into the bus directly.
	e.store.Publish(name, payload)
}

// runBatch runs up to maxConcurrentOperations operations concurrently and
// reports success/failure counts for the circuit breaker.
func (e *Engine) runBatch(ctx context.Context, batch []localstore.QueuedOp) (succeeded, failed, newFailures int) {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentOperations)

	for _, op := range batch {
		op := op
		g.Go(func() error {
			ok, deadLettered, err := e.applyOne(gctx, op)
			mu.Lock()
			defer mu.Unlock()
			if ok {
				succeeded++
			} else {
				failed++
				if deadLettered {
					newFailures++
				}
			}
			if err != nil {
				e.log.Warn("syncengine: op failed", "collection", op.Collection, "document_id", op.DocumentID, "type", op.Type, "err", err)
			}
			return nil // errors are handled per-op; never abort the group
		})
	}
	_ = g.Wait()
	return succeeded, failed, newFailures
}

// applyOne applies a single queued operation to the remote store.
func (e *Engine) applyOne(ctx context.Context, op localstore.QueuedOp) (success, deadLettered bool, err error) {
	if op.Type == string(models.OpAdd) || op.Type == string(models.OpUpdate) {
		tombstoned, terr := e.store.IsTombstoned(op.Collection, op.DocumentID)
		if terr == nil && tombstoned {
			return true, false, e.store.RemoveQueuedOp(op.ID)
		}
		pendingDelete, perr := e.store.HasPendingDelete(op.Collection, op.DocumentID)
		if perr == nil && pendingDelete {
			return true, false, e.store.RemoveQueuedOp(op.ID)
		}
	}

	txCtx, cancel := context.WithTimeout(ctx, transactionTimeout)
	defer cancel()

	applyErr := e.applyRemote(txCtx, op)
	if errors.Is(applyErr, context.DeadlineExceeded) {
		applyErr = ErrTransactionTimeout
	}

	if applyErr == nil {
		if err := e.store.CompleteOp(op); err != nil {
			return false, false, fmt.Errorf("complete op: %w", err)
		}
		return true, false, nil
	}

	dl, err := e.store.FailOp(op, maxRetry, applyErr.Error())
	if err != nil {
		return false, false, fmt.Errorf("record op failure: %w", err)
	}
	return false, dl, applyErr
}

func (e *Engine) applyRemote(ctx context.Context, op localstore.QueuedOp) error {
	switch op.Type {
	case string(models.OpDelete):
		return e.remote.DeleteDocument(ctx, docPath(op.Collection, op.DocumentID))

	case string(models.OpAdd), string(models.OpUpdate):
		var doc map[string]any
		if len(op.Data) == 0 {
			return fmt.Errorf("decode queued document: empty payload")
		}
		if err := json.Unmarshal(op.Data, &doc); err != nil {
			return fmt.Errorf("decode queued document: %w", err)
		}

		localVersion, _ := e.store.GetRemoteVersion(op.Collection, op.DocumentID)
		newVersion, conflict, err := applyWithConflictRule(ctx, e.store, e.remote, op.Collection, op.DocumentID, doc, localVersion)
		if err != nil {
			return err
		}
		if conflict {
			e.publish(localstore.EventSyncConflictDetected, localstore.SyncConflictDetectedPayload{
				Collection: op.Collection, DocumentID: op.DocumentID,
			})
		}
		if err := e.store.SetRemoteVersion(op.Collection, op.DocumentID, newVersion); err != nil {
			e.log.Warn("syncengine: failed to record remote version", "err", err)
		}
		return nil

	default:
		return fmt.Errorf("unknown operation type %q", op.Type)
	}
}

// PullAllData fetches every collection from the remote store and imports
// it into the local store. It captures the auth generation at entry and
// aborts with ErrAuthChanged if the signed-in user changes mid-pull,
// never applying partial data from a prior user (spec §4.4, §4.4.5).
func (e *Engine) PullAllData(ctx context.Context) error {
	token := e.auth.CaptureAuthState()

	for _, collection := range models.AllCollections() {
		since := float64(0)
		if collection == models.CollectionFoodLog {
			since = float64(e.clock.Now().Add(-initialPullWindow).Unix())
		}
		docs, err := e.remote.ListCollection(ctx, string(collection), since)
		if err != nil {
			return fmt.Errorf("list collection %s: %w", collection, err)
		}
		if err := e.auth.CheckUnchanged(token); err != nil {
			return ErrAuthChanged
		}

		if err := e.store.ImportFromServer(collection, docs); err != nil {
			return fmt.Errorf("import collection %s: %w", collection, err)
		}
		if err := e.auth.CheckUnchanged(token); err != nil {
			return ErrAuthChanged
		}
	}
	return nil
}

// CircuitBreakerTripped reports whether the breaker is currently open, for
// status reporting.
func (e *Engine) CircuitBreakerTripped() (tripped bool, resetAt time.Time) {
	return e.breaker.snapshot()
}
