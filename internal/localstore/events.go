package localstore

import "sync"

// EventName identifies one of the named events in spec §6.
type EventName string

const (
	EventPendingSync          EventName = "pending-sync"
	EventSyncCompleted        EventName = "sync-completed"
	EventSyncOperationsFailed EventName = "sync-operations-failed"
	EventSyncConflictDetected EventName = "sync-conflict-detected"
	EventDatabaseRecovered    EventName = "database-recovered"
)

// eventBus is a small bounded-channel pub/sub, replacing the
// observer-registration pattern the original system used (spec §9: "replace
// observer registrations with a bounded set of event channels... drop
// subscriptions at teardown to prevent orphan callbacks").
type eventBus struct {
	mu   sync.Mutex
	subs map[EventName][]chan any
}

func newEventBus() *eventBus {
	return &eventBus{subs: make(map[EventName][]chan any)}
}

// Subscribe returns a channel that receives every payload published under
// name. The channel is buffered so a slow consumer cannot block publish;
// excess events are dropped rather than blocking the writer.
func (b *eventBus) Subscribe(name EventName) (ch <-chan any, unsubscribe func()) {
	c := make(chan any, 16)
	b.mu.Lock()
	b.subs[name] = append(b.subs[name], c)
	b.mu.Unlock()

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[name]
		for i, existing := range list {
			if existing == c {
				b.subs[name] = append(list[:i], list[i+1:]...)
				close(c)
				return
			}
		}
	}
	return c, unsub
}

// Subscribe returns a channel of payloads published under name, and an
// unsubscribe function callers must invoke at teardown (spec §9, "drop
// subscriptions at teardown to prevent orphan callbacks").
func (s *Store) Subscribe(name EventName) (events <-chan any, unsubscribe func()) {
	return s.events.Subscribe(name)
}

// Publish is the exported entry point other packages (the sync engine)
// use to emit events on the store's bus; the bus type itself stays
// unexported so only Store controls subscription lifetime.
func (s *Store) Publish(name EventName, payload any) {
	s.events.publish(name, payload)
}

func (b *eventBus) publish(name EventName, payload any) {
	b.mu.Lock()
	subs := append([]chan any(nil), b.subs[name]...)
	b.mu.Unlock()

	for _, c := range subs {
		select {
		case c <- payload:
		default:
			// Drop: a stalled subscriber must not back-pressure writers.
		}
	}
}

// PendingSyncPayload is published with EventPendingSync.
type PendingSyncPayload struct {
	Collection string
	DocumentID string
}

// SyncCompletedPayload is published with EventSyncCompleted.
type SyncCompletedPayload struct {
	NewFailures   int
	TotalFailures int
}

// SyncOperationsFailedPayload is published with EventSyncOperationsFailed.
type SyncOperationsFailedPayload struct {
	Count int
}

// SyncConflictDetectedPayload is published with EventSyncConflictDetected.
type SyncConflictDetectedPayload struct {
	Collection string
	DocumentID string
}
