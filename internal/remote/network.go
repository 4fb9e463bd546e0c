package remote

import (
	"context"
	"net"
	"sync"
	"time"
)

// PollingNetworkMonitor implements NetworkMonitor by periodically probing
// reachability of a host:port pair. Real client platforms normally get
// connectivity edges from the OS for free; this polling fallback is what
// an embedder without such a callback wires in (spec §6, NetworkMonitor
// is host-OS-provided in production).
type PollingNetworkMonitor struct {
	probeAddr string
	interval  time.Duration

	mu        sync.Mutex
	connected bool
	subs      []chan ConnectivityEvent

	cancel context.CancelFunc
	done   chan struct{}
}

// NewPollingNetworkMonitor starts a background probe loop against
// probeAddr (e.g. "8.8.8.8:443") on the given interval.
func NewPollingNetworkMonitor(probeAddr string, interval time.Duration) *PollingNetworkMonitor {
	ctx, cancel := context.WithCancel(context.Background())
	m := &PollingNetworkMonitor{
		probeAddr: probeAddr,
		interval:  interval,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go m.loop(ctx)
	return m
}

func (m *PollingNetworkMonitor) loop(ctx context.Context) {
	defer close(m.done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.probe()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probe()
		}
	}
}

func (m *PollingNetworkMonitor) probe() {
	conn, err := net.DialTimeout("tcp", m.probeAddr, 5*time.Second)
	connected := err == nil
	if conn != nil {
		conn.Close()
	}

	m.mu.Lock()
	changed := connected != m.connected
	m.connected = connected
	subs := append([]chan ConnectivityEvent(nil), m.subs...)
	m.mu.Unlock()

	if !changed {
		return
	}
	for _, c := range subs {
		select {
		case c <- ConnectivityEvent{Connected: connected}:
		default:
		}
	}
}

// Connected reports the most recently observed connectivity state.
func (m *PollingNetworkMonitor) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Subscribe returns a channel of connectivity edges.
func (m *PollingNetworkMonitor) Subscribe() (<-chan ConnectivityEvent, func()) {
	c := make(chan ConnectivityEvent, 8)
	m.mu.Lock()
	m.subs = append(m.subs, c)
	m.mu.Unlock()

	unsub := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, existing := range m.subs {
			if existing == c {
				m.subs = append(m.subs[:i], m.subs[i+1:]...)
				close(c)
				return
			}
		}
	}
	return c, unsub
}

// Stop halts the background probe loop.
func (m *PollingNetworkMonitor) Stop() {
	m.cancel()
	<-m.done
}
