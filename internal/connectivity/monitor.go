// ABOUTME: Connectivity monitor that probes a URL on an interval
// ABOUTME: Publishes online/offline transitions to subscribers
package connectivity

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"
)

// Event is an online/offline transition
type Event struct {
	Online bool
	At     time.Time
}

// Config holds monitor configuration
type Config struct {
	// ProbeURL is requested with HEAD (default: https://www.google.com/generate_204)
	ProbeURL string

	// Interval between probes (default: 15s)
	Interval time.Duration

	// Timeout per probe (default: 3s)
	Timeout time.Duration
}

// Monitor tracks whether the network is reachable
type Monitor struct {
	config Config
	client *http.Client

	mu     sync.RWMutex
	known  bool
	online bool
	forced *bool
	subs   []chan Event
}

// New creates a monitor; call Run to start probing
func New(config Config) *Monitor {
	if config.ProbeURL == "" {
		config.ProbeURL = "https://www.google.com/generate_204"
	}
	if config.Interval == 0 {
		config.Interval = 15 * time.Second
	}
	if config.Timeout == 0 {
		config.Timeout = 3 * time.Second
	}

	return &Monitor{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// Subscribe returns a channel of transitions. It is closed when Run returns.
func (m *Monitor) Subscribe() <-chan Event {
	ch := make(chan Event, 8)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch
}

// Online reports the current state; forced state wins over probes
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.forced != nil {
		return *m.forced
	}
	return m.online
}

// Force pins the state, ignoring probes until Unforce
func (m *Monitor) Force(online bool) {
	m.mu.Lock()
	m.forced = &online
	m.mu.Unlock()
	m.set(online)
}

// Unforce resumes probe-driven state
func (m *Monitor) Unforce() {
	m.mu.Lock()
	m.forced = nil
	m.mu.Unlock()
}

// Run probes until ctx is cancelled
func (m *Monitor) Run(ctx context.Context) {
	defer m.closeSubs()

	m.Check(ctx)

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check probes once and updates the state
func (m *Monitor) Check(ctx context.Context) bool {
	m.mu.RLock()
	forced := m.forced
	m.mu.RUnlock()
	if forced != nil {
		return *forced
	}

	online := m.probe(ctx)
	m.set(online)
	return online
}

func (m *Monitor) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.config.ProbeURL, nil)
	if err != nil {
		return false
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()

	return resp.StatusCode < 500
}

// set records state and publishes on change; the first observation always publishes
func (m *Monitor) set(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.known && m.online == online {
		return
	}
	m.known = true
	m.online = online

	log.Printf("Connectivity changed: online=%v", online)

	ev := Event{Online: online, At: time.Now()}
	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
			log.Printf("Connectivity subscriber full, dropping event")
		}
	}
}

func (m *Monitor) closeSubs() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subs {
		close(ch)
	}
	m.subs = nil
}
