// Package netmon provides the connectivity monitor: a boolean online
// signal derived from periodic reachability probes of the remote
// authority, with callbacks on every transition.
//
// An online transition is the natural trigger for automatic sync
// attempts; an offline transition only informs presentation. The
// monitor never touches the outbox.
package netmon

import (
	"context"
	"log"
	"os"
	"sync"
	"time"
)

// Prober checks whether the remote authority is reachable.
// The remote client's Ping satisfies this.
type Prober interface {
	Ping(ctx context.Context) error
}

// Monitor tracks connectivity and notifies subscribers of transitions.
type Monitor struct {
	prober   Prober
	interval time.Duration
	timeout  time.Duration
	logger   *log.Logger

	mu        sync.Mutex
	online    bool
	known     bool // false until the first probe settles
	callbacks []func(online bool)

	wg sync.WaitGroup
}

// New creates a Monitor probing at the given interval.
// If logger is nil, a default logger writing to stderr is used.
func New(prober Prober, interval time.Duration, logger *log.Logger) *Monitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[netmon] ", log.LstdFlags)
	}
	return &Monitor{
		prober:   prober,
		interval: interval,
		timeout:  10 * time.Second,
		logger:   logger,
	}
}

// Online reports the last observed connectivity. Before the first probe
// settles it reports false; callers that need certainty use CheckNow.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// OnTransition registers fn to be invoked when connectivity changes,
// including the first time it becomes known. Callbacks run on the
// monitor goroutine and must not block for long.
func (m *Monitor) OnTransition(fn func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// CheckNow probes immediately and returns the resulting online state.
func (m *Monitor) CheckNow(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	online := m.prober.Ping(probeCtx) == nil
	m.set(online)
	return online
}

// Start probes until ctx is cancelled. It performs one probe up front so
// consumers have a settled state quickly.
func (m *Monitor) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		m.CheckNow(ctx)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.CheckNow(ctx)
			}
		}
	}()
}

// Wait blocks until the probe goroutine has exited.
func (m *Monitor) Wait() {
	m.wg.Wait()
}

// set records the observation and fires callbacks on transitions.
func (m *Monitor) set(online bool) {
	m.mu.Lock()
	changed := !m.known || m.online != online
	m.online = online
	m.known = true
	callbacks := make([]func(bool), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mu.Unlock()

	if !changed {
		return
	}

	if online {
		m.logger.Printf("Connectivity: online")
	} else {
		m.logger.Printf("Connectivity: offline")
	}

	for _, fn := range callbacks {
		fn(online)
	}
}
