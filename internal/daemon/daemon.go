// Package daemon runs the background field agent: it watches
// connectivity, triggers sync attempts on online transitions and on a
// periodic safety-net tick, imports spool mutation files, and feeds the
// indicator with connectivity events.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/ocastro/fieldsync/internal/engine"
	"github.com/ocastro/fieldsync/internal/indicator"
	"github.com/ocastro/fieldsync/internal/netmon"
	"github.com/ocastro/fieldsync/internal/outbox"
)

// Config holds daemon configuration.
type Config struct {
	// SyncInterval is how often to attempt a periodic sync regardless of
	// transitions (0 disables the tick).
	SyncInterval time.Duration

	// SpoolDir is watched for bulk-import mutation files ("" disables).
	SpoolDir string

	// DebounceInterval is how long a spool file must sit quiet before
	// it is imported. Batches rapid writers.
	DebounceInterval time.Duration

	// Logger for daemon activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SyncInterval:     5 * time.Minute,
		DebounceInterval: 200 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon wires the connectivity monitor, sync engine, outbox, and
// indicator sink into one long-running agent.
type Daemon struct {
	outbox  *outbox.Outbox
	engine  *engine.Engine
	monitor *netmon.Monitor
	sink    indicator.Sink
	config  *Config

	spool *spoolWatcher

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Daemon. Use Start to run it.
func New(ob *outbox.Outbox, eng *engine.Engine, mon *netmon.Monitor, sink indicator.Sink, config *Config) (*Daemon, error) {
	if ob == nil || eng == nil || mon == nil {
		return nil, fmt.Errorf("outbox, engine, and monitor are required")
	}
	if sink == nil {
		sink = indicator.Nop()
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[daemon] ", log.LstdFlags)
	}

	return &Daemon{
		outbox:  ob,
		engine:  eng,
		monitor: mon,
		sink:    sink,
		config:  config,
	}, nil
}

// Start runs the agent until ctx is cancelled.
//
// On every offline-to-online transition the daemon emits a connected
// event and attempts a sync; offline transitions emit an offline event
// and nothing else (the queue is retained, never altered).
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting agent")

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.monitor.OnTransition(func(online bool) {
		depth, err := d.outbox.Depth(runCtx)
		if err != nil {
			depth = 0
		}

		if online {
			d.sink.Publish(indicator.Event{State: indicator.StateConnected, Pending: depth, Timestamp: time.Now()})
			d.trySync(runCtx)
		} else {
			d.sink.Publish(indicator.Event{State: indicator.StateOffline, Pending: depth, Timestamp: time.Now()})
		}
	})

	if d.config.SpoolDir != "" {
		spool, err := newSpoolWatcher(d.config.SpoolDir, d.outbox, d.config.DebounceInterval, d.config.Logger)
		if err != nil {
			cancel()
			return fmt.Errorf("failed to start spool watcher: %w", err)
		}
		d.spool = spool
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			spool.run(runCtx)
		}()
	}

	d.monitor.Start(runCtx)

	if d.config.SyncInterval > 0 {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.syncLoop(runCtx)
		}()
	}

	<-ctx.Done()
	d.config.Logger.Println("Shutdown signal received")
	return d.Stop()
}

// Stop shuts the agent down and waits for its goroutines.
func (d *Daemon) Stop() error {
	if d.cancel != nil {
		d.cancel()
	}
	if d.spool != nil {
		d.spool.close()
	}
	d.monitor.Wait()
	d.wg.Wait()
	d.config.Logger.Println("Agent stopped")
	return nil
}

// syncLoop is the periodic safety net: missed transitions or earlier
// failures get retried without operator action.
func (d *Daemon) syncLoop(ctx context.Context) {
	ticker := time.NewTicker(d.config.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.trySync(ctx)
		}
	}
}

// trySync runs one attempt. Busy and offline are expected outcomes at
// this layer, not faults.
func (d *Daemon) trySync(ctx context.Context) {
	err := d.engine.Sync(ctx)
	switch {
	case err == nil:
	case errors.Is(err, engine.ErrSyncBusy):
		d.config.Logger.Println("Sync already running, skipping trigger")
	case errors.Is(err, engine.ErrOffline):
		d.config.Logger.Println("Offline, sync deferred")
	default:
		d.config.Logger.Printf("Sync attempt failed: %v", err)
	}
}
