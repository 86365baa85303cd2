// Package engine implements the sync engine: the orchestrator that
// drains the outbox against the remote authority.
//
// The engine has two states, idle and syncing. A sync attempt is
// triggered by explicit user action, by an offline-to-online
// transition, or as a precondition of a dependent action (submitting
// the field bulletin). Exactly one attempt may be in flight; a second
// trigger during the busy window returns ErrSyncBusy and is not queued,
// because mutations enqueued meanwhile are picked up by the next
// attempt's fresh read anyway.
//
// An attempt never partially corrupts local state: records leave the
// store only after the remote positively confirms them, and only the
// exact keys that were read and confirmed are deleted. Failures of any
// kind leave the outbox intact and are recoverable by retry.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/ocastro/fieldsync/internal/indicator"
	"github.com/ocastro/fieldsync/internal/outbox"
	"github.com/ocastro/fieldsync/internal/schema"
)

var (
	// ErrSyncBusy is returned when a sync attempt is already in flight.
	ErrSyncBusy = errors.New("sync already in progress")

	// ErrOffline is returned when connectivity is down at call time.
	// This is an expected state, not a fault: the outbox is untouched
	// and the next online transition retries naturally.
	ErrOffline = errors.New("offline")
)

// Connectivity reports the current online signal.
type Connectivity interface {
	Online() bool
}

// Uploader sends a mutation batch to the remote authority and returns
// the sync keys it confirmed. The remote client satisfies this.
type Uploader interface {
	BatchUpdateStatus(ctx context.Context, items []*schema.Mutation) ([]string, error)
}

// Engine drains the outbox against the remote authority.
type Engine struct {
	outbox   *outbox.Outbox
	uploader Uploader
	conn     Connectivity
	sink     indicator.Sink
	logger   *log.Logger

	busy atomic.Bool
}

// New creates a sync engine.
// If sink is nil events are discarded; if logger is nil a default
// logger writing to stderr is used.
func New(ob *outbox.Outbox, uploader Uploader, conn Connectivity, sink indicator.Sink, logger *log.Logger) *Engine {
	if sink == nil {
		sink = indicator.Nop()
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[engine] ", log.LstdFlags)
	}
	return &Engine{
		outbox:   ob,
		uploader: uploader,
		conn:     conn,
		sink:     sink,
		logger:   logger,
	}
}

// Syncing reports whether an attempt is currently in flight.
func (e *Engine) Syncing() bool {
	return e.busy.Load()
}

// Sync runs one drain-and-send attempt and always returns to idle.
//
// Guard failures (busy, offline) return immediately without touching
// the store. An empty queue is a trivial success. Otherwise the full
// pending set is sent as one batched request; on confirmation exactly
// the confirmed keys are removed, and on any failure the store is left
// untouched for the next trigger.
func (e *Engine) Sync(ctx context.Context) error {
	if !e.busy.CompareAndSwap(false, true) {
		return ErrSyncBusy
	}
	defer e.busy.Store(false)

	if !e.conn.Online() {
		return ErrOffline
	}

	pending, err := e.outbox.Drain(ctx)
	if err != nil {
		e.emit(indicator.StateSyncFailed, len(pending), err.Error())
		return fmt.Errorf("failed to read outbox: %w", err)
	}

	if len(pending) == 0 {
		e.emit(indicator.StateSynced, 0, "")
		return nil
	}

	e.logger.Printf("Syncing %d pending mutation(s)", len(pending))
	e.emit(indicator.StateSyncing, len(pending), "")

	confirmed, err := e.uploader.BatchUpdateStatus(ctx, pending)
	if err != nil {
		e.logger.Printf("Sync failed: %v", err)
		e.emit(indicator.StateSyncFailed, len(pending), err.Error())
		return fmt.Errorf("sync failed: %w", err)
	}

	// Delete only keys that were both read in this attempt and named by
	// the confirmation. Anything enqueued mid-flight stays queued.
	sent := make(map[string]bool, len(pending))
	for _, m := range pending {
		sent[m.SyncKey()] = true
	}

	var toDelete []string
	for _, key := range confirmed {
		if sent[key] {
			toDelete = append(toDelete, key)
		}
	}

	if err := e.outbox.DeleteConfirmed(ctx, toDelete); err != nil {
		// The remote has the data; the next attempt resends the same
		// keys and the remote's per-key upserts make that harmless.
		e.emit(indicator.StateSyncFailed, len(pending), err.Error())
		return fmt.Errorf("failed to remove confirmed mutations: %w", err)
	}

	if len(toDelete) < len(pending) {
		e.logger.Printf("Remote confirmed %d of %d mutation(s); rest stay queued", len(toDelete), len(pending))
	}

	depth, err := e.outbox.Depth(ctx)
	if err != nil {
		depth = 0
	}

	e.logger.Printf("Sync complete: %d confirmed, %d still pending", len(toDelete), depth)
	e.emit(indicator.StateSynced, depth, "")
	return nil
}

func (e *Engine) emit(state indicator.State, pending int, reason string) {
	e.sink.Publish(indicator.Event{
		State:     state,
		Pending:   pending,
		Reason:    reason,
		Timestamp: time.Now(),
	})
}
