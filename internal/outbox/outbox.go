package outbox

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/ocastro/fieldsync/internal/schema"
)

// Outbox translates status-change intents into durable records and
// reports queue depth to observers (badge counts, the sync indicator).
//
// It is the only component that writes new records into the store;
// the sync engine removes confirmed records through DeleteConfirmed.
type Outbox struct {
	store  *Store
	logger *log.Logger

	mu        sync.Mutex
	observers []func(depth int)
}

// New creates an Outbox over an open store.
// If logger is nil, a default logger writing to stderr is used.
func New(store *Store, logger *log.Logger) *Outbox {
	if logger == nil {
		logger = log.New(os.Stderr, "[outbox] ", log.LstdFlags)
	}
	return &Outbox{
		store:  store,
		logger: logger,
	}
}

// Subscribe registers fn to be called with the new queue depth after
// every successful enqueue, confirmation, or purge.
func (o *Outbox) Subscribe(fn func(depth int)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observers = append(o.observers, fn)
}

// Enqueue records a status change for a parcel. If the durable write
// fails the error is returned so the caller can revert any optimistic
// in-memory state; the intent is never silently dropped.
func (o *Outbox) Enqueue(ctx context.Context, activityID, cycle string, parcelID int, status schema.Status) error {
	m := &schema.Mutation{
		ActivityID: activityID,
		Cycle:      cycle,
		ParcelID:   parcelID,
		Status:     status,
		EnqueuedAt: time.Now().UTC(),
	}

	if err := o.store.Put(ctx, m); err != nil {
		return fmt.Errorf("not persisted: %w", err)
	}

	o.logger.Printf("Enqueued %s -> %s", m.SyncKey(), m.Status)
	o.notify(ctx)
	return nil
}

// EnqueueMutation records an already-built mutation (spool imports).
func (o *Outbox) EnqueueMutation(ctx context.Context, m *schema.Mutation) error {
	if m.EnqueuedAt.IsZero() {
		m.EnqueuedAt = time.Now().UTC()
	}

	if err := o.store.Put(ctx, m); err != nil {
		return fmt.Errorf("not persisted: %w", err)
	}

	o.logger.Printf("Enqueued %s -> %s", m.SyncKey(), m.Status)
	o.notify(ctx)
	return nil
}

// Depth returns the number of unconfirmed mutations.
func (o *Outbox) Depth(ctx context.Context) (int, error) {
	return o.store.Count(ctx)
}

// Drain returns every pending mutation for a sync attempt. The store is
// not modified; records are removed only after the remote confirms them.
func (o *Outbox) Drain(ctx context.Context) ([]*schema.Mutation, error) {
	return o.store.GetAll(ctx)
}

// DeleteConfirmed removes exactly the sync keys the remote accepted.
func (o *Outbox) DeleteConfirmed(ctx context.Context, keys []string) error {
	if err := o.store.DeleteKeys(ctx, keys); err != nil {
		return err
	}

	o.logger.Printf("Confirmed %d mutation(s)", len(keys))
	o.notify(ctx)
	return nil
}

// Purge discards all pending work. Destructive: callers must obtain
// explicit user confirmation first, and must reload the status snapshot
// afterwards so visible state matches server truth again.
func (o *Outbox) Purge(ctx context.Context) error {
	if err := o.store.Clear(ctx); err != nil {
		return err
	}

	o.logger.Printf("Purged pending queue")
	o.notify(ctx)
	return nil
}

// notify pushes the current depth to all observers. Depth read failures
// are logged, not propagated; the write that triggered the notification
// already succeeded.
func (o *Outbox) notify(ctx context.Context) {
	depth, err := o.store.Count(ctx)
	if err != nil {
		o.logger.Printf("Warning: failed to read depth for notification: %v", err)
		return
	}

	o.mu.Lock()
	observers := make([]func(int), len(o.observers))
	copy(observers, o.observers)
	o.mu.Unlock()

	for _, fn := range observers {
		fn(depth)
	}
}
