// Package projector maintains the live syncKey -> status view for the
// loaded activity: the last fetched server snapshot with locally pending
// mutations layered on top. Pending always wins, so the operator's
// latest intent is honored visually before the remote confirms it.
//
// The map renderer stays an external collaborator behind the Restyler
// interface; the projector tells it which features to restyle and never
// touches geometry.
package projector

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/ocastro/fieldsync/internal/remote"
	"github.com/ocastro/fieldsync/internal/schema"
)

// Restyler is the external map layer. Restyle recomputes the visual
// style of one feature from its current status; RestyleAll does so for
// every feature (after a load or reload).
type Restyler interface {
	Restyle(syncKey string)
	RestyleAll()
}

// nopRestyler is used when no live map is attached (headless CLI runs).
type nopRestyler struct{}

func (nopRestyler) Restyle(string) {}
func (nopRestyler) RestyleAll()    {}

// Fetcher reads the authoritative activity snapshot. The remote client
// satisfies this.
type Fetcher interface {
	GetActivity(ctx context.Context, activityID, cycle string) (*remote.ActivityData, error)
}

// PendingSource supplies the still-unconfirmed local mutations to layer
// over a fresh snapshot. The outbox satisfies this.
type PendingSource interface {
	Drain(ctx context.Context) ([]*schema.Mutation, error)
}

// Projector owns the session's status view.
type Projector struct {
	fetcher  Fetcher
	pending  PendingSource
	restyler Restyler
	logger   *log.Logger

	mu         sync.Mutex
	activityID string
	cycle      string
	snapshot   map[string]schema.Status
	overlay    map[string]schema.Status
	areas      []int
}

// New creates a Projector. restyler may be nil for headless use;
// if logger is nil, a default logger writing to stderr is used.
func New(fetcher Fetcher, pending PendingSource, restyler Restyler, logger *log.Logger) *Projector {
	if restyler == nil {
		restyler = nopRestyler{}
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[projector] ", log.LstdFlags)
	}
	return &Projector{
		fetcher:  fetcher,
		pending:  pending,
		restyler: restyler,
		logger:   logger,
	}
}

// Load fetches the server snapshot for an activity/cycle and seeds the
// view, layering any still-pending local mutations for that activity on
// top (they survive restarts via the outbox).
func (p *Projector) Load(ctx context.Context, activityID, cycle string) error {
	data, err := p.fetcher.GetActivity(ctx, activityID, cycle)
	if err != nil {
		return fmt.Errorf("failed to load activity %s/%s: %w", activityID, cycle, err)
	}

	overlay := make(map[string]schema.Status)
	if p.pending != nil {
		mutations, err := p.pending.Drain(ctx)
		if err != nil {
			return fmt.Errorf("failed to read pending mutations: %w", err)
		}
		for _, m := range mutations {
			if m.ActivityID == activityID && m.Cycle == cycle {
				overlay[m.SyncKey()] = m.Status
			}
		}
	}

	p.mu.Lock()
	p.activityID = activityID
	p.cycle = cycle
	p.snapshot = data.Parcels
	p.overlay = overlay
	p.areas = data.Areas
	p.mu.Unlock()

	p.logger.Printf("Loaded activity %s/%s: %d parcels, %d pending overlay(s)",
		activityID, cycle, len(data.Parcels), len(overlay))

	p.restyler.RestyleAll()
	return nil
}

// Reload refetches the current activity's snapshot and rebuilds the
// overlay from whatever is still pending. Called after a purge so the
// view reverts to server truth.
func (p *Projector) Reload(ctx context.Context) error {
	p.mu.Lock()
	activityID, cycle := p.activityID, p.cycle
	p.mu.Unlock()

	if activityID == "" {
		return fmt.Errorf("no activity loaded")
	}
	return p.Load(ctx, activityID, cycle)
}

// Loaded reports whether an activity is loaded.
func (p *Projector) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activityID != ""
}

// Activity returns the loaded activity ID and cycle.
func (p *Projector) Activity() (activityID, cycle string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activityID, p.cycle
}

// Areas returns the geographic area IDs of the loaded activity, for the
// external renderer to fetch its geometry.
func (p *Projector) Areas() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	areas := make([]int, len(p.areas))
	copy(areas, p.areas)
	return areas
}

// ApplyLocal overlays a mutation's status so the view reflects the
// operator's intent immediately. The returned revert func undoes this
// one overlay change; callers invoke it when the durable enqueue fails
// so the optimistic update never outlives its persistence.
func (p *Projector) ApplyLocal(m *schema.Mutation) (revert func()) {
	key := m.SyncKey()

	p.mu.Lock()
	prev, had := p.overlay[key]
	p.overlay[key] = m.Status
	p.mu.Unlock()

	p.restyler.Restyle(key)

	return func() {
		p.mu.Lock()
		if had {
			p.overlay[key] = prev
		} else {
			delete(p.overlay, key)
		}
		p.mu.Unlock()
		p.restyler.Restyle(key)
	}
}

// CurrentStatus returns the overlay-resolved status for a sync key:
// a pending mutation wins over the snapshot's server-reported value.
// ok is false for keys outside the loaded activity.
func (p *Projector) CurrentStatus(syncKey string) (status schema.Status, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s, found := p.overlay[syncKey]; found {
		return s, true
	}
	s, found := p.snapshot[syncKey]
	return s, found
}

// Statuses returns a copy of the full resolved view for renderer seeding.
func (p *Projector) Statuses() map[string]schema.Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]schema.Status, len(p.snapshot))
	for k, v := range p.snapshot {
		out[k] = v
	}
	for k, v := range p.overlay {
		out[k] = v
	}
	return out
}

// Progress returns how many parcels are worked out of the total,
// resolved through the overlay.
func (p *Projector) Progress() (worked, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for k, s := range p.snapshot {
		if o, found := p.overlay[k]; found {
			s = o
		}
		if s == schema.StatusWorked {
			worked++
		}
	}
	return worked, len(p.snapshot)
}
