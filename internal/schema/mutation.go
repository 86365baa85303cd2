// Package schema defines the data model shared by the outbox, sync engine,
// and remote client: parcel status values, pending mutations, and the
// composite sync key that identifies a parcel within an activity/cycle.
package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Status is the work state of a parcel within an activity cycle.
// The set is closed; the remote authority stores these values verbatim.
type Status string

const (
	// StatusPending means the parcel has not been worked yet.
	StatusPending Status = "pending"
	// StatusWorked means the crew finished the parcel.
	StatusWorked Status = "worked"
	// StatusProblem means the parcel could not be worked (access denied,
	// refusal, physical obstruction) and needs follow-up.
	StatusProblem Status = "problem"
)

// Valid reports whether s is one of the closed status set.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusWorked, StatusProblem:
		return true
	}
	return false
}

// Toggle returns the status an operator tap cycles to: anything that is
// not yet worked becomes worked, and a worked parcel reverts to pending.
func (s Status) Toggle() Status {
	if s == StatusWorked {
		return StatusPending
	}
	return StatusWorked
}

// ParseStatus converts a string into a Status, rejecting unknown values.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q (want pending, worked, or problem)", v)
	}
	return s, nil
}

// Mutation is one desired parcel-status change not yet confirmed by the
// remote authority. It is the unit stored in the outbox and sent in sync
// batches. EnqueuedAt is diagnostic only and plays no part in conflict
// resolution; the store keeps at most one mutation per sync key.
type Mutation struct {
	ActivityID string    `json:"activity_id"`
	Cycle      string    `json:"cycle"`
	ParcelID   int       `json:"parcel_id"`
	Status     Status    `json:"status"`
	EnqueuedAt time.Time `json:"enqueued_at,omitempty"`
}

// SyncKey returns the composite key identifying this mutation's target:
// {activity}-{cycle}-{parcel}. It is the outbox primary key, so two
// toggles of the same parcel in the same activity cycle overwrite each
// other rather than queueing contradictory updates.
func (m *Mutation) SyncKey() string {
	return Key(m.ActivityID, m.Cycle, m.ParcelID)
}

// Key builds the composite sync key from its parts.
func Key(activityID, cycle string, parcelID int) string {
	return fmt.Sprintf("%s-%s-%d", activityID, cycle, parcelID)
}

// Validate checks that the mutation is complete enough to persist and send.
func (m *Mutation) Validate() error {
	if m.ActivityID == "" {
		return fmt.Errorf("activity_id is required")
	}
	if m.Cycle == "" {
		return fmt.Errorf("cycle is required")
	}
	if m.ParcelID <= 0 {
		return fmt.Errorf("parcel_id must be positive (got %d)", m.ParcelID)
	}
	if !m.Status.Valid() {
		return fmt.Errorf("invalid status %q", m.Status)
	}
	return nil
}

// ReadMutationFile reads and validates a spool mutation JSON file.
// Spool files let external tooling hand bulk status changes to the agent:
// each file holds a single mutation and is removed once enqueued.
func ReadMutationFile(path string) (*Mutation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mutation file: %w", err)
	}

	var m Mutation
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse mutation file %s: %w", path, err)
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mutation in %s: %w", path, err)
	}

	return &m, nil
}
