package outbox

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ocastro/fieldsync/internal/schema"
)

// testStorePath returns a temporary path for test databases
func testStorePath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "outbox.db")
}

func testMutation(parcel int, status schema.Status) *schema.Mutation {
	return &schema.Mutation{
		ActivityID: "7",
		Cycle:      "c1",
		ParcelID:   parcel,
		Status:     status,
		EnqueuedAt: time.Now().UTC(),
	}
}

func TestOpenStore_Success(t *testing.T) {
	path := testStorePath(t)
	store, err := OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore() failed: %v", err)
	}
	defer store.Close()

	if store.Path() != path {
		t.Errorf("Path() = %q, want %q", store.Path(), path)
	}

	// Schema must be in place immediately.
	var count int
	query := `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='outbox'`
	if err := store.conn.QueryRow(query).Scan(&count); err != nil {
		t.Fatalf("failed to query schema: %v", err)
	}
	if count != 1 {
		t.Error("outbox table does not exist")
	}
}

func TestStore_PutOverwritesByKey(t *testing.T) {
	store, err := OpenStore(testStorePath(t))
	if err != nil {
		t.Fatalf("OpenStore() failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	if err := store.Put(ctx, testMutation(12, schema.StatusWorked)); err != nil {
		t.Fatalf("first Put() failed: %v", err)
	}
	if err := store.Put(ctx, testMutation(12, schema.StatusPending)); err != nil {
		t.Fatalf("second Put() failed: %v", err)
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("got %d records, want 1 (put must overwrite by sync key)", len(all))
	}
	if all[0].Status != schema.StatusPending {
		t.Errorf("status = %q, want last write %q", all[0].Status, schema.StatusPending)
	}
}

func TestStore_PutRejectsInvalid(t *testing.T) {
	store, err := OpenStore(testStorePath(t))
	if err != nil {
		t.Fatalf("OpenStore() failed: %v", err)
	}
	defer store.Close()

	m := testMutation(12, "done")
	if err := store.Put(context.Background(), m); err == nil {
		t.Error("Put() should reject invalid status")
	}
}

func TestStore_DurableAcrossReopen(t *testing.T) {
	path := testStorePath(t)
	ctx := context.Background()

	store, err := OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore() failed: %v", err)
	}
	if err := store.Put(ctx, testMutation(31, schema.StatusWorked)); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	// Reopen simulates an app restart; the record must survive.
	store2, err := OpenStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer store2.Close()

	all, err := store2.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() failed: %v", err)
	}
	if len(all) != 1 || all[0].ParcelID != 31 || all[0].Status != schema.StatusWorked {
		t.Errorf("record did not survive reopen: %+v", all)
	}
}

func TestStore_Count(t *testing.T) {
	store, err := OpenStore(testStorePath(t))
	if err != nil {
		t.Fatalf("OpenStore() failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 0 {
		t.Errorf("empty store Count() = %d", count)
	}

	for _, parcel := range []int{1, 2, 3} {
		if err := store.Put(ctx, testMutation(parcel, schema.StatusWorked)); err != nil {
			t.Fatalf("Put() failed: %v", err)
		}
	}

	count, err = store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Count() = %d, want 3", count)
	}
}

func TestStore_DeleteKeys_LeavesUnlistedRecords(t *testing.T) {
	store, err := OpenStore(testStorePath(t))
	if err != nil {
		t.Fatalf("OpenStore() failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	m1 := testMutation(1, schema.StatusWorked)
	m2 := testMutation(2, schema.StatusWorked)
	m3 := testMutation(3, schema.StatusProblem) // enqueued "mid-flight"
	for _, m := range []*schema.Mutation{m1, m2, m3} {
		if err := store.Put(ctx, m); err != nil {
			t.Fatalf("Put() failed: %v", err)
		}
	}

	if err := store.DeleteKeys(ctx, []string{m1.SyncKey(), m2.SyncKey()}); err != nil {
		t.Fatalf("DeleteKeys() failed: %v", err)
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("got %d records, want 1", len(all))
	}
	if all[0].SyncKey() != m3.SyncKey() {
		t.Errorf("survivor = %q, want %q", all[0].SyncKey(), m3.SyncKey())
	}
}

func TestStore_DeleteKeys_Empty(t *testing.T) {
	store, err := OpenStore(testStorePath(t))
	if err != nil {
		t.Fatalf("OpenStore() failed: %v", err)
	}
	defer store.Close()

	if err := store.DeleteKeys(context.Background(), nil); err != nil {
		t.Errorf("DeleteKeys(nil) should be a no-op, got: %v", err)
	}
}

func TestStore_Clear(t *testing.T) {
	store, err := OpenStore(testStorePath(t))
	if err != nil {
		t.Fatalf("OpenStore() failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	for _, parcel := range []int{1, 2} {
		if err := store.Put(ctx, testMutation(parcel, schema.StatusWorked)); err != nil {
			t.Fatalf("Put() failed: %v", err)
		}
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Count() after Clear() = %d", count)
	}
}
