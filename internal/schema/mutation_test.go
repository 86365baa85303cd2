package schema

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStatus_Valid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusWorked, StatusProblem} {
		if !s.Valid() {
			t.Errorf("Status %q should be valid", s)
		}
	}
	for _, s := range []Status{"", "done", "Trabalhada"} {
		if s.Valid() {
			t.Errorf("Status %q should be invalid", s)
		}
	}
}

func TestStatus_Toggle(t *testing.T) {
	tests := []struct {
		in   Status
		want Status
	}{
		{StatusPending, StatusWorked},
		{StatusWorked, StatusPending},
		{StatusProblem, StatusWorked},
	}
	for _, tt := range tests {
		if got := tt.in.Toggle(); got != tt.want {
			t.Errorf("Toggle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("worked")
	if err != nil {
		t.Fatalf("ParseStatus(worked) failed: %v", err)
	}
	if s != StatusWorked {
		t.Errorf("ParseStatus(worked) = %q", s)
	}

	if _, err := ParseStatus("finished"); err == nil {
		t.Error("ParseStatus(finished) should fail")
	}
}

func TestMutation_SyncKey(t *testing.T) {
	m := &Mutation{ActivityID: "42", Cycle: "c2", ParcelID: 317}
	if got := m.SyncKey(); got != "42-c2-317" {
		t.Errorf("SyncKey() = %q, want %q", got, "42-c2-317")
	}
	if Key("42", "c2", 317) != m.SyncKey() {
		t.Error("Key() and SyncKey() disagree")
	}
}

func TestMutation_Validate(t *testing.T) {
	valid := Mutation{ActivityID: "7", Cycle: "c1", ParcelID: 12, Status: StatusWorked}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid mutation rejected: %v", err)
	}

	tests := []struct {
		name string
		mod  func(*Mutation)
	}{
		{"missing activity", func(m *Mutation) { m.ActivityID = "" }},
		{"missing cycle", func(m *Mutation) { m.Cycle = "" }},
		{"zero parcel", func(m *Mutation) { m.ParcelID = 0 }},
		{"negative parcel", func(m *Mutation) { m.ParcelID = -3 }},
		{"bad status", func(m *Mutation) { m.Status = "done" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid
			tt.mod(&m)
			if err := m.Validate(); err == nil {
				t.Error("Validate() should have failed")
			}
		})
	}
}

func TestReadMutationFile(t *testing.T) {
	dir := t.TempDir()

	m := Mutation{
		ActivityID: "7",
		Cycle:      "c1",
		ParcelID:   55,
		Status:     StatusWorked,
		EnqueuedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(&m)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	path := filepath.Join(dir, "55.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	got, err := ReadMutationFile(path)
	if err != nil {
		t.Fatalf("ReadMutationFile() failed: %v", err)
	}
	if got.SyncKey() != m.SyncKey() || got.Status != m.Status {
		t.Errorf("ReadMutationFile() = %+v, want %+v", got, m)
	}
}

func TestReadMutationFile_Invalid(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte(`{"activity_id":"","status":"worked"}`), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := ReadMutationFile(path); err == nil {
		t.Error("ReadMutationFile() should reject invalid mutation")
	}

	if _, err := ReadMutationFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("ReadMutationFile() should fail on missing file")
	}
}
