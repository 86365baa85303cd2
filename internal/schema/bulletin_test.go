package schema

import "testing"

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"00:00", 0, false},
		{"08:30", 510, false},
		{"23:59", 1439, false},
		{"7:05", 425, false},
		{"8.30", 0, true},
		{"08:75", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseClock(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseClock(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatClock(t *testing.T) {
	if got := FormatClock(510); got != "08:30" {
		t.Errorf("FormatClock(510) = %q", got)
	}
	if got := FormatClock(-10); got != "00:00" {
		t.Errorf("FormatClock(-10) = %q", got)
	}
}

func TestBulletin_ComputeDerived(t *testing.T) {
	b := &Bulletin{
		StartVolume:   200,
		EndVolume:     45,
		StartTime:     "08:00",
		EndTime:       "11:30",
		Interruption:  "00:20",
		StartOdometer: 10250,
		EndOdometer:   10298.5,
	}
	if err := b.ComputeDerived(); err != nil {
		t.Fatalf("ComputeDerived() failed: %v", err)
	}
	if b.Consumption != 155 {
		t.Errorf("Consumption = %v, want 155", b.Consumption)
	}
	if b.ApplicationTime != "03:50" {
		t.Errorf("ApplicationTime = %q, want 03:50", b.ApplicationTime)
	}
	if b.Distance != 48.5 {
		t.Errorf("Distance = %v, want 48.5", b.Distance)
	}
}

func TestBulletin_ComputeDerived_Clamps(t *testing.T) {
	b := &Bulletin{
		StartVolume:   40,
		EndVolume:     60, // refilled mid-shift, mis-keyed
		StartTime:     "14:00",
		EndTime:       "13:00", // end before start
		StartOdometer: 500,
		EndOdometer:   100,
	}
	if err := b.ComputeDerived(); err != nil {
		t.Fatalf("ComputeDerived() failed: %v", err)
	}
	if b.Consumption != 0 || b.Distance != 0 {
		t.Errorf("negative derived values not clamped: consumption=%v distance=%v", b.Consumption, b.Distance)
	}
	if b.ApplicationTime != "00:00" {
		t.Errorf("ApplicationTime = %q, want 00:00", b.ApplicationTime)
	}
}

func TestBulletin_Validate(t *testing.T) {
	b := &Bulletin{
		ActivityID: "7",
		Cycle:      "c1",
		Vehicle:    "VTR-031",
		StartTime:  "08:00",
		EndTime:    "11:00",
	}
	if err := b.Validate(); err != nil {
		t.Errorf("valid bulletin rejected: %v", err)
	}

	b.Vehicle = "  "
	if err := b.Validate(); err == nil {
		t.Error("Validate() should require vehicle")
	}
}
