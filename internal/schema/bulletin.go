package schema

import (
	"fmt"
	"regexp"
	"strings"
)

// Bulletin is the end-of-day field report an operator submits after an
// activity. Derived fields (Consumption, ApplicationTime, Distance) are
// computed locally before submission so the remote authority receives a
// complete record even from thin clients.
type Bulletin struct {
	ActivityID string `json:"activity_id"`
	Cycle      string `json:"cycle"`

	AssetID     string `json:"asset_id"`
	Vehicle     string `json:"vehicle"`
	Insecticide string `json:"insecticide"`

	// Tank volumes in liters.
	StartVolume float64 `json:"start_volume"`
	EndVolume   float64 `json:"end_volume"`
	Consumption float64 `json:"consumption"`

	// Times in HH:MM, interruption and application time as durations in
	// the same format.
	StartTime       string `json:"start_time"`
	StartTemp       string `json:"start_temp,omitempty"`
	EndTime         string `json:"end_time"`
	EndTemp         string `json:"end_temp,omitempty"`
	Interruption    string `json:"interruption,omitempty"`
	ApplicationTime string `json:"application_time"`

	// Odometer readings in km.
	StartOdometer float64 `json:"start_odometer"`
	EndOdometer   float64 `json:"end_odometer"`
	Distance      float64 `json:"distance"`

	Occurrences []string `json:"occurrences,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

var clockRe = regexp.MustCompile(`^\d{1,2}:\d{2}$`)

// ParseClock converts an HH:MM string into minutes since midnight.
// An empty string is zero minutes, matching how optional interruption
// fields behave on the paper form.
func ParseClock(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	if !clockRe.MatchString(v) {
		return 0, fmt.Errorf("invalid time %q (want HH:MM)", v)
	}
	var h, m int
	if _, err := fmt.Sscanf(v, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", v, err)
	}
	if m > 59 {
		return 0, fmt.Errorf("invalid time %q: minutes out of range", v)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes as zero-padded HH:MM. Negative input
// clamps to 00:00.
func FormatClock(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ComputeDerived fills Consumption, ApplicationTime, and Distance from
// their source fields. Results clamp at zero so a mis-keyed odometer or
// volume never yields a negative report value.
func (b *Bulletin) ComputeDerived() error {
	b.Consumption = b.StartVolume - b.EndVolume
	if b.Consumption < 0 {
		b.Consumption = 0
	}

	start, err := ParseClock(b.StartTime)
	if err != nil {
		return fmt.Errorf("start_time: %w", err)
	}
	end, err := ParseClock(b.EndTime)
	if err != nil {
		return fmt.Errorf("end_time: %w", err)
	}
	interruption, err := ParseClock(b.Interruption)
	if err != nil {
		return fmt.Errorf("interruption: %w", err)
	}

	worked := end - start
	if worked < 0 {
		worked = 0
	}
	b.ApplicationTime = FormatClock(worked + interruption)

	b.Distance = b.EndOdometer - b.StartOdometer
	if b.Distance < 0 {
		b.Distance = 0
	}

	return nil
}

// Validate checks required bulletin fields before submission.
func (b *Bulletin) Validate() error {
	if b.ActivityID == "" {
		return fmt.Errorf("activity_id is required")
	}
	if b.Cycle == "" {
		return fmt.Errorf("cycle is required")
	}
	if strings.TrimSpace(b.Vehicle) == "" {
		return fmt.Errorf("vehicle is required")
	}
	if b.StartTime == "" || b.EndTime == "" {
		return fmt.Errorf("start_time and end_time are required")
	}
	return nil
}
