package schema

// Activity describes a work assignment offered to an operator crew:
// an identifier plus the repetition round (cycle) and the crew/vehicle
// metadata shown when picking an activity to load.
type Activity struct {
	ID       string `json:"id"`
	Cycle    string `json:"cycle"`
	Vehicle  string `json:"vehicle,omitempty"`
	Product  string `json:"product,omitempty"`
	Driver   string `json:"driver,omitempty"`
	Operator string `json:"operator,omitempty"`
}
