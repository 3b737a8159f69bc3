package guard

// Guard state names used in published events.
const (
	StateAcquired = "acquired"
	StateReleased = "released"
)

// Event is the JSON payload a guard publishes to its watch bus on every
// state transition.
type Event struct {
	Guard  string `json:"guard"`
	Holder string `json:"holder,omitempty"`
	State  string `json:"state"`
	Shared bool   `json:"shared,omitempty"`
	At     int64  `json:"at"` // UnixMilli
}

// Topic returns the watch bus topic for a guard name.
func Topic(name string) string {
	return "guard:" + name
}
