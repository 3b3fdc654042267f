package propagation

import "fmt"

// State is a node's binary health status.
type State uint8

const (
	Clean State = iota
	Infected
)

func (s State) String() string {
	switch s {
	case Clean:
		return "clean"
	case Infected:
		return "infected"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// MarshalText renders the state by name in exported snapshots.
func (s State) MarshalText() ([]byte, error) {
	switch s {
	case Clean, Infected:
		return []byte(s.String()), nil
	default:
		return nil, fmt.Errorf("unknown state %d", uint8(s))
	}
}

func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "clean":
		*s = Clean
	case "infected":
		*s = Infected
	default:
		return fmt.Errorf("unknown state %q", text)
	}
	return nil
}

// StepStats counts the transitions committed by one Step.
type StepStats struct {
	NewInfections int `json:"new_infections"`
	Recoveries    int `json:"recoveries"`
}

// TickEvent is delivered to observers once per Run tick, after the tick's
// Step has been committed. Infected is the count at the start of the tick,
// i.e. the value appended to the history.
type TickEvent struct {
	RunID         string `json:"run_id,omitempty"`
	Tick          int    `json:"tick"`
	Nodes         int    `json:"nodes"`
	Infected      int    `json:"infected"`
	NewInfections int    `json:"new_infections"`
	Recoveries    int    `json:"recoveries"`
}

// Observer receives tick events from Run. Implementations must not block
// for long; Run calls them synchronously.
type Observer interface {
	ObserveTick(TickEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(TickEvent)

func (f ObserverFunc) ObserveTick(ev TickEvent) { f(ev) }
