package transition

// State and Event are the vocabulary of an entity state machine. Entities keep
// their own typed status enums and convert at the engine boundary.
type State string

type Event string

// Guard inspects the transition request (typically its metadata) and rejects
// the transition with a reason. A nil Guard always passes.
type Guard func(req Request) (ok bool, reason string)

type Transition struct {
	To    State
	Guard Guard
}

// Machine is a static description of the valid transitions for one entity
// type: per state, the outgoing events and their destinations.
type Machine struct {
	EntityType  string
	Initial     State
	Transitions map[State]map[Event]Transition
}

// Next resolves the transition for (from, event). The second return reports
// whether the event is defined for the state at all.
func (m *Machine) Next(from State, event Event) (Transition, bool) {
	events, ok := m.Transitions[from]
	if !ok {
		return Transition{}, false
	}
	t, ok := events[event]
	return t, ok
}

// Events lists the events defined for a state, for error messages and
// introspection endpoints.
func (m *Machine) Events(from State) []Event {
	events := make([]Event, 0, len(m.Transitions[from]))
	for e := range m.Transitions[from] {
		events = append(events, e)
	}
	return events
}
