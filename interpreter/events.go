package interpreter

// EventKind distinguishes schema events.
type EventKind int

// Schema events.
const (
	// EventSchemaReady is published after the first successful schema import.
	EventSchemaReady EventKind = iota + 1
	// EventSchemaChanged is published after every later schema import.
	EventSchemaChanged
)

func (k EventKind) String() string {
	switch k {
	case EventSchemaReady:
		return "schema-ready"
	case EventSchemaChanged:
		return "schema-change"
	default:
		return "unknown"
	}
}

// Event describes a schema import that updated the type graph.
type Event struct {
	Kind  EventKind
	Path  string
	Types int

	// Error holds the schema's lint errors, if any.
	Error string
}

// Subscribe registers fn to be called after every schema import. The
// returned function unregisters it.
func (in *Interpreter) Subscribe(fn func(Event)) func() {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.subscribers = append(in.subscribers, fn)
	i := len(in.subscribers) - 1

	return func() {
		in.mu.Lock()
		defer in.mu.Unlock()

		in.subscribers[i] = nil
	}
}

func (in *Interpreter) publish(e Event) {
	in.mu.Lock()
	subs := append(([]func(Event))(nil), in.subscribers...)
	in.mu.Unlock()

	for _, fn := range subs {
		if fn != nil {
			fn(e)
		}
	}
}
