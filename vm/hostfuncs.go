package vm

import "fmt"

// ---------------------------------------------------------------------------
// Host function registry
// ---------------------------------------------------------------------------

// HostFunc is a native function callable from bytecode. Arguments arrive
// in the source call's left-to-right order; the return value becomes the
// call's r0 result.
type HostFunc func(m *Machine, args []int32) (int32, error)

// HostRegistry maps function names to ids at compile time and ids to
// implementations at run time. Ids are assigned in registration order
// and index the funcs slice directly.
type HostRegistry struct {
	ids   map[string]int32
	names []string
	funcs []HostFunc
}

// NewHostRegistry creates an empty registry.
func NewHostRegistry() *HostRegistry {
	return &HostRegistry{ids: make(map[string]int32)}
}

// Register adds a host function and returns its id. Registering a name
// again replaces the implementation but keeps the id.
func (r *HostRegistry) Register(name string, fn HostFunc) int32 {
	if id, ok := r.ids[name]; ok {
		r.funcs[id] = fn
		return id
	}
	id := int32(len(r.funcs))
	r.ids[name] = id
	r.names = append(r.names, name)
	r.funcs = append(r.funcs, fn)
	return id
}

// ResolveID returns the id for a function name. The compiler uses this
// to lower calls; an unknown name is a compile error.
func (r *HostRegistry) ResolveID(name string) (int32, bool) {
	id, ok := r.ids[name]
	return id, ok
}

// Func returns the implementation for an id. The machine uses this to
// dispatch; an unknown id is a runtime error.
func (r *HostRegistry) Func(id int32) (HostFunc, bool) {
	if id < 0 || int(id) >= len(r.funcs) {
		return nil, false
	}
	return r.funcs[id], true
}

// Names returns the registered names in id order.
func (r *HostRegistry) Names() []string {
	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}

// ---------------------------------------------------------------------------
// Standard host functions
// ---------------------------------------------------------------------------

// StandardHostRegistry returns the reference registry: id 0 OutputText
// (argument is a string table id) and id 1 OutputValue (argument is
// printed directly). Both write a line to the machine's output and
// return 0.
func StandardHostRegistry() *HostRegistry {
	r := NewHostRegistry()
	r.Register("OutputText", hostOutputText)
	r.Register("OutputValue", hostOutputValue)
	return r
}

func hostOutputText(m *Machine, args []int32) (int32, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("OutputText: want 1 argument, got %d", len(args))
	}
	text, err := m.StringAt(args[0])
	if err != nil {
		return 0, err
	}
	fmt.Fprintln(m.Output(), text)
	return 0, nil
}

func hostOutputValue(m *Machine, args []int32) (int32, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("OutputValue: want 1 argument, got %d", len(args))
	}
	fmt.Fprintln(m.Output(), args[0])
	return 0, nil
}
