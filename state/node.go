package state

// EventKey identifies a declared outbound event class. It's a plain
// string (not the event type itself) so this package never imports the
// events package; the events catalog looks classes up by key.
type EventKey string

// DefaultEventKey is the reserved mapping key that applies to any field
// on a node without a more specific entry.
const DefaultEventKey = "__default__"

// Root is whatever owns a node's dirty-event set. PrinterState implements
// it; a Node doesn't need to know anything else about its root.
type Root interface {
	MarkEventDirty(EventKey)
}

// Node is the embeddable base for every state entity (Temperature,
// JobInfoState, PrinterState itself, ...). It tracks which of its fields
// are currently dirty, each field's live generation, and the field ->
// event-class mapping used to mark the owning root's dirty-event set.
type Node struct {
	root    Root
	mapping map[string]EventKey
	changed map[string]struct{}
	gens    map[string]generationer
}

func newNode() Node {
	return Node{
		mapping: make(map[string]EventKey),
		changed: make(map[string]struct{}),
		gens:    make(map[string]generationer),
	}
}

// SetRoot attaches the node (and transitively, per §3.2 invariant 3, every
// field replaced afterward) to its owning root. Replacing a sub-node with
// a new instance should call SetRoot on the new instance and then mark
// every one of its fields dirty, which callers do via MarkAllChanged.
func (n *Node) SetRoot(root Root) { n.root = root }

// Bind registers the event key a field maps to. Call it once per field in
// the node's constructor, mirroring the class-level _event_mapping table
// in the original implementation. Passing "" for name sets the node's
// default mapping.
func (n *Node) Bind(field string, key EventKey) {
	if field == "" {
		field = DefaultEventKey
	}
	n.mapping[field] = key
}

// Register associates a field name with the generationer that tracks it,
// so PartialClear can later snapshot and compare generations.
func (n *Node) Register(field string, g generationer) {
	n.gens[field] = g
}

// HasChanged reports whether any of the given fields (or, with no
// arguments, any field at all) is currently dirty.
func (n *Node) HasChanged(fields ...string) bool {
	if len(fields) == 0 {
		return len(n.changed) > 0
	}
	for _, f := range fields {
		if _, ok := n.changed[f]; ok {
			return true
		}
	}
	return false
}

// GetChanged returns the names of all currently dirty fields.
func (n *Node) GetChanged() []string {
	out := make([]string, 0, len(n.changed))
	for f := range n.changed {
		out = append(out, f)
	}
	return out
}

// Clear removes the given fields from the dirty set unconditionally, or
// every field if none are given.
func (n *Node) Clear(fields ...string) {
	if len(fields) == 0 {
		n.changed = make(map[string]struct{})
		return
	}
	for _, f := range fields {
		delete(n.changed, f)
	}
}

// ClearToken is a snapshot of generations captured at PartialClear time.
// Invoking it clears a field only if its generation hasn't moved on since
// the snapshot, per §3.2 invariant 2.
type ClearToken struct {
	node *Node
	gens map[string]int
}

// Invoke performs the partial clear.
func (c ClearToken) Invoke() {
	for field, gen := range c.gens {
		g, ok := c.node.gens[field]
		if !ok || g.Generation() != gen {
			continue
		}
		delete(c.node.changed, field)
	}
}

// PartialClear snapshots the current generation of each named field (or,
// with none given, every registered field) and returns a ClearToken that
// clears only fields still at that generation when invoked.
func (n *Node) PartialClear(fields ...string) ClearToken {
	if len(fields) == 0 {
		fields = make([]string, 0, len(n.gens))
		for f := range n.gens {
			fields = append(fields, f)
		}
	}
	snapshot := make(map[string]int, len(fields))
	for _, f := range fields {
		if g, ok := n.gens[f]; ok {
			snapshot[f] = g.Generation()
		}
	}
	return ClearToken{node: n, gens: snapshot}
}

// markChanged marks the field dirty, then resolves its event class (the
// node's mapping for the field, else the node's default) and marks that
// class dirty on the root. The root's own mapping is not consulted for a
// sub-node's fields: a field with neither mapping marks no event class.
func (n *Node) markChanged(field string) {
	n.changed[field] = struct{}{}

	key, ok := n.mapping[field]
	if !ok {
		key, ok = n.mapping[DefaultEventKey]
	}
	if !ok {
		return
	}
	if n.root != nil {
		n.root.MarkEventDirty(key)
	}
}

// SetField assigns value through f, marking name dirty on n (and, via
// markChanged, the root's matching event class) if the assignment counts
// as a change.
func SetField[T comparable](n *Node, name string, f *Field[T], value T) bool {
	if f.Set(value) {
		n.markChanged(name)
		return true
	}
	return false
}

// SetExclusiveBool is SetField's counterpart for ExclusiveBool fields.
func SetExclusiveBool(n *Node, name string, f *ExclusiveBool, value bool) bool {
	if f.Set(value) {
		n.markChanged(name)
		return true
	}
	return false
}

// MarkAllChanged marks every registered field on n as dirty, without
// touching field values. Used when a sub-node is replaced wholesale so
// the new instance's entire state is (re)synced to the server.
func (n *Node) MarkAllChanged() {
	for field := range n.gens {
		n.markChanged(field)
	}
}
