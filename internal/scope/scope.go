// Package scope maintains the nested counter frames for sequential
// variables.
//
// A frame maps base names to their current counter. Lookups fall back to
// ancestor frames, so a freshly pushed frame sees every counter that was
// visible at the push point, while bindings recorded in it stay local and
// vanish on pop.
package scope

// Frame is one level of counter state.
type Frame struct {
	parent   *Frame
	counters map[string]int
}

// Stack is the frame stack owned by one in-flight traversal.
// It is not safe for concurrent use.
type Stack struct {
	top   *Frame
	depth int
}

// NewStack creates a stack with a single root frame.
func NewStack() *Stack {
	return &Stack{
		top:   &Frame{counters: make(map[string]int)},
		depth: 1,
	}
}

// Push forks a child frame. The child sees all currently visible counters
// through ancestor fallback; its own bindings stay local.
func (s *Stack) Push() {
	s.top = &Frame{parent: s.top, counters: make(map[string]int)}
	s.depth++
}

// Pop discards the top frame and every counter bound in it.
// Popping the root frame is a programming error.
func (s *Stack) Pop() {
	if s.top.parent == nil {
		panic("scope: pop of root frame")
	}
	s.top = s.top.parent
	s.depth--
}

// Depth returns the number of live frames.
func (s *Stack) Depth() int {
	return s.depth
}

// Lookup returns the current counter for base, searching the active frame
// and then each ancestor outward.
func (s *Stack) Lookup(base string) (int, bool) {
	for f := s.top; f != nil; f = f.parent {
		if n, ok := f.counters[base]; ok {
			return n, true
		}
	}
	return 0, false
}

// Bind allocates the next counter for base in the active frame: one past
// the currently visible counter, or 0 if the name is unresolved everywhere.
func (s *Stack) Bind(base string) int {
	next := 0
	if n, ok := s.Lookup(base); ok {
		next = n + 1
	}
	s.top.counters[base] = next
	return next
}

// Set records an explicit counter for base in the active frame. Used for
// the explicit Base@N debug form so later bindings continue past it.
func (s *Stack) Set(base string, counter int) {
	if n, ok := s.Lookup(base); ok && n >= counter {
		return
	}
	s.top.counters[base] = counter
}
