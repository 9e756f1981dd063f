package scribec

// binding is what a scope frame maps a name to: the interned value
// carrying the name's type, plus the declaring Stmt (for
// "duplicate declaration" diagnostics that want to point at the
// first definition).
type binding struct {
	valueID ValueID
	decl    Stmt
}

// Frame is one lexical scope's name table.
type Frame struct {
	names map[string]binding
}

func newFrame() *Frame { return &Frame{names: map[string]binding{}} }

// ScopeStack is a vector of Frames layered so that a function push
// creates its own nested stack: lookups from inside a function body
// stop at the function's lock index (they still reach the module-top
// frame and the separate globals map), matching spec.md §4.4 and the
// "lock index" design note in §9.
type ScopeStack struct {
	frames []*Frame
	locks  []int // one lock index per currently-open function frame
	global *Frame

	// typeFns stores member functions per type, populated by
	// `let n in T = fn...` (spec.md §4.4).
	typeFns map[TypeID]map[string]ValueID

	ts *TypeSystem
}

// NewScopeStack seeds the stack with the module-top frame (frame 0)
// and an empty globals map.
func NewScopeStack(ts *TypeSystem) *ScopeStack {
	s := &ScopeStack{global: newFrame(), typeFns: map[TypeID]map[string]ValueID{}, ts: ts}
	s.frames = append(s.frames, newFrame())
	return s
}

// PushBlock opens an ordinary nested scope (function body block, if
// arm, for body, ...). It does not change the lock index.
func (s *ScopeStack) PushBlock() { s.frames = append(s.frames, newFrame()) }

// PopBlock closes the most recently opened block scope.
func (s *ScopeStack) PopBlock() {
	if len(s.frames) > 1 {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

// PushFunction opens a function frame and locks lookups below it:
// identifiers in an enclosing function's locals are not visible from
// inside, but the module-top frame and globals remain reachable.
func (s *ScopeStack) PushFunction() {
	s.frames = append(s.frames, newFrame())
	s.locks = append(s.locks, len(s.frames)-1)
}

// PopFunction closes the most recently opened function frame.
func (s *ScopeStack) PopFunction() {
	s.PopBlock()
	if len(s.locks) > 0 {
		s.locks = s.locks[:len(s.locks)-1]
	}
}

func (s *ScopeStack) lockFloor() int {
	if len(s.locks) == 0 {
		return 0
	}
	return s.locks[len(s.locks)-1]
}

// Declare binds name in the top frame. Returns false if name is
// already bound in that exact frame (duplicate declaration in scope,
// spec.md §7).
func (s *ScopeStack) Declare(name string, valueID ValueID, decl Stmt) bool {
	top := s.frames[len(s.frames)-1]
	if _, exists := top.names[name]; exists {
		return false
	}
	top.names[name] = binding{valueID: valueID, decl: decl}
	return true
}

// DeclareGlobal binds name in the separate globals map, which every
// function frame can see regardless of lock index (spec.md §4.4).
func (s *ScopeStack) DeclareGlobal(name string, valueID ValueID, decl Stmt) bool {
	if _, exists := s.global.names[name]; exists {
		return false
	}
	s.global.names[name] = binding{valueID: valueID, decl: decl}
	return true
}

// Lookup walks from the innermost frame outward to the lock floor,
// then checks the module-top frame and finally globals.
func (s *ScopeStack) Lookup(name string) (ValueID, Stmt, bool) {
	floor := s.lockFloor()
	for i := len(s.frames) - 1; i >= floor; i-- {
		if b, ok := s.frames[i].names[name]; ok {
			return b.valueID, b.decl, true
		}
	}
	if floor > 0 {
		if b, ok := s.frames[0].names[name]; ok {
			return b.valueID, b.decl, true
		}
	}
	if b, ok := s.global.names[name]; ok {
		return b.valueID, b.decl, true
	}
	return 0, nil, false
}

// LookupTop only checks the innermost frame — used to detect
// shadowing/duplicate declarations within exactly one block.
func (s *ScopeStack) LookupTop(name string) (ValueID, Stmt, bool) {
	top := s.frames[len(s.frames)-1]
	b, ok := top.names[name]
	return b.valueID, b.decl, ok
}

// TypeFn looks up type t's member function named name.
func (s *ScopeStack) TypeFn(t Type, name string) (ValueID, bool) {
	fns, ok := s.typeFns[s.ts.ID(t)]
	if !ok {
		return 0, false
	}
	id, ok := fns[name]
	return id, ok
}

// DeclareTypeFn registers name as a member function of t (the
// `let n in T = fn...` form, spec.md §4.2/§4.4). Returns false if a
// member function of that name already exists for t (duplicate member
// function for type, spec.md §7).
func (s *ScopeStack) DeclareTypeFn(t Type, name string, valueID ValueID) bool {
	key := s.ts.ID(t)
	fns, ok := s.typeFns[key]
	if !ok {
		fns = map[string]ValueID{}
		s.typeFns[key] = fns
	}
	if _, exists := fns[name]; exists {
		return false
	}
	fns[name] = valueID
	return true
}
