package operation

import "sync"

// Store follows the operations the user started. Updates for UUIDs that were
// never tracked are dropped.
type Store struct {
	mu       sync.RWMutex
	ops      map[string]Operation
	watchers []func(Operation)
}

func NewStore() *Store {
	return &Store{ops: map[string]Operation{}}
}

func (s *Store) Track(uuid string) {
	if uuid == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ops[uuid]; ok {
		return
	}
	s.ops[uuid] = Operation{UUID: uuid, Status: StatusPending}
}

func (s *Store) Forget(uuid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ops, uuid)
}

func (s *Store) Tracked(uuid string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ops[uuid]
	return ok
}

// Apply stores op if its UUID is tracked and reports whether it did.
func (s *Store) Apply(op Operation) bool {
	s.mu.Lock()
	if _, ok := s.ops[op.UUID]; !ok {
		s.mu.Unlock()
		return false
	}
	s.ops[op.UUID] = op
	watchers := append([]func(Operation){}, s.watchers...)
	s.mu.Unlock()

	for _, w := range watchers {
		w(op)
	}
	return true
}

func (s *Store) Get(uuid string) (Operation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	op, ok := s.ops[uuid]
	return op, ok
}

func (s *Store) OnChange(fn func(Operation)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, fn)
}
