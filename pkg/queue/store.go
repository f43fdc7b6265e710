package queue

import "sync"

// State is a read-only snapshot of the queue.
type State struct {
	Entries []Entry `json:"entries"`
	Loading bool    `json:"loading"`
	Err     string  `json:"error,omitempty"`
}

// Filter returns the entries whose status is one of statuses, keeping order.
// An empty statuses list keeps everything.
func (s State) Filter(statuses []Status) []Entry {
	if len(statuses) == 0 {
		return s.Entries
	}
	out := make([]Entry, 0, len(s.Entries))
	for _, e := range s.Entries {
		for _, st := range statuses {
			if e.Status == st {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// Store holds the ordered list of pending and building jobs. Writes are
// applied in the order they are made; there is no versioning on entries.
type Store struct {
	mu       sync.RWMutex
	entries  []Entry
	loading  bool
	err      string
	watchers []func(State)
}

func NewStore() *Store {
	return &Store{}
}

// Replace installs a fresh list, e.g. after a refetch for another status set.
func (s *Store) Replace(entries []Entry) {
	s.mu.Lock()
	s.entries = make([]Entry, 0, len(entries))
	for _, e := range entries {
		s.entries = append(s.entries, e.clone())
	}
	s.loading = false
	s.err = ""
	s.unlockAndNotify()
}

// ApplyUpdate replaces the entry with the same ID in place, or appends it.
func (s *Store) ApplyUpdate(e Entry) {
	s.mu.Lock()
	idx, found := s.indexOf(e.ID)
	if found {
		s.entries[idx] = e.clone()
	} else {
		s.entries = append(s.entries, e.clone())
	}
	s.unlockAndNotify()
}

// BeginLoad clears the list and marks a fetch in flight.
func (s *Store) BeginLoad() {
	s.mu.Lock()
	s.entries = nil
	s.loading = true
	s.err = ""
	s.unlockAndNotify()
}

func (s *Store) Fail(err error) {
	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.err = err.Error()
	}
	s.unlockAndNotify()
}

func (s *Store) Get(id int64) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, found := s.indexOf(id)
	if !found {
		return Entry{}, false
	}
	return s.entries[idx].clone(), true
}

func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// OnChange registers fn to receive a snapshot after every write.
func (s *Store) OnChange(fn func(State)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, fn)
}

func (s *Store) indexOf(id int64) (int, bool) {
	for i := range s.entries {
		if s.entries[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

func (s *Store) snapshotLocked() State {
	entries := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e.clone())
	}
	return State{Entries: entries, Loading: s.loading, Err: s.err}
}

func (s *Store) unlockAndNotify() {
	snap := s.snapshotLocked()
	watchers := append([]func(State){}, s.watchers...)
	s.mu.Unlock()
	for _, w := range watchers {
		w(snap)
	}
}
