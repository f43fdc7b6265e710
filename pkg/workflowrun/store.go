package workflowrun

import (
	"sort"
	"sync"
)

type Key struct {
	ProjectKey   string `json:"project_key"`
	WorkflowName string `json:"workflow_name"`
	Number       int64  `json:"number"`
}

type Tag struct {
	Tag   string `json:"Tag"`
	Value string `json:"Value"`
}

type NodeRun struct {
	ID        int64  `json:"ID"`
	NodeName  string `json:"NodeName,omitempty"`
	SubNumber int64  `json:"SubNumber,omitempty"`
	Status    string `json:"Status"`
	Start     int64  `json:"Start,omitempty"`
	Done      int64  `json:"Done,omitempty"`
}

type Run struct {
	Key
	Status       string            `json:"status"`
	Start        int64             `json:"start,omitempty"`
	LastModified int64             `json:"last_modified,omitempty"`
	Tags         []Tag             `json:"tags,omitempty"`
	Nodes        map[int64]NodeRun `json:"nodes,omitempty"`
}

// Update is one push for a run. Node is set for node-level events, in which
// case Status describes the node and the run status is left alone.
type Update struct {
	Key          Key      `json:"key"`
	Status       string   `json:"status,omitempty"`
	Start        int64    `json:"start,omitempty"`
	LastModified int64    `json:"last_modified,omitempty"`
	Tags         []Tag    `json:"tags,omitempty"`
	Node         *NodeRun `json:"node,omitempty"`
}

// Store keeps the latest known state of each run it has seen. Updates are
// last-write-wins in arrival order.
type Store struct {
	mu       sync.RWMutex
	runs     map[Key]Run
	watchers []func([]Run)
}

func NewStore() *Store {
	return &Store{runs: map[Key]Run{}}
}

// Apply merges u into the run it belongs to and returns the result. Change
// watchers receive the full list afterwards.
func (s *Store) Apply(u Update) Run {
	s.mu.Lock()

	r, ok := s.runs[u.Key]
	if !ok {
		r = Run{Key: u.Key}
	}
	if u.Node != nil {
		nodes := make(map[int64]NodeRun, len(r.Nodes)+1)
		for id, n := range r.Nodes {
			nodes[id] = n
		}
		nodes[u.Node.ID] = *u.Node
		r.Nodes = nodes
	} else if u.Status != "" {
		r.Status = u.Status
	}
	if u.Start != 0 {
		r.Start = u.Start
	}
	if u.LastModified != 0 {
		r.LastModified = u.LastModified
	}
	if u.Tags != nil {
		r.Tags = append([]Tag{}, u.Tags...)
	}
	s.runs[u.Key] = r
	watchers := append([]func([]Run){}, s.watchers...)
	s.mu.Unlock()

	if len(watchers) > 0 {
		runs := s.List()
		for _, w := range watchers {
			w(runs)
		}
	}
	return r
}

func (s *Store) OnChange(fn func([]Run)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, fn)
}

// List returns runs ordered by project, workflow and descending number.
func (s *Store) List() []Run {
	s.mu.RLock()
	out := make([]Run, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Key, out[j].Key
		if a.ProjectKey != b.ProjectKey {
			return a.ProjectKey < b.ProjectKey
		}
		if a.WorkflowName != b.WorkflowName {
			return a.WorkflowName < b.WorkflowName
		}
		return a.Number > b.Number
	})
	return out
}
