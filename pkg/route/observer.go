package route

import (
	"context"
	"net/url"
	"sync"

	"github.com/go-go-golems/cdslive/pkg/filter"
)

type EventKind string

const (
	NavigationStart EventKind = "start"
	ResolveStart    EventKind = "resolve.start"
	ResolveEnd      EventKind = "resolve.end"
	NavigationEnd   EventKind = "end"
)

const PrimaryOutlet = "primary"

// NavigationEvent is one lifecycle signal from the console router. Params
// holds the merged path and query parameters of the deepest active route.
type NavigationEvent struct {
	Kind   EventKind         `json:"kind"`
	URL    string            `json:"url"`
	Outlet string            `json:"outlet,omitempty"`
	Params map[string]string `json:"params,omitempty"`
}

type Change struct {
	Path   string            `json:"path"`
	URL    string            `json:"url"`
	Params map[string]string `json:"params,omitempty"`
}

// Observer turns navigation signals into path changes. Consecutive
// navigations that only differ by query string are collapsed.
type Observer struct {
	mu        sync.Mutex
	lastPath  string
	hasLast   bool
	resolving bool

	changes chan Change
}

func NewObserver(buffer int) *Observer {
	if buffer < 0 {
		buffer = 0
	}
	return &Observer{changes: make(chan Change, buffer)}
}

func (o *Observer) Observe(ev NavigationEvent) (Change, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch ev.Kind {
	case ResolveStart:
		o.resolving = true
	case ResolveEnd:
		o.resolving = false
	case NavigationEnd:
		if ev.Outlet != "" && ev.Outlet != PrimaryOutlet {
			return Change{}, false
		}
		path := filter.StripQuery(ev.URL)
		if o.hasLast && path == o.lastPath {
			return Change{}, false
		}
		o.lastPath = path
		o.hasLast = true
		return Change{Path: path, URL: ev.URL, Params: copyParams(ev.Params)}, true
	}
	return Change{}, false
}

// Resolving reports whether route data is being resolved.
func (o *Observer) Resolving() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.resolving
}

// Reset forgets the last emitted path so the next navigation end is emitted.
func (o *Observer) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lastPath = ""
	o.hasLast = false
}

func (o *Observer) Changes() <-chan Change {
	return o.changes
}

// Run feeds events from in until ctx is done or in is closed, then closes
// the Changes channel.
func (o *Observer) Run(ctx context.Context, in <-chan NavigationEvent) error {
	defer close(o.changes)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-in:
			if !ok {
				return nil
			}
			c, emit := o.Observe(ev)
			if !emit {
				continue
			}
			select {
			case o.changes <- c:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// EndEvent builds a primary outlet NavigationEnd event for a raw URL, taking
// params from its query string.
func EndEvent(rawURL string) NavigationEvent {
	ev := NavigationEvent{Kind: NavigationEnd, URL: rawURL, Outlet: PrimaryOutlet}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ev
	}
	q := u.Query()
	if len(q) == 0 {
		return ev
	}
	ev.Params = map[string]string{}
	for k, v := range q {
		if len(v) > 0 {
			ev.Params[k] = v[0]
		}
	}
	return ev
}

func copyParams(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
