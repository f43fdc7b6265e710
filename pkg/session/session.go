package session

import (
	"context"
	"sync"

	"github.com/go-go-golems/cdslive/pkg/bus"
	"github.com/go-go-golems/cdslive/pkg/config"
	"github.com/go-go-golems/cdslive/pkg/conn"
	"github.com/go-go-golems/cdslive/pkg/events"
	"github.com/go-go-golems/cdslive/pkg/filter"
	"github.com/go-go-golems/cdslive/pkg/operation"
	"github.com/go-go-golems/cdslive/pkg/queue"
	"github.com/go-go-golems/cdslive/pkg/route"
	"github.com/go-go-golems/cdslive/pkg/store"
	"github.com/go-go-golems/cdslive/pkg/workflowrun"
	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNotStarted     = errors.New("session not started")
	ErrAlreadyStarted = errors.New("session already started")
	ErrClosed         = errors.New("session closed")
)

type Options struct {
	// Dialer defaults to a websocket dialer authenticated with the
	// configured session token.
	Dialer conn.Dialer
	// Fetcher defaults to the HTTP queue endpoint of the configured host.
	Fetcher queue.Fetcher
	// Observer sees every decoded push message.
	Observer func(events.Message)
	// Bus is created when nil. Handlers subscribed to bus.TopicState before
	// Start receive store snapshots.
	Bus *bus.Bus
}

// Session is one signed-in lifetime of the live update layer: one bus, one
// set of stores and one push connection whose filter follows navigation.
type Session struct {
	ID ulid.ULID

	Bus        *bus.Bus
	Queue      *queue.Store
	Runs       *workflowrun.Store
	Operations *operation.Store
	Conn       *conn.Manager
	Router     *events.Router

	dispatcher store.Dispatcher
	stores     store.Stores
	observer   *route.Observer
	nav        chan route.NavigationEvent

	// filterMu orders route filters and operation watches so the filter
	// handed to Conn always combines the latest of both.
	filterMu sync.Mutex
	base     filter.Filter
	watching string

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	group   *errgroup.Group
	started bool
	closed  bool
}

func New(cfg *config.File, opts Options) (*Session, error) {
	if cfg == nil {
		return nil, errors.New("missing config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	target, err := cfg.WebsocketURL()
	if err != nil {
		return nil, err
	}

	if opts.Dialer == nil || opts.Fetcher == nil {
		client := config.HTTPClient(context.Background(), cfg.SessionToken)
		if opts.Dialer == nil {
			opts.Dialer = conn.WebsocketDialer{HTTPClient: client}
		}
		if opts.Fetcher == nil {
			opts.Fetcher = queue.HTTPFetcher{BaseURL: cfg.APIURL(), Client: client}
		}
	}

	b := opts.Bus
	if b == nil {
		b, err = bus.NewInMemoryBus()
		if err != nil {
			return nil, err
		}
	}

	m, err := conn.New(conn.Options{URL: target, Dialer: opts.Dialer, RetryDelay: cfg.Delay()})
	if err != nil {
		return nil, errors.Wrap(err, "new connection manager")
	}

	s := &Session{
		ID:         ulid.Make(),
		Bus:        b,
		Queue:      queue.NewStore(),
		Runs:       workflowrun.NewStore(),
		Operations: operation.NewStore(),
		Conn:       m,
		dispatcher: store.BusDispatcher{Bus: b},
		observer:   route.NewObserver(16),
		nav:        make(chan route.NavigationEvent, 16),
	}
	s.stores = store.Stores{Queue: s.Queue, Runs: s.Runs, Operations: s.Operations, Fetcher: opts.Fetcher}
	s.Router = &events.Router{Dispatcher: s.dispatcher, Observer: opts.Observer}
	m.OnStateChange(func(st conn.State) {
		log.Debug().Str("session", s.ID.String()).Str("state", string(st)).Msg("connection state")
	})
	return s, nil
}

func (s *Session) Dispatcher() store.Dispatcher { return s.dispatcher }

// Start runs the bus, opens the push connection and begins following
// navigation. It returns once the bus handlers are subscribed.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	s.ctx, s.cancel, s.group = gctx, cancel, g
	s.mu.Unlock()

	store.Register(gctx, s.Bus, s.stores)
	s.Operations.OnChange(s.operationChanged)
	s.Conn.OnMessage(func(b []byte) { s.Router.Route(gctx, b) })

	g.Go(func() error { return s.Bus.Run(gctx) })
	select {
	case <-s.Bus.Running():
	case <-gctx.Done():
		return errors.Wrap(gctx.Err(), "wait for bus")
	}

	g.Go(func() error { return s.observer.Run(gctx, s.nav) })
	g.Go(func() error {
		for c := range s.observer.Changes() {
			s.follow(c)
		}
		return nil
	})

	s.Conn.Open()
	log.Info().Str("session", s.ID.String()).Str("url", s.Conn.URL()).Msg("session started")
	return nil
}

func (s *Session) follow(c route.Change) {
	f := filter.Derive(c.Path)
	log.Debug().Str("session", s.ID.String()).Str("path", c.Path).Str("scope", f.Scope()).Msg("route changed")

	s.filterMu.Lock()
	defer s.filterMu.Unlock()
	s.base = f
	s.Conn.SetFilter(s.currentFilterLocked())
}

func (s *Session) currentFilterLocked() filter.Filter {
	if s.watching == "" {
		return s.base
	}
	return s.base.WithOperation(s.watching)
}

// Navigate feeds a router lifecycle event. It blocks while the navigation
// buffer is full.
func (s *Session) Navigate(ev route.NavigationEvent) error {
	ctx, err := s.running()
	if err != nil {
		return err
	}
	select {
	case s.nav <- ev:
		return nil
	case <-ctx.Done():
		return ErrClosed
	}
}

// NavigateTo is Navigate with a primary outlet NavigationEnd for rawURL.
func (s *Session) NavigateTo(rawURL string) error {
	return s.Navigate(route.EndEvent(rawURL))
}

// WatchOperation starts tracking uuid and narrows the subscription to it.
// The operation stays in every filter derived from later navigation until
// it reaches a terminal status or UnwatchOperation is called. Watching a new
// operation replaces the previous one.
func (s *Session) WatchOperation(uuid string) error {
	if uuid == "" {
		return errors.New("empty operation uuid")
	}
	if _, err := s.running(); err != nil {
		return err
	}
	s.Operations.Track(uuid)

	s.filterMu.Lock()
	defer s.filterMu.Unlock()
	if prev := s.watching; prev != "" && prev != uuid {
		s.Operations.Forget(prev)
	}
	s.watching = uuid
	s.Conn.SetFilter(s.currentFilterLocked())
	return nil
}

// UnwatchOperation stops following uuid and resubscribes with the route
// filter alone.
func (s *Session) UnwatchOperation(uuid string) {
	s.filterMu.Lock()
	defer s.filterMu.Unlock()
	s.unwatchLocked(uuid)
}

// WatchedOperation returns the operation currently narrowing the filter.
func (s *Session) WatchedOperation() string {
	s.filterMu.Lock()
	defer s.filterMu.Unlock()
	return s.watching
}

func (s *Session) unwatchLocked(uuid string) {
	s.Operations.Forget(uuid)
	if s.watching != uuid {
		return
	}
	s.watching = ""
	s.Conn.SetFilter(s.currentFilterLocked())
}

func (s *Session) operationChanged(op operation.Operation) {
	if !op.Terminal() {
		return
	}
	log.Info().Str("session", s.ID.String()).Str("uuid", op.UUID).Str("status", op.Status.String()).Msg("operation finished")
	s.UnwatchOperation(op.UUID)
}

func (s *Session) RefreshQueue(ctx context.Context, statuses []queue.Status) error {
	if _, err := s.running(); err != nil {
		return err
	}
	return s.dispatcher.Dispatch(ctx, store.GetQueue{Status: statuses})
}

// Wait blocks until the session goroutines exit.
func (s *Session) Wait() error {
	s.mu.Lock()
	g := s.group
	s.mu.Unlock()
	if g == nil {
		return ErrNotStarted
	}
	return ignoreCanceled(g.Wait())
}

// Close stops the connection and the bus. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel, g := s.cancel, s.group
	s.mu.Unlock()

	s.Conn.Close()
	if cancel != nil {
		cancel()
	}
	var err error
	if g != nil {
		err = ignoreCanceled(g.Wait())
	}
	if cerr := s.Bus.Close(); cerr != nil && err == nil {
		err = cerr
	}
	log.Info().Str("session", s.ID.String()).Msg("session closed")
	return err
}

func (s *Session) running() (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.ctx, nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
