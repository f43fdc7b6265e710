package conn

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-go-golems/cdslive/pkg/filter"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	DefaultRetryDelay   = 5 * time.Second
	DefaultWriteTimeout = 10 * time.Second
)

type Options struct {
	URL          string
	Dialer       Dialer
	RetryDelay   time.Duration
	WriteTimeout time.Duration
}

// Manager owns the single push connection of a session. Open, Close and
// SetFilter never block on network I/O and never return transport errors;
// failures are logged and retried after a fixed delay until Close.
type Manager struct {
	url          string
	dialer       Dialer
	writeTimeout time.Duration
	retry        backoff.BackOff

	mu        sync.Mutex
	state     State
	gen       uint64
	ctx       context.Context
	cancel    context.CancelFunc
	transport Transport
	timer     *time.Timer

	filter      filter.Filter
	hasFilter   bool
	version     uint64
	sentVersion uint64

	messageHandlers []func([]byte)
	stateHandlers   []func(State)
	pendingStates   []State
	notifying       bool

	// serializes outbound frames
	writeMu sync.Mutex
}

func New(opts Options) (*Manager, error) {
	if opts.URL == "" {
		return nil, errors.New("missing URL")
	}
	if opts.Dialer == nil {
		return nil, errors.New("missing Dialer")
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	return &Manager{
		url:          opts.URL,
		dialer:       opts.Dialer,
		writeTimeout: opts.WriteTimeout,
		retry:        backoff.NewConstantBackOff(opts.RetryDelay),
		state:        Disconnected,
	}, nil
}

func (m *Manager) URL() string { return m.url }

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// OnMessage registers a handler for inbound frames. Handlers run on the
// connection's read goroutine, one frame at a time, in arrival order.
func (m *Manager) OnMessage(fn func([]byte)) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messageHandlers = append(m.messageHandlers, fn)
}

// OnStateChange registers a handler for state transitions. Handlers may run
// after the call that caused the transition has returned.
func (m *Manager) OnStateChange(fn func(State)) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stateHandlers = append(m.stateHandlers, fn)
}

func (m *Manager) Open() {
	m.mu.Lock()
	if m.state.Live() {
		m.mu.Unlock()
		return
	}
	m.openLocked()
	m.unlockAndNotify()
}

func (m *Manager) Close() {
	m.mu.Lock()
	if m.state == Disconnected {
		m.mu.Unlock()
		return
	}
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	t := m.transport
	m.transport = nil
	m.setStateLocked(Disconnected)
	m.unlockAndNotify()

	if t != nil {
		_ = t.Close()
	}
	log.Debug().Str("url", m.url).Msg("push connection closed")
}

// SetFilter replaces the subscription filter. It is sent right away when
// connected, otherwise on the next transition to Connected.
func (m *Manager) SetFilter(f filter.Filter) {
	m.mu.Lock()
	m.filter = f
	m.hasFilter = true
	m.version++
	connected := m.state == Connected
	m.mu.Unlock()

	if connected {
		go m.flush()
	}
}

func (m *Manager) Filter() (filter.Filter, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter, m.hasFilter
}

func (m *Manager) openLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.gen++
	gen := m.gen
	ctx, cancel := context.WithCancel(context.Background())
	m.ctx = ctx
	m.cancel = cancel
	m.setStateLocked(Connecting)
	go m.run(ctx, gen)
}

func (m *Manager) run(ctx context.Context, gen uint64) {
	t, err := m.dialer.Dial(ctx, m.url)
	if err != nil {
		m.fail(gen, err)
		return
	}

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		_ = t.Close()
		return
	}
	m.transport = t
	m.sentVersion = 0
	m.retry.Reset()
	m.setStateLocked(Connected)
	m.unlockAndNotify()
	log.Info().Str("url", m.url).Msg("push connection established")

	m.flush()

	for {
		b, err := t.Read(ctx)
		if err != nil {
			m.fail(gen, err)
			return
		}
		m.deliver(gen, b)
	}
}

func (m *Manager) deliver(gen uint64, b []byte) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	handlers := append([]func([]byte){}, m.messageHandlers...)
	m.mu.Unlock()

	for _, h := range handlers {
		h(b)
	}
}

// fail moves a live connection of generation gen to Reconnecting and arms
// the retry timer. Stale generations are ignored.
func (m *Manager) fail(gen uint64, cause error) {
	m.mu.Lock()
	if gen != m.gen || !m.state.Live() {
		m.mu.Unlock()
		return
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	t := m.transport
	m.transport = nil

	delay := m.retry.NextBackOff()
	if delay == backoff.Stop {
		delay = DefaultRetryDelay
	}
	m.setStateLocked(Reconnecting)
	m.timer = time.AfterFunc(delay, func() { m.reopen(gen) })
	m.unlockAndNotify()

	if t != nil {
		_ = t.Close()
	}

	ev := log.Warn()
	if IsNormalClosure(cause) {
		ev = log.Info()
	}
	ev.Err(cause).Str("url", m.url).Dur("retry_in", delay).Msg("push connection lost")
}

func (m *Manager) reopen(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.state != Reconnecting {
		m.mu.Unlock()
		return
	}
	m.openLocked()
	m.unlockAndNotify()
}

func (m *Manager) flush() {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	if m.state != Connected || m.transport == nil || !m.hasFilter || m.version == m.sentVersion {
		m.mu.Unlock()
		return
	}
	t, f, v, gen, ctx := m.transport, m.filter, m.version, m.gen, m.ctx
	m.mu.Unlock()

	b, err := f.MarshalJSONBytes()
	if err != nil {
		log.Error().Err(err).Msg("cannot encode filter")
		return
	}

	wctx, cancel := context.WithTimeout(ctx, m.writeTimeout)
	err = t.Write(wctx, b)
	cancel()
	if err != nil {
		m.fail(gen, errors.Wrap(err, "send filter"))
		return
	}

	m.mu.Lock()
	if gen == m.gen {
		m.sentVersion = v
	}
	m.mu.Unlock()
	log.Debug().Str("scope", f.Scope()).RawJSON("filter", b).Msg("filter sent")
}

func (m *Manager) setStateLocked(s State) {
	if m.state == s {
		return
	}
	m.state = s
	m.pendingStates = append(m.pendingStates, s)
}

// unlockAndNotify releases m.mu and delivers queued state changes. Only one
// goroutine drains the queue at a time; others enqueue and return, so
// handlers see every state in transition order and a slow handler never
// stalls the dial or read goroutines.
func (m *Manager) unlockAndNotify() {
	if m.notifying {
		m.mu.Unlock()
		return
	}
	m.notifying = true
	for len(m.pendingStates) > 0 {
		pending := m.pendingStates
		m.pendingStates = nil
		handlers := append([]func(State){}, m.stateHandlers...)
		m.mu.Unlock()

		for _, s := range pending {
			for _, h := range handlers {
				h(s)
			}
		}
		m.mu.Lock()
	}
	m.notifying = false
	m.mu.Unlock()
}
