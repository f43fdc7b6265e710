package session

import (
	"context"
	"sync"

	"github.com/go-go-golems/cdslive/pkg/config"
	"github.com/rs/zerolog/log"
)

// Controller ties the session lifetime to authentication: signing in starts
// a session, signing out tears it down.
type Controller struct {
	cfg  config.File
	opts Options

	mu      sync.Mutex
	current *Session
}

func NewController(cfg config.File, opts Options) *Controller {
	// each session owns its bus
	opts.Bus = nil
	return &Controller{cfg: cfg, opts: opts}
}

// SignIn starts a session authenticated with token. If one is already
// running it is returned unchanged.
func (c *Controller) SignIn(ctx context.Context, token string) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		return c.current, nil
	}

	cfg := c.cfg
	if token != "" {
		cfg.SessionToken = token
	}
	s, err := New(&cfg, c.opts)
	if err != nil {
		return nil, err
	}
	if err := s.Start(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	c.current = s
	log.Info().Str("session", s.ID.String()).Msg("signed in")
	return s, nil
}

func (c *Controller) Current() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Controller) SignOut() error {
	c.mu.Lock()
	s := c.current
	c.current = nil
	c.mu.Unlock()
	if s == nil {
		return nil
	}
	log.Info().Str("session", s.ID.String()).Msg("signing out")
	return s.Close()
}
