package eventjs

import (
	"context"
	"strings"

	"github.com/go-go-golems/cdslive/pkg/events"
	"github.com/pkg/errors"
)

// Set runs several independent scripts against the same message stream.
type Set struct {
	Modules []*Module
}

func LoadSetFromFiles(scriptPaths []string, opts Options) (*Set, error) {
	out := &Set{Modules: make([]*Module, 0, len(scriptPaths))}
	for _, p := range scriptPaths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		m, err := LoadFromFile(p, opts)
		if err != nil {
			_ = out.Close(context.Background())
			return nil, errors.Wrapf(err, "load %s", p)
		}
		out.Modules = append(out.Modules, m)
	}
	if len(out.Modules) == 0 {
		return nil, errors.New("eventjs: at least one script is required")
	}
	return out, nil
}

func (s *Set) Close(ctx context.Context) error {
	var firstErr error
	for _, m := range s.Modules {
		if m == nil {
			continue
		}
		if err := m.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Set) Process(ctx context.Context, msg events.Message) ([]*Line, []*ErrorRecord) {
	var (
		lines []*Line
		errs  []*ErrorRecord
	)
	for _, m := range s.Modules {
		if m == nil {
			continue
		}
		line, rec := m.Process(ctx, msg)
		if rec != nil {
			errs = append(errs, rec)
		}
		if line != nil {
			lines = append(lines, line)
		}
	}
	return lines, errs
}
