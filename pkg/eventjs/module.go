package eventjs

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/araddon/dateparse"
	"github.com/dop251/goja"
	"github.com/go-go-golems/cdslive/pkg/events"
	"github.com/pkg/errors"
)

var ErrNoRegister = errors.New("eventjs: script did not call register()")
var ErrHookTimeout = errors.New("eventjs: js hook timeout")

// Module is one loaded script. A goja runtime is single threaded, so calls
// into the module are serialized.
type Module struct {
	mu sync.Mutex

	vm     *goja.Runtime
	opts   options
	config *goja.Object

	scriptPath string
	name       string

	filterFn   goja.Callable
	formatFn   goja.Callable
	initFn     goja.Callable
	shutdownFn goja.Callable
	onErrorFn  goja.Callable
	jsonParse  goja.Callable

	state *goja.Object
	stats Stats
}

type options struct {
	hookTimeout time.Duration
}

func ParseOptions(opts Options) (options, error) {
	var out options
	if opts.HookTimeout != "" {
		d, err := time.ParseDuration(opts.HookTimeout)
		if err != nil {
			return options{}, errors.Wrap(err, "parse --js-timeout")
		}
		out.hookTimeout = d
	}
	return out, nil
}

func LoadFromFile(scriptPath string, opts Options) (*Module, error) {
	b, err := os.ReadFile(scriptPath)
	if err != nil {
		return nil, errors.Wrap(err, "read script")
	}
	return Load(scriptPath, string(b), opts)
}

// Load compiles and runs src, which must call register({name, ...}).
func Load(scriptPath string, src string, opts Options) (*Module, error) {
	parsedOpts, err := ParseOptions(opts)
	if err != nil {
		return nil, err
	}

	m := &Module{
		vm:         goja.New(),
		opts:       parsedOpts,
		scriptPath: scriptPath,
	}
	enableConsole(m.vm)
	m.state = m.vm.NewObject()

	if err := m.vm.Set("register", func(config goja.Value) error {
		if m.config != nil {
			return errors.New("register() called more than once")
		}
		if isNullish(config) {
			return errors.New("register(config) requires a config object")
		}
		m.config = config.ToObject(m.vm)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "set register")
	}

	if _, err := m.vm.RunScript("eventjs:helpers", helpersJS); err != nil {
		return nil, errors.Wrap(err, "load helpers")
	}
	if err := injectGoHelpers(m); err != nil {
		return nil, err
	}
	parse, ok := goja.AssertFunction(m.vm.Get("JSON").ToObject(m.vm).Get("parse"))
	if !ok {
		return nil, errors.New("eventjs: JSON.parse unavailable")
	}
	m.jsonParse = parse

	prog, err := goja.Compile(scriptPath, src, false)
	if err != nil {
		return nil, errors.Wrap(err, "compile script")
	}
	if _, err := m.vm.RunProgram(prog); err != nil {
		return nil, errors.Wrap(err, "run script")
	}
	if m.config == nil {
		return nil, ErrNoRegister
	}

	nameVal := m.config.Get("name")
	if isNullish(nameVal) || strings.TrimSpace(nameVal.String()) == "" {
		return nil, errors.New("register({ name: string, ... }): name is required")
	}
	m.name = nameVal.String()

	if fn, ok := goja.AssertFunction(m.config.Get("filter")); ok {
		m.filterFn = fn
	}
	if fn, ok := goja.AssertFunction(m.config.Get("format")); ok {
		m.formatFn = fn
	}
	if fn, ok := goja.AssertFunction(m.config.Get("init")); ok {
		m.initFn = fn
	}
	if fn, ok := goja.AssertFunction(m.config.Get("shutdown")); ok {
		m.shutdownFn = fn
	}
	if fn, ok := goja.AssertFunction(m.config.Get("onError")); ok {
		m.onErrorFn = fn
	}
	if m.filterFn == nil && m.formatFn == nil {
		return nil, errors.New("register({ filter?, format? }): at least one hook is required")
	}

	if m.initFn != nil {
		ctxObj := m.buildContext("init")
		if _, err := m.callHook(m.initFn, ctxObj); err != nil {
			m.stats.HookErrors++
			m.callOnError("init", err, goja.Undefined(), ctxObj)
		}
	}
	return m, nil
}

func (m *Module) Name() string       { return m.name }
func (m *Module) ScriptPath() string { return m.scriptPath }

func (m *Module) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

func (m *Module) Info() ModuleInfo {
	return ModuleInfo{
		Name:        m.name,
		HasFilter:   m.filterFn != nil,
		HasFormat:   m.formatFn != nil,
		HasInit:     m.initFn != nil,
		HasShutdown: m.shutdownFn != nil,
		HasOnError:  m.onErrorFn != nil,
	}
}

func (m *Module) Close(ctx context.Context) error {
	_ = ctx
	if m.shutdownFn == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ctxObj := m.buildContext("shutdown")
	if _, err := m.callHook(m.shutdownFn, ctxObj); err != nil {
		m.stats.HookErrors++
		m.callOnError("shutdown", err, goja.Undefined(), ctxObj)
	}
	return nil
}

// Process runs filter then format on msg. A nil line means the message was
// dropped, either by the script or because a hook failed.
func (m *Module) Process(ctx context.Context, msg events.Message) (*Line, *ErrorRecord) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.Processed++
	ev := m.eventValue(msg)

	if m.filterFn != nil {
		ctxObj := m.buildContext("filter")
		keep, err := m.callHook(m.filterFn, ev, ctxObj)
		if err != nil {
			return nil, m.hookFailed("filter", err, ev, ctxObj, msg)
		}
		if !keep.ToBoolean() {
			m.stats.Dropped++
			return nil, nil
		}
	}

	line := &Line{Module: m.name, Kind: msg.Kind(), Type: msg.Header().Type}
	if m.formatFn == nil {
		line.Text = events.Summary(msg)
		m.stats.Emitted++
		return line, nil
	}

	ctxObj := m.buildContext("format")
	out, err := m.callHook(m.formatFn, ev, ctxObj)
	if err != nil {
		return nil, m.hookFailed("format", err, ev, ctxObj, msg)
	}
	if isNullish(out) {
		m.stats.Dropped++
		return nil, nil
	}
	if err := m.fillLine(line, out); err != nil {
		return nil, m.hookFailed("format", err, ev, ctxObj, msg)
	}
	m.stats.Emitted++
	return line, nil
}

func (m *Module) hookFailed(hook string, err error, ev goja.Value, ctxObj *goja.Object, msg events.Message) *ErrorRecord {
	m.stats.HookErrors++
	m.stats.Dropped++
	m.callOnError(hook, err, ev, ctxObj)
	return &ErrorRecord{
		Module:  m.name,
		Hook:    hook,
		Kind:    msg.Kind(),
		Timeout: isInterruptedByTimeout(err),
		Message: err.Error(),
	}
}

// fillLine accepts a string or an object with text (or message) plus extra
// fields.
func (m *Module) fillLine(line *Line, v goja.Value) error {
	if s, ok := v.Export().(string); ok {
		line.Text = s
		return nil
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return errors.Errorf("format must return a string or an object, got %T", v.Export())
	}
	for _, key := range []string{"text", "message"} {
		if tv := obj.Get(key); !isNullish(tv) {
			line.Text = tv.String()
			break
		}
	}
	exported, ok := obj.Export().(map[string]any)
	if !ok {
		return nil
	}
	for k, fv := range exported {
		if k == "text" || k == "message" {
			continue
		}
		if line.Fields == nil {
			line.Fields = map[string]any{}
		}
		line.Fields[k] = fv
	}
	return nil
}

// eventValue exposes msg to scripts as a plain JS object. The backend
// payload is parsed natively so scripts can use its Go field names.
func (m *Module) eventValue(msg events.Message) goja.Value {
	h := msg.Header()
	obj := m.vm.NewObject()
	_ = obj.Set("kind", msg.Kind())
	_ = obj.Set("type", h.Type)
	_ = obj.Set("status", h.Status)
	_ = obj.Set("username", h.Username)
	_ = obj.Set("project_key", h.ProjectKey)
	_ = obj.Set("application_name", h.ApplicationName)
	_ = obj.Set("pipeline_name", h.PipelineName)
	_ = obj.Set("environment_name", h.EnvironmentName)
	_ = obj.Set("workflow_name", h.WorkflowName)
	_ = obj.Set("workflow_run_num", h.WorkflowRunNum)
	_ = obj.Set("workflow_node_run_id", h.WorkflowNodeRunID)
	_ = obj.Set("operation_uuid", h.OperationUUID)
	if !h.Timestamp.IsZero() {
		_ = obj.Set("timestamp", m.newDate(h.Timestamp))
	}
	if rejected, ok := msg.(events.FilterRejected); ok {
		_ = obj.Set("error", rejected.Error)
	}

	payload := goja.Null()
	if len(h.Payload) > 0 {
		if v, err := m.jsonParse(goja.Undefined(), m.vm.ToValue(string(h.Payload))); err == nil {
			payload = v
		}
	}
	_ = obj.Set("payload", payload)
	return obj
}

func (m *Module) buildContext(hook string) *goja.Object {
	obj := m.vm.NewObject()
	_ = obj.Set("hook", hook)
	_ = obj.Set("module", m.name)
	_ = obj.Set("state", m.state)
	_ = obj.Set("now", m.newDate(time.Now().UTC()))
	return obj
}

func (m *Module) newDate(t time.Time) goja.Value {
	ctor := m.vm.Get("Date")
	o, err := m.vm.New(ctor, m.vm.ToValue(t.UnixMilli()))
	if err != nil {
		return goja.Undefined()
	}
	return o
}

func (m *Module) callHook(fn goja.Callable, args ...goja.Value) (goja.Value, error) {
	if fn == nil {
		return goja.Undefined(), nil
	}

	if timeout := m.opts.hookTimeout; timeout > 0 {
		timer := time.AfterFunc(timeout, func() {
			m.vm.Interrupt(ErrHookTimeout)
		})
		defer timer.Stop()
		defer m.vm.ClearInterrupt()
	}

	v, err := fn(goja.Undefined(), args...)
	if err != nil {
		if isInterruptedByTimeout(err) {
			m.stats.HookTimeouts++
		}
		return nil, err
	}
	return v, nil
}

func (m *Module) callOnError(hook string, err error, payload goja.Value, ctxObj *goja.Object) {
	if m.onErrorFn == nil {
		return
	}
	_ = ctxObj.Set("hook", hook)
	_, _ = m.onErrorFn(goja.Undefined(), m.vm.ToValue(err.Error()), payload, ctxObj)
}

func enableConsole(vm *goja.Runtime) {
	obj := vm.NewObject()
	_ = obj.Set("log", func(call goja.FunctionCall) goja.Value {
		_, _ = fmt.Fprintln(os.Stderr, joinArgs(call.Arguments)...)
		return goja.Undefined()
	})
	_ = obj.Set("warn", func(call goja.FunctionCall) goja.Value {
		_, _ = fmt.Fprintln(os.Stderr, joinArgs(call.Arguments)...)
		return goja.Undefined()
	})
	_ = obj.Set("error", func(call goja.FunctionCall) goja.Value {
		_, _ = fmt.Fprintln(os.Stderr, joinArgs(call.Arguments)...)
		return goja.Undefined()
	})
	_ = vm.Set("console", obj)
}

func joinArgs(args []goja.Value) []any {
	out := make([]any, 0, len(args))
	for _, a := range args {
		out = append(out, a.Export())
	}
	return out
}

func isNullish(v goja.Value) bool {
	if v == nil {
		return true
	}
	return goja.IsUndefined(v) || goja.IsNull(v)
}

func isInterruptedByTimeout(err error) bool {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if v, ok := interrupted.Value().(error); ok && errors.Is(v, ErrHookTimeout) {
			return true
		}
	}
	return errors.Is(err, ErrHookTimeout)
}

// injectGoHelpers adds cds.parseDate(value), which accepts the free-form
// dates found in operation payloads and returns a JS Date or null.
func injectGoHelpers(m *Module) error {
	cdsVal := m.vm.Get("cds")
	if isNullish(cdsVal) {
		return errors.New("eventjs: helpers did not define globalThis.cds")
	}
	cdsObj := cdsVal.ToObject(m.vm)

	if err := cdsObj.Set("parseDate", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 || isNullish(call.Arguments[0]) {
			return goja.Null()
		}
		switch v := call.Arguments[0].Export().(type) {
		case time.Time:
			return m.newDate(v.UTC())
		case int64:
			return m.newDate(time.Unix(v, 0).UTC())
		case float64:
			return m.newDate(time.Unix(int64(v), 0).UTC())
		}
		s := strings.TrimSpace(call.Arguments[0].String())
		if s == "" {
			return goja.Null()
		}
		t, err := dateparse.ParseAny(s)
		if err != nil {
			return goja.Null()
		}
		return m.newDate(t.UTC())
	}); err != nil {
		return errors.Wrap(err, "set cds.parseDate")
	}
	return nil
}
