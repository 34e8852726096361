package systems

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/zeusync/fxdemo/internal/core/events/bus"
	"github.com/zeusync/fxdemo/internal/core/observability/log"
)

// StateChanged is published by Base on every lifecycle transition with the
// system name, the previous state and the new state.
var StateChanged = bus.NewTopic3[string, State, State]("System.StateChanged")

var (
	_ System          = (*Base)(nil)
	_ FailureReporter = (*Base)(nil)
)

// Base implements System's bookkeeping around a Hooks value. Concrete systems
// embed *Base and pass themselves as hooks:
//
//	s := &Farming{}
//	s.Base = systems.NewBase("farming", s, systems.WithBus(b))
//
// Every hook runs behind a guard that checks the state precondition, recovers
// panics and logs failures tagged with the system name. Only Initialize reports
// a hook failure to its caller; the other hooks log and carry on, keeping the
// failure for TakeFailure.
type Base struct {
	name     string
	priority int
	hooks    Hooks
	bus      *bus.Bus
	logger   log.Log
	debug    bool

	initialized bool
	running     bool
	paused      bool

	failure error
}

type Option func(*Base)

func WithPriority(priority int) Option {
	return func(b *Base) { b.priority = priority }
}

// WithBus enables StateChanged notifications and gives hooks access to the bus.
func WithBus(eventBus *bus.Bus) Option {
	return func(b *Base) { b.bus = eventBus }
}

func WithLogger(logger log.Log) Option {
	return func(b *Base) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithDebug turns on milestone logging at debug level.
func WithDebug(enabled bool) Option {
	return func(b *Base) { b.debug = enabled }
}

func NewBase(name string, hooks Hooks, opts ...Option) *Base {
	b := &Base{
		name:   name,
		hooks:  hooks,
		logger: log.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With(log.String("system", name))
	return b
}

func (b *Base) Name() string        { return b.name }
func (b *Base) Priority() int       { return b.priority }
func (b *Base) IsInitialized() bool { return b.initialized }
func (b *Base) IsRunning() bool     { return b.running }
func (b *Base) IsPaused() bool      { return b.paused }
func (b *Base) IsActive() bool      { return b.running && !b.paused }
func (b *Base) Bus() *bus.Bus       { return b.bus }
func (b *Base) Logger() log.Log     { return b.logger }
func (b *Base) DebugMode() bool     { return b.debug }

func (b *Base) State() State {
	switch {
	case !b.initialized:
		return StateUninitialized
	case !b.running:
		return StateInitialized
	case b.paused:
		return StatePaused
	default:
		return StateRunning
	}
}

func (b *Base) Initialize() error {
	if b.initialized {
		b.logger.Warn("initialize rejected: already initialized")
		return b.reject(ErrAlreadyInitialized)
	}

	b.debugLog("initializing")
	if err := Call(b.name, "OnInitialize", b.hooks.OnInitialize); err != nil {
		b.logFailure("initialize failed", err)
		return fmt.Errorf("%s: initialize: %w", b.name, err)
	}

	b.transition(func() { b.initialized = true })
	b.debugLog("initialized")
	return nil
}

func (b *Base) Start() error {
	if !b.initialized {
		b.logger.Error("start rejected: not initialized")
		return b.reject(ErrNotInitialized)
	}
	if b.running {
		b.logger.Warn("start rejected: already running")
		return b.reject(ErrAlreadyRunning)
	}

	b.debugLog("starting")
	if err := Call(b.name, "OnStart", b.hooks.OnStart); err != nil {
		b.swallow("start failed", err)
		return nil
	}

	b.transition(func() { b.running = true })
	b.debugLog("started")
	return nil
}

func (b *Base) Update(deltaTime float64) error {
	if !b.running || b.paused {
		return nil
	}
	if err := Call(b.name, "OnUpdate", func() error { return b.hooks.OnUpdate(deltaTime) }); err != nil {
		b.swallow("update failed", err)
	}
	return nil
}

func (b *Base) FixedUpdate(fixedDeltaTime float64) error {
	if !b.running || b.paused {
		return nil
	}
	h, ok := b.hooks.(FixedUpdater)
	if !ok {
		return nil
	}
	if err := Call(b.name, "OnFixedUpdate", func() error { return h.OnFixedUpdate(fixedDeltaTime) }); err != nil {
		b.swallow("fixed update failed", err)
	}
	return nil
}

// Shutdown runs the OnShutdown hook and returns the system to Uninitialized,
// even when the hook fails, so it can be initialized again.
func (b *Base) Shutdown() error {
	if !b.initialized {
		b.debugLog("shutdown skipped: not initialized")
		return nil
	}

	b.debugLog("shutting down")
	if h, ok := b.hooks.(Shutdowner); ok {
		if err := Call(b.name, "OnShutdown", h.OnShutdown); err != nil {
			b.swallow("shutdown failed", err)
		}
	}

	b.transition(func() {
		b.initialized = false
		b.running = false
		b.paused = false
	})
	b.debugLog("shut down")
	return nil
}

func (b *Base) Reset() error {
	b.debugLog("resetting")
	if h, ok := b.hooks.(Resetter); ok {
		if err := Call(b.name, "OnReset", h.OnReset); err != nil {
			b.swallow("reset failed", err)
			return nil
		}
	}
	b.debugLog("reset")
	return nil
}

func (b *Base) Pause() error {
	if !b.running {
		b.logger.Warn("pause rejected: not running")
		return b.reject(ErrNotRunning)
	}
	if b.paused {
		b.logger.Warn("pause rejected: already paused")
		return b.reject(ErrAlreadyPaused)
	}

	b.debugLog("pausing")
	if h, ok := b.hooks.(Pauser); ok {
		if err := Call(b.name, "OnPause", h.OnPause); err != nil {
			b.swallow("pause failed", err)
			return nil
		}
	}
	b.transition(func() { b.paused = true })
	return nil
}

func (b *Base) Resume() error {
	if !b.paused {
		b.logger.Warn("resume rejected: not paused")
		return b.reject(ErrNotPaused)
	}

	b.debugLog("resuming")
	if h, ok := b.hooks.(Resumer); ok {
		if err := Call(b.name, "OnResume", h.OnResume); err != nil {
			b.swallow("resume failed", err)
			return nil
		}
	}
	b.transition(func() { b.paused = false })
	return nil
}

func (b *Base) transition(apply func()) {
	from := b.State()
	apply()
	to := b.State()
	if from != to && b.bus != nil {
		StateChanged.Publish(b.bus, b.name, from, to)
	}
}

func (b *Base) reject(err error) error {
	return fmt.Errorf("%s: %w", b.name, err)
}

func (b *Base) debugLog(msg string) {
	if b.debug {
		b.logger.Debug(msg, log.String("state", b.State().String()))
	}
}

// TakeFailure returns the last hook failure swallowed since the previous call.
func (b *Base) TakeFailure() error {
	err := b.failure
	b.failure = nil
	return err
}

func (b *Base) swallow(msg string, err error) {
	b.logFailure(msg, err)
	b.failure = err
}

func (b *Base) logFailure(msg string, err error) {
	fields := []log.Field{log.Error(err)}
	var panicErr *HookPanicError
	if errors.As(err, &panicErr) {
		fields = append(fields, log.Stack("stack", panicErr.Stack))
	}
	b.logger.Error(msg, fields...)
}

// Call runs fn and converts a panic into a *HookPanicError carrying the stack.
func Call(system, hook string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HookPanicError{System: system, Hook: hook, Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}
