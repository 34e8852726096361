package system

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"time"

	"github.com/zeusync/fxdemo/internal/core/events"
	"github.com/zeusync/fxdemo/internal/core/events/bus"
	"github.com/zeusync/fxdemo/internal/core/observability/log"
	"github.com/zeusync/fxdemo/internal/core/systems"
)

// State is the orchestrator-level lifecycle state.
type State uint8

const (
	StateNotInitialized State = iota
	StateInitialized
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateNotInitialized:
		return "not_initialized"
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

// Observer is told about every completed pass. Observers must return quickly.
type Observer interface {
	OnPass(phase Phase, systems int, failures []Failure, duration time.Duration)
}

// Manager owns the registered systems and drives their lifecycle in
// registration order, shutting them down in reverse. A failing system is
// recorded and skipped; the rest of the pass always runs.
//
// Manager is not safe for concurrent use and is not re-entrant: systems must
// not register or unregister systems from inside a lifecycle hook.
type Manager struct {
	systems []systems.System
	index   map[reflect.Type]systems.System

	state      State
	inPass     bool
	lastReport []Failure

	bus       *bus.Bus
	logger    log.Log
	debug     bool
	observers []Observer
}

type ManagerOption func(*Manager)

func WithDebug(enabled bool) ManagerOption {
	return func(m *Manager) { m.debug = enabled }
}

func WithObserver(obs Observer) ManagerOption {
	return func(m *Manager) {
		if obs != nil {
			m.observers = append(m.observers, obs)
		}
	}
}

// NewManager creates an empty orchestrator. A nil bus disables milestone events.
func NewManager(eventBus *bus.Bus, logger log.Log, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = log.NewNop()
	}
	m := &Manager{
		index:  make(map[reflect.Type]systems.System),
		bus:    eventBus,
		logger: logger.With(log.String("component", "system_manager")),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register appends s to the registry. Only one system per dynamic type is accepted.
func (m *Manager) Register(s systems.System) error {
	if s == nil || reflect.ValueOf(s).Kind() == reflect.Ptr && reflect.ValueOf(s).IsNil() {
		m.logger.Error("register rejected: nil system")
		return ErrNilSystem
	}
	if m.inPass {
		m.logger.Error("register rejected: lifecycle pass in progress", log.String("system", s.Name()))
		return ErrReentrant
	}

	typ := reflect.TypeOf(s)
	if existing, ok := m.index[typ]; ok {
		m.logger.Warn("register rejected: type already registered",
			log.String("system", s.Name()),
			log.String("existing", existing.Name()),
			log.String("type", typ.String()),
		)
		return fmt.Errorf("%s: %w", typ, ErrDuplicateSystem)
	}

	m.systems = append(m.systems, s)
	m.index[typ] = s
	if m.debug {
		m.logger.Debug("system registered",
			log.String("system", s.Name()),
			log.Int("priority", s.Priority()),
		)
	}
	return nil
}

// Unregister removes the system registered under T. It reports whether one was removed.
func Unregister[T systems.System](m *Manager) bool {
	return m.unregisterType(reflect.TypeFor[T]())
}

// UnregisterByName removes the first system with the given name.
func (m *Manager) UnregisterByName(name string) bool {
	s, ok := m.Lookup(name)
	if !ok {
		m.logger.Warn("unregister ignored: unknown system", log.String("system", name))
		return false
	}
	return m.unregisterType(reflect.TypeOf(s))
}

func (m *Manager) unregisterType(typ reflect.Type) bool {
	if m.inPass {
		m.logger.Error("unregister rejected: lifecycle pass in progress", log.String("type", typ.String()))
		return false
	}
	s, ok := m.index[typ]
	if !ok {
		m.logger.Warn("unregister ignored: type not registered", log.String("type", typ.String()))
		return false
	}
	delete(m.index, typ)
	m.systems = slices.DeleteFunc(m.systems, func(x systems.System) bool { return x == s })
	if m.debug {
		m.logger.Debug("system unregistered", log.String("system", s.Name()))
	}
	return true
}

// Get returns the system registered under T. When T is an interface, the first
// registered system implementing it is returned.
func Get[T systems.System](m *Manager) (T, bool) {
	if s, ok := m.index[reflect.TypeFor[T]()]; ok {
		t, ok := s.(T)
		return t, ok
	}
	for _, s := range m.systems {
		if t, ok := s.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// Lookup finds a system by name.
func (m *Manager) Lookup(name string) (systems.System, bool) {
	for _, s := range m.systems {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

// Systems returns the registered systems in registration order.
func (m *Manager) Systems() []systems.System {
	return slices.Clone(m.systems)
}

// ExecutionOrder returns system names in the order passes visit them.
func (m *Manager) ExecutionOrder() []string {
	names := make([]string, len(m.systems))
	for i, s := range m.systems {
		names[i] = s.Name()
	}
	return names
}

func (m *Manager) Count() int   { return len(m.systems) }
func (m *Manager) State() State { return m.state }

// LastReport returns the failures of the most recent pass.
func (m *Manager) LastReport() []Failure {
	return slices.Clone(m.lastReport)
}

// InitializeAll initializes every system. Failing systems are logged and
// reported in the returned *PassError; the others still initialize.
// System.Initialized is published after the pass either way.
func (m *Manager) InitializeAll() error {
	if m.state != StateNotInitialized {
		m.logger.Warn("initialize rejected: already initialized")
		return ErrAlreadyInitialized
	}

	if m.debug {
		m.logger.Debug("initializing systems", log.Int("count", len(m.systems)))
	}
	err := m.pass(PhaseInitialize, m.systems, func(s systems.System) error { return s.Initialize() })
	m.state = StateInitialized
	m.publish(events.SystemInitialized)
	m.logger.Info("systems initialized", log.Int("count", len(m.systems)), log.Int("failed", len(m.lastReport)))
	return err
}

// StartAll starts every initialized system. It requires InitializeAll to have
// run; systems whose initialization failed are skipped.
func (m *Manager) StartAll() error {
	switch m.state {
	case StateNotInitialized:
		m.logger.Error("start rejected: systems not initialized")
		return ErrNotInitialized
	case StateRunning:
		m.logger.Warn("start rejected: already started")
		return ErrAlreadyStarted
	}

	err := m.pass(PhaseStart, m.systems, func(s systems.System) error {
		if !s.IsInitialized() {
			m.logger.Warn("start skipped: system not initialized", log.String("system", s.Name()))
			return nil
		}
		return s.Start()
	})
	m.state = StateRunning
	m.publish(events.SystemStarted)
	m.logger.Info("systems started", log.Int("count", len(m.systems)), log.Int("failed", len(m.lastReport)))
	return err
}

// UpdateAll ticks every running system once. It is a no-op until StartAll ran.
func (m *Manager) UpdateAll(deltaTime float64) error {
	if m.state != StateRunning {
		return nil
	}
	return m.pass(PhaseUpdate, m.systems, func(s systems.System) error {
		if !s.IsRunning() {
			return nil
		}
		return s.Update(deltaTime)
	})
}

// FixedUpdateAll runs one fixed step on every running system.
func (m *Manager) FixedUpdateAll(fixedDeltaTime float64) error {
	if m.state != StateRunning {
		return nil
	}
	return m.pass(PhaseFixedUpdate, m.systems, func(s systems.System) error {
		if !s.IsRunning() {
			return nil
		}
		return s.FixedUpdate(fixedDeltaTime)
	})
}

// PauseAll pauses every running, unpaused system.
func (m *Manager) PauseAll() error {
	if m.state != StateRunning {
		m.logger.Warn("pause rejected: systems not running")
		return ErrNotStarted
	}
	err := m.pass(PhasePause, m.systems, func(s systems.System) error {
		if !s.IsRunning() || s.IsPaused() {
			return nil
		}
		return s.Pause()
	})
	m.publish(events.SystemPaused)
	return err
}

// ResumeAll resumes every paused system.
func (m *Manager) ResumeAll() error {
	if m.state != StateRunning {
		m.logger.Warn("resume rejected: systems not running")
		return ErrNotStarted
	}
	err := m.pass(PhaseResume, m.systems, func(s systems.System) error {
		if !s.IsPaused() {
			return nil
		}
		return s.Resume()
	})
	m.publish(events.SystemResumed)
	return err
}

// ShutdownAll shuts systems down in reverse registration order, then clears
// the registry so the manager can be reused for a fresh run.
func (m *Manager) ShutdownAll() error {
	reversed := slices.Clone(m.systems)
	slices.Reverse(reversed)

	err := m.pass(PhaseShutdown, reversed, func(s systems.System) error { return s.Shutdown() })

	m.systems = nil
	m.index = make(map[reflect.Type]systems.System)
	m.state = StateNotInitialized
	m.publish(events.SystemShutdown)
	m.logger.Info("systems shut down", log.Int("count", len(reversed)), log.Int("failed", len(m.lastReport)))
	return err
}

// pass visits order, isolating each system's error or panic. Hook failures a
// FailureReporter swallowed during the call are recorded as well.
func (m *Manager) pass(phase Phase, order []systems.System, fn func(systems.System) error) error {
	start := time.Now()
	m.inPass = true
	defer func() { m.inPass = false }()

	var failures []Failure
	for _, s := range order {
		reporter, _ := s.(systems.FailureReporter)
		if reporter != nil {
			// failures swallowed outside a pass were logged already
			_ = reporter.TakeFailure()
		}
		err := systems.Call(s.Name(), string(phase), func() error { return fn(s) })
		if err == nil && reporter != nil {
			err = reporter.TakeFailure()
		}
		if err == nil {
			continue
		}
		failures = append(failures, Failure{System: s.Name(), Phase: phase, Err: err})

		fields := []log.Field{
			log.String("system", s.Name()),
			log.String("phase", string(phase)),
			log.Error(err),
		}
		var panicErr *systems.HookPanicError
		if errors.As(err, &panicErr) {
			fields = append(fields, log.Stack("stack", panicErr.Stack))
		}
		m.logger.Error("system failed", fields...)
	}

	m.lastReport = failures
	dur := time.Since(start)
	for _, obs := range m.observers {
		obs.OnPass(phase, len(order), failures, dur)
	}

	if len(failures) == 0 {
		return nil
	}
	return &PassError{Phase: phase, Failures: failures}
}

func (m *Manager) publish(topic bus.Topic0) {
	if m.bus != nil {
		topic.Publish(m.bus)
	}
}
