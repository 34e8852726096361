package system

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zeusync/fxdemo/internal/core/events"
	"github.com/zeusync/fxdemo/internal/core/events/bus"
	"github.com/zeusync/fxdemo/internal/core/observability/log"
	"github.com/zeusync/fxdemo/internal/core/systems"
)

type tracker struct{ calls []string }

func (t *tracker) add(call string) { t.calls = append(t.calls, call) }

// testSystem is a Base-backed system that records its hooks into a tracker.
type testSystem struct {
	*systems.Base
	tr *tracker

	initErr   error
	updateErr error
	onInit    func(*testSystem) error
	onStart   func(*testSystem) error
	ticks     int
}

func newTestSystem(name string, tr *tracker, opts ...systems.Option) *testSystem {
	s := &testSystem{tr: tr}
	s.Base = systems.NewBase(name, s, opts...)
	return s
}

func (s *testSystem) OnInitialize() error {
	s.tr.add(s.Name() + ".init")
	if s.onInit != nil {
		if err := s.onInit(s); err != nil {
			return err
		}
	}
	return s.initErr
}

func (s *testSystem) OnStart() error {
	s.tr.add(s.Name() + ".start")
	if s.onStart != nil {
		return s.onStart(s)
	}
	return nil
}

func (s *testSystem) OnUpdate(float64) error {
	s.ticks++
	s.tr.add(s.Name() + ".update")
	return s.updateErr
}

func (s *testSystem) OnFixedUpdate(float64) error {
	s.tr.add(s.Name() + ".fixed")
	return nil
}

func (s *testSystem) OnShutdown() error {
	s.tr.add(s.Name() + ".shutdown")
	return nil
}

func (s *testSystem) Ticks() int { return s.ticks }

// Distinct dynamic types for the registry.
type (
	sysA struct{ *testSystem }
	sysB struct{ *testSystem }
	sysC struct{ *testSystem }
)

type ticker interface {
	systems.System
	Ticks() int
}

// rawSystem implements System directly, without Base guards.
type rawSystem struct {
	running bool
}

func (r *rawSystem) Name() string              { return "raw" }
func (r *rawSystem) Priority() int             { return 0 }
func (r *rawSystem) State() systems.State      { return systems.StateRunning }
func (r *rawSystem) IsInitialized() bool       { return true }
func (r *rawSystem) IsRunning() bool           { return r.running }
func (r *rawSystem) IsPaused() bool            { return false }
func (r *rawSystem) Initialize() error         { return nil }
func (r *rawSystem) Start() error              { r.running = true; return nil }
func (r *rawSystem) Shutdown() error           { r.running = false; return nil }
func (r *rawSystem) Reset() error              { return nil }
func (r *rawSystem) Pause() error              { return nil }
func (r *rawSystem) Resume() error             { return nil }
func (r *rawSystem) Update(float64) error      { panic("raw update exploded") }
func (r *rawSystem) FixedUpdate(float64) error { return errors.New("raw fixed failed") }

type passRecorder struct {
	phases   []Phase
	failures map[Phase]int
}

func (p *passRecorder) OnPass(phase Phase, _ int, failures []Failure, _ time.Duration) {
	p.phases = append(p.phases, phase)
	if p.failures == nil {
		p.failures = make(map[Phase]int)
	}
	p.failures[phase] += len(failures)
}

func newABC(t *testing.T, m *Manager, tr *tracker, opts ...systems.Option) (*sysA, *sysB, *sysC) {
	t.Helper()
	a := &sysA{newTestSystem("A", tr, opts...)}
	b := &sysB{newTestSystem("B", tr, opts...)}
	c := &sysC{newTestSystem("C", tr, opts...)}
	require.NoError(t, m.Register(a))
	require.NoError(t, m.Register(b))
	require.NoError(t, m.Register(c))
	return a, b, c
}

func TestManagerLifecycleOrder(t *testing.T) {
	tr := &tracker{}
	m := NewManager(bus.New(nil), nil)
	newABC(t, m, tr)
	assert.Equal(t, []string{"A", "B", "C"}, m.ExecutionOrder())

	require.NoError(t, m.InitializeAll())
	assert.Equal(t, StateInitialized, m.State())
	require.NoError(t, m.StartAll())
	assert.Equal(t, StateRunning, m.State())
	require.NoError(t, m.UpdateAll(0.016))
	require.NoError(t, m.FixedUpdateAll(0.02))
	require.NoError(t, m.ShutdownAll())

	assert.Equal(t, []string{
		"A.init", "B.init", "C.init",
		"A.start", "B.start", "C.start",
		"A.update", "B.update", "C.update",
		"A.fixed", "B.fixed", "C.fixed",
		"C.shutdown", "B.shutdown", "A.shutdown",
	}, tr.calls)
	assert.Equal(t, StateNotInitialized, m.State())
	assert.Zero(t, m.Count())
}

func TestManagerIsolatesInitFailure(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	tr := &tracker{}
	m := NewManager(nil, log.NewWithCore(core, log.LevelDebug))
	a, b, c := newABC(t, m, tr)
	boom := errors.New("missing asset")
	b.initErr = boom

	err := m.InitializeAll()
	require.Error(t, err)

	var passErr *PassError
	require.ErrorAs(t, err, &passErr)
	assert.Equal(t, PhaseInitialize, passErr.Phase)
	assert.True(t, passErr.Failed("B"))
	assert.False(t, passErr.Failed("A"))
	assert.ErrorIs(t, err, boom)

	assert.True(t, a.IsInitialized())
	assert.False(t, b.IsInitialized())
	assert.True(t, c.IsInitialized())
	require.Len(t, m.LastReport(), 1)
	assert.Equal(t, "B", m.LastReport()[0].System)

	entries := logs.FilterMessage("system failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "B", entries[0].ContextMap()["system"])

	// B never initialized, so it never starts or ticks.
	require.NoError(t, m.StartAll())
	require.NoError(t, m.UpdateAll(0.1))
	assert.Equal(t, 1, a.Ticks())
	assert.Zero(t, b.Ticks())
	assert.Equal(t, 1, c.Ticks())
}

func TestManagerReportsSwallowedHookFailures(t *testing.T) {
	rec := &passRecorder{}
	m := NewManager(nil, nil, WithObserver(rec))
	a, b, c := newABC(t, m, &tracker{})
	startErr := errors.New("start broke")
	a.onStart = func(*testSystem) error { return startErr }
	tickErr := errors.New("tick broke")
	c.updateErr = tickErr

	require.NoError(t, m.InitializeAll())

	err := m.StartAll()
	var passErr *PassError
	require.ErrorAs(t, err, &passErr)
	assert.Equal(t, PhaseStart, passErr.Phase)
	assert.True(t, passErr.Failed("A"))
	assert.False(t, passErr.Failed("B"))
	assert.ErrorIs(t, err, startErr)
	assert.Equal(t, []Failure{{System: "A", Phase: PhaseStart, Err: startErr}}, m.LastReport())
	assert.Equal(t, 1, rec.failures[PhaseStart])

	// A stays initialized and is skipped by updates; C fails every tick.
	assert.False(t, a.IsRunning())
	for i := 0; i < 2; i++ {
		err = m.UpdateAll(0.1)
		require.ErrorIs(t, err, tickErr)
		require.Len(t, m.LastReport(), 1)
		assert.Equal(t, "C", m.LastReport()[0].System)
	}
	assert.Equal(t, 2, rec.failures[PhaseUpdate])
	assert.True(t, c.IsRunning())
	assert.Equal(t, 2, b.Ticks())

	c.updateErr = nil
	require.NoError(t, m.UpdateAll(0.1))
	assert.Empty(t, m.LastReport())
}

func TestManagerIgnoresFailuresSwallowedOutsidePasses(t *testing.T) {
	m := NewManager(nil, nil)
	a, _, _ := newABC(t, m, &tracker{})
	require.NoError(t, m.InitializeAll())
	require.NoError(t, m.StartAll())

	a.updateErr = errors.New("direct call")
	require.NoError(t, a.Update(0.1))
	a.updateErr = nil

	require.NoError(t, m.UpdateAll(0.1))
	assert.Empty(t, m.LastReport())
}

func TestManagerPassPreconditions(t *testing.T) {
	m := NewManager(nil, nil)
	newABC(t, m, &tracker{})

	assert.ErrorIs(t, m.StartAll(), ErrNotInitialized)
	assert.ErrorIs(t, m.PauseAll(), ErrNotStarted)
	assert.ErrorIs(t, m.ResumeAll(), ErrNotStarted)
	assert.NoError(t, m.UpdateAll(0.1))

	require.NoError(t, m.InitializeAll())
	assert.ErrorIs(t, m.InitializeAll(), ErrAlreadyInitialized)
	require.NoError(t, m.StartAll())
	assert.ErrorIs(t, m.StartAll(), ErrAlreadyStarted)
}

func TestManagerRegisterRejections(t *testing.T) {
	m := NewManager(nil, nil)
	tr := &tracker{}

	assert.ErrorIs(t, m.Register(nil), ErrNilSystem)
	var typedNil *sysA
	assert.ErrorIs(t, m.Register(typedNil), ErrNilSystem)

	require.NoError(t, m.Register(&sysA{newTestSystem("A", tr)}))
	err := m.Register(&sysA{newTestSystem("A2", tr)})
	assert.ErrorIs(t, err, ErrDuplicateSystem)
	assert.Equal(t, 1, m.Count())
}

func TestManagerRejectsRegisterDuringPass(t *testing.T) {
	m := NewManager(nil, nil)
	tr := &tracker{}
	a := &sysA{newTestSystem("A", tr)}
	var registerErr error
	a.onInit = func(*testSystem) error {
		registerErr = m.Register(&sysB{newTestSystem("B", tr)})
		return nil
	}
	require.NoError(t, m.Register(a))

	require.NoError(t, m.InitializeAll())
	assert.ErrorIs(t, registerErr, ErrReentrant)
	assert.Equal(t, []string{"A"}, m.ExecutionOrder())
}

func TestGetAndUnregister(t *testing.T) {
	m := NewManager(nil, nil)
	a, b, _ := newABC(t, m, &tracker{})

	got, ok := Get[*sysB](m)
	require.True(t, ok)
	assert.Same(t, b, got)

	tk, ok := Get[ticker](m)
	require.True(t, ok)
	assert.Equal(t, "A", tk.Name())
	assert.Same(t, a.testSystem, tk.(*sysA).testSystem)

	_, ok = Get[*rawSystem](m)
	assert.False(t, ok)

	assert.True(t, Unregister[*sysB](m))
	assert.False(t, Unregister[*sysB](m))
	assert.Equal(t, []string{"A", "C"}, m.ExecutionOrder())
	_, ok = Get[*sysB](m)
	assert.False(t, ok)

	assert.True(t, m.UnregisterByName("C"))
	assert.False(t, m.UnregisterByName("C"))
	s, ok := m.Lookup("A")
	require.True(t, ok)
	assert.Equal(t, "A", s.Name())
	assert.Len(t, m.Systems(), 1)
}

func TestManagerIsolatesRawPanics(t *testing.T) {
	tr := &tracker{}
	m := NewManager(nil, nil)
	require.NoError(t, m.Register(&sysA{newTestSystem("A", tr)}))
	require.NoError(t, m.Register(&rawSystem{}))
	require.NoError(t, m.Register(&sysC{newTestSystem("C", tr)}))
	require.NoError(t, m.InitializeAll())
	require.NoError(t, m.StartAll())

	tr.calls = nil
	err := m.UpdateAll(0.016)
	var passErr *PassError
	require.ErrorAs(t, err, &passErr)
	assert.True(t, passErr.Failed("raw"))
	var panicErr *systems.HookPanicError
	assert.ErrorAs(t, err, &panicErr)
	assert.Equal(t, []string{"A.update", "C.update"}, tr.calls)

	err = m.FixedUpdateAll(0.02)
	require.ErrorAs(t, err, &passErr)
	assert.Equal(t, PhaseFixedUpdate, passErr.Phase)
}

func TestManagerPublishesMilestones(t *testing.T) {
	b := bus.New(nil)
	var got []string
	for _, topic := range []bus.Topic0{
		events.SystemInitialized, events.SystemStarted,
		events.SystemPaused, events.SystemResumed, events.SystemShutdown,
	} {
		name := topic.Name()
		_, err := topic.On(b, func() { got = append(got, name) })
		require.NoError(t, err)
	}

	m := NewManager(b, nil)
	_, bSys, _ := newABC(t, m, &tracker{})
	bSys.initErr = errors.New("fails")

	assert.Error(t, m.InitializeAll())
	require.NoError(t, m.StartAll())
	require.NoError(t, m.PauseAll())
	require.NoError(t, m.ResumeAll())
	require.NoError(t, m.ShutdownAll())

	assert.Equal(t, []string{
		"System.Initialized", "System.Started",
		"System.Paused", "System.Resumed", "System.Shutdown",
	}, got)
}

func TestPauseAllSuppressesUpdates(t *testing.T) {
	m := NewManager(nil, nil)
	a, _, _ := newABC(t, m, &tracker{})
	require.NoError(t, m.InitializeAll())
	require.NoError(t, m.StartAll())

	require.NoError(t, m.PauseAll())
	assert.True(t, a.IsPaused())
	require.NoError(t, m.UpdateAll(0.1))
	assert.Zero(t, a.Ticks())

	require.NoError(t, m.ResumeAll())
	require.NoError(t, m.UpdateAll(0.1))
	assert.Equal(t, 1, a.Ticks())
}

func TestShutdownAllAllowsReuse(t *testing.T) {
	tr := &tracker{}
	m := NewManager(nil, nil)
	a, _, _ := newABC(t, m, tr)
	require.NoError(t, m.InitializeAll())
	require.NoError(t, m.ShutdownAll())
	assert.False(t, a.IsInitialized())

	_, ok := Get[*sysA](m)
	assert.False(t, ok)

	require.NoError(t, m.Register(a))
	require.NoError(t, m.InitializeAll())
	assert.True(t, a.IsInitialized())
}

func TestSystemsCommunicateThroughBus(t *testing.T) {
	b := bus.New(nil)
	ready := bus.NewTopic0("A.Ready")
	tr := &tracker{}
	m := NewManager(b, nil)

	a := &sysA{newTestSystem("A", tr, systems.WithBus(b))}
	a.onStart = func(s *testSystem) error {
		ready.Publish(s.Bus())
		return nil
	}
	consumer := &sysB{newTestSystem("B", tr, systems.WithBus(b))}
	heard := 0
	consumer.onInit = func(s *testSystem) error {
		_, err := ready.On(s.Bus(), func() { heard++ })
		return err
	}
	require.NoError(t, m.Register(a))
	require.NoError(t, m.Register(consumer))

	require.NoError(t, m.InitializeAll())
	require.NoError(t, m.StartAll())
	assert.Equal(t, 1, heard)
}

func TestManagerNotifiesObservers(t *testing.T) {
	rec := &passRecorder{}
	m := NewManager(nil, nil, WithObserver(rec), WithObserver(nil), WithDebug(true))
	_, b, _ := newABC(t, m, &tracker{})
	b.initErr = errors.New("nope")

	_ = m.InitializeAll()
	require.NoError(t, m.StartAll())
	require.NoError(t, m.ShutdownAll())

	assert.Equal(t, []Phase{PhaseInitialize, PhaseStart, PhaseShutdown}, rec.phases)
	assert.Equal(t, 1, rec.failures[PhaseInitialize])
	assert.Zero(t, rec.failures[PhaseStart])
}
