package system

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/fxdemo/internal/config"
	"github.com/zeusync/fxdemo/internal/core/events/bus"
)

func newTestContext(t *testing.T, mutate func(*config.Config)) (*Context, *sysA, *tracker) {
	t.Helper()
	cfg := config.Default()
	cfg.Loop.FixedStep = 20 * time.Millisecond
	cfg.Loop.MaxFixedSteps = 5
	if mutate != nil {
		mutate(cfg)
	}
	b := bus.New(nil)
	tr := &tracker{}
	m := NewManager(b, nil)
	a := &sysA{newTestSystem("A", tr)}
	require.NoError(t, m.Register(a))
	return NewContext(cfg, nil, b, m), a, tr
}

func count(calls []string, call string) int {
	n := 0
	for _, c := range calls {
		if c == call {
			n++
		}
	}
	return n
}

func TestStepAccumulatesFixedSteps(t *testing.T) {
	ctx, _, tr := newTestContext(t, nil)
	require.NoError(t, ctx.Boot())

	tr.calls = nil
	require.NoError(t, ctx.Step(50*time.Millisecond))
	assert.Equal(t, []string{"A.fixed", "A.fixed", "A.update"}, tr.calls)

	tr.calls = nil
	require.NoError(t, ctx.Step(10*time.Millisecond))
	assert.Equal(t, []string{"A.fixed", "A.update"}, tr.calls)
	assert.EqualValues(t, 2, ctx.Frames())
}

func TestStepCountsFailedFrames(t *testing.T) {
	ctx, a, _ := newTestContext(t, nil)
	require.NoError(t, ctx.Boot())

	tickErr := errors.New("tick broke")
	a.updateErr = tickErr
	err := ctx.Step(10 * time.Millisecond)
	require.ErrorIs(t, err, tickErr)
	require.ErrorIs(t, ctx.Step(10*time.Millisecond), tickErr)

	a.updateErr = nil
	require.NoError(t, ctx.Step(10*time.Millisecond))

	assert.EqualValues(t, 3, ctx.Frames())
	assert.EqualValues(t, 2, ctx.FailedFrames())
	assert.ErrorIs(t, ctx.LastFrameError(), tickErr)
	var passErr *PassError
	require.ErrorAs(t, ctx.LastFrameError(), &passErr)
	assert.Equal(t, PhaseUpdate, passErr.Phase)
}

func TestStepCapsFixedSteps(t *testing.T) {
	ctx, _, tr := newTestContext(t, nil)
	require.NoError(t, ctx.Boot())

	tr.calls = nil
	require.NoError(t, ctx.Step(time.Second))
	assert.Equal(t, 5, count(tr.calls, "A.fixed"))

	// The backlog is dropped rather than replayed.
	tr.calls = nil
	require.NoError(t, ctx.Step(time.Millisecond))
	assert.Zero(t, count(tr.calls, "A.fixed"))
}

func TestBootAbortsOnInitFailure(t *testing.T) {
	ctx, a, tr := newTestContext(t, func(c *config.Config) { c.Loop.AbortOnInitFailure = true })
	a.initErr = errors.New("broken")

	err := ctx.Boot()
	require.Error(t, err)
	assert.NotContains(t, tr.calls, "A.start")
	assert.Equal(t, StateInitialized, ctx.Systems.State())
}

func TestBootToleratesInitFailure(t *testing.T) {
	ctx, a, _ := newTestContext(t, nil)
	b := &sysB{newTestSystem("B", a.tr)}
	b.initErr = errors.New("broken")
	require.NoError(t, ctx.Systems.Register(b))

	err := ctx.Boot()
	var passErr *PassError
	require.ErrorAs(t, err, &passErr)
	assert.True(t, passErr.Failed("B"))
	assert.True(t, a.IsRunning())
	assert.Equal(t, StateRunning, ctx.Systems.State())
}

func TestRunStopsAtFrameLimit(t *testing.T) {
	ctx, a, tr := newTestContext(t, func(c *config.Config) {
		c.Loop.TickRate = 1000
		c.Loop.MaxFrames = 3
	})
	_, err := bus.NewTopic0("Test.Channel").On(ctx.Bus, func() {})
	require.NoError(t, err)

	require.NoError(t, ctx.Run(context.Background()))
	assert.EqualValues(t, 3, ctx.Frames())
	assert.Zero(t, ctx.FailedFrames())
	assert.Equal(t, 3, count(tr.calls, "A.update"))
	assert.Equal(t, 1, count(tr.calls, "A.shutdown"))
	assert.False(t, a.IsInitialized())
	assert.Zero(t, ctx.Systems.Count())
	assert.Empty(t, ctx.Bus.Channels())
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, a, _ := newTestContext(t, func(c *config.Config) { c.Loop.TickRate = 100 })

	runCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, ctx.Run(runCtx))
	assert.False(t, a.IsInitialized())
}

func TestRunReturnsAbortedBoot(t *testing.T) {
	ctx, a, tr := newTestContext(t, func(c *config.Config) { c.Loop.AbortOnInitFailure = true })
	a.initErr = errors.New("broken")

	err := ctx.Run(context.Background())
	require.Error(t, err)
	assert.Zero(t, count(tr.calls, "A.update"))
	assert.Equal(t, StateNotInitialized, ctx.Systems.State())
}
