package system

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zeusync/fxdemo/internal/config"
	"github.com/zeusync/fxdemo/internal/core/events/bus"
	"github.com/zeusync/fxdemo/internal/core/observability/log"
)

// Context bundles the shared services of one run and drives the frame loop.
type Context struct {
	Config  *config.Config
	Logger  log.Log
	Bus     *bus.Bus
	Systems *Manager

	frames      uint64
	accumulator time.Duration

	failedFrames uint64
	lastFrameErr error
}

func NewContext(cfg *config.Config, logger log.Log, eventBus *bus.Bus, manager *Manager) *Context {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Context{
		Config:  cfg,
		Logger:  logger.With(log.String("component", "context")),
		Bus:     eventBus,
		Systems: manager,
	}
}

// Boot initializes and starts every registered system. Initialization failures
// only abort the boot when Loop.AbortOnInitFailure is set.
func (c *Context) Boot() error {
	var errs []error
	if err := c.Systems.InitializeAll(); err != nil {
		if c.Config.Loop.AbortOnInitFailure {
			return fmt.Errorf("boot: %w", err)
		}
		errs = append(errs, err)
	}
	if err := c.Systems.StartAll(); err != nil {
		errs = append(errs, err)
	}
	c.frames = 0
	c.accumulator = 0
	c.failedFrames = 0
	c.lastFrameErr = nil
	return errors.Join(errs...)
}

// Step advances one frame of length dt: as many fixed steps as the
// accumulated time allows (at most Loop.MaxFixedSteps), then one update.
func (c *Context) Step(dt time.Duration) error {
	var errs []error

	step := c.Config.Loop.FixedStep
	c.accumulator += dt
	for n := 0; c.accumulator >= step; n++ {
		if n == c.Config.Loop.MaxFixedSteps {
			c.Logger.Warn("fixed steps dropped",
				log.Duration("backlog", c.accumulator),
				log.Int("max_fixed_steps", n),
			)
			c.accumulator = 0
			break
		}
		if err := c.Systems.FixedUpdateAll(step.Seconds()); err != nil {
			errs = append(errs, err)
		}
		c.accumulator -= step
	}

	if err := c.Systems.UpdateAll(dt.Seconds()); err != nil {
		errs = append(errs, err)
	}
	c.frames++
	if err := errors.Join(errs...); err != nil {
		c.failedFrames++
		c.lastFrameErr = err
		return err
	}
	return nil
}

// Run boots the systems and steps them at Loop.TickRate until ctx is done or
// Loop.MaxFrames frames have run, then tears everything down. Per-frame
// failures are already logged by the manager and do not stop the loop; they
// are counted in FailedFrames and the latest is kept in LastFrameError.
func (c *Context) Run(ctx context.Context) (err error) {
	if err := c.Boot(); err != nil {
		if c.Systems.State() != StateRunning {
			return errors.Join(err, c.Teardown())
		}
		c.Logger.Warn("boot completed with failures", log.Error(err))
	}
	defer func() {
		err = errors.Join(err, c.Teardown())
	}()

	interval := time.Second / time.Duration(c.Config.Loop.TickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.Logger.Info("loop started",
		log.Duration("interval", interval),
		log.Int64("max_frames", int64(c.Config.Loop.MaxFrames)),
	)

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			c.logStop("loop stopped")
			return nil
		case now := <-ticker.C:
			_ = c.Step(now.Sub(last)) // counted in failedFrames
			last = now
			if limit := c.Config.Loop.MaxFrames; limit > 0 && c.frames >= limit {
				c.logStop("frame limit reached")
				return nil
			}
		}
	}
}

// Teardown shuts every system down and drops all remaining bus subscriptions.
func (c *Context) Teardown() error {
	err := c.Systems.ShutdownAll()
	if c.Bus != nil {
		c.Bus.Clear()
	}
	return err
}

func (c *Context) logStop(msg string) {
	fields := []log.Field{
		log.Int64("frames", int64(c.frames)),
		log.Int64("failed_frames", int64(c.failedFrames)),
	}
	if c.lastFrameErr != nil {
		fields = append(fields, log.ErrorWithKey("last_frame_error", c.lastFrameErr))
	}
	c.Logger.Info(msg, fields...)
}

func (c *Context) Frames() uint64 { return c.frames }

// FailedFrames counts the frames since Boot in which any pass reported a failure.
func (c *Context) FailedFrames() uint64 { return c.failedFrames }

// LastFrameError is the joined failure of the most recent failed frame.
func (c *Context) LastFrameError() error { return c.lastFrameErr }
