package injector

import (
	"fmt"

	"github.com/google/wire"

	"github.com/zeusync/fxdemo/internal/config"
	"github.com/zeusync/fxdemo/internal/core/events/bus"
	"github.com/zeusync/fxdemo/internal/core/observability/log"
	"github.com/zeusync/fxdemo/internal/core/observability/metrics"
	"github.com/zeusync/fxdemo/internal/core/system"
	"github.com/zeusync/fxdemo/internal/core/systems"
	"github.com/zeusync/fxdemo/internal/core/systems/economy"
	"github.com/zeusync/fxdemo/internal/core/systems/farming"
	"github.com/zeusync/fxdemo/internal/core/systems/player"
)

var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideBus,
	ProvideManager,
	ProvideRoster,
	ProvideContext,
	wire.Struct(new(App), "*"),
)

// App is everything the host needs to run one session.
type App struct {
	Context *system.Context
	Metrics *metrics.Metrics
	Roster  Roster
}

// Roster lists the systems registered with the manager, in registration order.
type Roster []systems.System

func ProvideLogger(cfg *config.Config) (log.Log, func(), error) {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	logger, err := log.New(log.Options{Level: level, Encoding: cfg.Log.Encoding})
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = logger.Sync() }, nil
}

func ProvideMetrics(cfg *config.Config) *metrics.Metrics {
	return metrics.New(cfg.Metrics.Namespace, cfg.Metrics.Enabled)
}

func ProvideBus(logger log.Log, m *metrics.Metrics) *bus.Bus {
	b := bus.New(logger)
	if m.Enabled() {
		b.AddObserver(m)
	}
	return b
}

func ProvideManager(cfg *config.Config, b *bus.Bus, logger log.Log, m *metrics.Metrics) *system.Manager {
	opts := []system.ManagerOption{system.WithDebug(cfg.Systems.Debug)}
	if m.Enabled() {
		opts = append(opts, system.WithObserver(m))
	}
	return system.NewManager(b, logger, opts...)
}

// ProvideRoster constructs and registers the enabled demo systems.
func ProvideRoster(cfg *config.Config, b *bus.Bus, logger log.Log, mgr *system.Manager) (Roster, error) {
	opts := []systems.Option{
		systems.WithBus(b),
		systems.WithLogger(logger),
		systems.WithDebug(cfg.Systems.Debug),
	}

	var roster Roster
	if cfg.SystemEnabled(farming.Name) {
		roster = append(roster, farming.New(cfg.Systems.Farming, opts...))
	}
	if cfg.SystemEnabled(player.Name) {
		roster = append(roster, player.New(cfg.Systems.Player, opts...))
	}
	if cfg.SystemEnabled(economy.Name) {
		roster = append(roster, economy.New(cfg.Systems.Economy, opts...))
	}

	for _, s := range roster {
		if err := mgr.Register(s); err != nil {
			return nil, fmt.Errorf("register %s: %w", s.Name(), err)
		}
	}
	return roster, nil
}

func ProvideContext(cfg *config.Config, logger log.Log, b *bus.Bus, mgr *system.Manager, _ Roster) *system.Context {
	return system.NewContext(cfg, logger, b, mgr)
}
