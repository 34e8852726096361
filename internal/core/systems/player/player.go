// Package player tracks the player's experience and level.
package player

import (
	"errors"
	"fmt"

	"github.com/zeusync/fxdemo/internal/config"
	"github.com/zeusync/fxdemo/internal/core/events"
	"github.com/zeusync/fxdemo/internal/core/events/bus"
	"github.com/zeusync/fxdemo/internal/core/observability/log"
	"github.com/zeusync/fxdemo/internal/core/systems"
)

const Name = "player"

var ErrInvalidAmount = errors.New("experience amount must be positive")

// Player earns experience from harvests and levels up once the cumulative
// experience reaches ExperienceForLevel of the next level.
type Player struct {
	*systems.Base
	cfg config.PlayerConfig

	level      int
	experience int

	onHarvest *bus.Listener1[events.Harvest]
}

func New(cfg config.PlayerConfig, opts ...systems.Option) *Player {
	p := &Player{cfg: cfg, level: 1}
	p.onHarvest = bus.Listen1(p.harvested)
	p.Base = systems.NewBase(Name, p, append([]systems.Option{systems.WithPriority(cfg.Priority)}, opts...)...)
	return p
}

func (p *Player) Level() int      { return p.level }
func (p *Player) Experience() int { return p.experience }

// ExperienceForLevel returns the cumulative experience needed to reach level.
func (p *Player) ExperienceForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	return p.cfg.BaseExperience * level * (level - 1) / 2
}

// ToNextLevel returns the experience still missing for the next level, or 0 at MaxLevel.
func (p *Player) ToNextLevel() int {
	if p.level >= p.cfg.MaxLevel {
		return 0
	}
	return p.ExperienceForLevel(p.level+1) - p.experience
}

// AddExperience grants amount experience. Player.LevelUp is published before
// Player.ExperienceGained when the gain crosses one or more thresholds.
// It fails with systems.ErrInactive unless the system is running and not paused.
func (p *Player) AddExperience(amount int, reason string) error {
	if !p.IsActive() {
		return fmt.Errorf("add experience %d: %w", amount, systems.ErrInactive)
	}
	if amount <= 0 {
		p.Logger().Warn("experience rejected", log.Int("amount", amount), log.String("reason", reason))
		return ErrInvalidAmount
	}

	old := p.level
	p.experience += amount
	for p.level < p.cfg.MaxLevel && p.experience >= p.ExperienceForLevel(p.level+1) {
		p.level++
	}

	if p.level > old {
		p.Logger().Info("level up", log.Int("from", old), log.Int("to", p.level))
		if b := p.Bus(); b != nil {
			events.PlayerLevelUp.Publish(b, old, p.level)
		}
	}
	if b := p.Bus(); b != nil {
		events.PlayerExperienceGained.Publish(b, events.ExperienceGained{
			Amount: amount,
			Total:  p.experience,
			Level:  p.level,
			Reason: reason,
		})
	}
	return nil
}

func (p *Player) harvested(h events.Harvest) {
	if !p.IsActive() || p.cfg.ExperiencePerHarvest == 0 {
		return
	}
	_ = p.AddExperience(p.cfg.ExperiencePerHarvest*h.Yield, "harvest:"+h.Crop)
}

func (p *Player) OnInitialize() error {
	b := p.Bus()
	if b == nil {
		return systems.ErrNoBus
	}
	_, err := events.FarmingCropHarvested.Register(b, p.onHarvest)
	return err
}

func (p *Player) OnStart() error         { return nil }
func (p *Player) OnUpdate(float64) error { return nil }

func (p *Player) OnShutdown() error {
	if b := p.Bus(); b != nil {
		events.FarmingCropHarvested.Unregister(b, p.onHarvest)
	}
	return nil
}

func (p *Player) OnReset() error {
	p.level = 1
	p.experience = 0
	return nil
}
