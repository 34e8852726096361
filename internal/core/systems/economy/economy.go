// Package economy keeps the player's gold balance and its transaction history.
package economy

import (
	"errors"
	"fmt"
	"slices"

	"github.com/zeusync/fxdemo/internal/config"
	"github.com/zeusync/fxdemo/internal/core/events"
	"github.com/zeusync/fxdemo/internal/core/events/bus"
	"github.com/zeusync/fxdemo/internal/core/observability/log"
	"github.com/zeusync/fxdemo/internal/core/systems"
)

const Name = "economy"

var (
	ErrInvalidAmount    = errors.New("gold amount must be positive")
	ErrInsufficientGold = errors.New("insufficient gold")
)

type Transaction struct {
	Amount  int // negative for spending
	Reason  string
	Balance int
}

// Economy sells every harvest for its value as soon as it is published.
type Economy struct {
	*systems.Base
	cfg config.EconomyConfig

	gold    int
	history []Transaction

	harvests bus.Subscription
}

func New(cfg config.EconomyConfig, opts ...systems.Option) *Economy {
	e := &Economy{cfg: cfg, gold: cfg.StartingGold}
	e.Base = systems.NewBase(Name, e, append([]systems.Option{systems.WithPriority(cfg.Priority)}, opts...)...)
	return e
}

func (e *Economy) Gold() int                 { return e.gold }
func (e *Economy) CanAfford(amount int) bool { return amount <= e.gold }
func (e *Economy) History() []Transaction    { return slices.Clone(e.history) }

// Earn adds gold and publishes Economy.GoldGained. Earn and Spend fail with
// systems.ErrInactive unless the system is running and not paused.
func (e *Economy) Earn(amount int, reason string) error {
	if !e.IsActive() {
		return fmt.Errorf("earn %d: %w", amount, systems.ErrInactive)
	}
	if amount <= 0 {
		return fmt.Errorf("earn %d: %w", amount, ErrInvalidAmount)
	}
	e.gold += amount
	e.record(amount, reason)
	if b := e.Bus(); b != nil {
		events.EconomyGoldGained.Publish(b, amount, reason)
	}
	return nil
}

// Spend removes gold and publishes Economy.GoldSpent. The balance never goes negative.
func (e *Economy) Spend(amount int, reason string) error {
	if !e.IsActive() {
		return fmt.Errorf("spend %d: %w", amount, systems.ErrInactive)
	}
	if amount <= 0 {
		return fmt.Errorf("spend %d: %w", amount, ErrInvalidAmount)
	}
	if !e.CanAfford(amount) {
		e.Logger().Warn("spend rejected",
			log.Int("amount", amount),
			log.Int("gold", e.gold),
			log.String("reason", reason),
		)
		return fmt.Errorf("spend %d: %w", amount, ErrInsufficientGold)
	}
	e.gold -= amount
	e.record(-amount, reason)
	if b := e.Bus(); b != nil {
		events.EconomyGoldSpent.Publish(b, amount, reason)
	}
	return nil
}

func (e *Economy) record(amount int, reason string) {
	e.history = append(e.history, Transaction{Amount: amount, Reason: reason, Balance: e.gold})
	if e.DebugMode() {
		e.Logger().Debug("gold changed",
			log.Int("amount", amount),
			log.Int("gold", e.gold),
			log.String("reason", reason),
		)
	}
}

func (e *Economy) sell(h events.Harvest) {
	if !e.IsActive() || h.Value <= 0 {
		return
	}
	_ = e.Earn(h.Value, "harvest:"+h.Crop)
}

func (e *Economy) OnInitialize() error {
	b := e.Bus()
	if b == nil {
		return systems.ErrNoBus
	}
	sub, err := events.FarmingCropHarvested.On(b, e.sell)
	if err != nil {
		return err
	}
	e.harvests = sub
	return nil
}

func (e *Economy) OnStart() error {
	e.Logger().Info("economy started", log.Int("gold", e.gold))
	return nil
}

func (e *Economy) OnUpdate(float64) error { return nil }

func (e *Economy) OnShutdown() error {
	if e.harvests == nil {
		return nil
	}
	err := e.harvests.Cancel()
	e.harvests = nil
	return err
}

func (e *Economy) OnReset() error {
	e.gold = e.cfg.StartingGold
	e.history = nil
	return nil
}
