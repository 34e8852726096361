// Package farming simulates a row of plots that grow crops over game time.
package farming

import (
	"errors"
	"fmt"
	"slices"

	"github.com/zeusync/fxdemo/internal/config"
	"github.com/zeusync/fxdemo/internal/core/events"
	"github.com/zeusync/fxdemo/internal/core/observability/log"
	"github.com/zeusync/fxdemo/internal/core/systems"
)

const Name = "farming"

var (
	ErrInvalidPlot  = errors.New("plot out of range")
	ErrPlotOccupied = errors.New("plot already planted")
	ErrPlotEmpty    = errors.New("plot is empty")
	ErrNotGrown     = errors.New("crop not grown yet")
	ErrUnknownCrop  = errors.New("unknown crop")
)

// Plot is a snapshot of one planted plot.
type Plot struct {
	ID        int
	Crop      string
	PlantedAt float64 // game seconds
	Progress  float64 // 0..1
	Grown     bool
}

// Farming advances crop growth on its own game clock, which only runs while
// the system is running and not paused. Growth is re-evaluated every
// GrowthInterval rather than every frame.
type Farming struct {
	*systems.Base
	cfg config.FarmingConfig

	plots      []*Plot
	clock      float64
	sinceCheck float64
}

func New(cfg config.FarmingConfig, opts ...systems.Option) *Farming {
	f := &Farming{cfg: cfg}
	f.Base = systems.NewBase(Name, f, append([]systems.Option{systems.WithPriority(cfg.Priority)}, opts...)...)
	return f
}

// Plant puts crop into plot and publishes Farming.CropPlanted. It fails with
// systems.ErrInactive unless the system is running and not paused.
func (f *Farming) Plant(plot int, crop string) error {
	if !f.IsActive() {
		return fmt.Errorf("plant %d: %w", plot, systems.ErrInactive)
	}
	return f.plant(plot, crop)
}

func (f *Farming) plant(plot int, crop string) error {
	if plot < 0 || plot >= len(f.plots) {
		return fmt.Errorf("plant %d: %w", plot, ErrInvalidPlot)
	}
	if f.plots[plot] != nil {
		return fmt.Errorf("plant %d: %w", plot, ErrPlotOccupied)
	}
	if _, ok := f.cfg.Crops[crop]; !ok {
		return fmt.Errorf("plant %q: %w", crop, ErrUnknownCrop)
	}

	f.plots[plot] = &Plot{ID: plot, Crop: crop, PlantedAt: f.clock}
	if f.DebugMode() {
		f.Logger().Debug("crop planted", log.Int("plot", plot), log.String("crop", crop))
	}
	if b := f.Bus(); b != nil {
		events.FarmingCropPlanted.Publish(b, events.CropEvent{Plot: plot, Crop: crop})
	}
	return nil
}

// Harvest clears a grown plot and publishes Farming.CropHarvested. Like Plant,
// it requires an active system.
func (f *Farming) Harvest(plot int) (events.Harvest, error) {
	if !f.IsActive() {
		return events.Harvest{}, fmt.Errorf("harvest %d: %w", plot, systems.ErrInactive)
	}
	return f.harvest(plot)
}

func (f *Farming) harvest(plot int) (events.Harvest, error) {
	if plot < 0 || plot >= len(f.plots) {
		return events.Harvest{}, fmt.Errorf("harvest %d: %w", plot, ErrInvalidPlot)
	}
	p := f.plots[plot]
	if p == nil {
		return events.Harvest{}, fmt.Errorf("harvest %d: %w", plot, ErrPlotEmpty)
	}
	if !p.Grown {
		return events.Harvest{}, fmt.Errorf("harvest %d: %w", plot, ErrNotGrown)
	}

	crop := f.cfg.Crops[p.Crop]
	h := events.Harvest{
		Plot:  plot,
		Crop:  p.Crop,
		Yield: crop.Yield,
		Value: crop.Yield * crop.SellPrice,
	}
	f.plots[plot] = nil

	f.Logger().Info("crop harvested",
		log.Int("plot", plot),
		log.String("crop", h.Crop),
		log.Int("yield", h.Yield),
		log.Int("value", h.Value),
	)
	if b := f.Bus(); b != nil {
		events.FarmingCropHarvested.Publish(b, h)
	}
	return h, nil
}

// Plots returns copies of the planted plots in plot order.
func (f *Farming) Plots() []Plot {
	out := make([]Plot, 0, len(f.plots))
	for _, p := range f.plots {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}

func (f *Farming) ActivePlots() int {
	n := 0
	for _, p := range f.plots {
		if p != nil {
			n++
		}
	}
	return n
}

func (f *Farming) ReadyToHarvest() int {
	n := 0
	for _, p := range f.plots {
		if p != nil && p.Grown {
			n++
		}
	}
	return n
}

func (f *Farming) OnInitialize() error {
	if len(f.cfg.Crops) == 0 {
		return fmt.Errorf("no crops configured: %w", ErrUnknownCrop)
	}
	f.plots = make([]*Plot, f.cfg.MaxPlots)
	f.clock = 0
	f.sinceCheck = 0
	return nil
}

func (f *Farming) OnStart() error {
	f.autoPlant()
	return nil
}

func (f *Farming) OnUpdate(deltaTime float64) error {
	f.clock += deltaTime
	f.sinceCheck += deltaTime
	if f.sinceCheck < f.cfg.GrowthInterval.Seconds() {
		return nil
	}
	f.sinceCheck = 0
	f.grow()
	f.autoPlant()
	return nil
}

func (f *Farming) OnShutdown() error {
	f.plots = nil
	return nil
}

func (f *Farming) OnReset() error {
	if f.plots != nil {
		clear(f.plots)
	}
	f.clock = 0
	f.sinceCheck = 0
	return nil
}

func (f *Farming) grow() {
	var ready []int
	for i, p := range f.plots {
		if p == nil || p.Grown {
			continue
		}
		growth := f.cfg.Crops[p.Crop].GrowthTime.Seconds()
		p.Progress = min((f.clock-p.PlantedAt)/growth, 1)
		if p.Progress < 1 {
			continue
		}
		p.Grown = true
		if b := f.Bus(); b != nil {
			events.FarmingCropGrown.Publish(b, events.CropEvent{Plot: i, Crop: p.Crop})
		}
		ready = append(ready, i)
	}

	if !f.cfg.AutoHarvest {
		return
	}
	for _, i := range ready {
		if _, err := f.harvest(i); err != nil {
			f.Logger().Warn("auto harvest failed", log.Int("plot", i), log.Error(err))
		}
	}
}

func (f *Farming) autoPlant() {
	if f.cfg.AutoPlant == "" {
		return
	}
	for i := range f.plots {
		if f.plots[i] != nil {
			continue
		}
		if err := f.plant(i, f.cfg.AutoPlant); err != nil {
			f.Logger().Warn("auto plant failed", log.Int("plot", i), log.Error(err))
			return
		}
	}
}

// Crops returns the configured crop names, sorted.
func (f *Farming) Crops() []string {
	names := make([]string, 0, len(f.cfg.Crops))
	for name := range f.cfg.Crops {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
