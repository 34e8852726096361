// Package events is the catalogue of channels shared by the runtime and the
// gameplay subsystems. Every channel name is bound to exactly one topic value
// here so publishers and listeners cannot disagree on its payload.
package events

import "github.com/zeusync/fxdemo/internal/core/events/bus"

// Orchestrator milestones, published once per lifecycle pass.
var (
	SystemInitialized = bus.NewTopic0("System.Initialized")
	SystemStarted     = bus.NewTopic0("System.Started")
	SystemPaused      = bus.NewTopic0("System.Paused")
	SystemResumed     = bus.NewTopic0("System.Resumed")
	SystemShutdown    = bus.NewTopic0("System.Shutdown")
)

// Player channels.
var (
	PlayerExperienceGained = bus.NewTopic1[ExperienceGained]("Player.ExperienceGained")
	// PlayerLevelUp carries the previous and the new level.
	PlayerLevelUp = bus.NewTopic2[int, int]("Player.LevelUp")
)

// Farming channels.
var (
	FarmingCropPlanted   = bus.NewTopic1[CropEvent]("Farming.CropPlanted")
	FarmingCropGrown     = bus.NewTopic1[CropEvent]("Farming.CropGrown")
	FarmingCropHarvested = bus.NewTopic1[Harvest]("Farming.CropHarvested")
)

// Economy channels carry the amount and a free-form reason.
var (
	EconomyGoldGained = bus.NewTopic2[int, string]("Economy.GoldGained")
	EconomyGoldSpent  = bus.NewTopic2[int, string]("Economy.GoldSpent")
)
