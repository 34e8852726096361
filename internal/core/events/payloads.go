package events

// ExperienceGained is published every time the player earns experience.
type ExperienceGained struct {
	Amount int
	Total  int // cumulative experience after this gain
	Level  int
	Reason string
}

// CropEvent describes a single plot.
type CropEvent struct {
	Plot int
	Crop string
}

// Harvest is published when a grown plot is cleared.
type Harvest struct {
	Plot  int
	Crop  string
	Yield int
	Value int
}
