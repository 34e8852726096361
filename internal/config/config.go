package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. FXDEMO_LOG_LEVEL.
const EnvPrefix = "FXDEMO_"

// Config is the runtime configuration of the demo host.
type Config struct {
	Log     LogConfig     `yaml:"log" envPrefix:"LOG_"`
	Loop    LoopConfig    `yaml:"loop" envPrefix:"LOOP_"`
	Systems SystemsConfig `yaml:"systems" envPrefix:"SYSTEMS_"`
	Metrics MetricsConfig `yaml:"metrics" envPrefix:"METRICS_"`
}

type LogConfig struct {
	Level    string `yaml:"level" env:"LEVEL" validate:"oneof=debug info warn error"`
	Encoding string `yaml:"encoding" env:"ENCODING" validate:"oneof=json console"`
}

// LoopConfig drives the frame loop: Update runs once per tick, FixedUpdate
// runs at FixedStep intervals accumulated from real frame time.
type LoopConfig struct {
	TickRate           int           `yaml:"tick_rate" env:"TICK_RATE" validate:"gt=0,lte=1000"`
	FixedStep          time.Duration `yaml:"fixed_step" env:"FIXED_STEP" validate:"gt=0"`
	MaxFixedSteps      int           `yaml:"max_fixed_steps" env:"MAX_FIXED_STEPS" validate:"gt=0"`
	MaxFrames          uint64        `yaml:"max_frames" env:"MAX_FRAMES"`
	AbortOnInitFailure bool          `yaml:"abort_on_init_failure" env:"ABORT_ON_INIT_FAILURE"`
}

type SystemsConfig struct {
	Debug   bool          `yaml:"debug" env:"DEBUG"`
	Enabled []string      `yaml:"enabled" env:"ENABLED" validate:"dive,oneof=player farming economy"`
	Player  PlayerConfig  `yaml:"player" envPrefix:"PLAYER_"`
	Farming FarmingConfig `yaml:"farming" envPrefix:"FARMING_"`
	Economy EconomyConfig `yaml:"economy" envPrefix:"ECONOMY_"`
}

type PlayerConfig struct {
	Priority             int `yaml:"priority" env:"PRIORITY"`
	BaseExperience       int `yaml:"base_experience" env:"BASE_EXPERIENCE" validate:"gt=0"`
	ExperiencePerHarvest int `yaml:"experience_per_harvest" env:"EXPERIENCE_PER_HARVEST" validate:"gte=0"`
	MaxLevel             int `yaml:"max_level" env:"MAX_LEVEL" validate:"gt=0"`
}

type FarmingConfig struct {
	Priority       int                   `yaml:"priority" env:"PRIORITY"`
	MaxPlots       int                   `yaml:"max_plots" env:"MAX_PLOTS" validate:"gt=0"`
	GrowthInterval time.Duration         `yaml:"growth_interval" env:"GROWTH_INTERVAL" validate:"gt=0"`
	AutoPlant      string                `yaml:"auto_plant" env:"AUTO_PLANT"`
	AutoHarvest    bool                  `yaml:"auto_harvest" env:"AUTO_HARVEST"`
	Crops          map[string]CropConfig `yaml:"crops" validate:"min=1,dive"`
}

type CropConfig struct {
	GrowthTime time.Duration `yaml:"growth_time" validate:"gt=0"`
	Yield      int           `yaml:"yield" validate:"gt=0"`
	SellPrice  int           `yaml:"sell_price" validate:"gte=0"`
}

type EconomyConfig struct {
	Priority     int `yaml:"priority" env:"PRIORITY"`
	StartingGold int `yaml:"starting_gold" env:"STARTING_GOLD" validate:"gte=0"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	Namespace string `yaml:"namespace" env:"NAMESPACE" validate:"required_if=Enabled true"`
	Addr      string `yaml:"addr" env:"ADDR" validate:"omitempty,hostname_port"`
}

// Default returns a configuration that runs every demo system.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Encoding: "json"},
		Loop: LoopConfig{
			TickRate:      60,
			FixedStep:     20 * time.Millisecond,
			MaxFixedSteps: 5,
		},
		Systems: SystemsConfig{
			Enabled: []string{"player", "farming", "economy"},
			Player: PlayerConfig{
				BaseExperience:       100,
				ExperiencePerHarvest: 10,
				MaxLevel:             50,
			},
			Farming: FarmingConfig{
				Priority:       1,
				MaxPlots:       9,
				GrowthInterval: time.Second,
				Crops: map[string]CropConfig{
					"wheat":   {GrowthTime: 60 * time.Second, Yield: 1, SellPrice: 10},
					"carrot":  {GrowthTime: 120 * time.Second, Yield: 2, SellPrice: 20},
					"pumpkin": {GrowthTime: 180 * time.Second, Yield: 3, SellPrice: 30},
				},
			},
			Economy: EconomyConfig{Priority: 2, StartingGold: 100},
		},
		Metrics: MetricsConfig{Namespace: "fxdemo"},
	}
}

// Load reads the YAML file at path (optional), applies FXDEMO_* environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	var data []byte
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return LoadReader(bytes.NewReader(data))
}

// LoadReader is Load for an already opened source.
func LoadReader(r io.Reader) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if crop := c.Systems.Farming.AutoPlant; crop != "" {
		if _, ok := c.Systems.Farming.Crops[crop]; !ok {
			return fmt.Errorf("validate config: auto_plant crop %q is not defined", crop)
		}
	}
	return nil
}

// SystemEnabled reports whether the named demo system should be registered.
func (c *Config) SystemEnabled(name string) bool {
	for _, n := range c.Systems.Enabled {
		if n == name {
			return true
		}
	}
	return false
}
