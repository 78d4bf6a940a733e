package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultRate     = 60.0
	DefaultDuration = 120.0
	DefaultKp       = 2.0
	DefaultKi       = 0.1
	DefaultKd       = 0.5
	DefaultAddr     = ":8080"
	DefaultDBPath   = "physlab.db"
	DefaultArchive  = "runs"
	DefaultTheme    = "cyberpunk"
)

type Config struct {
	Lab          string             `yaml:"lab"`
	Seed         int64              `yaml:"seed"`
	Rate         float64            `yaml:"rate"`
	Duration     float64            `yaml:"duration"`
	Driver       string             `yaml:"driver"`
	Knobs        map[string]float64 `yaml:"knobs,omitempty"`
	DriverParams DriverConfig       `yaml:"driver_params"`
	ArchiveDir   string             `yaml:"archive_dir"`
	Theme        string             `yaml:"theme"`
	Server       ServerConfig       `yaml:"server"`
}

type DriverConfig struct {
	Observable string  `yaml:"observable"`
	Knob       string  `yaml:"knob"`
	Target     float64 `yaml:"target"`
	Kp         float64 `yaml:"kp"`
	Ki         float64 `yaml:"ki"`
	Kd         float64 `yaml:"kd"`
	Script     string  `yaml:"script,omitempty"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	DB   string `yaml:"db"`
}

func DefaultConfig() *Config {
	return &Config{
		Lab:      "fusion",
		Rate:     DefaultRate,
		Duration: DefaultDuration,
		Driver:   "none",
		DriverParams: DriverConfig{
			Kp: DefaultKp,
			Ki: DefaultKi,
			Kd: DefaultKd,
		},
		ArchiveDir: DefaultArchive,
		Theme:      DefaultTheme,
		Server: ServerConfig{
			Addr: DefaultAddr,
			DB:   DefaultDBPath,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Dt returns the step size implied by the tick rate.
func (c *Config) Dt() float64 {
	if c.Rate <= 0 {
		return 1.0 / DefaultRate
	}
	return 1.0 / c.Rate
}

// Ticks returns the number of steps needed to cover Duration at Rate.
func (c *Config) Ticks() int {
	if c.Duration <= 0 {
		return 0
	}
	return int(c.Duration * c.Rate)
}

func (c *Config) GetDriverParams() map[string]float64 {
	return map[string]float64{
		"kp":     c.DriverParams.Kp,
		"ki":     c.DriverParams.Ki,
		"kd":     c.DriverParams.Kd,
		"target": c.DriverParams.Target,
	}
}
