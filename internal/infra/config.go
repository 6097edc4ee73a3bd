package infra

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config carries every runtime setting the pipeline needs. Secrets
// never appear here — there is no upstream exchange credential to
// hold, since the producer only ever reads pre-framed text from
// stdin.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Symbol string `yaml:"symbol"`

	Recorder struct {
		WorkspaceDir string `yaml:"workspace_dir"`
		Prefix       string `yaml:"prefix"`
	} `yaml:"recorder"`

	Storage struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"storage"`

	UI struct {
		UpdateIntervalMS int    `yaml:"update_interval_ms"`
		HistoryDays      int    `yaml:"history_days"`
		GapThreshold     int64  `yaml:"gap_threshold"` // Micros
		Theme            string `yaml:"theme"`
	} `yaml:"ui"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the YAML config file at path, applying
// defaults and validating the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "cortex"
	}
	if c.Symbol == "" {
		c.Symbol = "WLDUSDT"
	}
	if c.Recorder.WorkspaceDir == "" {
		c.Recorder.WorkspaceDir = GetWorkspaceDir()
	}
	if c.Recorder.Prefix == "" {
		c.Recorder.Prefix = "wldusdt"
	}
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = "events.db"
	}
	if c.UI.UpdateIntervalMS == 0 {
		c.UI.UpdateIntervalMS = 250
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks configuration invariants the pipeline depends on.
func (c *Config) Validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if c.UI.UpdateIntervalMS <= 0 {
		return fmt.Errorf("ui.update_interval_ms must be positive")
	}
	return nil
}
