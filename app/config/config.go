// Package config loads optional yaml configuration with defaults for the task files location,
// naming and history. Command line options take precedence, applied by the caller.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/umputun/tasket/app/day"
	"github.com/umputun/tasket/app/tasks"
)

// Config defines yaml configuration file
type Config struct {
	Dir      string      `yaml:"dir,omitempty" json:"dir,omitempty" jsonschema:"description=directory with task files"`
	Ext      string      `yaml:"ext,omitempty" json:"ext,omitempty" jsonschema:"description=task file extension,default=.txt"`
	Template string      `yaml:"template,omitempty" json:"template,omitempty" jsonschema:"description=default file name template,default={{.ISODATE}}"`
	History  string      `yaml:"history,omitempty" json:"history,omitempty" jsonschema:"description=sqlite file for history journal; disabled if empty"`
	Clear    *bool       `yaml:"clear,omitempty" json:"clear,omitempty" jsonschema:"description=clear screen before each prompt; auto-detected if not set"`
	Save     *SaveConfig `yaml:"save,omitempty" json:"save,omitempty" jsonschema:"description=retries of failed file writes"`
	Timezone string      `yaml:"timezone,omitempty" json:"timezone,omitempty" jsonschema:"description=timezone used for default file name"`
	Recent   int         `yaml:"recent,omitempty" json:"recent,omitempty" jsonschema:"description=number of events shown by history,minimum=1,default=10"`
}

// SaveConfig defines retry strategy for saving task files
type SaveConfig struct {
	Attempts int           `yaml:"attempts,omitempty" json:"attempts,omitempty" jsonschema:"minimum=1,maximum=100"`
	Duration time.Duration `yaml:"duration,omitempty" json:"duration,omitempty" jsonschema:"type=string,description=initial delay like 100ms"`
	Factor   float64       `yaml:"factor,omitempty" json:"factor,omitempty" jsonschema:"minimum=1,maximum=10"`
}

const (
	minAttempts = 1
	maxAttempts = 100
	minFactor   = 1.0
	maxFactor   = 10.0
)

// Default returns configuration used without a file
func Default() Config {
	return Config{
		Dir:      ".",
		Ext:      tasks.DefaultExt,
		Template: day.DefaultTemplate,
		Recent:   10,
		Save:     &SaveConfig{Attempts: 1, Duration: 100 * time.Millisecond, Factor: 2},
	}
}

// Load reads yaml config from file and fills missing fields with defaults.
// Empty fname returns defaults.
func Load(fname string) (Config, error) {
	res := Default()
	if fname == "" {
		return res, nil
	}
	data, err := os.ReadFile(fname) // nolint gosec
	if err != nil {
		return Config{}, fmt.Errorf("can't read config %s: %w", fname, err)
	}
	return Parse(data)
}

// Parse makes config from yaml data, missing fields filled with defaults
func Parse(data []byte) (Config, error) {
	res := Default()
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("can't parse config: %w", err)
	}

	if cfg.Dir != "" {
		res.Dir = cfg.Dir
	}
	if cfg.Ext != "" {
		res.Ext = cfg.Ext
	}
	if cfg.Template != "" {
		res.Template = cfg.Template
	}
	if cfg.Recent > 0 {
		res.Recent = cfg.Recent
	}
	res.History, res.Clear, res.Timezone = cfg.History, cfg.Clear, cfg.Timezone
	if cfg.Save != nil {
		if cfg.Save.Attempts > 0 {
			res.Save.Attempts = cfg.Save.Attempts
		}
		if cfg.Save.Duration > 0 {
			res.Save.Duration = cfg.Save.Duration
		}
		if cfg.Save.Factor > 0 {
			res.Save.Factor = cfg.Save.Factor
		}
	}

	if err := Verify(res); err != nil {
		return Config{}, err
	}
	return res, nil
}

// Verify checks config values
func Verify(cfg Config) error {
	if strings.ContainsAny(cfg.Ext, `/\`) {
		return fmt.Errorf("ext %q can't contain path separators", cfg.Ext)
	}
	if _, err := day.NewParser(time.Now()).Parse(cfg.Template); err != nil {
		return fmt.Errorf("bad template: %w", err)
	}
	if cfg.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Timezone); err != nil {
			return fmt.Errorf("bad timezone %q: %w", cfg.Timezone, err)
		}
	}
	if cfg.Save == nil {
		return errors.New("save config is required")
	}
	if cfg.Save.Attempts < minAttempts || cfg.Save.Attempts > maxAttempts {
		return fmt.Errorf("save.attempts must be between %d and %d", minAttempts, maxAttempts)
	}
	if cfg.Save.Factor < minFactor || cfg.Save.Factor > maxFactor {
		return fmt.Errorf("save.factor must be between %.1f and %.1f", minFactor, maxFactor)
	}
	return nil
}

// Schema generates JSON schema for the yaml config
func Schema() ([]byte, error) {
	schema := jsonschema.Reflect(&Config{})
	schema.Title = "Tasket YAML Configuration Schema"
	schema.Description = "Schema for tasket yaml configuration file"
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}
