// Package settings loads berlinreg's tool settings.
// It supports loading from a YAML file and environment variables.
package settings

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
	"gopkg.in/yaml.v3"

	"github.com/levimarcus10/BerlinOriginal/internal/logging"
)

// DefaultFile is read by Load when no path is given and the file exists.
const DefaultFile = "berlinreg.yaml"

// Settings contains all berlinreg settings.
type Settings struct {
	// Engine configures the external simulation.
	Engine EngineSettings `yaml:"engine"`

	// OutputRoot is where scenario output directories are created.
	OutputRoot string `yaml:"output_root"`

	// DB is the run history database. Empty disables recording.
	DB string `yaml:"db"`

	// Jobs is the number of scenarios run in parallel.
	Jobs int `yaml:"jobs"`

	// Logging contains settings for operational logging.
	Logging LoggingSettings `yaml:"logging"`
}

// EngineSettings configures the simulation process.
type EngineSettings struct {
	// Command is the simulation command line. "{config}" is replaced with
	// the effective config path, which is appended when absent.
	Command string `yaml:"command"`

	// WorkDir is the process working directory. Empty uses the current one.
	WorkDir string `yaml:"work_dir,omitempty"`

	// Env holds extra KEY=VALUE entries for the process environment.
	// Values support ${VAR} expansion.
	Env []string `yaml:"env,omitempty"`

	// Timeout bounds one simulation run. Zero means no limit.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// LoggingSettings configures logging.
type LoggingSettings struct {
	// Level sets the log verbosity: "info" (default), "debug", "warn" or "error".
	Level string `yaml:"level"`
}

// CommandArgs splits the engine command into arguments with shell quoting
// rules, so quoted paths may contain spaces. Variables are not expanded
// here; ${VAR} is expanded when the settings file is read.
func (e EngineSettings) CommandArgs() ([]string, error) {
	args, err := shellwords.Parse(e.Command)
	if err != nil {
		return nil, fmt.Errorf("engine command %q: %w", e.Command, err)
	}
	return args, nil
}

// ExpandedEnv returns Env with ${VAR} references expanded.
func (e EngineSettings) ExpandedEnv() []string {
	out := make([]string, len(e.Env))
	for i, kv := range e.Env {
		out[i] = expandEnvVars(kv)
	}
	return out
}

// Default returns Settings with sensible defaults.
func Default() *Settings {
	return &Settings{
		OutputRoot: "output",
		Jobs:       1,
		Logging: LoggingSettings{
			Level: "info",
		},
	}
}

// Load loads settings from path, or from DefaultFile when path is empty and
// that file exists, then applies environment overrides.
// Order: defaults -> file -> environment variables
func Load(path string) (*Settings, error) {
	s := Default()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		fileSettings, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading settings file: %w", err)
		}
		s = fileSettings
	}

	if err := applyEnvOverrides(s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadFromFile loads settings from a specific YAML file. Unknown keys are
// rejected.
func LoadFromFile(path string) (*Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}
	defer f.Close()

	s := Default()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	// An empty file keeps the defaults.
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing settings file %s: %w", path, err)
	}

	s.Engine.Command = expandEnvVars(s.Engine.Command)
	return s, nil
}

// Validate checks that the settings are usable.
func (s *Settings) Validate() error {
	if s.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1, got %d", s.Jobs)
	}
	if s.Engine.Timeout < 0 {
		return fmt.Errorf("engine timeout must be non-negative, got %v", s.Engine.Timeout)
	}
	if !logging.ValidLevel(s.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error, or empty for default)", s.Logging.Level)
	}
	if _, err := s.Engine.CommandArgs(); err != nil {
		return err
	}
	for _, kv := range s.Engine.Env {
		if !strings.Contains(kv, "=") {
			return fmt.Errorf("engine env entry %q is not KEY=VALUE", kv)
		}
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the settings.
func applyEnvOverrides(s *Settings) error {
	if v := os.Getenv("BERLINREG_ENGINE_CMD"); v != "" {
		s.Engine.Command = v
	}

	if v := os.Getenv("BERLINREG_ENGINE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("BERLINREG_ENGINE_TIMEOUT: %w", err)
		}
		s.Engine.Timeout = d
	}

	if v := os.Getenv("BERLINREG_OUTPUT_ROOT"); v != "" {
		s.OutputRoot = v
	}

	if v := os.Getenv("BERLINREG_DB"); v != "" {
		s.DB = v
	}

	if v := os.Getenv("BERLINREG_JOBS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BERLINREG_JOBS: %w", err)
		}
		s.Jobs = n
	}

	if v := os.Getenv("BERLINREG_LOG_LEVEL"); v != "" {
		s.Logging.Level = v
	}
	return nil
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
