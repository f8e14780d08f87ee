package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/levimarcus10/BerlinOriginal/internal/matsimcfg"
	"github.com/levimarcus10/BerlinOriginal/internal/scorestats"
)

// Scenario defines one regression case: a config file, the overrides
// applied to it, and the reference values the run must reproduce.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file and,
	// by default, the output directory.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is the MATSim config file. Relative paths are resolved against
	// the scenario file's directory.
	Config string `yaml:"config"`

	// OutputDir overrides the run's output directory. Relative paths are
	// resolved against Options.OutputRoot, or the scenario directory when no
	// root is set. Defaults to "output/<name>".
	OutputDir string `yaml:"output_dir,omitempty"`

	Overrides Overrides `yaml:"overrides"`

	// StageActivities replaces the default interaction activity types used
	// to split plans into trips.
	StageActivities []string `yaml:"stage_activities,omitempty"`

	// InteractionSuffix also treats every "<mode> interaction" activity as a
	// stage activity, on top of the default or listed ones.
	InteractionSuffix bool `yaml:"interaction_suffix,omitempty"`

	// ModePrecedence replaces the default main-mode precedence list.
	ModePrecedence []string `yaml:"mode_precedence,omitempty"`

	Assertions []Assertion `yaml:"assertions"`

	baseDir string
}

// Overrides are applied to a fresh copy of the config before every run.
type Overrides struct {
	LastIteration int `yaml:"last_iteration"`

	// OverwritePolicy defaults to deleteDirectoryIfExists so every run starts
	// from an empty output directory.
	OverwritePolicy string `yaml:"overwrite_policy,omitempty"`

	FractionDisableInnovation *float64 `yaml:"fraction_disable_innovation,omitempty"`

	// Params sets arbitrary module params: module -> param -> value.
	Params map[string]map[string]string `yaml:"params,omitempty"`
}

// Assertion compares one observed value with its reference.
type Assertion struct {
	// Type is one of score, mode_share, mode_count, trip_total.
	Type string `yaml:"type"`

	// Item is the score statistic (score). Defaults to average.
	Item string `yaml:"item,omitempty"`

	// Iteration is the iteration to check (score).
	Iteration int `yaml:"iteration,omitempty"`

	// Mode is the transport mode (mode_share, mode_count).
	Mode string `yaml:"mode,omitempty"`

	// Expect is the reference value (score, mode_share).
	Expect float64 `yaml:"expect,omitempty"`

	// Count is the expected count (mode_count, trip_total).
	Count int `yaml:"count,omitempty"`

	// Tolerance is epsilon, regression or an absolute number. When omitted,
	// score assertions at iteration 0 use epsilon and everything else uses
	// regression.
	Tolerance *Tolerance `yaml:"tolerance,omitempty"`
}

// Assertion type constants.
const (
	AssertScore     = "score"
	AssertModeShare = "mode_share"
	AssertModeCount = "mode_count"
	AssertTripTotal = "trip_total"
)

// needsModes reports whether any assertion depends on the mode analysis.
func (s *Scenario) needsModes() bool {
	for _, a := range s.Assertions {
		if a.Type != AssertScore {
			return true
		}
	}
	return false
}

// scoreItem returns the assertion's statistic, defaulting to average.
func (a *Assertion) scoreItem() (scorestats.Item, error) {
	if a.Item == "" {
		return scorestats.Average, nil
	}
	return scorestats.ParseItem(a.Item)
}

// tolerance returns the explicit tolerance or the default for the assertion.
func (a *Assertion) tolerance() Tolerance {
	if a.Tolerance != nil {
		return *a.Tolerance
	}
	if a.Type == AssertScore && a.Iteration == 0 {
		return Epsilon
	}
	return Regression
}

// apply writes the overrides into cfg.
func (o *Overrides) apply(cfg *matsimcfg.Config) error {
	modules := make([]string, 0, len(o.Params))
	for m := range o.Params {
		modules = append(modules, m)
	}
	sort.Strings(modules)
	for _, m := range modules {
		names := make([]string, 0, len(o.Params[m]))
		for n := range o.Params[m] {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			cfg.SetParam(m, n, o.Params[m][n])
		}
	}

	cfg.SetLastIteration(o.LastIteration)

	policy := matsimcfg.DeleteDirectoryIfExists
	if o.OverwritePolicy != "" {
		p, err := matsimcfg.ParseOverwritePolicy(o.OverwritePolicy)
		if err != nil {
			return err
		}
		policy = p
	}
	cfg.SetOverwritePolicy(policy)

	if o.FractionDisableInnovation != nil {
		cfg.SetFractionOfIterationsToDisableInnovation(*o.FractionDisableInnovation)
	}
	return nil
}

// LoadScenario reads and parses a scenario YAML file. Relative paths in the
// scenario are resolved against the file's directory.
// Returns an error if the file doesn't exist, is malformed, contains unknown
// fields (typos), or does not satisfy the scenario schema.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file, resolving
// the config path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if !filepath.IsAbs(scenario.Config) && basePath != "" {
		scenario.Config = filepath.Join(basePath, scenario.Config)
	}
	scenario.baseDir = basePath

	if _, err := os.Stat(scenario.Config); err != nil {
		return nil, fmt.Errorf("%s: invalid scenario: config file: %w", path, err)
	}
	return scenario, nil
}

// ParseScenario decodes a scenario document and checks it against the
// scenario schema. Paths are left as written.
func ParseScenario(data []byte) (*Scenario, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := ValidateSchema(doc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml and *.yml file below dir, sorted by
// scenario name. Names must be unique.
func LoadScenarios(dir string) ([]*Scenario, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".yaml", ".yml":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}

	seen := make(map[string]string)
	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[s.Name]; ok {
			return nil, fmt.Errorf("duplicate scenario name %q in %s and %s", s.Name, prev, p)
		}
		seen[s.Name] = p
		scenarios = append(scenarios, s)
	}
	sort.Slice(scenarios, func(i, j int) bool { return scenarios[i].Name < scenarios[j].Name })
	return scenarios, nil
}

// validateScenario checks what the schema cannot express.
func validateScenario(s *Scenario) error {
	seenModes := make(map[string]bool)
	for _, m := range s.ModePrecedence {
		if seenModes[m] {
			return fmt.Errorf("mode_precedence: duplicate mode %q", m)
		}
		seenModes[m] = true
	}

	for i := range s.Assertions {
		a := &s.Assertions[i]
		if a.Type == AssertScore {
			if _, err := a.scoreItem(); err != nil {
				return fmt.Errorf("assertions[%d]: %w", i, err)
			}
			if a.Iteration > s.Overrides.LastIteration {
				return fmt.Errorf("assertions[%d]: iteration %d is after last_iteration %d",
					i, a.Iteration, s.Overrides.LastIteration)
			}
		}
	}
	return nil
}
