// Package config loads engine and infra configuration from JSON or YAML
// files and applies external overrides to programmatic scenarios.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"surge/internal/core"
	"surge/internal/timeline"
)

// Duration parses "300ms" / "3s" style strings from both YAML and JSON.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"3s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// EngineConfig is the post-parse session configuration consumed by the
// session coordinator.
type EngineConfig struct {
	ScenariosSettings      []ScenarioSettings   `yaml:"scenariosSettings" json:"scenariosSettings"`
	ConnectionPoolSettings []PoolSettings       `yaml:"connectionPoolSettings" json:"connectionPoolSettings"`
	TargetScenarios        []string             `yaml:"targetScenarios" json:"targetScenarios"`
	Reporting              ReportingConfig      `yaml:"reporting" json:"reporting"`
	Scenarios              []HTTPScenarioConfig `yaml:"scenarios" json:"scenarios"`
}

// ScenarioSettings overrides one scenario's programmatic defaults. Only the
// fields present in the file are applied; the rest keep their values.
type ScenarioSettings struct {
	ScenarioName            string               `yaml:"scenarioName" json:"scenarioName"`
	WarmUpDuration          *Duration            `yaml:"warmUpDuration" json:"warmUpDuration"`
	LoadSimulationsSettings []SimulationSettings `yaml:"loadSimulationsSettings" json:"loadSimulationsSettings"`
	CustomSettings          *string              `yaml:"customSettings" json:"customSettings"`
}

// SimulationSettings is the file form of one load simulation.
type SimulationSettings struct {
	Kind   string   `yaml:"kind" json:"kind"`
	Copies int      `yaml:"copies" json:"copies"`
	Rate   int      `yaml:"rate" json:"rate"`
	During Duration `yaml:"during" json:"during"`
}

// ToSimulation converts the file form into a timeline simulation.
func (s SimulationSettings) ToSimulation() (timeline.Simulation, error) {
	during := s.During.Std()
	switch s.Kind {
	case "ramp_constant":
		return timeline.RampConstant(s.Copies, during), nil
	case "keep_constant":
		return timeline.KeepConstant(s.Copies, during), nil
	case "ramp_per_sec":
		return timeline.RampPerSec(s.Rate, during), nil
	case "inject_per_sec":
		return timeline.InjectPerSec(s.Rate, during), nil
	}
	return timeline.Simulation{}, fmt.Errorf("unknown load simulation kind %q", s.Kind)
}

// PoolSettings resizes a connection pool by its resolved name.
type PoolSettings struct {
	PoolName        string `yaml:"poolName" json:"poolName"`
	ConnectionCount int    `yaml:"connectionCount" json:"connectionCount"`
}

// ReportingConfig controls the periodic snapshot stream.
type ReportingConfig struct {
	SendStatsInterval Duration `yaml:"sendStatsInterval" json:"sendStatsInterval"`
}

// HTTPScenarioConfig declares a config-driven HTTP scenario for the CLI.
type HTTPScenarioConfig struct {
	Name            string               `yaml:"name" json:"name"`
	WarmUpDuration  Duration             `yaml:"warmUpDuration" json:"warmUpDuration"`
	LoadSimulations []SimulationSettings `yaml:"loadSimulations" json:"loadSimulations"`
	Steps           []HTTPStepConfig     `yaml:"steps" json:"steps"`
	CustomSettings  string               `yaml:"customSettings" json:"customSettings"`
}

// HTTPStepConfig declares a single HTTP request step.
type HTTPStepConfig struct {
	Name    string            `yaml:"name" json:"name"`
	Method  string            `yaml:"method" json:"method"`
	URL     string            `yaml:"url" json:"url"`
	Headers map[string]string `yaml:"headers" json:"headers"`
	Body    string            `yaml:"body" json:"body"`
	// Extract, when set, is a gjson path pulled from the response body and
	// handed to the next step as the payload.
	Extract string `yaml:"extract" json:"extract"`
}

// Load reads an engine config, dispatching on the file extension.
func Load(path string) (*EngineConfig, error) {
	var cfg EngineConfig
	if err := loadInto(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadInto(path string, v any) error {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return core.ErrUnsupportedConfigFormat{Ext: ext}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return core.ErrConfigParse{Path: path, Cause: err}
	}

	if ext == ".json" {
		err = json.Unmarshal(data, v)
	} else {
		err = yaml.Unmarshal(data, v)
	}
	if err != nil {
		return core.ErrConfigParse{Path: path, Cause: err}
	}
	return nil
}

// Apply overrides scenario defaults with matching settings entries. Names
// are never renamed; unmatched entries are ignored.
func Apply(cfg *EngineConfig, scenarios []*core.Scenario) error {
	if cfg == nil {
		return nil
	}
	byName := make(map[string]*core.Scenario, len(scenarios))
	for _, sc := range scenarios {
		byName[sc.Name] = sc
	}

	for _, settings := range cfg.ScenariosSettings {
		sc, ok := byName[settings.ScenarioName]
		if !ok {
			continue
		}
		if settings.WarmUpDuration != nil {
			sc.WarmUpDuration = settings.WarmUpDuration.Std()
		}
		if settings.CustomSettings != nil {
			sc.CustomSettings = *settings.CustomSettings
		}
		if len(settings.LoadSimulationsSettings) > 0 {
			sims := make([]timeline.Simulation, 0, len(settings.LoadSimulationsSettings))
			for _, raw := range settings.LoadSimulationsSettings {
				sim, err := raw.ToSimulation()
				if err != nil {
					return fmt.Errorf("scenario %q: %w", settings.ScenarioName, err)
				}
				sims = append(sims, sim)
			}
			sc.LoadSimulations = sims
		}
	}
	return nil
}

// PoolCount returns the configured connection count for a resolved pool
// name, or 0 when the config does not resize it.
func (c *EngineConfig) PoolCount(poolName string) int {
	if c == nil {
		return 0
	}
	for _, s := range c.ConnectionPoolSettings {
		if s.PoolName == poolName {
			return s.ConnectionCount
		}
	}
	return 0
}
