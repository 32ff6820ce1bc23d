package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"surge/internal/core"
	"surge/internal/timeline"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
targetScenarios:
  - checkout
scenariosSettings:
  - scenarioName: checkout
    warmUpDuration: 30s
    loadSimulationsSettings:
      - kind: keep_constant
        copies: 10
        during: 2m
connectionPoolSettings:
  - poolName: checkout.db
    connectionCount: 5
reporting:
  sendStatsInterval: 5s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.TargetScenarios) != 1 || cfg.TargetScenarios[0] != "checkout" {
		t.Errorf("unexpected targets: %v", cfg.TargetScenarios)
	}
	settings := cfg.ScenariosSettings[0]
	if settings.WarmUpDuration == nil || settings.WarmUpDuration.Std() != 30*time.Second {
		t.Errorf("unexpected warm-up: %v", settings.WarmUpDuration)
	}
	sim := settings.LoadSimulationsSettings[0]
	if sim.Kind != "keep_constant" || sim.Copies != 10 || sim.During.Std() != 2*time.Minute {
		t.Errorf("unexpected simulation: %+v", sim)
	}
	if cfg.PoolCount("checkout.db") != 5 {
		t.Errorf("expected pool count 5, got %d", cfg.PoolCount("checkout.db"))
	}
	if cfg.Reporting.SendStatsInterval.Std() != 5*time.Second {
		t.Errorf("unexpected reporting interval: %v", cfg.Reporting.SendStatsInterval)
	}
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "config.json", `{
  "scenariosSettings": [
    {
      "scenarioName": "checkout",
      "customSettings": "{\"baseURL\": \"http://localhost\"}",
      "loadSimulationsSettings": [
        {"kind": "inject_per_sec", "rate": 50, "during": "90s"}
      ]
    }
  ]
}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	settings := cfg.ScenariosSettings[0]
	if settings.CustomSettings == nil || *settings.CustomSettings == "" {
		t.Error("expected custom settings to survive the round trip")
	}
	sim := settings.LoadSimulationsSettings[0]
	if sim.Kind != "inject_per_sec" || sim.Rate != 50 || sim.During.Std() != 90*time.Second {
		t.Errorf("unexpected simulation: %+v", sim)
	}
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	_, err := Load("config.toml")
	var formatErr core.ErrUnsupportedConfigFormat
	if !errors.As(err, &formatErr) || formatErr.Ext != ".toml" {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	var parseErr core.ErrConfigParse
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected config parse error, got %v", err)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeFile(t, "config.yaml", `
scenariosSettings:
  - scenarioName: s
    warmUpDuration: thirty seconds
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed duration")
	}
}

func TestSimulationSettings_ToSimulation(t *testing.T) {
	tests := []struct {
		kind string
		want timeline.Kind
	}{
		{"ramp_constant", timeline.KindRampConstant},
		{"keep_constant", timeline.KindKeepConstant},
		{"ramp_per_sec", timeline.KindRampPerSec},
		{"inject_per_sec", timeline.KindInjectPerSec},
	}
	for _, tt := range tests {
		sim, err := SimulationSettings{Kind: tt.kind, Copies: 1, Rate: 1, During: Duration(time.Second)}.ToSimulation()
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.kind, err)
			continue
		}
		if sim.Kind != tt.want {
			t.Errorf("%s: expected kind %v, got %v", tt.kind, tt.want, sim.Kind)
		}
	}

	if _, err := (SimulationSettings{Kind: "burst"}).ToSimulation(); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestApply_OverridesOnlySuppliedFields(t *testing.T) {
	sc := &core.Scenario{
		Name:            "checkout",
		WarmUpDuration:  10 * time.Second,
		CustomSettings:  `{"keep": true}`,
		LoadSimulations: []timeline.Simulation{timeline.KeepConstant(2, time.Minute)},
	}
	warm := Duration(45 * time.Second)
	cfg := &EngineConfig{
		ScenariosSettings: []ScenarioSettings{{
			ScenarioName:   "checkout",
			WarmUpDuration: &warm,
		}},
	}

	if err := Apply(cfg, []*core.Scenario{sc}); err != nil {
		t.Fatal(err)
	}
	if sc.WarmUpDuration != 45*time.Second {
		t.Errorf("expected overridden warm-up, got %v", sc.WarmUpDuration)
	}
	if sc.CustomSettings != `{"keep": true}` {
		t.Errorf("absent fields must keep their values, got %q", sc.CustomSettings)
	}
	if len(sc.LoadSimulations) != 1 || sc.LoadSimulations[0].Copies != 2 {
		t.Errorf("absent simulations must keep their values, got %+v", sc.LoadSimulations)
	}
}

func TestApply_ReplacesSimulations(t *testing.T) {
	sc := &core.Scenario{
		Name:            "checkout",
		LoadSimulations: []timeline.Simulation{timeline.KeepConstant(2, time.Minute)},
	}
	cfg := &EngineConfig{
		ScenariosSettings: []ScenarioSettings{{
			ScenarioName: "checkout",
			LoadSimulationsSettings: []SimulationSettings{
				{Kind: "ramp_constant", Copies: 5, During: Duration(30 * time.Second)},
				{Kind: "keep_constant", Copies: 5, During: Duration(time.Minute)},
			},
		}},
	}

	if err := Apply(cfg, []*core.Scenario{sc}); err != nil {
		t.Fatal(err)
	}
	if len(sc.LoadSimulations) != 2 {
		t.Fatalf("expected 2 simulations, got %d", len(sc.LoadSimulations))
	}
	if sc.LoadSimulations[0].Kind != timeline.KindRampConstant || sc.LoadSimulations[0].Copies != 5 {
		t.Errorf("unexpected first simulation: %+v", sc.LoadSimulations[0])
	}
}

func TestApply_IgnoresUnknownScenariosAndNilConfig(t *testing.T) {
	sc := &core.Scenario{Name: "checkout", WarmUpDuration: time.Second}
	warm := Duration(time.Minute)
	cfg := &EngineConfig{
		ScenariosSettings: []ScenarioSettings{{ScenarioName: "other", WarmUpDuration: &warm}},
	}

	if err := Apply(cfg, []*core.Scenario{sc}); err != nil {
		t.Fatal(err)
	}
	if sc.WarmUpDuration != time.Second {
		t.Errorf("unmatched settings must not apply, got %v", sc.WarmUpDuration)
	}
	if err := Apply(nil, []*core.Scenario{sc}); err != nil {
		t.Errorf("nil config must be a no-op, got %v", err)
	}
}

func TestPoolCount_NilSafe(t *testing.T) {
	var cfg *EngineConfig
	if cfg.PoolCount("any") != 0 {
		t.Error("nil config must report 0")
	}
	cfg = &EngineConfig{}
	if cfg.PoolCount("missing") != 0 {
		t.Error("unknown pool must report 0")
	}
}

func TestLoad_HTTPScenarios(t *testing.T) {
	path := writeFile(t, "config.yaml", `
scenarios:
  - name: api smoke
    warmUpDuration: 5s
    loadSimulations:
      - kind: keep_constant
        copies: 3
        during: 1m
    steps:
      - name: login
        method: POST
        url: http://localhost:8080/login
        body: '{"user": "alice"}'
        extract: token
      - name: profile
        method: GET
        url: http://localhost:8080/profile
        headers:
          Accept: application/json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Scenarios) != 1 {
		t.Fatalf("expected 1 scenario, got %d", len(cfg.Scenarios))
	}
	scenario := cfg.Scenarios[0]
	if scenario.Name != "api smoke" || scenario.WarmUpDuration.Std() != 5*time.Second {
		t.Errorf("unexpected scenario header: %+v", scenario)
	}
	if len(scenario.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(scenario.Steps))
	}
	if scenario.Steps[0].Extract != "token" || scenario.Steps[1].Headers["Accept"] != "application/json" {
		t.Errorf("unexpected steps: %+v", scenario.Steps)
	}
}
