// Package httpstep provides a config-driven HTTP request step for scenarios
// defined in session config files.
package httpstep

import (
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"surge/internal/config"
	"surge/internal/core"
)

// maxBodySize limits how much of a response body is read for size
// accounting and extraction.
const maxBodySize = 10 * 1024 * 1024 // 10MB

// New builds a step that performs the configured HTTP request. A response
// with status >= 400 counts as a failure. When an extract path is set, the
// matched value is handed to the next step as the payload.
func New(cfg config.HTTPStepConfig, client *http.Client) *core.Step {
	if client == nil {
		client = http.DefaultClient
	}
	method := cfg.Method
	if method == "" {
		method = http.MethodGet
	}

	return core.NewStep(cfg.Name, func(ctx *core.StepContext) core.Response {
		req, err := http.NewRequestWithContext(ctx.Context(), method, cfg.URL, strings.NewReader(cfg.Body))
		if err != nil {
			return core.NewFailResponse(err.Error())
		}
		for k, v := range cfg.Headers {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
		if err != nil {
			return core.NewFailResponse(err.Error())
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		_, _ = io.Copy(io.Discard, resp.Body) // drain errors are ignorable

		if resp.StatusCode >= 400 {
			return core.NewFailResponse(resp.Status).WithSize(int64(len(body)))
		}

		var payload any = body
		if cfg.Extract != "" {
			value := gjson.GetBytes(body, cfg.Extract)
			if !value.Exists() {
				return core.NewFailResponse("extract path " + cfg.Extract + " not found").WithSize(int64(len(body)))
			}
			payload = value.Value()
		}
		return core.NewOkResponse(payload).WithSize(int64(len(body)))
	})
}

// Scenario builds a scenario from a config-driven declaration.
func Scenario(cfg config.HTTPScenarioConfig, client *http.Client) (*core.Scenario, error) {
	steps := make([]*core.Step, 0, len(cfg.Steps))
	for _, stepCfg := range cfg.Steps {
		steps = append(steps, New(stepCfg, client))
	}

	sc := core.NewScenario(cfg.Name, steps...).
		WithWarmUpDuration(cfg.WarmUpDuration.Std()).
		WithCustomSettings(cfg.CustomSettings)

	for _, raw := range cfg.LoadSimulations {
		sim, err := raw.ToSimulation()
		if err != nil {
			return nil, err
		}
		sc.LoadSimulations = append(sc.LoadSimulations, sim)
	}
	return sc, nil
}
