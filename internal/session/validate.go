package session

import (
	"errors"
	"fmt"
	"sort"

	"surge/internal/core"
	"surge/internal/timeline"
)

// validate checks every scenario before any side effect occurs. All
// violations are collected and returned together.
func validate(scenarios []*core.Scenario) error {
	var errs []error

	if len(scenarios) == 0 {
		errs = append(errs, fmt.Errorf("no scenarios registered"))
	}

	seen := make(map[string]int)
	for _, sc := range scenarios {
		seen[sc.Name]++
	}
	var duplicates []string
	for name, count := range seen {
		if name != "" && count > 1 {
			duplicates = append(duplicates, name)
		}
	}
	if len(duplicates) > 0 {
		sort.Strings(duplicates)
		errs = append(errs, core.ErrDuplicateScenarioName{Names: duplicates})
	}

	for _, sc := range scenarios {
		if sc.Name == "" {
			errs = append(errs, core.ErrEmptyScenarioName{})
			continue
		}
		if len(sc.Steps) == 0 && sc.Init == nil && sc.Clean == nil {
			errs = append(errs, core.ErrEmptySteps{Scenario: sc.Name})
			continue
		}

		pools := make(map[string]*core.PoolArgs)
		for _, step := range sc.Steps {
			if step.Name == "" {
				errs = append(errs, core.ErrEmptyStepName{Scenario: sc.Name})
			}
			if step.Pool == nil {
				continue
			}
			if existing, ok := pools[step.Pool.Name]; ok && existing != step.Pool {
				errs = append(errs, core.ErrDuplicatePoolName{Scenario: sc.Name, Pool: step.Pool.Name})
			} else {
				pools[step.Pool.Name] = step.Pool
			}
		}

		// Init/clean-only scenarios are not scheduled and need no timeline.
		if len(sc.Steps) > 0 {
			if _, err := timeline.Compile(sc.Name, sc.LoadSimulations); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}
