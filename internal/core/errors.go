package core

import (
	"fmt"
	"strings"
)

// ErrEmptyScenarioName reports a scenario registered without a name.
type ErrEmptyScenarioName struct{}

func (ErrEmptyScenarioName) Error() string { return "scenario name must not be empty" }

// ErrDuplicateScenarioName carries the full list of duplicated names.
type ErrDuplicateScenarioName struct {
	Names []string
}

func (e ErrDuplicateScenarioName) Error() string {
	return fmt.Sprintf("duplicate scenario names: %s", strings.Join(e.Names, ", "))
}

// ErrEmptySteps reports a scenario with no steps and no init/clean hooks.
type ErrEmptySteps struct {
	Scenario string
}

func (e ErrEmptySteps) Error() string {
	return fmt.Sprintf("scenario %q has no steps and no init or clean hook", e.Scenario)
}

// ErrEmptyStepName reports a step registered without a name.
type ErrEmptyStepName struct {
	Scenario string
}

func (e ErrEmptyStepName) Error() string {
	return fmt.Sprintf("scenario %q contains a step with an empty name", e.Scenario)
}

// ErrDuplicatePoolName reports two distinct pool declarations sharing a name
// within one scenario.
type ErrDuplicatePoolName struct {
	Scenario string
	Pool     string
}

func (e ErrDuplicatePoolName) Error() string {
	return fmt.Sprintf("scenario %q declares connection pool %q more than once with different args", e.Scenario, e.Pool)
}

// ErrPoolOpen reports a failed connection open during pool init.
type ErrPoolOpen struct {
	Pool  string
	Index int
	Cause error
}

func (e ErrPoolOpen) Error() string {
	return fmt.Sprintf("pool %q: opening connection %d: %v", e.Pool, e.Index, e.Cause)
}

func (e ErrPoolOpen) Unwrap() error { return e.Cause }

// ErrInit reports a failed scenario init hook.
type ErrInit struct {
	Scenario string
	Cause    error
}

func (e ErrInit) Error() string {
	return fmt.Sprintf("scenario %q: init failed: %v", e.Scenario, e.Cause)
}

func (e ErrInit) Unwrap() error { return e.Cause }

// ErrWarmUpManyFailures aborts a scenario whose warm-up produced more
// failures than successes on some step.
type ErrWarmUpManyFailures struct {
	Scenario  string
	Step      string
	OkCount   int64
	FailCount int64
}

func (e ErrWarmUpManyFailures) Error() string {
	return fmt.Sprintf("scenario %q: warm-up step %q failed too often (ok=%d fail=%d)", e.Scenario, e.Step, e.OkCount, e.FailCount)
}

// ErrConfigParse reports an unreadable or malformed config file.
type ErrConfigParse struct {
	Path  string
	Cause error
}

func (e ErrConfigParse) Error() string {
	return fmt.Sprintf("parsing config %s: %v", e.Path, e.Cause)
}

func (e ErrConfigParse) Unwrap() error { return e.Cause }

// ErrUnsupportedConfigFormat reports an unknown config file extension.
type ErrUnsupportedConfigFormat struct {
	Ext string
}

func (e ErrUnsupportedConfigFormat) Error() string {
	return fmt.Sprintf("unsupported config format %q (use .json, .yaml or .yml)", e.Ext)
}
