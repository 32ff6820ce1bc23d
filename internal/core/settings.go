package core

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// CustomSettings wraps the free-form settings string attached to a scenario.
// The string is typically JSON; malformed input degrades to empty settings
// rather than aborting the scenario.
type CustomSettings struct {
	raw string
}

// NewCustomSettings validates the raw string. Non-empty input that is not
// valid JSON is discarded.
func NewCustomSettings(raw string) CustomSettings {
	if raw != "" && !gjson.Valid(raw) {
		return CustomSettings{}
	}
	return CustomSettings{raw: raw}
}

func (s CustomSettings) String() string { return s.raw }

func (s CustomSettings) IsEmpty() bool { return s.raw == "" }

// Get reads a single value by gjson path, e.g. "pause.ms" or "targets.0".
func (s CustomSettings) Get(path string) gjson.Result {
	return gjson.Get(s.raw, path)
}

// Decode unmarshals the settings into v. Empty settings leave v untouched.
func (s CustomSettings) Decode(v any) error {
	if s.raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(s.raw), v)
}
