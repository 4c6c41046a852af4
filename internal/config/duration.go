package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration is a time.Duration that travels through JSON as a duration
// string ("60s", "5m"), so runtime-config payloads stay human-editable.
type Duration time.Duration

// Std returns the plain time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Std().String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"60s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}
