package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a non-negative time span parsed from configuration or API input.
// Accepted forms: "HH:MM:SS" / "HH:MM" (hours unbounded, so spans beyond 24h are
// fine), a bare integer number of seconds, or Go duration syntax ("90m", "1h30m").
type Duration time.Duration

// ParseDuration parses text into a Duration. Empty text parses to zero.
func ParseDuration(text string) (Duration, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, nil
	}

	if strings.Contains(text, ":") {
		return parseClockDuration(text)
	}

	if secs, err := strconv.ParseInt(text, 10, 64); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("duration must not be negative: %q", text)
		}
		return Duration(time.Duration(secs) * time.Second), nil
	}

	d, err := time.ParseDuration(text)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", text, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must not be negative: %q", text)
	}
	return Duration(d), nil
}

// parseClockDuration handles "HH:MM" and "HH:MM:SS" forms.
func parseClockDuration(text string) (Duration, error) {
	parts := strings.Split(text, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid duration %q: expected HH:MM or HH:MM:SS", text)
	}

	fields := make([]int64, 3)
	for i, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", text, err)
		}
		if v < 0 {
			return 0, fmt.Errorf("duration must not be negative: %q", text)
		}
		fields[i] = v
	}
	if fields[1] > 59 || (len(parts) == 3 && fields[2] > 59) {
		return 0, fmt.Errorf("invalid duration %q: minutes and seconds must be below 60", text)
	}

	d := time.Duration(fields[0])*time.Hour + time.Duration(fields[1])*time.Minute
	if len(parts) == 3 {
		d += time.Duration(fields[2]) * time.Second
	}
	return Duration(d), nil
}

// Std returns the span as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// String formats the span as H:MM:SS, matching the configuration form.
func (d Duration) String() string {
	total := int64(time.Duration(d) / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
}

// UnmarshalYAML accepts any of the ParseDuration forms, including a yaml integer.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		// Not a scalar string; try an integer (seconds).
		var secs int64
		if ierr := value.Decode(&secs); ierr != nil {
			return fmt.Errorf("invalid duration node: %w", err)
		}
		raw = strconv.FormatInt(secs, 10)
	}
	parsed, err := ParseDuration(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalYAML emits the H:MM:SS form.
func (d Duration) MarshalYAML() (any, error) { return d.String(), nil }
