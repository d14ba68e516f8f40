package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/ini.v1"
)

// Values holds scalar configuration values.
// Fields ending in *Set (e.g., PortSet) track whether that field was explicitly set in config.
// this keeps an explicit false/0 in a local config from being lost when merging over global values.
type Values struct {
	Port                  int
	PortSet               bool // tracks if port was explicitly set
	SuccessProbability    float64
	SuccessProbabilitySet bool // tracks if success_probability was explicitly set
	SubmitLatencyMs       int
	SubmitLatencyMsSet    bool // tracks if submit_latency_ms was explicitly set
	ResetDelayMs          int
	ResetDelayMsSet       bool // tracks if reset_delay_ms was explicitly set
	ActivityLog           string
	SampleData            string
	DarkMode              bool
	DarkModeSet           bool // tracks if dark_mode was explicitly set
}

// loadValues merges the values of all layers, later layers win per key.
func loadValues(layers []layer) (Values, error) {
	var res Values
	for _, l := range layers {
		v, err := parseValues(l.section)
		if err != nil {
			return Values{}, fmt.Errorf("%s config: %w", l.name, err)
		}
		res.mergeFrom(&v)
	}
	return res, nil
}

// parseValues reads the scalar keys of one section, validating ranges.
func parseValues(section *ini.Section) (Values, error) {
	var values Values

	// dashboard
	if key, err := section.GetKey("port"); err == nil {
		val, intErr := key.Int()
		if intErr != nil {
			return Values{}, fmt.Errorf("invalid port: %w", intErr)
		}
		if val < 1 || val > 65535 {
			return Values{}, fmt.Errorf("invalid port: must be 1-65535, got %d", val)
		}
		values.Port = val
		values.PortSet = true
	}
	if key, err := section.GetKey("dark_mode"); err == nil {
		val, boolErr := key.Bool()
		if boolErr != nil {
			return Values{}, fmt.Errorf("invalid dark_mode: %w", boolErr)
		}
		values.DarkMode = val
		values.DarkModeSet = true
	}

	// simulated backend
	if key, err := section.GetKey("success_probability"); err == nil {
		val, floatErr := key.Float64()
		if floatErr != nil {
			return Values{}, fmt.Errorf("invalid success_probability: %w", floatErr)
		}
		if val < 0 || val > 1 {
			return Values{}, fmt.Errorf("invalid success_probability: must be 0..1, got %v", val)
		}
		values.SuccessProbability = val
		values.SuccessProbabilitySet = true
	}
	if key, err := section.GetKey("submit_latency_ms"); err == nil {
		val, intErr := key.Int()
		if intErr != nil {
			return Values{}, fmt.Errorf("invalid submit_latency_ms: %w", intErr)
		}
		if val < 0 {
			return Values{}, fmt.Errorf("invalid submit_latency_ms: must be non-negative, got %d", val)
		}
		values.SubmitLatencyMs = val
		values.SubmitLatencyMsSet = true
	}
	if key, err := section.GetKey("reset_delay_ms"); err == nil {
		val, intErr := key.Int()
		if intErr != nil {
			return Values{}, fmt.Errorf("invalid reset_delay_ms: %w", intErr)
		}
		if val < 0 {
			return Values{}, fmt.Errorf("invalid reset_delay_ms: must be non-negative, got %d", val)
		}
		values.ResetDelayMs = val
		values.ResetDelayMsSet = true
	}

	// paths
	if key, err := section.GetKey("activity_log"); err == nil {
		values.ActivityLog = expandTilde(strings.TrimSpace(key.String()))
	}
	if key, err := section.GetKey("sample_data"); err == nil {
		values.SampleData = expandTilde(strings.TrimSpace(key.String()))
	}

	return values, nil
}

// mergeFrom merges non-empty values from src into dst.
func (dst *Values) mergeFrom(src *Values) {
	if src.PortSet {
		dst.Port = src.Port
		dst.PortSet = true
	}
	if src.SuccessProbabilitySet {
		dst.SuccessProbability = src.SuccessProbability
		dst.SuccessProbabilitySet = true
	}
	if src.SubmitLatencyMsSet {
		dst.SubmitLatencyMs = src.SubmitLatencyMs
		dst.SubmitLatencyMsSet = true
	}
	if src.ResetDelayMsSet {
		dst.ResetDelayMs = src.ResetDelayMs
		dst.ResetDelayMsSet = true
	}
	if src.ActivityLog != "" {
		dst.ActivityLog = src.ActivityLog
	}
	if src.SampleData != "" {
		dst.SampleData = src.SampleData
	}
	if src.DarkModeSet {
		dst.DarkMode = src.DarkMode
		dst.DarkModeSet = true
	}
}

// expandTilde replaces a leading ~/ with the user's home directory.
// the path is returned unchanged if it has no tilde or the home directory is unknown.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return home + path[1:]
}
