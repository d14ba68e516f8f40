package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// ColorConfig holds console colors as "r,g,b" strings, ready for color.RGB.
type ColorConfig struct {
	Idle       string
	Submitting string
	Succeeded  string
	Failed     string
	Warn       string
	Error      string
	Timestamp  string
	Info       string
}

// colorKeys maps config keys to ColorConfig fields.
var colorKeys = []struct {
	key   string
	field func(*ColorConfig) *string
}{
	{"color_idle", func(c *ColorConfig) *string { return &c.Idle }},
	{"color_submitting", func(c *ColorConfig) *string { return &c.Submitting }},
	{"color_succeeded", func(c *ColorConfig) *string { return &c.Succeeded }},
	{"color_failed", func(c *ColorConfig) *string { return &c.Failed }},
	{"color_warn", func(c *ColorConfig) *string { return &c.Warn }},
	{"color_error", func(c *ColorConfig) *string { return &c.Error }},
	{"color_timestamp", func(c *ColorConfig) *string { return &c.Timestamp }},
	{"color_info", func(c *ColorConfig) *string { return &c.Info }},
}

// loadColors merges the colors of all layers, later layers win per key.
func loadColors(layers []layer) (ColorConfig, error) {
	var res ColorConfig
	for _, l := range layers {
		c, err := parseColors(l.section)
		if err != nil {
			return ColorConfig{}, fmt.Errorf("%s config: %w", l.name, err)
		}
		res.mergeFrom(&c)
	}
	return res, nil
}

// parseColors reads the #rrggbb keys of one section. blank values are treated as unset.
func parseColors(section *ini.Section) (ColorConfig, error) {
	var res ColorConfig
	for _, ck := range colorKeys {
		key, err := section.GetKey(ck.key)
		if err != nil {
			continue
		}
		hex := strings.TrimSpace(key.String())
		if hex == "" {
			continue
		}
		r, g, b, err := parseHexColor(hex)
		if err != nil {
			return ColorConfig{}, fmt.Errorf("invalid %s: %w", ck.key, err)
		}
		*ck.field(&res) = strconv.Itoa(r) + "," + strconv.Itoa(g) + "," + strconv.Itoa(b)
	}
	return res, nil
}

// parseHexColor splits "#rrggbb" into its components.
func parseHexColor(hex string) (r, g, b int, err error) {
	if !strings.HasPrefix(hex, "#") {
		return 0, 0, 0, errors.New("hex color must start with #")
	}
	if len(hex) != 7 {
		return 0, 0, 0, errors.New("hex color must be 7 characters (e.g., #ff0000)")
	}
	v, err := strconv.ParseUint(hex[1:], 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	return int(v >> 16 & 0xFF), int(v >> 8 & 0xFF), int(v & 0xFF), nil
}

// mergeFrom copies the non-empty colors of src into dst.
func (dst *ColorConfig) mergeFrom(src *ColorConfig) {
	for _, ck := range colorKeys {
		if v := *ck.field(src); v != "" {
			*ck.field(dst) = v
		}
	}
}
