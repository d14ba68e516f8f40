// Package crm holds the dashboard sample data: stat cards and recent contacts.
package crm

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

//go:embed sample.yml
var defaultSample []byte

// ActiveDealsTitle is the stat card bumped by deals created in this process.
const ActiveDealsTitle = "Active Deals"

// Trend is the direction of a stat change.
type Trend string

// trend values.
const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendFlat Trend = "flat"
)

// Stat is one dashboard stat card.
type Stat struct {
	Title  string `yaml:"title" json:"title"`
	Value  int64  `yaml:"value" json:"value"`
	Change int    `yaml:"change" json:"change"` // percent change over the previous period
}

// Trend reports whether the stat went up or down.
func (s Stat) Trend() Trend {
	switch {
	case s.Change > 0:
		return TrendUp
	case s.Change < 0:
		return TrendDown
	default:
		return TrendFlat
	}
}

// DisplayValue returns the value with thousands separators, e.g. 1,284.
func (s Stat) DisplayValue() string { return humanize.Comma(s.Value) }

// ChangeLabel returns the signed percent change, e.g. +12% or -3%.
func (s Stat) ChangeLabel() string {
	if s.Change > 0 {
		return fmt.Sprintf("+%d%%", s.Change)
	}
	return fmt.Sprintf("%d%%", s.Change)
}

// Contact is an entry of the recent contacts list.
type Contact struct {
	Name        string `yaml:"name" json:"name"`
	Company     string `yaml:"company" json:"company"`
	Email       string `yaml:"email" json:"email"`
	Status      string `yaml:"status" json:"status"`
	LastContact string `yaml:"last_contact" json:"last_contact"`
}

// Initials returns up to two upper-case initials of the contact name.
func (c Contact) Initials() string {
	var res []rune
	for _, part := range strings.Fields(c.Name) {
		if len(res) == 2 {
			break
		}
		res = append(res, []rune(part)[0])
	}
	return strings.ToUpper(string(res))
}

// Sample is the dashboard data set.
type Sample struct {
	Stats    []Stat    `yaml:"stats" json:"stats"`
	Contacts []Contact `yaml:"contacts" json:"contacts"`
}

// LoadSample reads sample data from path, or the built-in sample if path is empty.
func LoadSample(path string) (*Sample, error) {
	if path == "" {
		return parseSample(defaultSample)
	}
	data, err := os.ReadFile(path) //nolint:gosec // path from config
	if err != nil {
		return nil, fmt.Errorf("read sample data: %w", err)
	}
	s, err := parseSample(data)
	if err != nil {
		return nil, fmt.Errorf("sample data %s: %w", path, err)
	}
	return s, nil
}

func parseSample(data []byte) (*Sample, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var s Sample
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode sample: %w", err)
	}
	for i, st := range s.Stats {
		if strings.TrimSpace(st.Title) == "" {
			return nil, fmt.Errorf("stat %d: %w", i, errors.New("title is required"))
		}
	}
	for i, c := range s.Contacts {
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("contact %d: %w", i, errors.New("name is required"))
		}
	}
	return &s, nil
}

// WithDeals returns a copy with the Active Deals card increased by n.
func (s *Sample) WithDeals(n int) *Sample {
	res := &Sample{
		Stats:    make([]Stat, len(s.Stats)),
		Contacts: make([]Contact, len(s.Contacts)),
	}
	copy(res.Stats, s.Stats)
	copy(res.Contacts, s.Contacts)
	for i := range res.Stats {
		if res.Stats[i].Title == ActiveDealsTitle {
			res.Stats[i].Value += int64(n)
		}
	}
	return res
}
