// Package taxonomy manages the effective category set: a seeded default list
// plus every category observed in stored data or typed by the user. Any
// string is a legal category; the set only drives selection and prompts.
package taxonomy

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"kakeibo/internal/core"
)

//go:embed categories.yaml
var seedYAML []byte

type seedFile struct {
	Categories []string `yaml:"categories"`
}

// Set holds the seeded categories in their configured order.
type Set struct {
	seed []string
}

// Load parses the embedded seed list.
func Load() (*Set, error) {
	var f seedFile
	if err := yaml.Unmarshal(seedYAML, &f); err != nil {
		return nil, fmt.Errorf("parse category seed: %w", err)
	}
	seed := make([]string, 0, len(f.Categories))
	for _, c := range f.Categories {
		c = strings.TrimSpace(c)
		if c != "" {
			seed = append(seed, c)
		}
	}
	return &Set{seed: seed}, nil
}

// Seed returns the configured defaults.
func (s *Set) Seed() []string {
	return append([]string(nil), s.seed...)
}

// Effective returns the seed followed by categories seen in the snapshot but
// not seeded, sorted for stable display.
func (s *Set) Effective(txs []core.Transaction) []string {
	known := make(map[string]struct{}, len(s.seed))
	out := make([]string, 0, len(s.seed))
	for _, c := range s.seed {
		if _, ok := known[c]; ok {
			continue
		}
		known[c] = struct{}{}
		out = append(out, c)
	}

	var extras []string
	for _, tx := range txs {
		c := strings.TrimSpace(tx.Category)
		if c == "" {
			continue
		}
		if _, ok := known[c]; ok {
			continue
		}
		known[c] = struct{}{}
		extras = append(extras, c)
	}
	sort.Strings(extras)
	return append(out, extras...)
}
