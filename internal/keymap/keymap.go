// Package keymap translates key names into navigation actions.
package keymap

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/v0xg/navaz/internal/nav"
	"github.com/v0xg/navaz/internal/scanner"
)

// ActionKind says what a key does
type ActionKind int

const (
	SetDirection ActionKind = iota
	Advance
)

// Action is the effect bound to a key
type Action struct {
	Kind      ActionKind
	Direction nav.Direction
	Category  scanner.Category
}

// Bindings lists the key names bound to each action
type Bindings struct {
	Forward   []string `mapstructure:"forward"`
	Backward  []string `mapstructure:"backward"`
	Headers   []string `mapstructure:"headers"`
	Links     []string `mapstructure:"links"`
	Landmarks []string `mapstructure:"landmarks"`
}

// DefaultBindings returns arrow keys for direction and h, l, m for the categories
func DefaultBindings() Bindings {
	return Bindings{
		Forward:   []string{"ArrowDown"},
		Backward:  []string{"ArrowUp"},
		Headers:   []string{"h"},
		Links:     []string{"l"},
		Landmarks: []string{"m"},
	}
}

// Map resolves key names to actions
type Map struct {
	actions map[string]Action
}

// New builds a Map. Single-letter keys are bound in both cases.
// A key bound to two different actions is an error.
func New(b Bindings) (*Map, error) {
	m := &Map{actions: make(map[string]Action)}

	groups := []struct {
		keys   []string
		action Action
	}{
		{b.Forward, Action{Kind: SetDirection, Direction: nav.Forward}},
		{b.Backward, Action{Kind: SetDirection, Direction: nav.Backward}},
		{b.Headers, Action{Kind: Advance, Category: scanner.Headers}},
		{b.Links, Action{Kind: Advance, Category: scanner.Links}},
		{b.Landmarks, Action{Kind: Advance, Category: scanner.Landmarks}},
	}
	for _, g := range groups {
		for _, key := range g.keys {
			for _, variant := range variants(key) {
				if prev, ok := m.actions[variant]; ok && prev != g.action {
					return nil, fmt.Errorf("key %q bound to more than one action", variant)
				}
				m.actions[variant] = g.action
			}
		}
	}
	return m, nil
}

// MustDefault returns the Map for DefaultBindings
func MustDefault() *Map {
	m, err := New(DefaultBindings())
	if err != nil {
		panic(err)
	}
	return m
}

// Lookup returns the action bound to key
func (m *Map) Lookup(key string) (Action, bool) {
	a, ok := m.actions[key]
	return a, ok
}

// Keys returns every bound key name, sorted
func (m *Map) Keys() []string {
	keys := make([]string, 0, len(m.actions))
	for k := range m.actions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Mask reports, for every bound key, whether pressing it now would be handled:
// direction keys always are, category keys only when their list is non-empty.
func (m *Map) Mask(counts map[scanner.Category]int) map[string]bool {
	mask := make(map[string]bool, len(m.actions))
	for key, a := range m.actions {
		switch a.Kind {
		case SetDirection:
			mask[key] = true
		case Advance:
			mask[key] = counts[a.Category] > 0
		}
	}
	return mask
}

func variants(key string) []string {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	if utf8.RuneCountInString(key) != 1 {
		return []string{key}
	}
	lower, upper := strings.ToLower(key), strings.ToUpper(key)
	if lower == upper {
		return []string{key}
	}
	return []string{lower, upper}
}
