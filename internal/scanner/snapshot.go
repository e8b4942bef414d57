package scanner

import (
	"fmt"
	"strings"
	"time"

	"github.com/v0xg/navaz/internal/dom"
)

// Category is one of the navigable element kinds
type Category int

const (
	Headers Category = iota
	Links
	Landmarks
)

// Categories lists every category in display order
var Categories = []Category{Headers, Links, Landmarks}

func (c Category) String() string {
	switch c {
	case Headers:
		return "headers"
	case Links:
		return "links"
	case Landmarks:
		return "landmarks"
	default:
		return "unknown"
	}
}

// ParseCategory converts a category name (singular or plural) to a Category
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "headers", "header", "headings", "heading":
		return Headers, nil
	case "links", "link":
		return Links, nil
	case "landmarks", "landmark":
		return Landmarks, nil
	default:
		return 0, fmt.Errorf("unknown category: %s (supported: headers, links, landmarks)", s)
	}
}

// Entry is a navigable element together with the read that qualified it
type Entry struct {
	Element dom.Element
	Info    dom.Info
}

// Snapshot is the immutable result of one scan
type Snapshot struct {
	lists      map[Category][]Entry
	Generation int
	ScannedAt  time.Time
}

func emptySnapshot() *Snapshot {
	return &Snapshot{lists: map[Category][]Entry{}}
}

// Len returns the number of elements in a category
func (s *Snapshot) Len(c Category) int {
	return len(s.lists[c])
}

// At returns the i-th entry of a category
func (s *Snapshot) At(c Category, i int) Entry {
	return s.lists[c][i]
}

// Entries returns a copy of a category's entries
func (s *Snapshot) Entries(c Category) []Entry {
	return append([]Entry(nil), s.lists[c]...)
}

// Elements returns a copy of a category's elements
func (s *Snapshot) Elements(c Category) []dom.Element {
	entries := s.lists[c]
	out := make([]dom.Element, len(entries))
	for i, e := range entries {
		out[i] = e.Element
	}
	return out
}

// Keys returns the node keys of a category, in order
func (s *Snapshot) Keys(c Category) []dom.NodeKey {
	entries := s.lists[c]
	out := make([]dom.NodeKey, len(entries))
	for i, e := range entries {
		out[i] = e.Info.Key
	}
	return out
}

// Counts returns the length of every category
func (s *Snapshot) Counts() map[Category]int {
	out := make(map[Category]int, len(Categories))
	for _, c := range Categories {
		out[c] = len(s.lists[c])
	}
	return out
}
