// Package nav keeps the per-category cursors and the current direction.
package nav

import (
	"fmt"
	"strings"

	"github.com/v0xg/navaz/internal/scanner"
)

// Unset is the cursor value of a category nobody has navigated yet
const Unset = -1

// Direction is the last directional intent
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// ParseDirection converts "forward" or "backward" to a Direction
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "forward", "next", "down":
		return Forward, nil
	case "backward", "back", "previous", "up":
		return Backward, nil
	default:
		return Forward, fmt.Errorf("unknown direction: %s", s)
	}
}

// Step returns the index after current in a list of length n.
// n must be positive.
func Step(current, n int, dir Direction) int {
	if current >= n {
		// the list shrank under the cursor
		current %= n
	}
	if dir == Forward {
		return (current + 1) % n
	}
	if current <= 0 {
		return n - 1
	}
	return current - 1
}

// Index is the set of cursors plus the direction
type Index struct {
	direction Direction
	cursors   map[scanner.Category]int
}

// NewIndex returns an index with every cursor unset and direction Forward
func NewIndex() *Index {
	ix := &Index{cursors: make(map[scanner.Category]int, len(scanner.Categories))}
	ix.Reset()
	return ix
}

// Reset unsets every cursor and restores the Forward direction
func (ix *Index) Reset() {
	ix.direction = Forward
	for _, c := range scanner.Categories {
		ix.cursors[c] = Unset
	}
}

func (ix *Index) Direction() Direction {
	return ix.direction
}

func (ix *Index) SetDirection(d Direction) {
	ix.direction = d
}

// Cursor returns the cursor of c, or Unset
func (ix *Index) Cursor(c scanner.Category) int {
	if v, ok := ix.cursors[c]; ok {
		return v
	}
	return Unset
}

// Cursors returns a copy of every cursor
func (ix *Index) Cursors() map[scanner.Category]int {
	out := make(map[scanner.Category]int, len(ix.cursors))
	for c, v := range ix.cursors {
		out[c] = v
	}
	return out
}

// Advance moves the cursor of c one step in the current direction over a
// list of length n. try is asked to focus the candidate index; the cursor
// moves only when it returns true.
func (ix *Index) Advance(c scanner.Category, n int, try func(i int) bool) bool {
	if n <= 0 {
		return false
	}
	next := Step(ix.Cursor(c), n, ix.direction)
	if !try(next) {
		return false
	}
	ix.cursors[c] = next
	return true
}
