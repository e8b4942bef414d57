package scanner

import (
	"cmp"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/v0xg/navaz/internal/classify"
	"github.com/v0xg/navaz/internal/dom"
	"github.com/v0xg/navaz/internal/logging"
)

// DefaultRowTolerance is the vertical distance (px) under which two elements
// count as sitting on the same row
const DefaultRowTolerance = 5.0

const (
	headerSelector = "h1, h2, h3, h4, h5, h6"
	linkSelector   = "a[href]"
)

// LandmarkTags are the semantic elements treated as landmarks
var LandmarkTags = []string{"nav", "main", "aside", "header", "footer", "section", "form"}

// LandmarkRoles are the ARIA roles treated as landmarks
var LandmarkRoles = []string{
	"banner", "navigation", "main", "complementary", "contentinfo",
	"form", "search", "region", "application", "document",
}

// Options configures a Scanner
type Options struct {
	RowTolerance float64
	Logger       *slog.Logger
}

// Scanner discovers navigable elements in a document
type Scanner struct {
	doc       dom.Document
	tolerance float64
	log       *slog.Logger

	scanning   bool
	snapshot   *Snapshot
	generation int
}

// New creates a scanner over doc. The initial snapshot is empty.
func New(doc dom.Document, opts Options) *Scanner {
	if opts.RowTolerance <= 0 {
		opts.RowTolerance = DefaultRowTolerance
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewDiscardLogger()
	}
	return &Scanner{
		doc:       doc,
		tolerance: opts.RowTolerance,
		log:       opts.Logger,
		snapshot:  emptySnapshot(),
	}
}

// Snapshot returns the most recent successful scan
func (s *Scanner) Snapshot() *Snapshot {
	return s.snapshot
}

// Scanning reports whether a scan is in flight
func (s *Scanner) Scanning() bool {
	return s.scanning
}

// Scan rebuilds all three lists. It returns false without touching the
// current snapshot when a scan is already running or when the scan fails.
func (s *Scanner) Scan() bool {
	if s.scanning {
		s.log.Debug("scan already in progress, ignoring")
		return false
	}
	s.scanning = true
	defer func() { s.scanning = false }()

	snap, err := s.scan()
	if err != nil {
		s.log.Error("Error scanning elements", "error", err)
		return false
	}

	s.generation++
	snap.Generation = s.generation
	s.snapshot = snap

	s.log.Debug("Scanned elements",
		"headers", len(snap.lists[Headers]),
		"links", len(snap.lists[Links]),
		"landmarks", len(snap.lists[Landmarks]),
		"generation", snap.Generation)
	return true
}

func (s *Scanner) scan() (snap *Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			snap, err = nil, fmt.Errorf("scan panicked: %v", r)
		}
	}()

	headers, err := s.collect(headerSelector, func(info dom.Info) bool {
		return classify.Visible(info) && classify.HasAccessibleContent(info)
	})
	if err != nil {
		return nil, fmt.Errorf("headers: %w", err)
	}
	s.sortByPosition(headers)

	links, err := s.collect(linkSelector, func(info dom.Info) bool {
		return classify.Visible(info) && classify.Focusable(info) && classify.HasAccessibleContent(info)
	})
	if err != nil {
		return nil, fmt.Errorf("links: %w", err)
	}
	s.sortByPosition(links)

	landmarks, err := s.landmarks()
	if err != nil {
		return nil, fmt.Errorf("landmarks: %w", err)
	}

	return &Snapshot{
		lists: map[Category][]Entry{
			Headers:   headers,
			Links:     links,
			Landmarks: landmarks,
		},
		ScannedAt: time.Now(),
	}, nil
}

// collect queries selector and keeps the elements accepted by keep,
// dropping repeats of the same node.
func (s *Scanner) collect(selector string, keep func(dom.Info) bool) ([]Entry, error) {
	found, err := s.query(selector)
	if err != nil {
		return nil, err
	}
	seen := make(map[dom.NodeKey]bool, len(found))
	entries := found[:0]
	for _, e := range found {
		if seen[e.Info.Key] || !keep(e.Info) {
			continue
		}
		seen[e.Info.Key] = true
		entries = append(entries, e)
	}
	return entries, nil
}

// query returns every match of selector with its Info, in one backend call
// when the document supports batch inspection.
func (s *Scanner) query(selector string) ([]Entry, error) {
	if in, ok := s.doc.(dom.Inspector); ok {
		els, infos, err := in.InspectAll(selector)
		if err != nil {
			return nil, err
		}
		if len(els) != len(infos) {
			return nil, fmt.Errorf("inspect %q: %d elements but %d infos", selector, len(els), len(infos))
		}
		entries := make([]Entry, len(els))
		for i := range els {
			entries[i] = Entry{Element: els[i], Info: infos[i]}
		}
		return entries, nil
	}

	els, err := s.doc.QueryAll(selector)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, len(els))
	for i, el := range els {
		info, err := el.Inspect()
		if err != nil {
			return nil, err
		}
		entries[i] = Entry{Element: el, Info: info}
	}
	return entries, nil
}

// landmarkSelector matches every landmark tag and role at once
func landmarkSelector() string {
	parts := make([]string, 0, len(LandmarkTags)+len(LandmarkRoles))
	parts = append(parts, LandmarkTags...)
	for _, role := range LandmarkRoles {
		parts = append(parts, `[role="`+role+`"]`)
	}
	return strings.Join(parts, ", ")
}

func (s *Scanner) landmarks() ([]Entry, error) {
	// a selector group already comes back in document order
	if _, ok := s.doc.(dom.Inspector); ok {
		return s.collect(landmarkSelector(), classify.Visible)
	}

	var entries []Entry
	seen := make(map[dom.NodeKey]bool)

	add := func(selector string) error {
		found, err := s.collect(selector, classify.Visible)
		if err != nil {
			return err
		}
		for _, e := range found {
			if seen[e.Info.Key] {
				continue
			}
			seen[e.Info.Key] = true
			entries = append(entries, e)
		}
		return nil
	}

	for _, tag := range LandmarkTags {
		if err := add(tag); err != nil {
			return nil, err
		}
	}
	for _, role := range LandmarkRoles {
		if err := add(`[role="` + role + `"]`); err != nil {
			return nil, err
		}
	}

	// Compare errors can't escape SortStableFunc, so remember the first one.
	var cmpErr error
	slices.SortStableFunc(entries, func(a, b Entry) int {
		if cmpErr != nil {
			return 0
		}
		order, err := s.doc.Compare(a.Element, b.Element)
		if err != nil {
			cmpErr = err
			return 0
		}
		switch order {
		case dom.Before:
			return -1
		case dom.After:
			return 1
		default:
			// unordered pairs keep discovery order
			return 0
		}
	})
	if cmpErr != nil {
		return nil, cmpErr
	}
	return entries, nil
}

// sortByPosition orders entries top to bottom, then left to right for
// entries whose tops are within the row tolerance of each other.
func (s *Scanner) sortByPosition(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		ra, rb := a.Info.Rect, b.Info.Rect
		if math.Abs(ra.Top-rb.Top) > s.tolerance {
			return cmp.Compare(ra.Top, rb.Top)
		}
		return cmp.Compare(ra.Left, rb.Left)
	})
}
