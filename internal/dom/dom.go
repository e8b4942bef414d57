package dom

import (
	"errors"
	"strings"

	"golang.org/x/net/html"
)

var (
	// ErrObserverUnsupported is returned by Observe when the page cannot report mutations
	ErrObserverUnsupported = errors.New("mutation observation not supported")
	// ErrDetached is returned when an element is no longer part of its document
	ErrDetached = errors.New("element detached from document")
	// ErrNotFound is returned when a selector or element lookup matches nothing
	ErrNotFound = errors.New("element not found")
)

// NodeKey identifies a DOM node within one document. Two Elements with the
// same key refer to the same node.
type NodeKey string

// Rect is an element's border box in viewport coordinates
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Style holds the computed style properties the classifier looks at
type Style struct {
	Display    string `json:"display"`
	Visibility string `json:"visibility"`
	Opacity    string `json:"opacity"`
}

// Info is a point-in-time read of an element
type Info struct {
	Key             NodeKey           `json:"key"`
	Tag             string            `json:"tag"` // lower-case
	Attrs           map[string]string `json:"attrs,omitempty"`
	Text            string            `json:"text,omitempty"`
	Disabled        bool              `json:"disabled,omitempty"`
	ContentEditable bool              `json:"contentEditable,omitempty"`
	HasLayoutBox    bool              `json:"hasLayoutBox"`
	Rect            Rect              `json:"rect"`
	Style           Style             `json:"style"`
}

// Attr returns the value of the named attribute and whether it is present
func (i Info) Attr(name string) (string, bool) {
	v, ok := i.Attrs[name]
	return v, ok
}

// labelLimit is the longest label text, in characters
const labelLimit = 50

// Label returns a short human readable description of the element
func (i Info) Label() string {
	text := strings.Join(strings.Fields(i.Text), " ")
	if text == "" {
		for _, attr := range []string{"aria-label", "title", "alt"} {
			if v := strings.TrimSpace(i.Attrs[attr]); v != "" {
				text = v
				break
			}
		}
	}
	if runes := []rune(text); len(runes) > labelLimit {
		text = string(runes[:labelLimit])
	}
	if role, ok := i.Attrs["role"]; ok {
		return i.Tag + "[role=" + role + "] " + text
	}
	return strings.TrimSpace(i.Tag + " " + text)
}

// Element is a handle to a node in a live or static document
type Element interface {
	// Inspect reads the element's current tag, attributes, text and geometry
	Inspect() (Info, error)
	// Focus moves input focus to the element
	Focus() error
	SetAttribute(name, value string) error
	AddClass(name string) error
	RemoveClass(name string) error
	// ScrollIntoView scrolls the element to the centre of the viewport with smooth motion
	ScrollIntoView() error
}

// Order is the relative document position of two nodes
type Order int

const (
	// Unordered means the nodes are identical or not in the same tree
	Unordered Order = iota
	// Before means the first node precedes the second in document order
	Before
	// After means the first node follows the second in document order
	After
)

// Document is a page the navigator scans and drives
type Document interface {
	// QueryAll returns the elements matching a CSS selector in document order
	QueryAll(selector string) ([]Element, error)
	// Compare reports where a sits relative to b in a depth-first traversal
	Compare(a, b Element) (Order, error)
	// ActiveElement returns the focused element, or nil when nothing is focused
	ActiveElement() (Element, error)
	// Attach marks the page context as owned by owner. It returns false when
	// the context is already attached.
	Attach(owner string) (bool, error)
	// Detach clears the attachment marker set by Attach
	Detach(owner string) error
}

// Inspector documents read every element matching a selector in one round
// trip. The results are in document order and infos[i] describes els[i].
type Inspector interface {
	InspectAll(selector string) (els []Element, infos []Info, err error)
}

// MutationKind distinguishes structural from attribute mutations
type MutationKind int

const (
	ChildList MutationKind = iota
	Attributes
)

func (k MutationKind) String() string {
	switch k {
	case ChildList:
		return "childList"
	case Attributes:
		return "attributes"
	default:
		return "unknown"
	}
}

// Mutation is one record of a mutation batch
type Mutation struct {
	Kind MutationKind
	// Attribute is the changed attribute name for Attributes records
	Attribute string
	// Nodes are the added and removed element nodes for ChildList records
	Nodes []*html.Node
}

// Observable documents report mutation batches
type Observable interface {
	Observe(fn func([]Mutation)) (stop func(), err error)
}

// Styler documents accept an injected style element
type Styler interface {
	InjectStyle(id, css string) error
	RemoveStyle(id string) error
}

// KeyEvent is a key-down seen at the document level in the capturing phase
type KeyEvent struct {
	Key string
}

// KeySource documents deliver key-down events. The listener returns true when
// it handled the key, in which case default behaviour and propagation are
// suppressed if the document can do so synchronously.
type KeySource interface {
	ListenKeys(fn func(KeyEvent) bool) (stop func(), err error)
}

// KeyMasker documents decide default suppression page-side and need to be
// told in advance which keys will be handled.
type KeyMasker interface {
	SetKeyMask(mask map[string]bool) error
}

// Unloader documents notify when the page is about to go away
type Unloader interface {
	OnUnload(fn func()) (stop func(), err error)
}
