package focus

import (
	"fmt"
	"log/slog"

	"github.com/v0xg/navaz/internal/classify"
	"github.com/v0xg/navaz/internal/dom"
	"github.com/v0xg/navaz/internal/logging"
)

// DefaultClass is the class that carries the highlight treatment
const DefaultClass = "keyboard-nav-focus"

// Controller moves input focus and owns the single highlight slot
type Controller struct {
	class string
	log   *slog.Logger

	highlighted dom.Element
}

// New creates a controller that highlights with class (DefaultClass when empty)
func New(class string, log *slog.Logger) *Controller {
	if class == "" {
		class = DefaultClass
	}
	if log == nil {
		log = logging.NewDiscardLogger()
	}
	return &Controller{class: class, log: log}
}

// Class returns the highlight class
func (c *Controller) Class() string {
	return c.class
}

// Highlighted returns the element carrying the highlight, or nil
func (c *Controller) Highlighted() dom.Element {
	return c.highlighted
}

// Focus transfers focus and the highlight to el. On failure the previous
// highlight is left as it was.
func (c *Controller) Focus(el dom.Element) bool {
	if el == nil {
		return false
	}
	if err := c.focus(el); err != nil {
		c.log.Error("Error focusing element", "error", err)
		return false
	}

	// scrolling is best effort
	if err := el.ScrollIntoView(); err != nil {
		c.log.Debug("scroll into view failed", "error", err)
	}
	return true
}

func (c *Controller) focus(el dom.Element) error {
	info, err := el.Inspect()
	if err != nil {
		return fmt.Errorf("inspect: %w", err)
	}

	// Make non-interactive targets programmatically focusable without
	// putting them in the tab sequence.
	if _, ok := info.Attr("tabindex"); !ok && !classify.NativelyFocusable(info.Tag) {
		if err := el.SetAttribute("tabindex", "-1"); err != nil {
			return fmt.Errorf("set tabindex: %w", err)
		}
	}

	if err := el.Focus(); err != nil {
		return fmt.Errorf("focus %s: %w", info.Tag, err)
	}
	if err := el.AddClass(c.class); err != nil {
		return fmt.Errorf("highlight: %w", err)
	}

	prev := c.highlighted
	c.highlighted = el
	if prev != nil && !sameElement(prev, el) {
		c.unhighlight(prev)
	}
	return nil
}

// Clear removes the highlight from its current holder
func (c *Controller) Clear() {
	if c.highlighted == nil {
		return
	}
	c.unhighlight(c.highlighted)
	c.highlighted = nil
}

func (c *Controller) unhighlight(el dom.Element) {
	// the previous element may have left the document; nothing to clean then
	if err := el.RemoveClass(c.class); err != nil {
		c.log.Debug("remove highlight failed", "error", err)
	}
}

func sameElement(a, b dom.Element) bool {
	if a == b {
		return true
	}
	ia, errA := a.Inspect()
	ib, errB := b.Inspect()
	return errA == nil && errB == nil && ia.Key == ib.Key
}
