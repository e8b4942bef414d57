// Package observe decides which DOM mutations make the navigation lists
// stale and schedules a debounced rescan for them.
package observe

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/v0xg/navaz/internal/dom"
	"github.com/v0xg/navaz/internal/logging"
)

// DefaultWindow is the debounce window for rescans
const DefaultWindow = 100 * time.Millisecond

// NavigableSelector matches nodes whose arrival or departure can change the lists
const NavigableSelector = "h1, h2, h3, h4, h5, h6, a[href], nav, main, aside, header, footer, section, form, [role]"

// WatchedAttributes can flip an element's eligibility or ordering
var WatchedAttributes = []string{"role", "aria-label", "aria-labelledby", "href", "tabindex", "hidden", "style", "class"}

var (
	navigable = cascadia.MustCompile(NavigableSelector)
	watched   = func() map[string]bool {
		m := make(map[string]bool, len(WatchedAttributes))
		for _, a := range WatchedAttributes {
			m[a] = true
		}
		return m
	}()
)

// Relevant reports whether a single mutation record warrants a rescan
func Relevant(m dom.Mutation) bool {
	switch m.Kind {
	case dom.ChildList:
		for _, n := range m.Nodes {
			if n == nil || n.Type != html.ElementNode {
				continue
			}
			if navigable.Match(n) || cascadia.Query(n, navigable) != nil {
				return true
			}
		}
		return false
	case dom.Attributes:
		return watched[m.Attribute]
	default:
		return false
	}
}

// Options configures an Observer
type Options struct {
	Window    time.Duration
	Scheduler Scheduler
	Logger    *slog.Logger
}

// Observer turns mutation batches into debounced rescan requests
type Observer struct {
	rescan    func()
	debouncer *Debouncer
	log       *slog.Logger

	mu     sync.Mutex
	stop   func()
	warned bool
}

// New creates an observer that calls rescan after relevant mutations settle
func New(rescan func(), opts Options) *Observer {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewDiscardLogger()
	}
	return &Observer{
		rescan:    rescan,
		debouncer: NewDebouncer(opts.Window, opts.Scheduler),
		log:       opts.Logger,
	}
}

// Start subscribes to doc's mutations. Documents that cannot report
// mutations leave the observer idle after a single warning.
func (o *Observer) Start(doc dom.Document) {
	src, ok := doc.(dom.Observable)
	if !ok {
		o.warnUnsupported(dom.ErrObserverUnsupported)
		return
	}
	stop, err := src.Observe(o.Handle)
	if err != nil {
		if errors.Is(err, dom.ErrObserverUnsupported) {
			o.warnUnsupported(err)
		} else {
			o.log.Error("failed to observe document", "error", err)
		}
		return
	}

	o.mu.Lock()
	o.stop = stop
	o.mu.Unlock()
}

// Handle inspects a mutation batch and schedules a rescan if any record is relevant
func (o *Observer) Handle(batch []dom.Mutation) {
	for _, m := range batch {
		if Relevant(m) {
			o.log.Debug("relevant mutation, rescan scheduled", "kind", m.Kind.String(), "attribute", m.Attribute)
			o.debouncer.Trigger(o.rescan)
			return
		}
	}
}

// Pending reports whether a rescan is waiting for the window to pass
func (o *Observer) Pending() bool {
	return o.debouncer.Pending()
}

// Stop unsubscribes and drops any pending rescan
func (o *Observer) Stop() {
	o.mu.Lock()
	stop := o.stop
	o.stop = nil
	o.mu.Unlock()

	if stop != nil {
		stop()
	}
	o.debouncer.Cancel()
}

func (o *Observer) warnUnsupported(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.warned {
		return
	}
	o.warned = true
	o.log.Warn("MutationObserver not supported, dynamic DOM updates will not be detected", "error", err)
}
