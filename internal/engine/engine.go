// Package engine ties the scanner, navigation index, focus controller and
// change observer to one page context.
//
// All navigation state belongs to a single goroutine, the engine loop.
// Public methods hand a closure to the loop and wait for it, so key
// events, debounced rescans and API calls are processed one at a time in
// arrival order.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/v0xg/navaz/internal/classify"
	"github.com/v0xg/navaz/internal/dom"
	"github.com/v0xg/navaz/internal/focus"
	"github.com/v0xg/navaz/internal/keymap"
	"github.com/v0xg/navaz/internal/logging"
	"github.com/v0xg/navaz/internal/nav"
	"github.com/v0xg/navaz/internal/observe"
	"github.com/v0xg/navaz/internal/scanner"
)

// Owner is the attachment marker the engine leaves on a page context
const Owner = "navaz"

// ErrNotInitialized is returned by operations that need an attached engine
var ErrNotInitialized = errors.New("engine not initialized")

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	RowTolerance   float64
	DebounceWindow time.Duration
	HighlightClass string
	Keys           *keymap.Map
	Scheduler      observe.Scheduler
	Logger         *slog.Logger
}

// State is a copy of the navigation state
type State struct {
	Direction   nav.Direction
	Cursors     map[scanner.Category]int
	Lists       map[scanner.Category][]dom.Element
	Highlighted dom.Element
	Scanning    bool
	Generation  int
	ScannedAt   time.Time
	Initialized bool
}

// Engine is the keyboard navigator for one document
type Engine struct {
	doc  dom.Document
	opts Options
	log  *slog.Logger
	keys *keymap.Map

	// owned by the loop while a session is running
	scanner  *scanner.Scanner
	index    *nav.Index
	focus    *focus.Controller
	observer *observe.Observer

	mu   sync.Mutex
	sess *session
	done chan struct{}
}

// session is one Init..Teardown lifetime
type session struct {
	ops    chan func()
	quit   chan struct{}
	exited chan struct{}
	done   chan struct{}
	detach []func()
	once   sync.Once
}

// New creates an engine for doc. Nothing touches the page until Init.
func New(doc dom.Document, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = logging.NewDiscardLogger()
	}
	if opts.Keys == nil {
		opts.Keys = keymap.MustDefault()
	}
	e := &Engine{
		doc:   doc,
		opts:  opts,
		log:   opts.Logger,
		keys:  opts.Keys,
		index: nav.NewIndex(),
		focus: focus.New(opts.HighlightClass, opts.Logger),
		done:  make(chan struct{}),
	}
	close(e.done)
	e.observer = observe.New(e.requestRescan, observe.Options{
		Window:    opts.DebounceWindow,
		Scheduler: opts.Scheduler,
		Logger:    opts.Logger,
	})
	return e
}

// Init attaches the engine to its page context, injects the highlight
// style, scans, and starts listening for keys, mutations and unload.
// Initializing an already attached context logs a warning and does nothing.
// The engine tears itself down when ctx is cancelled.
func (e *Engine) Init(ctx context.Context) error {
	e.mu.Lock()
	if e.sess != nil {
		e.mu.Unlock()
		e.log.Warn("Keyboard navigation already initialized")
		return nil
	}
	attached, err := e.doc.Attach(Owner)
	if err != nil {
		e.mu.Unlock()
		e.log.Error("Failed to initialize keyboard navigation", "error", err)
		return fmt.Errorf("attach to page: %w", err)
	}
	if !attached {
		e.mu.Unlock()
		e.log.Warn("Keyboard navigation already initialized")
		return nil
	}

	s := &session{
		ops:    make(chan func()),
		quit:   make(chan struct{}),
		exited: make(chan struct{}),
		done:   make(chan struct{}),
	}
	e.scanner = scanner.New(e.doc, scanner.Options{RowTolerance: e.opts.RowTolerance, Logger: e.log})
	e.index.Reset()
	e.sess = s
	e.done = s.done
	e.mu.Unlock()

	go e.run(ctx, s)

	exec(s, func() {
		e.injectStyle()
		e.scanner.Scan()
		// pushed even after a failed scan so the direction keys reach us
		e.pushKeyMask()
	})

	var detach []func()
	if ks, ok := e.doc.(dom.KeySource); ok {
		stop, err := ks.ListenKeys(e.HandleKey)
		if err != nil {
			e.log.Error("failed to listen for keys", "error", err)
		} else {
			detach = append(detach, stop)
		}
	}
	e.observer.Start(e.doc)
	if u, ok := e.doc.(dom.Unloader); ok {
		stop, err := u.OnUnload(e.Teardown)
		if err != nil {
			e.log.Warn("failed to hook page unload", "error", err)
		} else {
			detach = append(detach, stop)
		}
	}

	e.mu.Lock()
	live := e.sess == s
	if live {
		s.detach = detach
	}
	e.mu.Unlock()
	if !live {
		// torn down while starting up
		for _, stop := range detach {
			stop()
		}
		e.observer.Stop()
		return nil
	}

	e.log.Info("Keyboard navigation utility initialized successfully")
	return nil
}

// Teardown detaches every listener, clears the highlight, removes the
// injected style and releases the page context. Safe to call repeatedly.
func (e *Engine) Teardown() {
	e.mu.Lock()
	s := e.sess
	e.sess = nil
	e.mu.Unlock()
	if s == nil {
		return
	}

	s.once.Do(func() {
		e.mu.Lock()
		detach := s.detach
		s.detach = nil
		e.mu.Unlock()

		for _, stop := range detach {
			stop()
		}
		e.observer.Stop()

		exec(s, e.cleanup)
		close(s.quit)
		<-s.exited
		close(s.done)
		e.log.Info("Keyboard navigation torn down")
	})
}

// Done returns a channel closed when the current session ends. It is
// already closed when the engine is not initialized.
func (e *Engine) Done() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.done
}

// Initialized reports whether the engine is attached to its page
func (e *Engine) Initialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess != nil
}

// Rescan refreshes the element lists now
func (e *Engine) Rescan() bool {
	var ok bool
	e.call(func() { ok = e.rescan() })
	return ok
}

// Snapshot returns the most recent successful scan
func (e *Engine) Snapshot() (*scanner.Snapshot, error) {
	var snap *scanner.Snapshot
	if !e.call(func() { snap = e.scanner.Snapshot() }) {
		return nil, ErrNotInitialized
	}
	return snap, nil
}

// Lists returns a copy of the current element lists
func (e *Engine) Lists() map[scanner.Category][]dom.Element {
	var lists map[scanner.Category][]dom.Element
	e.call(func() { lists = e.lists() })
	return lists
}

// State returns a copy of the navigation state
func (e *Engine) State() State {
	var st State
	if !e.call(func() {
		snap := e.scanner.Snapshot()
		st = State{
			Direction:   e.index.Direction(),
			Cursors:     e.index.Cursors(),
			Lists:       e.lists(),
			Highlighted: e.focus.Highlighted(),
			Scanning:    e.scanner.Scanning(),
			Generation:  snap.Generation,
			ScannedAt:   snap.ScannedAt,
			Initialized: true,
		}
	}) {
		return State{Direction: nav.Forward}
	}
	return st
}

// Advance focuses the next element of c in the current direction
func (e *Engine) Advance(c scanner.Category) bool {
	var ok bool
	e.call(func() { ok = e.advance(c) })
	return ok
}

// SetDirection changes the direction used by later Advance calls
func (e *Engine) SetDirection(d nav.Direction) bool {
	return e.call(func() { e.index.SetDirection(d) })
}

// HandleKey applies a key-down and reports whether it was handled, in
// which case the caller suppresses the default action and propagation.
func (e *Engine) HandleKey(ev dom.KeyEvent) bool {
	var handled bool
	e.call(func() { handled = e.handleKey(ev) })
	return handled
}

// run is the engine loop
func (e *Engine) run(ctx context.Context, s *session) {
	defer close(s.exited)

	ctxDone := ctx.Done()
	for {
		select {
		case fn := <-s.ops:
			fn()
		case <-s.quit:
			return
		case <-ctxDone:
			ctxDone = nil
			// Teardown needs the loop running to clean up
			go e.Teardown()
		}
	}
}

// call runs fn on the loop of the current session and waits for it
func (e *Engine) call(fn func()) bool {
	e.mu.Lock()
	s := e.sess
	e.mu.Unlock()
	if s == nil {
		return false
	}
	return exec(s, fn)
}

func exec(s *session, fn func()) bool {
	finished := make(chan struct{})
	select {
	case s.ops <- func() {
		defer close(finished)
		fn()
	}:
	case <-s.exited:
		return false
	}
	<-finished
	return true
}

// requestRescan is the observer's debounced callback; it runs on a timer goroutine
func (e *Engine) requestRescan() {
	e.call(func() { e.rescan() })
}

// --- loop-side helpers ---

func (e *Engine) rescan() bool {
	ok := e.scanner.Scan()
	if ok {
		e.pushKeyMask()
	}
	return ok
}

func (e *Engine) lists() map[scanner.Category][]dom.Element {
	snap := e.scanner.Snapshot()
	out := make(map[scanner.Category][]dom.Element, len(scanner.Categories))
	for _, c := range scanner.Categories {
		out[c] = snap.Elements(c)
	}
	return out
}

func (e *Engine) advance(c scanner.Category) bool {
	snap := e.scanner.Snapshot()
	return e.index.Advance(c, snap.Len(c), func(i int) bool {
		return e.focus.Focus(snap.At(c, i).Element)
	})
}

func (e *Engine) handleKey(ev dom.KeyEvent) bool {
	if e.typing() {
		return false
	}
	action, ok := e.keys.Lookup(ev.Key)
	if !ok {
		return false
	}
	switch action.Kind {
	case keymap.SetDirection:
		e.index.SetDirection(action.Direction)
		return true
	case keymap.Advance:
		return e.advance(action.Category)
	default:
		return false
	}
}

// typing reports whether the focused element owns keystrokes
func (e *Engine) typing() bool {
	el, err := e.doc.ActiveElement()
	if err != nil {
		e.log.Debug("active element lookup failed", "error", err)
		return false
	}
	if el == nil {
		return false
	}
	info, err := el.Inspect()
	if err != nil {
		e.log.Debug("active element inspect failed", "error", err)
		return false
	}
	return classify.Typing(info)
}

func (e *Engine) pushKeyMask() {
	km, ok := e.doc.(dom.KeyMasker)
	if !ok {
		return
	}
	if err := km.SetKeyMask(e.keys.Mask(e.scanner.Snapshot().Counts())); err != nil {
		e.log.Warn("failed to update page key mask", "error", err)
	}
}

func (e *Engine) injectStyle() {
	st, ok := e.doc.(dom.Styler)
	if !ok {
		return
	}
	if err := st.InjectStyle(focus.StyleID, e.focus.CSS()); err != nil {
		e.log.Warn("failed to inject highlight style", "error", err)
	}
}

func (e *Engine) cleanup() {
	e.focus.Clear()
	if st, ok := e.doc.(dom.Styler); ok {
		if err := st.RemoveStyle(focus.StyleID); err != nil {
			e.log.Debug("failed to remove highlight style", "error", err)
		}
	}
	if err := e.doc.Detach(Owner); err != nil {
		e.log.Warn("failed to detach from page", "error", err)
	}
	e.index.Reset()
}
