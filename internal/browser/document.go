package browser

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/v0xg/navaz/internal/dom"
	"github.com/v0xg/navaz/internal/logging"
	"github.com/v0xg/navaz/internal/observe"
)

var (
	_ dom.Document   = (*Document)(nil)
	_ dom.Inspector  = (*Document)(nil)
	_ dom.Observable = (*Document)(nil)
	_ dom.Styler     = (*Document)(nil)
	_ dom.KeySource  = (*Document)(nil)
	_ dom.KeyMasker  = (*Document)(nil)
	_ dom.Unloader   = (*Document)(nil)
)

// Document is a dom.Document backed by a live rod page
type Document struct {
	page *rod.Page
	log  *slog.Logger
}

// NewDocument wraps page
func NewDocument(page *rod.Page, log *slog.Logger) *Document {
	if log == nil {
		log = logging.NewDiscardLogger()
	}
	return &Document{page: page, log: log}
}

// QueryAll implements dom.Document
func (d *Document) QueryAll(selector string) ([]dom.Element, error) {
	res, err := d.page.Eval(jsQueryAll, selector)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	keys := res.Value.Arr()
	out := make([]dom.Element, len(keys))
	for i, k := range keys {
		out[i] = d.element(dom.NodeKey(k.Str()))
	}
	return out, nil
}

// InspectAll implements dom.Inspector in a single round trip
func (d *Document) InspectAll(selector string) ([]dom.Element, []dom.Info, error) {
	res, err := d.page.Eval(jsInspectAll, selector)
	if err != nil {
		return nil, nil, fmt.Errorf("inspect %q: %w", selector, err)
	}
	infos, err := decodeInfos(res.Value)
	if err != nil {
		return nil, nil, fmt.Errorf("inspect %q: %w", selector, err)
	}
	els := make([]dom.Element, len(infos))
	for i, info := range infos {
		els[i] = d.element(info.Key)
	}
	return els, infos, nil
}

// Compare implements dom.Document
func (d *Document) Compare(a, b dom.Element) (dom.Order, error) {
	ea, ok := a.(*element)
	if !ok {
		return dom.Unordered, fmt.Errorf("foreign element %T", a)
	}
	eb, ok := b.(*element)
	if !ok {
		return dom.Unordered, fmt.Errorf("foreign element %T", b)
	}

	res, err := d.page.Eval(jsCompare, string(ea.key), string(eb.key))
	if err != nil {
		return dom.Unordered, fmt.Errorf("compare: %w", err)
	}
	switch res.Value.Int() {
	case -1:
		return dom.Before, nil
	case 1:
		return dom.After, nil
	default:
		return dom.Unordered, nil
	}
}

// ActiveElement implements dom.Document
func (d *Document) ActiveElement() (dom.Element, error) {
	res, err := d.page.Eval(jsActiveElement)
	if err != nil {
		return nil, fmt.Errorf("active element: %w", err)
	}
	key := res.Value.Str()
	if key == "" {
		return nil, nil
	}
	return d.element(dom.NodeKey(key)), nil
}

func (d *Document) element(key dom.NodeKey) *element {
	return &element{page: d.page, key: key}
}

// Attach implements dom.Document
func (d *Document) Attach(owner string) (bool, error) {
	res, err := d.page.Eval(jsAttach, owner)
	if err != nil {
		return false, fmt.Errorf("attach: %w", err)
	}
	return res.Value.Bool(), nil
}

// Detach implements dom.Document
func (d *Document) Detach(owner string) error {
	if _, err := d.page.Eval(jsDetach, owner); err != nil {
		return fmt.Errorf("detach: %w", err)
	}
	return nil
}

// InjectStyle implements dom.Styler
func (d *Document) InjectStyle(id, css string) error {
	if _, err := d.page.Eval(jsInjectStyle, id, css); err != nil {
		return fmt.Errorf("inject style: %w", err)
	}
	return nil
}

// RemoveStyle implements dom.Styler
func (d *Document) RemoveStyle(id string) error {
	if _, err := d.page.Eval(jsRemoveStyle, id); err != nil {
		return fmt.Errorf("remove style: %w", err)
	}
	return nil
}

// SetKeyMask implements dom.KeyMasker
func (d *Document) SetKeyMask(mask map[string]bool) error {
	if _, err := d.page.Eval(jsSetKeyMask, mask); err != nil {
		return fmt.Errorf("set key mask: %w", err)
	}
	return nil
}

// Observe implements dom.Observable
func (d *Document) Observe(fn func([]dom.Mutation)) (func(), error) {
	stopBinding, err := d.page.Expose(bindingMutations, func(payload gson.JSON) (interface{}, error) {
		batch, err := parseMutations(payload)
		if err != nil {
			d.log.Debug("dropping malformed mutation batch", "error", err)
			return nil, nil
		}
		fn(batch)
		return nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("expose %s: %w", bindingMutations, err)
	}

	res, err := d.page.Eval(jsObserve, bindingMutations, observe.WatchedAttributes)
	if err != nil {
		_ = stopBinding()
		return nil, fmt.Errorf("observe: %w", err)
	}
	if !res.Value.Bool() {
		_ = stopBinding()
		return nil, dom.ErrObserverUnsupported
	}

	return d.stopper("observer", jsUnobserve, stopBinding), nil
}

// ListenKeys implements dom.KeySource. Suppression happens page-side from
// the key mask, so fn's result only matters to the Go caller.
func (d *Document) ListenKeys(fn func(dom.KeyEvent) bool) (func(), error) {
	stopBinding, err := d.page.Expose(bindingKeys, func(payload gson.JSON) (interface{}, error) {
		fn(dom.KeyEvent{Key: payload.Get("key").Str()})
		return nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("expose %s: %w", bindingKeys, err)
	}
	if _, err := d.page.Eval(jsListenKeys, bindingKeys); err != nil {
		_ = stopBinding()
		return nil, fmt.Errorf("listen keys: %w", err)
	}
	return d.stopper("key listener", jsUnlistenKeys, stopBinding), nil
}

// OnUnload implements dom.Unloader. fn runs once, on beforeunload or on the
// first main-frame navigation, whichever comes first.
func (d *Document) OnUnload(fn func()) (func(), error) {
	var once sync.Once
	fire := func() { once.Do(func() { go fn() }) }

	stopBinding, err := d.page.Expose(bindingUnload, func(gson.JSON) (interface{}, error) {
		fire()
		return nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("expose %s: %w", bindingUnload, err)
	}
	if _, err := d.page.Eval(jsListenUnload, bindingUnload); err != nil {
		_ = stopBinding()
		return nil, fmt.Errorf("listen unload: %w", err)
	}

	page, cancel := d.page.WithCancel()
	wait := page.EachEvent(func(e *proto.PageFrameNavigated) bool {
		if e.Frame.ParentID != "" {
			return false
		}
		fire()
		return true
	})
	go wait()

	stop := d.stopper("unload hook", jsUnlistenUnload, stopBinding)
	return func() {
		cancel()
		stop()
	}, nil
}

// stopper returns a func that runs the page-side cleanup script and
// removes the binding. The page may already be gone, so failures are only
// logged.
func (d *Document) stopper(what, js string, stopBinding func() error) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			if _, err := d.page.Eval(js); err != nil {
				d.log.Debug("page-side cleanup failed", "what", what, "error", err)
			}
			if err := stopBinding(); err != nil {
				d.log.Debug("remove binding failed", "what", what, "error", err)
			}
		})
	}
}

func decodeInfos(v gson.JSON) ([]dom.Info, error) {
	var infos []dom.Info
	if err := v.Unmarshal(&infos); err != nil {
		return nil, fmt.Errorf("decode element infos: %w", err)
	}
	return infos, nil
}

// parseMutations decodes a batch sent by the page-side MutationObserver.
// Node markup is re-parsed so relevance can be decided with selectors.
func parseMutations(payload gson.JSON) ([]dom.Mutation, error) {
	records := payload.Arr()
	batch := make([]dom.Mutation, 0, len(records))
	for _, r := range records {
		switch kind := r.Get("type").Str(); kind {
		case "attributes":
			batch = append(batch, dom.Mutation{Kind: dom.Attributes, Attribute: r.Get("attributeName").Str()})
		case "childList":
			var nodes []*html.Node
			for _, markup := range r.Get("nodes").Arr() {
				parsed, err := parseFragment(markup.Str())
				if err != nil {
					return nil, err
				}
				nodes = append(nodes, parsed...)
			}
			batch = append(batch, dom.Mutation{Kind: dom.ChildList, Nodes: nodes})
		default:
			return nil, fmt.Errorf("unknown mutation type %q", kind)
		}
	}
	return batch, nil
}

func parseFragment(markup string) ([]*html.Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), body)
	if err != nil {
		return nil, fmt.Errorf("parse mutation node: %w", err)
	}
	elements := nodes[:0]
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			elements = append(elements, n)
		}
	}
	return elements, nil
}

// element is a dom.Element known to the page registry by key
type element struct {
	page *rod.Page
	key  dom.NodeKey
}

func (e *element) Inspect() (dom.Info, error) {
	res, err := e.page.Eval(jsInspect, string(e.key))
	if err != nil {
		return dom.Info{}, fmt.Errorf("inspect: %w", err)
	}
	if res.Value.Nil() {
		return dom.Info{}, fmt.Errorf("inspect: %w", dom.ErrDetached)
	}
	var info dom.Info
	if err := res.Value.Unmarshal(&info); err != nil {
		return dom.Info{}, fmt.Errorf("decode element info: %w", err)
	}
	return info, nil
}

func (e *element) Focus() error {
	return e.run("focus", jsFocus)
}

func (e *element) SetAttribute(name, value string) error {
	return e.run("set attribute", jsSetAttribute, name, value)
}

func (e *element) AddClass(name string) error {
	return e.run("add class", jsAddClass, name)
}

func (e *element) RemoveClass(name string) error {
	return e.run("remove class", jsRemoveClass, name)
}

func (e *element) ScrollIntoView() error {
	return e.run("scroll into view", jsScrollIntoView)
}

// run evaluates an element script that returns false for detached nodes
func (e *element) run(what, js string, args ...interface{}) error {
	res, err := e.page.Eval(js, append([]interface{}{string(e.key)}, args...)...)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if !res.Value.Bool() {
		return fmt.Errorf("%s: %w", what, dom.ErrDetached)
	}
	return nil
}
