// Package htmldoc implements dom.Document over a parsed HTML tree.
//
// There is no rendering engine behind it. Geometry and computed style come
// from a small layout model: inline `top`, `left`, `width` and `height` (px)
// are honoured, and elements without them are stacked in document order,
// one 20px row per element. `display`, `visibility` and `opacity` are read
// from inline styles, and the `hidden` attribute hides an element and its
// subtree. Edits made through the Document (or through Element methods)
// are reported to observers as mutation records, like a browser would.
package htmldoc

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/v0xg/navaz/internal/classify"
	"github.com/v0xg/navaz/internal/dom"
)

const (
	rowHeight    = 20
	defaultWidth = 100
)

// tags that never produce a layout box
var boxless = map[string]bool{
	"head": true, "script": true, "style": true, "title": true,
	"meta": true, "link": true, "template": true, "noscript": true,
}

var (
	_ dom.Document   = (*Document)(nil)
	_ dom.Observable = (*Document)(nil)
	_ dom.Styler     = (*Document)(nil)
	_ dom.KeySource  = (*Document)(nil)
	_ dom.Unloader   = (*Document)(nil)
)

// Option configures a Document
type Option func(*Document)

// WithoutMutationObserver makes Observe report dom.ErrObserverUnsupported
func WithoutMutationObserver() Option {
	return func(d *Document) { d.noObserver = true }
}

// Document is a static, in-memory dom.Document
type Document struct {
	mu   sync.Mutex
	root *html.Node
	doc  *goquery.Document

	keys    map[*html.Node]dom.NodeKey
	order   map[*html.Node]int
	nextKey int

	active *html.Node
	owner  string
	styles map[string]string
	scroll []dom.NodeKey

	noObserver bool
	nextID     int
	observers  map[int]func([]dom.Mutation)
	keyFns     map[int]func(dom.KeyEvent) bool
	unloadFns  map[int]func()
}

// Parse reads an HTML document
func Parse(r io.Reader, opts ...Option) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	d := &Document{
		root:      root,
		doc:       goquery.NewDocumentFromNode(root),
		keys:      make(map[*html.Node]dom.NodeKey),
		styles:    make(map[string]string),
		observers: make(map[int]func([]dom.Mutation)),
		keyFns:    make(map[int]func(dom.KeyEvent) bool),
		unloadFns: make(map[int]func()),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// ParseString parses HTML from a string
func ParseString(s string, opts ...Option) (*Document, error) {
	return Parse(strings.NewReader(s), opts...)
}

// QueryAll implements dom.Document
func (d *Document) QueryAll(selector string) ([]dom.Element, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var out []dom.Element
	d.doc.FindMatcher(sel).Each(func(_ int, s *goquery.Selection) {
		out = append(out, &element{d: d, n: s.Get(0)})
	})
	return out, nil
}

// Find returns the first element matching selector
func (d *Document) Find(selector string) (dom.Element, error) {
	els, err := d.QueryAll(selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %s", dom.ErrNotFound, selector)
	}
	return els[0], nil
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

	d.mu.Lock()
	defer d.mu.Unlock()

	if ea.n == eb.n {
		return dom.Unordered, nil
	}
	order := d.documentOrder()
	ia, okA := order[ea.n]
	ib, okB := order[eb.n]
	if !okA || !okB {
		return dom.Unordered, nil
	}
	if ia < ib {
		return dom.Before, nil
	}
	return dom.After, nil
}

// ActiveElement implements dom.Document
func (d *Document) ActiveElement() (dom.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active == nil || !d.attached(d.active) {
		return nil, nil
	}
	return &element{d: d, n: d.active}, nil
}

// Attach implements dom.Document
func (d *Document) Attach(owner string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.owner != "" {
		return false, nil
	}
	d.owner = owner
	return true, nil
}

// Detach implements dom.Document
func (d *Document) Detach(owner string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.owner == owner {
		d.owner = ""
	}
	return nil
}

// Owner returns the current attachment owner, or "" when detached
func (d *Document) Owner() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.owner
}

// InjectStyle implements dom.Styler
func (d *Document) InjectStyle(id, css string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.styles[id]; !ok {
		d.styles[id] = css
	}
	return nil
}

// RemoveStyle implements dom.Styler
func (d *Document) RemoveStyle(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.styles, id)
	return nil
}

// HasStyle reports whether a style with the given id is injected
func (d *Document) HasStyle(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.styles[id]
	return ok
}

// ScrollLog returns the keys of elements scrolled into view, oldest first
func (d *Document) ScrollLog() []dom.NodeKey {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]dom.NodeKey(nil), d.scroll...)
}

// Observe implements dom.Observable. Callbacks run synchronously after each edit.
func (d *Document) Observe(fn func([]dom.Mutation)) (func(), error) {
	if d.noObserver {
		return nil, dom.ErrObserverUnsupported
	}
	d.mu.Lock()
	id := d.register()
	d.observers[id] = fn
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		delete(d.observers, id)
		d.mu.Unlock()
	}, nil
}

// ListenKeys implements dom.KeySource
func (d *Document) ListenKeys(fn func(dom.KeyEvent) bool) (func(), error) {
	d.mu.Lock()
	id := d.register()
	d.keyFns[id] = fn
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		delete(d.keyFns, id)
		d.mu.Unlock()
	}, nil
}

// OnUnload implements dom.Unloader
func (d *Document) OnUnload(fn func()) (func(), error) {
	d.mu.Lock()
	id := d.register()
	d.unloadFns[id] = fn
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		delete(d.unloadFns, id)
		d.mu.Unlock()
	}, nil
}

// Press dispatches a key-down to the key listeners and reports whether any
// of them suppressed the default action.
func (d *Document) Press(key string) bool {
	d.mu.Lock()
	fns := make([]func(dom.KeyEvent) bool, 0, len(d.keyFns))
	for _, fn := range d.keyFns {
		fns = append(fns, fn)
	}
	d.mu.Unlock()

	prevented := false
	for _, fn := range fns {
		if fn(dom.KeyEvent{Key: key}) {
			prevented = true
		}
	}
	return prevented
}

// Unload fires the unload hooks
func (d *Document) Unload() {
	d.mu.Lock()
	fns := make([]func(), 0, len(d.unloadFns))
	for _, fn := range d.unloadFns {
		fns = append(fns, fn)
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// AppendHTML parses fragment in the context of the first element matching
// parentSelector and appends the result to it.
func (d *Document) AppendHTML(parentSelector, fragment string) error {
	parent, err := d.first(parentSelector)
	if err != nil {
		return err
	}

	d.mu.Lock()
	nodes, err := html.ParseFragment(strings.NewReader(fragment), parent)
	if err != nil {
		d.mu.Unlock()
		return fmt.Errorf("parse fragment: %w", err)
	}
	var added []*html.Node
	for _, n := range nodes {
		parent.AppendChild(n)
		if n.Type == html.ElementNode {
			added = append(added, n)
		}
	}
	d.order = nil
	fns := d.observerFns()
	d.mu.Unlock()

	notify(fns, []dom.Mutation{{Kind: dom.ChildList, Nodes: added}})
	return nil
}

// Remove detaches every element matching selector
func (d *Document) Remove(selector string) error {
	nodes, err := d.all(selector)
	if err != nil {
		return err
	}

	d.mu.Lock()
	for _, n := range nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
	d.order = nil
	fns := d.observerFns()
	d.mu.Unlock()

	notify(fns, []dom.Mutation{{Kind: dom.ChildList, Nodes: nodes}})
	return nil
}

// SetAttr sets an attribute on every element matching selector
func (d *Document) SetAttr(selector, name, value string) error {
	nodes, err := d.all(selector)
	if err != nil {
		return err
	}

	d.mu.Lock()
	batch := make([]dom.Mutation, 0, len(nodes))
	for _, n := range nodes {
		setAttr(n, name, value)
		batch = append(batch, dom.Mutation{Kind: dom.Attributes, Attribute: name})
	}
	fns := d.observerFns()
	d.mu.Unlock()

	notify(fns, batch)
	return nil
}

// RemoveAttr removes an attribute from every element matching selector
func (d *Document) RemoveAttr(selector, name string) error {
	nodes, err := d.all(selector)
	if err != nil {
		return err
	}

	d.mu.Lock()
	batch := make([]dom.Mutation, 0, len(nodes))
	for _, n := range nodes {
		if removeAttr(n, name) {
			batch = append(batch, dom.Mutation{Kind: dom.Attributes, Attribute: name})
		}
	}
	fns := d.observerFns()
	d.mu.Unlock()

	if len(batch) > 0 {
		notify(fns, batch)
	}
	return nil
}

func (d *Document) first(selector string) (*html.Node, error) {
	nodes, err := d.all(selector)
	if err != nil {
		return nil, err
	}
	return nodes[0], nil
}

func (d *Document) all(selector string) ([]*html.Node, error) {
	els, err := d.QueryAll(selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %s", dom.ErrNotFound, selector)
	}
	nodes := make([]*html.Node, len(els))
	for i, el := range els {
		nodes[i] = el.(*element).n
	}
	return nodes, nil
}

// caller holds d.mu
func (d *Document) register() int {
	d.nextID++
	return d.nextID
}

// caller holds d.mu
func (d *Document) observerFns() []func([]dom.Mutation) {
	fns := make([]func([]dom.Mutation), 0, len(d.observers))
	for _, fn := range d.observers {
		fns = append(fns, fn)
	}
	return fns
}

func notify(fns []func([]dom.Mutation), batch []dom.Mutation) {
	for _, fn := range fns {
		fn(batch)
	}
}

// caller holds d.mu
func (d *Document) key(n *html.Node) dom.NodeKey {
	if k, ok := d.keys[n]; ok {
		return k
	}
	d.nextKey++
	k := dom.NodeKey("n" + strconv.Itoa(d.nextKey))
	d.keys[n] = k
	return k
}

// documentOrder numbers every attached element in depth-first order.
// caller holds d.mu
func (d *Document) documentOrder() map[*html.Node]int {
	if d.order != nil {
		return d.order
	}
	order := make(map[*html.Node]int)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			order[n] = len(order)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
	d.order = order
	return order
}

// caller holds d.mu
func (d *Document) attached(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == d.root {
			return true
		}
	}
	return false
}

// element is a dom.Element backed by an html.Node
type element struct {
	d *Document
	n *html.Node
}

func (e *element) Inspect() (dom.Info, error) {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()

	n := e.n
	info := dom.Info{
		Key:   e.d.key(n),
		Tag:   strings.ToLower(n.Data),
		Attrs: make(map[string]string, len(n.Attr)),
		Text:  textContent(n),
	}
	for _, a := range n.Attr {
		info.Attrs[a.Key] = a.Val
	}
	_, info.Disabled = info.Attrs["disabled"]
	if v, ok := info.Attrs["contenteditable"]; ok && (v == "" || strings.EqualFold(v, "true")) {
		info.ContentEditable = true
	}

	style := inlineStyle(n)
	info.Style = dom.Style{
		Display:    valueOr(style["display"], "block"),
		Visibility: inheritedVisibility(n),
		Opacity:    valueOr(style["opacity"], "1"),
	}
	if _, hidden := info.Attrs["hidden"]; hidden {
		info.Style.Display = "none"
	}

	info.HasLayoutBox = e.d.attached(n) && rendered(n)

	row := e.d.documentOrder()[n]
	info.Rect = dom.Rect{
		Left:   pixels(style["left"], 0),
		Top:    pixels(style["top"], float64(row*rowHeight)),
		Width:  pixels(style["width"], defaultWidth),
		Height: pixels(style["height"], rowHeight),
	}
	return info, nil
}

// Focus follows browser semantics: elements that are neither natively
// focusable nor carry a tabindex silently ignore the request.
func (e *element) Focus() error {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()

	if !e.d.attached(e.n) {
		return dom.ErrDetached
	}
	if _, ok := getAttr(e.n, "tabindex"); !ok && !classify.NativelyFocusable(e.n.Data) {
		return nil
	}
	e.d.active = e.n
	return nil
}

func (e *element) SetAttribute(name, value string) error {
	e.d.mu.Lock()
	if !e.d.attached(e.n) {
		e.d.mu.Unlock()
		return dom.ErrDetached
	}
	setAttr(e.n, name, value)
	fns := e.d.observerFns()
	e.d.mu.Unlock()

	notify(fns, []dom.Mutation{{Kind: dom.Attributes, Attribute: name}})
	return nil
}

func (e *element) AddClass(name string) error {
	return e.editClass(func(classes []string) []string {
		for _, c := range classes {
			if c == name {
				return classes
			}
		}
		return append(classes, name)
	})
}

func (e *element) RemoveClass(name string) error {
	return e.editClass(func(classes []string) []string {
		out := classes[:0]
		for _, c := range classes {
			if c != name {
				out = append(out, c)
			}
		}
		return out
	})
}

func (e *element) editClass(edit func([]string) []string) error {
	e.d.mu.Lock()
	if !e.d.attached(e.n) {
		e.d.mu.Unlock()
		return dom.ErrDetached
	}
	current, _ := getAttr(e.n, "class")
	before := strings.Join(strings.Fields(current), " ")
	after := strings.Join(edit(strings.Fields(current)), " ")
	if before == after {
		e.d.mu.Unlock()
		return nil
	}
	setAttr(e.n, "class", after)
	fns := e.d.observerFns()
	e.d.mu.Unlock()

	notify(fns, []dom.Mutation{{Kind: dom.Attributes, Attribute: "class"}})
	return nil
}

func (e *element) ScrollIntoView() error {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()

	if !e.d.attached(e.n) {
		return dom.ErrDetached
	}
	e.d.scroll = append(e.d.scroll, e.d.key(e.n))
	return nil
}

// Classes returns the class list of el, which must come from this package
func Classes(el dom.Element) []string {
	e, ok := el.(*element)
	if !ok {
		return nil
	}
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	v, _ := getAttr(e.n, "class")
	return strings.Fields(v)
}

// Node returns the html.Node behind el, or nil for foreign elements
func Node(el dom.Element) *html.Node {
	if e, ok := el.(*element); ok {
		return e.n
	}
	return nil
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// rendered reports whether n and all its ancestors produce boxes
func rendered(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		if boxless[p.Data] {
			return false
		}
		if _, hidden := getAttr(p, "hidden"); hidden {
			return false
		}
		if inlineStyle(p)["display"] == "none" {
			return false
		}
	}
	return true
}

func inheritedVisibility(n *html.Node) string {
	for p := n; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		if v := inlineStyle(p)["visibility"]; v != "" {
			return v
		}
	}
	return "visible"
}

// inlineStyle parses the style attribute into lower-cased declarations
func inlineStyle(n *html.Node) map[string]string {
	raw, ok := getAttr(n, "style")
	if !ok {
		return nil
	}
	out := make(map[string]string)
	for _, decl := range strings.Split(raw, ";") {
		prop, val, found := strings.Cut(decl, ":")
		if !found {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		val = strings.ToLower(strings.TrimSpace(val))
		val = strings.TrimSpace(strings.TrimSuffix(val, "!important"))
		if prop != "" {
			out[prop] = val
		}
	}
	return out
}

func pixels(v string, fallback float64) float64 {
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(v, "px"), 64)
	if err != nil {
		return fallback
	}
	return f
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func getAttr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, name, value string) {
	for i, a := range n.Attr {
		if a.Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

func removeAttr(n *html.Node, name string) bool {
	for i, a := range n.Attr {
		if a.Key == name {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return true
		}
	}
	return false
}
