package focus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/navaz/internal/dom"
	"github.com/v0xg/navaz/internal/htmldoc"
)

const page = `<body>
	<h1 id="title">Title</h1>
	<h2 id="pre" tabindex="0">Already focusable</h2>
	<a id="link" href="/">Link</a>
	<section id="doomed"><h3 id="inner">Inner</h3></section>
</body>`

// brokenFocus fails every Focus call
type brokenFocus struct{ dom.Element }

func (b brokenFocus) Focus() error { return errors.New("focus refused") }

func setup(t *testing.T) (*htmldoc.Document, *Controller) {
	t.Helper()
	doc, err := htmldoc.ParseString(page)
	require.NoError(t, err)
	return doc, New("", nil)
}

func find(t *testing.T, doc *htmldoc.Document, selector string) dom.Element {
	t.Helper()
	el, err := doc.Find(selector)
	require.NoError(t, err)
	return el
}

func attr(t *testing.T, el dom.Element, name string) (string, bool) {
	t.Helper()
	info, err := el.Inspect()
	require.NoError(t, err)
	return info.Attr(name)
}

func activeKey(t *testing.T, doc *htmldoc.Document) dom.NodeKey {
	t.Helper()
	el, err := doc.ActiveElement()
	require.NoError(t, err)
	if el == nil {
		return ""
	}
	info, err := el.Inspect()
	require.NoError(t, err)
	return info.Key
}

func key(t *testing.T, el dom.Element) dom.NodeKey {
	t.Helper()
	info, err := el.Inspect()
	require.NoError(t, err)
	return info.Key
}

func TestFocusNonInteractiveGetsTabindex(t *testing.T) {
	doc, c := setup(t)
	title := find(t, doc, "#title")

	require.True(t, c.Focus(title))

	v, ok := attr(t, title, "tabindex")
	assert.True(t, ok)
	assert.Equal(t, "-1", v)
	assert.Equal(t, key(t, title), activeKey(t, doc))
	assert.Contains(t, htmldoc.Classes(title), DefaultClass)
	assert.Equal(t, []dom.NodeKey{key(t, title)}, doc.ScrollLog())
}

func TestFocusKeepsExistingTabindex(t *testing.T) {
	doc, c := setup(t)
	pre := find(t, doc, "#pre")

	require.True(t, c.Focus(pre))
	v, _ := attr(t, pre, "tabindex")
	assert.Equal(t, "0", v)
}

func TestFocusNativeElementUntouched(t *testing.T) {
	doc, c := setup(t)
	link := find(t, doc, "#link")

	require.True(t, c.Focus(link))
	_, ok := attr(t, link, "tabindex")
	assert.False(t, ok)
	assert.Equal(t, key(t, link), activeKey(t, doc))
}

func TestFocusMovesSingleHighlight(t *testing.T) {
	doc, c := setup(t)
	title := find(t, doc, "#title")
	link := find(t, doc, "#link")

	require.True(t, c.Focus(title))
	require.True(t, c.Focus(link))

	assert.NotContains(t, htmldoc.Classes(title), DefaultClass)
	assert.Contains(t, htmldoc.Classes(link), DefaultClass)
	assert.Same(t, link, c.Highlighted())
}

func TestFocusSameElementTwiceKeepsHighlight(t *testing.T) {
	doc, c := setup(t)

	require.True(t, c.Focus(find(t, doc, "#title")))
	again := find(t, doc, "#title") // a second handle to the same node
	require.True(t, c.Focus(again))

	assert.Contains(t, htmldoc.Classes(again), DefaultClass)
}

func TestFocusFailureKeepsPreviousHighlight(t *testing.T) {
	doc, c := setup(t)
	title := find(t, doc, "#title")
	require.True(t, c.Focus(title))

	link := find(t, doc, "#link")
	assert.False(t, c.Focus(brokenFocus{link}))

	assert.Same(t, title, c.Highlighted())
	assert.Contains(t, htmldoc.Classes(title), DefaultClass)
	assert.NotContains(t, htmldoc.Classes(link), DefaultClass)
	assert.Equal(t, key(t, title), activeKey(t, doc))
}

func TestFocusDetachedElementFails(t *testing.T) {
	doc, c := setup(t)
	inner := find(t, doc, "#inner")
	require.NoError(t, doc.Remove("#doomed"))

	assert.False(t, c.Focus(inner))
	assert.Nil(t, c.Highlighted())
}

func TestFocusNil(t *testing.T) {
	_, c := setup(t)
	assert.False(t, c.Focus(nil))
}

func TestClear(t *testing.T) {
	doc, c := setup(t)
	title := find(t, doc, "#title")
	require.True(t, c.Focus(title))

	c.Clear()
	assert.Nil(t, c.Highlighted())
	assert.NotContains(t, htmldoc.Classes(title), DefaultClass)

	c.Clear() // no-op
}

func TestClearAfterHolderRemoved(t *testing.T) {
	doc, c := setup(t)
	require.True(t, c.Focus(find(t, doc, "#inner")))
	require.NoError(t, doc.Remove("#doomed"))

	c.Clear()
	assert.Nil(t, c.Highlighted())
}

func TestCSSUsesClass(t *testing.T) {
	c := New("nav-ring", nil)
	css := c.CSS()
	assert.Contains(t, css, ".nav-ring {")
	assert.Contains(t, css, ".nav-ring::before")
	assert.Contains(t, css, "z-index: 2147483647")
}
