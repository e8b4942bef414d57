package browser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ysmood/gson"

	"github.com/v0xg/navaz/internal/dom"
	"github.com/v0xg/navaz/internal/observe"
)

func TestParseMutations(t *testing.T) {
	payload := gson.NewFrom(`[
		{"type": "attributes", "attributeName": "hidden"},
		{"type": "childList", "nodes": ["<section><h2>Added</h2></section>", "<p>gone</p>", ""]},
		{"type": "childList", "nodes": []}
	]`)

	batch, err := parseMutations(payload)
	require.NoError(t, err)
	require.Len(t, batch, 3)

	assert.Equal(t, dom.Mutation{Kind: dom.Attributes, Attribute: "hidden"}, batch[0])

	assert.Equal(t, dom.ChildList, batch[1].Kind)
	require.Len(t, batch[1].Nodes, 2)
	assert.Equal(t, "section", batch[1].Nodes[0].Data)
	assert.Equal(t, "p", batch[1].Nodes[1].Data)
	assert.True(t, observe.Relevant(batch[1]))

	assert.Empty(t, batch[2].Nodes)
	assert.False(t, observe.Relevant(batch[2]))
}

func TestParseMutationsRejectsUnknownType(t *testing.T) {
	_, err := parseMutations(gson.NewFrom(`[{"type": "characterData"}]`))
	assert.Error(t, err)
}

func TestParseFragmentKeepsElementsOnly(t *testing.T) {
	nodes, err := parseFragment(`text <a href="/x">x</a> more <nav></nav>`)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "a", nodes[0].Data)
	assert.Equal(t, "nav", nodes[1].Data)
}

func TestDecodeInfos(t *testing.T) {
	infos, err := decodeInfos(gson.NewFrom(`[
		{"key": "b1", "tag": "h1", "attrs": {"id": "t"}, "text": "Title", "hasLayoutBox": true,
		 "rect": {"left": 8, "top": 20, "width": 300, "height": 40},
		 "style": {"display": "block", "visibility": "visible", "opacity": "1"}},
		{"key": "b2", "tag": "a", "attrs": {"href": "/"}, "disabled": false, "hasLayoutBox": false,
		 "rect": {"left": 0, "top": 0, "width": 0, "height": 0}, "style": {"display": "none"}}
	]`))
	require.NoError(t, err)
	require.Len(t, infos, 2)

	assert.Equal(t, dom.NodeKey("b1"), infos[0].Key)
	assert.Equal(t, "t", infos[0].Attrs["id"])
	assert.Equal(t, dom.Rect{Left: 8, Top: 20, Width: 300, Height: 40}, infos[0].Rect)
	assert.True(t, infos[0].HasLayoutBox)
	assert.Equal(t, "none", infos[1].Style.Display)

	empty, err := decodeInfos(gson.NewFrom(`[]`))
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = decodeInfos(gson.NewFrom(`{"key": "b1"}`))
	assert.Error(t, err)
}

func TestElementScriptsResolveKeys(t *testing.T) {
	for name, js := range map[string]string{
		"focus":         jsFocus,
		"set attribute": jsSetAttribute,
		"add class":     jsAddClass,
		"remove class":  jsRemoveClass,
		"scroll":        jsScrollIntoView,
	} {
		assert.True(t, strings.HasPrefix(js, "(key"), name)
		assert.Contains(t, js, "window.__navazReg", name)
		assert.Contains(t, js, "return false;", name)
	}
	assert.True(t, strings.HasPrefix(jsSetAttribute, "(key, name, value) =>"))
	assert.Contains(t, jsInspectAll, "compareDocumentPosition")
}
