package scanner

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/navaz/internal/dom"
	"github.com/v0xg/navaz/internal/htmldoc"
)

// hookDoc lets a test interfere with queries and comparisons
type hookDoc struct {
	*htmldoc.Document
	onQuery   func(selector string) error
	unordered bool
}

func (h *hookDoc) QueryAll(selector string) ([]dom.Element, error) {
	if h.onQuery != nil {
		if err := h.onQuery(selector); err != nil {
			return nil, err
		}
	}
	return h.Document.QueryAll(selector)
}

func (h *hookDoc) Compare(a, b dom.Element) (dom.Order, error) {
	if h.unordered {
		return dom.Unordered, nil
	}
	return h.Document.Compare(a, b)
}

func parse(t *testing.T, src string) *htmldoc.Document {
	t.Helper()
	doc, err := htmldoc.ParseString(src)
	require.NoError(t, err)
	return doc
}

func ids(s *Snapshot, c Category) []string {
	var out []string
	for _, e := range s.Entries(c) {
		out = append(out, e.Info.Attrs["id"])
	}
	return out
}

func TestScanHeadersRowTolerance(t *testing.T) {
	doc := parse(t, `<body>
		<h1 id="a" style="top:10px; left:50px">Alpha</h1>
		<h2 id="b" style="top:12px; left:20px">Beta</h2>
		<h3 id="c" style="top:100px; left:0px">Gamma</h3>
	</body>`)

	s := New(doc, Options{})
	require.True(t, s.Scan())

	assert.Equal(t, []string{"b", "a", "c"}, ids(s.Snapshot(), Headers))
}

func TestScanHeadersOutsideToleranceUseTop(t *testing.T) {
	doc := parse(t, `<body>
		<h2 id="low" style="top:40px; left:0px">Low</h2>
		<h2 id="high" style="top:30px; left:90px">High</h2>
	</body>`)

	s := New(doc, Options{})
	require.True(t, s.Scan())

	assert.Equal(t, []string{"high", "low"}, ids(s.Snapshot(), Headers))
}

func TestScanHeadersFiltering(t *testing.T) {
	doc := parse(t, `<body>
		<h1 id="shown">Shown</h1>
		<h2 id="none" style="display:none">Display none</h2>
		<div hidden><h2 id="inside-hidden">Hidden parent</h2></div>
		<h2 id="invisible" style="visibility:hidden">Invisible</h2>
		<h2 id="transparent" style="opacity:0">Transparent</h2>
		<h2 id="empty">   </h2>
		<h2 id="zero" style="width:0; height:0">Zero size</h2>
		<h2 id="labelled" aria-label="Labelled"></h2>
	</body>`)

	s := New(doc, Options{})
	require.True(t, s.Scan())

	assert.Equal(t, []string{"shown", "labelled"}, ids(s.Snapshot(), Headers))
}

func TestScanLinks(t *testing.T) {
	doc := parse(t, `<body>
		<a id="home" href="/">Home</a>
		<a id="anchor">No destination</a>
		<a id="skip" href="#main" tabindex="-1">Skip</a>
		<a id="disabled" href="/x" disabled>Disabled</a>
		<a id="icon" href="/search" title="Search"></a>
		<a id="blank" href="/blank"></a>
	</body>`)

	s := New(doc, Options{})
	require.True(t, s.Scan())

	assert.Equal(t, []string{"home", "skip", "icon"}, ids(s.Snapshot(), Links))
}

func TestScanLandmarksUseDocumentOrder(t *testing.T) {
	// geometry is the reverse of document order
	doc := parse(t, `<body>
		<header id="top" role="banner" style="top:900px">Top</header>
		<nav id="menu" style="top:600px">Menu</nav>
		<div id="finder" role="search" style="top:300px">Find</div>
		<main id="content" style="top:200px">Content</main>
		<section id="empty-section" style="top:150px"></section>
		<aside id="gone" style="display:none">Gone</aside>
		<footer id="bottom" style="top:0px">Bottom</footer>
	</body>`)

	s := New(doc, Options{})
	require.True(t, s.Scan())

	assert.Equal(t,
		[]string{"top", "menu", "finder", "content", "empty-section", "bottom"},
		ids(s.Snapshot(), Landmarks))
}

func TestScanLandmarksUnorderedKeepsDiscoveryOrder(t *testing.T) {
	doc := &hookDoc{
		Document: parse(t, `<body>
			<div id="r" role="region">Region</div>
			<footer id="f">Footer</footer>
			<nav id="n">Nav</nav>
		</body>`),
		unordered: true,
	}

	s := New(doc, Options{})
	require.True(t, s.Scan())

	// tags first in LandmarkTags order, then roles
	assert.Equal(t, []string{"n", "f", "r"}, ids(s.Snapshot(), Landmarks))
}

func TestScanIsIdempotent(t *testing.T) {
	doc := parse(t, `<body>
		<nav><a href="/a">A</a><a href="/b">B</a></nav>
		<main><h1>Title</h1><h2>Sub</h2><section><h3>Deep</h3></section></main>
	</body>`)

	s := New(doc, Options{})
	require.True(t, s.Scan())
	first := s.Snapshot()
	require.True(t, s.Scan())
	second := s.Snapshot()

	for _, c := range Categories {
		assert.Equal(t, first.Keys(c), second.Keys(c), c.String())
	}
	assert.Equal(t, first.Generation+1, second.Generation)
}

func TestScanFailureKeepsPreviousSnapshot(t *testing.T) {
	doc := &hookDoc{Document: parse(t, `<body><h1>One</h1><a href="/">Link</a></body>`)}
	s := New(doc, Options{})
	require.True(t, s.Scan())
	before := s.Snapshot()

	doc.onQuery = func(selector string) error {
		if selector == linkSelector {
			return errors.New("boom")
		}
		return nil
	}
	assert.False(t, s.Scan())
	assert.Same(t, before, s.Snapshot())
	assert.False(t, s.Scanning())
}

func TestScanIgnoresReentrantCalls(t *testing.T) {
	doc := &hookDoc{Document: parse(t, `<body><h1>One</h1></body>`)}
	s := New(doc, Options{})

	var nested []bool
	doc.onQuery = func(string) error {
		nested = append(nested, s.Scan())
		return nil
	}

	assert.True(t, s.Scan())
	require.NotEmpty(t, nested)
	for _, ok := range nested {
		assert.False(t, ok)
	}
	assert.Equal(t, 1, s.Snapshot().Len(Headers))
}

func TestScanRecoversFromPanic(t *testing.T) {
	doc := &hookDoc{Document: parse(t, `<body><h1>One</h1></body>`)}
	doc.onQuery = func(string) error { panic("layout exploded") }

	s := New(doc, Options{})
	assert.False(t, s.Scan())
	assert.Equal(t, 0, s.Snapshot().Len(Headers))
	assert.False(t, s.Scanning())
}

func TestParseCategory(t *testing.T) {
	for in, want := range map[string]Category{"headers": Headers, "Link": Links, " landmarks ": Landmarks, "headings": Headers} {
		got, err := ParseCategory(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseCategory("buttons")
	assert.Error(t, err)
}

// batchDoc serves batch inspection from a static document and counts
// every backend call the scanner makes
type batchDoc struct {
	*htmldoc.Document
	batches  []string
	queries  int
	compares int
	short    bool
}

func (b *batchDoc) InspectAll(selector string) ([]dom.Element, []dom.Info, error) {
	b.batches = append(b.batches, selector)
	els, err := b.Document.QueryAll(selector)
	if err != nil {
		return nil, nil, err
	}
	infos := make([]dom.Info, len(els))
	for i, el := range els {
		if infos[i], err = el.Inspect(); err != nil {
			return nil, nil, err
		}
	}
	if b.short && len(infos) > 0 {
		infos = infos[1:]
	}
	return els, infos, nil
}

func (b *batchDoc) QueryAll(selector string) ([]dom.Element, error) {
	b.queries++
	return b.Document.QueryAll(selector)
}

func (b *batchDoc) Compare(a, c dom.Element) (dom.Order, error) {
	b.compares++
	return b.Document.Compare(a, c)
}

func TestScanUsesOneBatchPerCategory(t *testing.T) {
	doc := &batchDoc{Document: parse(t, `<body>
		<header id="top" style="top:900px"><a id="home" href="/" style="top:900px">Home</a></header>
		<nav id="menu" role="navigation" style="top:600px"><a id="docs" href="/docs" style="top:600px">Docs</a></nav>
		<div id="finder" role="search" style="top:300px">Find</div>
		<main id="content" style="top:200px"><h1 id="t" style="top:200px">Title</h1></main>
		<footer id="bottom" style="top:0px">Bottom</footer>
	</body>`)}

	s := New(doc, Options{})
	require.True(t, s.Scan())

	assert.Len(t, doc.batches, 3)
	assert.Zero(t, doc.queries)
	assert.Zero(t, doc.compares)

	snap := s.Snapshot()
	assert.Equal(t, []string{"t"}, ids(snap, Headers))
	assert.Equal(t, []string{"docs", "home"}, ids(snap, Links))
	assert.Equal(t, []string{"top", "menu", "finder", "content", "bottom"}, ids(snap, Landmarks))
}

func TestScanRejectsMismatchedBatch(t *testing.T) {
	doc := &batchDoc{Document: parse(t, `<body><h1>One</h1></body>`), short: true}

	s := New(doc, Options{})
	assert.False(t, s.Scan())
	assert.Equal(t, 0, s.Snapshot().Len(Headers))
}

func TestLandmarkSelector(t *testing.T) {
	sel := landmarkSelector()
	assert.True(t, strings.HasPrefix(sel, "nav, main, aside"))
	assert.Contains(t, sel, `[role="contentinfo"]`)
	assert.Equal(t, len(LandmarkTags)+len(LandmarkRoles), strings.Count(sel, ",")+1)
}
