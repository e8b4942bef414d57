package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/navaz/internal/config"
	"github.com/v0xg/navaz/internal/engine"
	"github.com/v0xg/navaz/internal/logging"
)

func TestIsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(path, []byte("<p>x</p>"), 0o644))

	assert.True(t, isFile(path))
	assert.False(t, isFile(dir))
	assert.False(t, isFile("https://example.com"))
	assert.False(t, isFile(filepath.Join(dir, "missing.html")))
}

func TestScanStaticFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(`<body>
		<header><a href="/">Home</a></header>
		<main>
			<h1>Welcome</h1>
			<h2 aria-label="Details"></h2>
			<a href="/docs">Docs</a>
		</main>
	</body>`), 0o644))

	cfg = config.Default()
	logger = logging.NewDiscardLogger()

	doc, cleanup, err := openDocument(context.Background(), path)
	require.NoError(t, err)
	defer cleanup()

	opts, err := engineOptions()
	require.NoError(t, err)
	e := engine.New(doc, opts)
	require.NoError(t, e.Init(context.Background()))
	defer e.Teardown()

	listings, err := collectListings(e.Lists())
	require.NoError(t, err)
	require.Len(t, listings, 3)

	assert.Equal(t, "headers", listings[0].Category)
	require.Len(t, listings[0].Items, 2)
	assert.Equal(t, "h1 Welcome", listings[0].Items[0].Label)
	assert.Equal(t, "h2 Details", listings[0].Items[1].Label)

	assert.Equal(t, "links", listings[1].Category)
	require.Len(t, listings[1].Items, 2)
	assert.Equal(t, "a Home", listings[1].Items[0].Label)

	assert.Equal(t, "landmarks", listings[2].Category)
	require.Len(t, listings[2].Items, 2)
	assert.Equal(t, "header", listings[2].Items[0].Tag)
	assert.Equal(t, "main", listings[2].Items[1].Tag)
}
