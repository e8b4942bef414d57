package gifgen

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestEncodeKeepsSmallFrames(t *testing.T) {
	frames := []image.Image{
		solid(40, 20, color.RGBA{255, 255, 255, 255}),
		solid(40, 20, color.RGBA{255, 107, 53, 255}),
		solid(40, 20, color.RGBA{0, 0, 0, 255}),
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, frames, Options{FPS: 4}))

	g, err := gif.DecodeAll(&buf)
	require.NoError(t, err)
	require.Len(t, g.Image, 3)
	assert.Equal(t, []int{25, 25, 25}, g.Delay)
	assert.Equal(t, 0, g.LoopCount)
	assert.Equal(t, 40, g.Image[0].Bounds().Dx())
	assert.Equal(t, 20, g.Image[0].Bounds().Dy())

	// the last frame's colour made it into the palette
	r, gr, b, _ := g.Image[1].At(5, 5).RGBA()
	assert.Equal(t, []uint32{255, 107, 53}, []uint32{r >> 8, gr >> 8, b >> 8})
}

func TestEncodeScalesWideFrames(t *testing.T) {
	frames := []image.Image{solid(200, 100, color.RGBA{10, 20, 30, 255})}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, frames, Options{FPS: 200, MaxWidth: 50}))

	g, err := gif.DecodeAll(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 50, 25), g.Image[0].Bounds())
	assert.Equal(t, []int{1}, g.Delay)
}

func TestEncodeRejectsBadInput(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, Encode(&buf, nil, Options{FPS: 2}), ErrNoFrames)
	assert.Error(t, Encode(&buf, []image.Image{solid(2, 2, color.RGBA{})}, Options{}))
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tour.gif")
	size, err := WriteFile(path, []image.Image{solid(8, 8, color.RGBA{1, 2, 3, 255})}, Options{FPS: 2})
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), size)
	assert.Positive(t, size)
}

func TestBuildPaletteOrdersByFrequency(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetRGBA(x, y, color.RGBA{200, 0, 0, 255})
		}
	}
	// one sampled pixel of a second colour
	img.SetRGBA(4, 4, color.RGBA{0, 0, 200, 255})

	p := buildPalette([]image.Image{img})
	require.Len(t, p, 256)
	assert.Equal(t, color.RGBA{200, 0, 0, 255}, p[0])
	assert.Equal(t, color.RGBA{0, 0, 200, 255}, p[1])
}
