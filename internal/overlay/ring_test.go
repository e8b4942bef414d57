package overlay

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/navaz/internal/dom"
)

func blank(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{255, 255, 255, 255})
		}
	}
	return img
}

func TestRingFor(t *testing.T) {
	r := RingFor(dom.Rect{Left: 10.5, Top: 20, Width: 30, Height: 10})
	assert.Equal(t, image.Rect(6, 16, 45, 34), r.Rect)

	assert.True(t, RingFor(dom.Rect{}).Empty())
}

func TestDrawOutlinesWithoutFilling(t *testing.T) {
	frame := blank(60, 60)
	out := Draw(frame, Ring{Rect: image.Rect(10, 10, 40, 40)}).(*image.RGBA)

	assert.Equal(t, RingColor, out.RGBAAt(10, 10))
	assert.Equal(t, RingColor, out.RGBAAt(39, 25))
	assert.Equal(t, RingColor, out.RGBAAt(12, 12))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, out.RGBAAt(25, 25))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, out.RGBAAt(5, 5))

	// the source frame is untouched
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, frame.RGBAAt(10, 10))
}

func TestDrawClipsToFrame(t *testing.T) {
	out := Draw(blank(20, 20), Ring{Rect: image.Rect(-10, -10, 50, 50)}).(*image.RGBA)
	assert.Equal(t, image.Rect(0, 0, 20, 20), out.Bounds())
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, out.RGBAAt(10, 10))
}

func TestTween(t *testing.T) {
	from := Ring{Rect: image.Rect(0, 0, 10, 10)}
	to := Ring{Rect: image.Rect(100, 200, 110, 210)}

	assert.Equal(t, from, Tween(from, to, 0))
	assert.Equal(t, to, Tween(from, to, 1))
	assert.Equal(t, Ring{Rect: image.Rect(50, 100, 60, 110)}, Tween(from, to, 0.5))

	// eased: a quarter of the time covers less than a quarter of the way
	q := Tween(from, to, 0.25)
	assert.Less(t, q.Rect.Min.Y, 50)

	assert.Equal(t, to, Tween(Ring{}, to, 0.3))
	assert.Equal(t, from, Tween(from, Ring{}, 0.3))
}

func TestApply(t *testing.T) {
	frames := []image.Image{blank(20, 20), blank(20, 20)}
	out, err := Apply(frames, []Ring{{}, {Rect: image.Rect(2, 2, 10, 10)}})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, out[0].(*image.RGBA).RGBAAt(2, 2))
	assert.Equal(t, RingColor, out[1].(*image.RGBA).RGBAAt(2, 2))

	_, err = Apply(frames, nil)
	assert.Error(t, err)
}
