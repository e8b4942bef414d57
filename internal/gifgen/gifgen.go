// Package gifgen encodes recorded frames as an animated GIF.
package gifgen

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"io"
	"os"
	"sort"

	"github.com/nfnt/resize"
)

// DefaultMaxWidth is the output width used when Options.MaxWidth is zero
const DefaultMaxWidth = 800

// ErrNoFrames is returned when there is nothing to encode
var ErrNoFrames = errors.New("no frames to encode")

// Options configures GIF generation
type Options struct {
	FPS      int
	MaxWidth uint
}

// Encode writes frames as a looping GIF. Frames wider than MaxWidth are
// scaled down keeping their aspect ratio; narrower frames keep their size.
func Encode(w io.Writer, frames []image.Image, opts Options) error {
	if len(frames) == 0 {
		return ErrNoFrames
	}
	if opts.FPS <= 0 {
		return fmt.Errorf("invalid fps %d", opts.FPS)
	}
	if opts.MaxWidth == 0 {
		opts.MaxWidth = DefaultMaxWidth
	}

	// delay is in 100ths of a second
	delay := max(1, 100/opts.FPS)

	bounds := frames[0].Bounds()
	width := uint(bounds.Dx())
	height := uint(bounds.Dy())
	if width > opts.MaxWidth {
		height = uint(float64(height) * float64(opts.MaxWidth) / float64(width))
		width = opts.MaxWidth
	}

	palette := buildPalette(frames)

	g := &gif.GIF{
		Image:     make([]*image.Paletted, len(frames)),
		Delay:     make([]int, len(frames)),
		LoopCount: 0, // infinite
	}
	for i, frame := range frames {
		scaled := frame
		if uint(frame.Bounds().Dx()) != width || uint(frame.Bounds().Dy()) != height {
			scaled = resize.Resize(width, height, frame, resize.Lanczos3)
		}
		sb := scaled.Bounds()
		paletted := image.NewPaletted(image.Rect(0, 0, sb.Dx(), sb.Dy()), palette)
		draw.FloydSteinberg.Draw(paletted, paletted.Bounds(), scaled, sb.Min)

		g.Image[i] = paletted
		g.Delay[i] = delay
	}

	if err := gif.EncodeAll(w, g); err != nil {
		return fmt.Errorf("encode gif: %w", err)
	}
	return nil
}

// WriteFile encodes frames to path and returns the file size
func WriteFile(path string, frames []image.Image, opts Options) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if err := Encode(f, frames, opts); err != nil {
		return 0, err
	}
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// buildPalette picks the 256 most frequent colours over a sample of the
// frames. The first and last frames are always sampled so the focus ring,
// which appears after the first key, makes it into the palette.
func buildPalette(frames []image.Image) color.Palette {
	counts := make(map[color.RGBA]int)

	stride := max(1, len(frames)/8)
	for i := 0; i < len(frames); i += stride {
		sampleColors(frames[i], counts)
	}
	if last := len(frames) - 1; last%stride != 0 {
		sampleColors(frames[last], counts)
	}

	type colorCount struct {
		c     color.RGBA
		count int
	}
	colors := make([]colorCount, 0, len(counts))
	for c, n := range counts {
		colors = append(colors, colorCount{c, n})
	}
	sort.Slice(colors, func(i, j int) bool {
		if colors[i].count != colors[j].count {
			return colors[i].count > colors[j].count
		}
		// deterministic order for equally frequent colours
		a, b := colors[i].c, colors[j].c
		if a.R != b.R {
			return a.R < b.R
		}
		if a.G != b.G {
			return a.G < b.G
		}
		return a.B < b.B
	})

	palette := make(color.Palette, 0, 256)
	for _, cc := range colors {
		if len(palette) == 256 {
			break
		}
		palette = append(palette, cc.c)
	}
	// pad with grays
	for g := 0; len(palette) < 256; g++ {
		v := uint8(g)
		palette = append(palette, color.RGBA{v, v, v, 255})
	}
	return palette
}

// sampleColors counts every 4th pixel in both directions, alpha flattened
func sampleColors(img image.Image, counts map[color.RGBA]int) {
	const step = 4
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			r, g, bl, _ := img.At(x, y).RGBA()
			counts[color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(bl >> 8), 255}]++
		}
	}
}
