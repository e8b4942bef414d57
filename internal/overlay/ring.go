// Package overlay draws the focus ring of recorded tours onto frames.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/v0xg/navaz/internal/dom"
)

const (
	// Padding is the gap between an element's box and its ring
	Padding = 4
	// Thickness is the ring's stroke width
	Thickness = 3
)

// RingColor matches the highlight outline injected into the page
var RingColor = color.RGBA{255, 107, 53, 255}

// Ring is the focus ring for one frame. The zero Ring draws nothing.
type Ring struct {
	Rect image.Rectangle
}

// RingFor returns the ring around an element box in viewport pixels
func RingFor(r dom.Rect) Ring {
	if r.Width <= 0 && r.Height <= 0 {
		return Ring{}
	}
	return Ring{Rect: image.Rect(
		int(math.Floor(r.Left))-Padding,
		int(math.Floor(r.Top))-Padding,
		int(math.Ceil(r.Left+r.Width))+Padding,
		int(math.Ceil(r.Top+r.Height))+Padding,
	)}
}

// Empty reports whether the ring draws nothing
func (r Ring) Empty() bool {
	return r.Rect.Empty()
}

// Tween moves a ring from one box to another. t runs from 0 to 1 and is
// eased so the ring accelerates away and settles on the target.
func Tween(from, to Ring, t float64) Ring {
	if from.Empty() {
		return to
	}
	if to.Empty() {
		return from
	}
	t = easeInOut(math.Max(0, math.Min(1, t)))
	lerp := func(a, b int) int {
		return int(math.Round(float64(a) + t*float64(b-a)))
	}
	return Ring{Rect: image.Rect(
		lerp(from.Rect.Min.X, to.Rect.Min.X),
		lerp(from.Rect.Min.Y, to.Rect.Min.Y),
		lerp(from.Rect.Max.X, to.Rect.Max.X),
		lerp(from.Rect.Max.Y, to.Rect.Max.Y),
	)}
}

// Apply draws rings[i] on frames[i]
func Apply(frames []image.Image, rings []Ring) ([]image.Image, error) {
	if len(frames) != len(rings) {
		return nil, fmt.Errorf("overlay: %d frames but %d rings", len(frames), len(rings))
	}
	result := make([]image.Image, len(frames))
	for i, frame := range frames {
		result[i] = Draw(frame, rings[i])
	}
	return result, nil
}

// Draw returns a copy of frame with the ring drawn on it
func Draw(frame image.Image, r Ring) image.Image {
	bounds := frame.Bounds()
	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, frame, bounds.Min, draw.Src)

	if r.Empty() {
		return result
	}

	rect := r.Rect
	for i := 0; i < Thickness; i++ {
		x0, y0 := rect.Min.X+i, rect.Min.Y+i
		x1, y1 := rect.Max.X-1-i, rect.Max.Y-1-i
		if x0 > x1 || y0 > y1 {
			break
		}
		drawLine(result, x0, y0, x1, y0, RingColor)
		drawLine(result, x1, y0, x1, y1, RingColor)
		drawLine(result, x1, y1, x0, y1, RingColor)
		drawLine(result, x0, y1, x0, y0, RingColor)
	}
	return result
}

// easeInOut provides smooth acceleration and deceleration
func easeInOut(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return 1 - math.Pow(-2*t+2, 2)/2
}

// drawLine draws a line between two points using Bresenham's algorithm
func drawLine(img *image.RGBA, x1, y1, x2, y2 int, c color.RGBA) {
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy

	for {
		setPixelSafe(img, x1, y1, c)
		if x1 == x2 && y1 == y2 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func setPixelSafe(img *image.RGBA, x, y int, c color.RGBA) {
	if (image.Point{X: x, Y: y}).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
