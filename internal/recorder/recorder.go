// Package recorder plays a key sequence against an engine and captures a
// frame sequence with the focus ring for each step.
package recorder

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"time"

	"github.com/v0xg/navaz/internal/dom"
	"github.com/v0xg/navaz/internal/engine"
	"github.com/v0xg/navaz/internal/logging"
	"github.com/v0xg/navaz/internal/overlay"
)

// Navigator is the part of the engine a tour drives
type Navigator interface {
	HandleKey(ev dom.KeyEvent) bool
	State() engine.State
}

// Camera captures the page
type Camera interface {
	Screenshot() (image.Image, error)
}

// Options configures a recording
type Options struct {
	FPS int
	// Hold is how long each step stays on screen
	Hold time.Duration
	// Settle is the wait after a key for smooth scrolling to finish
	Settle time.Duration
	Logger *slog.Logger
}

// Step is the outcome of one key press
type Step struct {
	Key     string
	Handled bool
	// Target describes the highlighted element after the key, if any
	Target string
}

// Result holds the captured frames, one ring per frame, and the steps
type Result struct {
	Frames []image.Image
	Rings  []overlay.Ring
	Steps  []Step
}

// Render draws the rings onto the frames
func (r *Result) Render() ([]image.Image, error) {
	return overlay.Apply(r.Frames, r.Rings)
}

// ParseKeys splits a comma separated key list such as "h,h,ArrowUp,l"
func ParseKeys(s string) []string {
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// Record presses keys one by one. Each step gets a short ring movement from
// the previous target followed by a hold on the new one. A failed screenshot
// reuses the previous frame.
func Record(ctx context.Context, nav Navigator, cam Camera, keys []string, opts Options) (*Result, error) {
	if opts.FPS <= 0 {
		return nil, fmt.Errorf("invalid fps %d", opts.FPS)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewDiscardLogger()
	}
	log := opts.Logger

	holdFrames := max(1, int(opts.Hold.Seconds()*float64(opts.FPS)))
	moveFrames := max(1, opts.FPS/2)

	shot, err := cam.Screenshot()
	if err != nil {
		return nil, fmt.Errorf("failed to capture initial frame: %w", err)
	}

	res := &Result{}
	add := func(img image.Image, ring overlay.Ring, n int) {
		for i := 0; i < n; i++ {
			res.Frames = append(res.Frames, img)
			res.Rings = append(res.Rings, ring)
		}
	}

	ring, _ := currentRing(nav)
	add(shot, ring, holdFrames)

	for i, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		step := Step{Key: key, Handled: nav.HandleKey(dom.KeyEvent{Key: key})}
		log.Debug("tour step", "index", i+1, "total", len(keys), "key", key, "handled", step.Handled)

		if opts.Settle > 0 {
			select {
			case <-time.After(opts.Settle):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		next, target := currentRing(nav)
		step.Target = target

		if img, err := cam.Screenshot(); err != nil {
			log.Warn("screenshot failed, reusing previous frame", "key", key, "error", err)
		} else {
			shot = img
		}

		for j := 1; j <= moveFrames; j++ {
			add(shot, overlay.Tween(ring, next, float64(j)/float64(moveFrames)), 1)
		}
		add(shot, next, holdFrames)

		ring = next
		res.Steps = append(res.Steps, step)
	}

	return res, nil
}

// currentRing returns the ring around the highlighted element and its label
func currentRing(nav Navigator) (overlay.Ring, string) {
	el := nav.State().Highlighted
	if el == nil {
		return overlay.Ring{}, ""
	}
	info, err := el.Inspect()
	if err != nil {
		return overlay.Ring{}, ""
	}
	return overlay.RingFor(info.Rect), info.Label()
}
