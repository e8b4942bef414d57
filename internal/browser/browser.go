// Package browser drives a Chromium page over the DevTools protocol and
// exposes it as a dom.Document.
package browser

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/png"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/v0xg/navaz/internal/logging"
)

// Options configures the browser launch
type Options struct {
	Width      int
	Height     int
	Headless   bool
	Timeout    time.Duration
	ProfileDir string // Chrome/Chromium profile directory for authenticated sessions
	Logger     *slog.Logger
}

// Browser wraps the rod browser and the page the navigator is attached to
type Browser struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	log      *slog.Logger
}

// Open launches Chromium, loads url and waits for the page to settle.
// The initial scan needs a loaded document, so Open returns only after the
// load event.
func Open(ctx context.Context, url string, opts Options) (*Browser, error) {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Width == 0 {
		opts.Width = 1280
	}
	if opts.Height == 0 {
		opts.Height = 800
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewDiscardLogger()
	}

	path, _ := launcher.LookPath()
	l := launcher.New().Context(ctx).Bin(path).Headless(opts.Headless)
	if opts.ProfileDir != "" {
		l = l.UserDataDir(opts.ProfileDir)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	opts.Logger.Debug("browser launched", "control_url", u, "headless", opts.Headless)

	b := &Browser{launcher: l, log: opts.Logger}
	b.browser = rod.New().Context(ctx).ControlURL(u)
	if err := b.browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	page, err := b.browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}
	b.page = page

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.Width,
		Height:            opts.Height,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	if err := page.Timeout(opts.Timeout).WaitLoad(); err != nil {
		b.Close()
		return nil, fmt.Errorf("wait for load: %w", err)
	}

	// Don't hang on persistent connections (WebSockets, polling, etc.)
	page.Timeout(5*time.Second).WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()

	return b, nil
}

// Close cleans up browser resources
func (b *Browser) Close() {
	if b.page != nil {
		_ = b.page.Close()
	}
	if b.browser != nil {
		_ = b.browser.Close()
	}
	if b.launcher != nil {
		b.launcher.Kill()
	}
}

// Page returns the underlying rod page
func (b *Browser) Page() *rod.Page {
	return b.page
}

// Document returns the page as a dom.Document
func (b *Browser) Document() *Document {
	return NewDocument(b.page, b.log)
}

// Title returns the document title
func (b *Browser) Title() (string, error) {
	res, err := b.page.Eval(`() => document.title`)
	if err != nil {
		return "", fmt.Errorf("read title: %w", err)
	}
	return res.Value.Str(), nil
}

// Screenshot captures the viewport
func (b *Browser) Screenshot() (image.Image, error) {
	data, err := b.page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return img, nil
}
