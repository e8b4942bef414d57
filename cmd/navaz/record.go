package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/v0xg/navaz/internal/browser"
	"github.com/v0xg/navaz/internal/engine"
	"github.com/v0xg/navaz/internal/gifgen"
	"github.com/v0xg/navaz/internal/recorder"
)

var (
	recordKeys   string
	recordOutput string
	recordFPS    int
	recordHold   int
	recordNoRing bool
)

var recordCmd = &cobra.Command{
	Use:   "record <url>",
	Short: "Record a keyboard navigation tour as a GIF",
	Long: `Load a page in headless Chromium, press the given keys one after another
and save the tour as an animated GIF with a ring around the focused element.

Example:
  navaz record https://example.com --keys "h,h,ArrowUp,l" -o tour.gif`,
	Args: cobra.ExactArgs(1),
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().StringVar(&recordKeys, "keys", "h,h,h,l,l,m", "Comma separated key sequence")
	recordCmd.Flags().StringVarP(&recordOutput, "output", "o", "tour.gif", "Output filename")
	recordCmd.Flags().IntVar(&recordFPS, "fps", 0, "Frames per second (default: record.fps)")
	recordCmd.Flags().IntVar(&recordHold, "hold", 0, "How long each step stays on screen in ms (default: record.holdMs)")
	recordCmd.Flags().BoolVar(&recordNoRing, "no-ring", false, "Disable the focus ring overlay")
}

func runRecord(cmd *cobra.Command, args []string) error {
	url := args[0]
	ctx := cmd.Context()

	keys := recorder.ParseKeys(recordKeys)
	if len(keys) == 0 {
		return fmt.Errorf("no keys to record")
	}
	fps := cfg.Record.FPS
	if recordFPS > 0 {
		fps = recordFPS
	}
	hold := cfg.Hold()
	if recordHold > 0 {
		hold = time.Duration(recordHold) * time.Millisecond
	}

	logVerbose("Starting navaz record")
	logVerbose("  URL: %s", url)
	logVerbose("  Keys: %v", keys)

	fmt.Printf("→ Loading %s... ", url)
	b, err := browser.Open(ctx, url, browser.Options{
		Width:      cfg.Browser.Width,
		Height:     cfg.Browser.Height,
		Headless:   true,
		Timeout:    cfg.BrowserTimeout(),
		ProfileDir: cfg.Browser.ProfileDir,
		Logger:     logger,
	})
	if err != nil {
		fmt.Println("failed")
		return fmt.Errorf("load failed: %w", err)
	}
	defer b.Close()
	fmt.Println("done")

	opts, err := engineOptions()
	if err != nil {
		return err
	}
	e := engine.New(b.Document(), opts)
	if err := e.Init(ctx); err != nil {
		return fmt.Errorf("init failed: %w", err)
	}
	defer e.Teardown()

	fmt.Printf("→ Recording %d keys...\n", len(keys))
	res, err := recorder.Record(ctx, e, b, keys, recorder.Options{
		FPS:    fps,
		Hold:   hold,
		Settle: 400 * time.Millisecond,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("recording failed: %w", err)
	}
	for i, step := range res.Steps {
		mark := "✓"
		if !step.Handled {
			mark = "✗"
		}
		target := step.Target
		if target == "" {
			target = "-"
		}
		fmt.Printf("  [%d/%d] %s %s %s\n", i+1, len(res.Steps), step.Key, mark, target)
	}

	frames := res.Frames
	if !recordNoRing {
		fmt.Printf("→ Applying focus ring... ")
		frames, err = res.Render()
		if err != nil {
			fmt.Println("failed")
			return fmt.Errorf("overlay failed: %w", err)
		}
		fmt.Println("done")
	}

	fmt.Printf("→ Generating GIF (%d frames)... ", len(frames))
	size, err := gifgen.WriteFile(recordOutput, frames, gifgen.Options{
		FPS:      fps,
		MaxWidth: uint(cfg.Record.MaxWidth),
	})
	if err != nil {
		fmt.Println("failed")
		return fmt.Errorf("GIF generation failed: %w", err)
	}
	fmt.Println("done")

	fmt.Printf("✓ Saved to %s (%.1f MB)\n", recordOutput, float64(size)/(1024*1024))
	return nil
}
