package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/v0xg/navaz/internal/browser"
	"github.com/v0xg/navaz/internal/engine"
	"github.com/v0xg/navaz/internal/scanner"
)

var openHeadless bool

var openCmd = &cobra.Command{
	Use:   "open <url>",
	Short: "Open a page in Chromium with keyboard navigation attached",
	Long: `Open a page in a Chromium window and attach the keyboard navigator.
Runs until Ctrl-C or until the page navigates away.`,
	Args: cobra.ExactArgs(1),
	RunE: runOpen,
}

func init() {
	openCmd.Flags().BoolVar(&openHeadless, "headless", false, "Run without a window (overrides browser.headless)")
}

func runOpen(cmd *cobra.Command, args []string) error {
	url := args[0]
	ctx := cmd.Context()

	headless := cfg.Browser.Headless
	if cmd.Flags().Changed("headless") {
		headless = openHeadless
	}

	logVerbose("Starting navaz")
	logVerbose("  URL: %s", url)
	logVerbose("  Headless: %t", headless)

	fmt.Printf("→ Opening %s... ", url)
	b, err := browser.Open(ctx, url, browser.Options{
		Width:      cfg.Browser.Width,
		Height:     cfg.Browser.Height,
		Headless:   headless,
		Timeout:    cfg.BrowserTimeout(),
		ProfileDir: cfg.Browser.ProfileDir,
		Logger:     logger,
	})
	if err != nil {
		fmt.Println("failed")
		return fmt.Errorf("open failed: %w", err)
	}
	defer b.Close()
	fmt.Println("done")

	opts, err := engineOptions()
	if err != nil {
		return err
	}

	fmt.Printf("→ Attaching keyboard navigation... ")
	e := engine.New(b.Document(), opts)
	if err := e.Init(ctx); err != nil {
		fmt.Println("failed")
		return fmt.Errorf("init failed: %w", err)
	}
	counts := e.State().Lists
	fmt.Printf("done (%d headers, %d links, %d landmarks)\n",
		len(counts[scanner.Headers]), len(counts[scanner.Links]), len(counts[scanner.Landmarks]))

	fmt.Printf("✓ Navigation active: %s headers, %s links, %s landmarks, %s / %s direction. Ctrl-C to quit.\n",
		keyList(cfg.Keys.Headers), keyList(cfg.Keys.Links), keyList(cfg.Keys.Landmarks),
		keyList(cfg.Keys.Backward), keyList(cfg.Keys.Forward))

	select {
	case <-e.Done():
		fmt.Println("→ Page unloaded, navigation detached")
	case <-ctx.Done():
		e.Teardown()
		fmt.Println("→ Stopped")
	}
	return nil
}

func keyList(keys []string) string {
	return strings.Join(keys, "/")
}
