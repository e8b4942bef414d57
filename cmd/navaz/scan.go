package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/v0xg/navaz/internal/browser"
	"github.com/v0xg/navaz/internal/dom"
	"github.com/v0xg/navaz/internal/engine"
	"github.com/v0xg/navaz/internal/htmldoc"
	"github.com/v0xg/navaz/internal/scanner"
)

var scanJSON bool

var scanCmd = &cobra.Command{
	Use:   "scan <url|file.html>",
	Short: "Print the headings, links and landmarks of a page",
	Long: `Scan a page once and print the three navigation lists in navigation order.
Local files are parsed without a browser; URLs are loaded in headless Chromium.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Output as JSON")
}

// listing is the printable form of one category
type listing struct {
	Category string       `json:"category"`
	Items    []listedItem `json:"items"`
}

type listedItem struct {
	Index int      `json:"index"`
	Tag   string   `json:"tag"`
	Label string   `json:"label"`
	Key   string   `json:"key"`
	Rect  dom.Rect `json:"rect"`
}

func runScan(cmd *cobra.Command, args []string) error {
	target := args[0]
	ctx := cmd.Context()

	doc, cleanup, err := openDocument(ctx, target)
	if err != nil {
		return err
	}
	defer cleanup()

	opts, err := engineOptions()
	if err != nil {
		return err
	}
	e := engine.New(doc, opts)
	if err := e.Init(ctx); err != nil {
		return fmt.Errorf("init failed: %w", err)
	}
	defer e.Teardown()

	listings, err := collectListings(e.Lists())
	if err != nil {
		return err
	}

	if scanJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(listings)
	}
	printListings(listings)
	return nil
}

// openDocument picks the static backend for files and a headless browser for URLs
func openDocument(ctx context.Context, target string) (dom.Document, func(), error) {
	if isFile(target) {
		logVerbose("Parsing %s", target)
		f, err := os.Open(target)
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()
		doc, err := htmldoc.Parse(f)
		if err != nil {
			return nil, nil, err
		}
		return doc, func() {}, nil
	}

	fmt.Printf("→ Loading %s... ", target)
	b, err := browser.Open(ctx, target, browser.Options{
		Width:      cfg.Browser.Width,
		Height:     cfg.Browser.Height,
		Headless:   true,
		Timeout:    cfg.BrowserTimeout(),
		ProfileDir: cfg.Browser.ProfileDir,
		Logger:     logger,
	})
	if err != nil {
		fmt.Println("failed")
		return nil, nil, fmt.Errorf("load failed: %w", err)
	}
	fmt.Println("done")
	return b.Document(), b.Close, nil
}

func isFile(target string) bool {
	if strings.Contains(target, "://") {
		return false
	}
	info, err := os.Stat(target)
	return err == nil && !info.IsDir()
}

func collectListings(lists map[scanner.Category][]dom.Element) ([]listing, error) {
	out := make([]listing, 0, len(scanner.Categories))
	for _, c := range scanner.Categories {
		l := listing{Category: c.String(), Items: []listedItem{}}
		for i, el := range lists[c] {
			info, err := el.Inspect()
			if err != nil {
				return nil, fmt.Errorf("inspect %s #%d: %w", c, i+1, err)
			}
			l.Items = append(l.Items, listedItem{
				Index: i + 1,
				Tag:   info.Tag,
				Label: info.Label(),
				Key:   string(info.Key),
				Rect:  info.Rect,
			})
		}
		out = append(out, l)
	}
	return out, nil
}

func printListings(listings []listing) {
	for _, l := range listings {
		fmt.Printf("%s (%d)\n", strings.ToUpper(l.Category[:1])+l.Category[1:], len(l.Items))
		for _, item := range l.Items {
			fmt.Printf("  [%d] %s\n", item.Index, item.Label)
		}
	}
}
