package main

import (
	"context"
	"fmt"
	"io"

	"github.com/ManuGH/placecore/internal/app/bootstrap"
)

func runFontsCLI(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	sub, rest := splitSubcommand(args)
	if sub != "list" && sub != "evict" {
		fmt.Fprintln(stderr, "Usage: placecore fonts list|evict [-config file]")
		return 2
	}
	fs := newFlagSet("placecore fonts "+sub, stderr)
	configPath := fs.String("config", "", "path to config file (YAML)")
	if err := fs.Parse(rest); err != nil {
		return 2
	}

	return withContainer(ctx, *configPath, stderr, func(c *bootstrap.Container) error {
		if sub == "evict" {
			emptied, err := c.Fonts.Evict(ctx, c.Config.Fonts.MaxAge)
			if err != nil {
				return err
			}
			return printJSON(stdout, map[string]any{"evicted": emptied})
		}
		idx, err := c.Fonts.Index(ctx)
		if err != nil {
			return err
		}
		return printJSON(stdout, idx)
	})
}
