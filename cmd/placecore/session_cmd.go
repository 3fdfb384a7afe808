package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ManuGH/placecore/internal/app/bootstrap"
	"github.com/ManuGH/placecore/internal/session"
)

func runSessionCLI(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	sub, rest := splitSubcommand(args)
	fs := newFlagSet("placecore session "+sub, stderr)
	configPath := fs.String("config", "", "path to config file (YAML)")

	switch sub {
	case "show", "clear":
		if err := fs.Parse(rest); err != nil {
			return 2
		}
	case "set-tag", "set-duration":
		if err := fs.Parse(rest); err != nil {
			return 2
		}
		if fs.NArg() != 1 {
			fmt.Fprintf(stderr, "Usage: placecore session %s [-config file] <value>\n", sub)
			return 2
		}
	default:
		fmt.Fprintln(stderr, "Usage: placecore session show|clear|set-tag|set-duration [-config file] [value]")
		return 2
	}

	return withContainer(ctx, *configPath, stderr, func(c *bootstrap.Container) error {
		switch sub {
		case "clear":
			if err := c.Session.Clear(ctx, session.ReasonExplicit); err != nil {
				return err
			}
		case "set-tag":
			if err := c.Session.SetOwnerTag(ctx, fs.Arg(0)); err != nil {
				return err
			}
		case "set-duration":
			d, err := time.ParseDuration(fs.Arg(0))
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			if err := c.Session.SetSessionDuration(ctx, d); err != nil {
				if errors.Is(err, session.ErrInvalidDuration) {
					return fmt.Errorf("duration must be positive: %s", d)
				}
				return err
			}
		}
		st, err := c.Session.State(ctx)
		if err != nil {
			return err
		}
		return printJSON(stdout, st)
	})
}
