package main

import (
	"context"
	"fmt"
	"io"

	"github.com/ManuGH/placecore/internal/app/bootstrap"
)

func runEventsCLI(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	sub, rest := splitSubcommand(args)
	switch sub {
	case "triggered", "untriggered", "flush", "clear":
	default:
		fmt.Fprintln(stderr, "Usage: placecore events triggered|untriggered|flush|clear [-config file]")
		return 2
	}
	fs := newFlagSet("placecore events "+sub, stderr)
	configPath := fs.String("config", "", "path to config file (YAML)")
	if err := fs.Parse(rest); err != nil {
		return 2
	}

	return withContainer(ctx, *configPath, stderr, func(c *bootstrap.Container) error {
		switch sub {
		case "triggered":
			list, err := c.Events.TriggeredEvents(ctx)
			if err != nil {
				return err
			}
			return printJSON(stdout, list)
		case "untriggered":
			list, err := c.Events.UntriggeredEvents(ctx)
			if err != nil {
				return err
			}
			return printJSON(stdout, list)
		case "flush":
			return c.Events.Flush(ctx)
		default:
			return c.Events.Clear(ctx)
		}
	})
}
