package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ManuGH/placecore/internal/app/bootstrap"
	"github.com/ManuGH/placecore/internal/dispatch"
)

func runFetch(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("placecore fetch", stderr)
	configPath := fs.String("config", "", "path to config file (YAML)")
	body := fs.String("body", "", "JSON request body; switches the request to POST")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	return withContainer(ctx, *configPath, stderr, func(c *bootstrap.Container) error {
		url := fs.Arg(0)
		if url == "" {
			url = c.Config.Layout.Endpoint
		}
		if url == "" {
			return errors.New("no URL given and layout.endpoint is not configured")
		}

		res, err := c.Layout.Fetch(ctx, url, []byte(*body))
		if err != nil {
			var derr *dispatch.Error
			if errors.As(err, &derr) {
				return fmt.Errorf("%s after %d attempt(s)", derr.Message(), derr.Attempts)
			}
			return err
		}
		if _, err := stdout.Write(res.Body); err != nil {
			return err
		}
		c.Logger.Info().
			Bool("from_cache", res.FromCache).
			Int("templates", res.Templates).
			Msg("layout fetched")
		return nil
	})
}
