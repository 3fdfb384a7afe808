// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command placecore runs and inspects the placement persistence core.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ManuGH/placecore/internal/app/bootstrap"
	"github.com/ManuGH/placecore/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 2
	}
	switch args[0] {
	case "serve":
		return runServe(ctx, args[1:], stderr)
	case "session":
		return runSessionCLI(ctx, args[1:], stdout, stderr)
	case "events":
		return runEventsCLI(ctx, args[1:], stdout, stderr)
	case "fetch":
		return runFetch(ctx, args[1:], stdout, stderr)
	case "fonts":
		return runFontsCLI(ctx, args[1:], stdout, stderr)
	case "config":
		return runConfigCLI(args[1:], stdout, stderr)
	case "version", "--version", "-version":
		fmt.Fprintln(stdout, version.String())
		return 0
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", args[0])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  placecore serve   [-config file]")
	fmt.Fprintln(w, "  placecore session show|clear|set-tag|set-duration [-config file] [args]")
	fmt.Fprintln(w, "  placecore events  triggered|untriggered|flush|clear [-config file]")
	fmt.Fprintln(w, "  placecore fetch   [-config file] [-body json] [url]")
	fmt.Fprintln(w, "  placecore fonts   list|evict [-config file]")
	fmt.Fprintln(w, "  placecore config  validate|dump [-config file]")
	fmt.Fprintln(w, "  placecore version")
}

// withContainer wires the services for one CLI command and closes them after.
func withContainer(ctx context.Context, configPath string, stderr io.Writer, fn func(*bootstrap.Container) error) int {
	c, err := bootstrap.WireServices(ctx, version.Version, configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	runErr := fn(c)

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.Close(closeCtx); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		fmt.Fprintf(stderr, "Error: %v\n", runErr)
		return 1
	}
	return 0
}

func runServe(ctx context.Context, args []string, stderr io.Writer) int {
	fs := newFlagSet("placecore serve", stderr)
	configPath := fs.String("config", "", "path to config file (YAML)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	return withContainer(ctx, *configPath, stderr, func(c *bootstrap.Container) error {
		if err := c.Start(ctx); err != nil {
			return err
		}
		c.Logger.Info().Str("event", "serve.started").Msg("placecore running")
		<-ctx.Done()
		c.Logger.Info().Str("event", "serve.stopping").Msg("shutting down")
		return nil
	})
}
