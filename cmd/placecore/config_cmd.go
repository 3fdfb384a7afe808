// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"

	"github.com/ManuGH/placecore/internal/config"
	"gopkg.in/yaml.v3"
)

func runConfigCLI(args []string, stdout, stderr io.Writer) int {
	sub, rest := splitSubcommand(args)
	switch sub {
	case "validate":
		return runConfigValidate(rest, stdout, stderr)
	case "dump":
		return runConfigDump(rest, stdout, stderr)
	default:
		fmt.Fprintln(stderr, "Usage:")
		fmt.Fprintln(stderr, "  placecore config validate [-config file]")
		fmt.Fprintln(stderr, "  placecore config dump [-config file] [-format yaml|json]")
		return 2
	}
}

func runConfigValidate(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("placecore config validate", stderr)
	configPath := fs.String("config", "", "path to config file (YAML)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if _, err := config.NewLoader(*configPath).Load(); err != nil {
		fmt.Fprintf(stderr, "Configuration error:\n  %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, "configuration is valid")
	return 0
}

func runConfigDump(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("placecore config dump", stderr)
	configPath := fs.String("config", "", "path to config file (YAML)")
	format := fs.String("format", "yaml", "output format: yaml or json")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.NewLoader(*configPath).Load()
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error:\n  %v\n", err)
		return 1
	}
	masked := config.MaskSecrets(cfg)

	switch *format {
	case "json":
		err = printJSON(stdout, masked)
	case "yaml":
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		err = enc.Encode(masked)
		if err == nil {
			err = enc.Close()
		}
	default:
		fmt.Fprintf(stderr, "unknown format %q\n", *format)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
