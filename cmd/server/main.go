// Package main is the entry point for the sonivoxrender API server
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/james-see/sonivoxrender/pkg/api"
	"github.com/james-see/sonivoxrender/pkg/config"
	"github.com/james-see/sonivoxrender/pkg/eas"
	_ "github.com/james-see/sonivoxrender/pkg/eas/melty"
	"github.com/james-see/sonivoxrender/pkg/renderer"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, api.StartServer))
}

type startFunc func(lib eas.Library, cfg config.Config, opts renderer.Options) error

func run(args []string, stdout, stderr io.Writer, start startFunc) int {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Config file")
	port := fs.Int("port", 0, "Server port (overrides the config file)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Config error: %v\n", err)
		return 2
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "port" {
			cfg.Port = *port
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Config error: %v\n", err)
		return 2
	}

	lib, err := eas.Open(cfg.Engine)
	if err != nil {
		fmt.Fprintf(stderr, "Engine error: %v\n", err)
		return 2
	}

	fmt.Fprintf(stdout, "Starting sonivoxrender API server on port %d (engine %s)...\n", cfg.Port, cfg.Engine)
	fmt.Fprintf(stdout, "Swagger docs available at http://localhost:%d/swagger/index.html\n", cfg.Port)

	opts := renderer.Options{
		Logger:      renderer.NewLogger(stderr, cfg.Verbosity),
		DebugOutput: stderr,
	}
	if err := start(lib, cfg, opts); err != nil {
		fmt.Fprintf(stderr, "Server error: %v\n", err)
		return 1
	}
	return 0
}
