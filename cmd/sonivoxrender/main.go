// Package main is the entry point for the sonivoxrender CLI
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/james-see/sonivoxrender/pkg/api"
	"github.com/james-see/sonivoxrender/pkg/eas"
	_ "github.com/james-see/sonivoxrender/pkg/eas/melty"
	"github.com/james-see/sonivoxrender/pkg/tui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts := &rootOptions{
		stdout:      stdout,
		stderr:      stderr,
		openLibrary: eas.Open,
		runTUI:      tui.Run,
		serve:       api.StartServer,
	}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(stderr, err)
		return GetExitCode(err)
	}
	return ExitSuccess
}
