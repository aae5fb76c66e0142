package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/james-see/sonivoxrender/pkg/api"
	"github.com/james-see/sonivoxrender/pkg/config"
	"github.com/james-see/sonivoxrender/pkg/eas"
	"github.com/james-see/sonivoxrender/pkg/pcm"
	"github.com/james-see/sonivoxrender/pkg/renderer"
	"github.com/james-see/sonivoxrender/pkg/tui"
)

// rootOptions holds flag values and the collaborators the commands call.
type rootOptions struct {
	stdout io.Writer
	stderr io.Writer

	openLibrary func(name string) (eas.Library, error)
	runTUI      func(tui.Options) error
	serve       func(lib eas.Library, cfg config.Config, opts renderer.Options) error

	configPath  string
	engine      string
	output      string
	showVersion bool
	port        int
	flags       config.Config
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sonivoxrender [flags] file.mid ...",
		Short: "Render standard MIDI files into raw PCM audio",
		Long: `sonivoxrender renders standard MIDI files into raw 16-bit little-endian
interleaved PCM on stdout, one file after another.

Settings come from built-in defaults, then the config file, then
SONIVOXRENDER_* environment variables, then flags.

Examples:
  sonivoxrender -d gm.sf2 song.mid > song.pcm
  sonivoxrender -d gm.sf2 -r 1 -w 20000 song.mid | aplay -f S16_LE -c 2 -r 22050
  sonivoxrender -d gm.sf2 -o song.wav song.mid
  sonivoxrender serve --port 8080
  sonivoxrender tui`,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          opts.runRender,
	}
	cmd.SetOut(opts.stdout)
	cmd.SetErr(opts.stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "", err)
	})

	def := config.Default()
	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.flags.DLS, "dls", "d", "", "DLS or SoundFont instrument collection")
	pf.IntVarP(&opts.flags.Reverb, "reverb", "r", def.Reverb, "reverb preset: 0=no, 1=large hall, 2=hall, 3=chamber, 4=room")
	pf.IntVarP(&opts.flags.Wet, "wet", "w", def.Wet, "reverb wet: 0..32767")
	pf.IntVarP(&opts.flags.Dry, "dry", "n", def.Dry, "reverb dry: 0..32767")
	pf.IntVarP(&opts.flags.Chorus, "chorus", "c", def.Chorus, "chorus preset: 0=no, 1..4=presets")
	pf.IntVarP(&opts.flags.Level, "level", "l", def.Level, "chorus level: 0..32767")
	pf.IntVarP(&opts.flags.Gain, "gain", "g", def.Gain, "master gain: 0..100")
	pf.IntVarP(&opts.flags.Verbosity, "Verbosity", "V", def.Verbosity,
		"verbosity: 0=no, 1=fatals, 2=errors, 3=warnings, 4=infos, 5=details")
	pf.StringVar(&opts.configPath, "config", "", "config file (default is the user config dir)")
	pf.StringVar(&opts.engine, "engine", "",
		fmt.Sprintf("synthesizer engine: %s (default %q)", strings.Join(eas.Engines(), ", "), def.Engine))

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write to a file instead of stdout; a .wav name adds a WAV header")
	cmd.Flags().BoolVarP(&opts.showVersion, "version", "v", false, "print the synthesizer library version")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newTUICmd(opts))
	cmd.AddCommand(newPresetsCmd(opts))
	return cmd
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			lib, err := opts.library(cfg.Engine)
			if err != nil {
				return err
			}
			fmt.Fprintf(opts.stderr, "Starting API server on port %d (engine %s)...\n", cfg.Port, cfg.Engine)
			if err := opts.serve(lib, cfg, opts.renderOptions(cfg)); err != nil {
				return WrapExitError(ExitFailure, "server error", err)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&opts.port, "port", "p", config.Default().Port, "Server port")
	return cmd
}

func newTUICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Launch interactive terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			if _, err := opts.library(cfg.Engine); err != nil {
				return err
			}
			return opts.runTUI(tui.Options{
				Library:  func() (eas.Library, error) { return opts.openLibrary(cfg.Engine) },
				Settings: cfg.Settings(),
			})
		},
	}
}

func newPresetsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the reverb and chorus presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			for _, group := range []struct {
				name  string
				names []string
			}{
				{"reverb", eas.ReverbPresetNames},
				{"chorus", eas.ChorusPresetNames},
			} {
				fmt.Fprintf(w, "%s presets:\n", group.name)
				for _, p := range api.Presets(group.names) {
					fmt.Fprintf(w, "  %d  %s\n", p.ID, p.Name)
				}
			}
			return nil
		},
	}
}

func (o *rootOptions) runRender(cmd *cobra.Command, args []string) error {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return err
	}
	lib, err := o.library(cfg.Engine)
	if err != nil {
		return err
	}
	if o.showVersion {
		return o.printVersion(cmd.OutOrStdout(), lib)
	}
	if len(args) == 0 {
		return NewExitError(ExitCommandError, "at least one MIDI file is required (see --help)")
	}

	ropts := o.renderOptions(cfg)
	out, closeOut, err := o.openOutput(lib, ropts.Logger)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to create output", err)
	}
	err = renderer.Run(lib, cfg.Settings(), args, out, ropts)
	if cerr := closeOut(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close output: %w", cerr)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "", err)
	}
	return nil
}

// loadConfig layers the changed flags over the file and environment config
// and validates the result.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, WrapExitError(ExitCommandError, "", err)
	}

	f := cmd.Flags()
	set := func(name string, dst *int, v int) {
		if f.Changed(name) {
			*dst = v
		}
	}
	if f.Changed("dls") {
		cfg.DLS = o.flags.DLS
	}
	set("gain", &cfg.Gain, o.flags.Gain)
	set("reverb", &cfg.Reverb, o.flags.Reverb)
	set("wet", &cfg.Wet, o.flags.Wet)
	set("dry", &cfg.Dry, o.flags.Dry)
	set("chorus", &cfg.Chorus, o.flags.Chorus)
	set("level", &cfg.Level, o.flags.Level)
	set("Verbosity", &cfg.Verbosity, o.flags.Verbosity)
	if f.Changed("engine") {
		cfg.Engine = o.engine
	}
	set("port", &cfg.Port, o.port)

	if err := cfg.Validate(); err != nil {
		return cfg, WrapExitError(ExitCommandError, "", err)
	}
	return cfg, nil
}

func (o *rootOptions) library(engine string) (eas.Library, error) {
	lib, err := o.openLibrary(engine)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "", err)
	}
	return lib, nil
}

func (o *rootOptions) renderOptions(cfg config.Config) renderer.Options {
	return renderer.Options{
		Logger:      renderer.NewLogger(o.stderr, cfg.Verbosity),
		DebugOutput: o.stderr,
	}
}

func (o *rootOptions) printVersion(w io.Writer, lib eas.Library) error {
	cfg := lib.Config()
	if cfg == nil {
		return NewExitError(ExitFailure, "failed to get the library configuration")
	}
	fmt.Fprintf(w, "version: %s\n", cfg.Version())
	fmt.Fprintf(w, "sonivoxrender %s (commit: %s, built: %s)\n", version, commit, date)
	return nil
}

// openOutput returns stdout, or the file named by --output.
func (o *rootOptions) openOutput(lib eas.Library, log *slog.Logger) (io.Writer, func() error, error) {
	if o.output == "" {
		return o.stdout, func() error { return nil }, nil
	}
	if strings.EqualFold(filepath.Ext(o.output), ".wav") {
		cfg := lib.Config()
		if cfg == nil {
			return nil, nil, errors.New("failed to get the library configuration")
		}
		w, err := pcm.CreateWAV(o.output, pcm.Format{SampleRate: cfg.SampleRate, Channels: cfg.NumChannels})
		if err != nil {
			return nil, nil, err
		}
		return w, func() error {
			if err := w.Close(); err != nil {
				return err
			}
			log.Info("wrote WAV file", "path", o.output, "format", w.Format().String(), "frames", w.Frames())
			return nil
		}, nil
	}
	f, err := os.Create(o.output)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
