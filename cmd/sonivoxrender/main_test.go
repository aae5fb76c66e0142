package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/james-see/sonivoxrender/pkg/config"
	"github.com/james-see/sonivoxrender/pkg/eas"
	"github.com/james-see/sonivoxrender/pkg/eas/fake"
	"github.com/james-see/sonivoxrender/pkg/renderer"
	"github.com/james-see/sonivoxrender/pkg/tui"
)

// one fake render: 4 buffers of 128 stereo frames
const songBytes = 4 * 128 * 2 * 2

type harness struct {
	lib     *fake.Library
	opts    *rootOptions
	stdout  bytes.Buffer
	stderr  bytes.Buffer
	tuiOpts *tui.Options
	served  *config.Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	t.Setenv("APPDATA", dir)

	h := &harness{lib: fake.NewLibrary()}
	h.opts = &rootOptions{
		stdout: &h.stdout,
		stderr: &h.stderr,
		openLibrary: func(name string) (eas.Library, error) {
			if name != "melty" {
				return nil, fmt.Errorf("unknown engine %q (available: melty)", name)
			}
			return h.lib, nil
		},
		runTUI: func(o tui.Options) error {
			h.tuiOpts = &o
			return nil
		},
		serve: func(_ eas.Library, cfg config.Config, _ renderer.Options) error {
			h.served = &cfg
			return nil
		},
	}
	return h
}

func (h *harness) execute(args ...string) int {
	cmd := newRootCmd(h.opts)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(&h.stderr, err)
		return GetExitCode(err)
	}
	return ExitSuccess
}

func writeMIDI(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("MThd"), 0o644))
	return path
}

func TestRootCommandStructure(t *testing.T) {
	cmd := newRootCmd(newHarness(t).opts)
	assert.Equal(t, "sonivoxrender", cmd.Name())

	for _, name := range []string{"serve", "tui", "presets"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
}

func TestRootFlags(t *testing.T) {
	cmd := newRootCmd(newHarness(t).opts)

	tests := []struct {
		name      string
		shorthand string
		def       string
	}{
		{"dls", "d", ""},
		{"reverb", "r", "0"},
		{"wet", "w", "32767"},
		{"dry", "n", "0"},
		{"chorus", "c", "0"},
		{"level", "l", "32767"},
		{"gain", "g", "90"},
		{"Verbosity", "V", "3"},
		{"version", "v", "false"},
		{"output", "o", ""},
		{"config", "", ""},
		{"engine", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := cmd.Flags().Lookup(tt.name)
			if f == nil {
				f = cmd.PersistentFlags().Lookup(tt.name)
			}
			require.NotNil(t, f)
			assert.Equal(t, tt.shorthand, f.Shorthand)
			assert.Equal(t, tt.def, f.DefValue)
		})
	}

	serve, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)
	port := serve.Flags().Lookup("port")
	require.NotNil(t, port)
	assert.Equal(t, "8080", port.DefValue)
}

func TestRenderToStdout(t *testing.T) {
	h := newHarness(t)

	code := h.execute(writeMIDI(t, "a.mid"), writeMIDI(t, "b.mid"))
	require.Equal(t, ExitSuccess, code, h.stderr.String())

	assert.Equal(t, 2*songBytes, h.stdout.Len())
	assert.Len(t, h.lib.Synth.CallsOf(fake.OpOpen), 2)
	assert.Contains(t, h.lib.Synth.Calls, "set-volume 90")
	assert.Equal(t, 1, h.lib.Inits)
	assert.Equal(t, 1, h.lib.Synth.Shutdowns)
}

func TestSettingsPrecedence(t *testing.T) {
	h := newHarness(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("gain: 70\nreverb: 2\nchorus: 3\n"), 0o644))
	t.Setenv("SONIVOXRENDER_WET", "1000")

	code := h.execute("--config", cfgPath, "-g", "50", "--reverb", "1", writeMIDI(t, "a.mid"))
	require.Equal(t, ExitSuccess, code, h.stderr.String())

	// gain and reverb from flags, wet from the environment, chorus from the file
	calls := h.lib.Synth.Calls
	assert.Contains(t, calls, "set-volume 50")
	assert.Contains(t, calls, "set reverb.preset 0")
	assert.Contains(t, calls, "set reverb.wet 1000")
	assert.Contains(t, calls, "set chorus.preset 2")
	assert.Contains(t, calls, "set reverb.bypass 0")
}

func TestFlagsOverrideInvalidLayers(t *testing.T) {
	h := newHarness(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("reverb: 9\n"), 0o644))
	t.Setenv("SONIVOXRENDER_GAIN", "200")

	code := h.execute("--config", cfgPath, "-g", "50", "-r", "2", writeMIDI(t, "a.mid"))
	require.Equal(t, ExitSuccess, code, h.stderr.String())
	assert.Contains(t, h.lib.Synth.Calls, "set-volume 50")
	assert.Contains(t, h.lib.Synth.Calls, "set reverb.preset 1")
	assert.Equal(t, songBytes, h.stdout.Len())

	// without the flag the environment value is rejected
	h = newHarness(t)
	t.Setenv("SONIVOXRENDER_GAIN", "200")
	assert.Equal(t, ExitCommandError, h.execute(writeMIDI(t, "a.mid")))
	assert.Contains(t, h.stderr.String(), "invalid playback gain: 200 (must be 0..100)")
	assert.Zero(t, h.lib.Inits)
}

func TestRenderToRawFile(t *testing.T) {
	h := newHarness(t)
	out := filepath.Join(t.TempDir(), "song.pcm")

	code := h.execute("-o", out, writeMIDI(t, "a.mid"))
	require.Equal(t, ExitSuccess, code, h.stderr.String())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Len(t, data, songBytes)
	assert.Zero(t, h.stdout.Len())
}

func TestRenderToWAVFile(t *testing.T) {
	h := newHarness(t)
	out := filepath.Join(t.TempDir(), "nested", "song.WAV")

	code := h.execute("--output", out, writeMIDI(t, "a.mid"))
	require.Equal(t, ExitSuccess, code, h.stderr.String())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Greater(t, len(data), 44)
	assert.Equal(t, "RIFF", string(data[:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
}

func TestRenderToWAVFileLogsFrames(t *testing.T) {
	h := newHarness(t)
	out := filepath.Join(t.TempDir(), "song.wav")

	code := h.execute("-V", "4", "-o", out, writeMIDI(t, "a.mid"))
	require.Equal(t, ExitSuccess, code, h.stderr.String())
	assert.Contains(t, h.stderr.String(), "wrote WAV file")
	assert.Contains(t, h.stderr.String(), "frames=512")
	assert.Contains(t, h.stderr.String(), `format="s16le 22050 Hz 2 ch"`)
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args func(t *testing.T) []string
		want string
	}{
		{"no files", func(*testing.T) []string { return nil }, "at least one MIDI file is required"},
		{"reverb out of range", func(t *testing.T) []string {
			return []string{"-r", "5", writeMIDI(t, "a.mid")}
		}, "invalid reverb preset: 5"},
		{"gain out of range", func(t *testing.T) []string {
			return []string{"--gain", "101", writeMIDI(t, "a.mid")}
		}, "invalid playback gain: 101"},
		{"not a number", func(t *testing.T) []string {
			return []string{"-w", "lots", writeMIDI(t, "a.mid")}
		}, "invalid argument"},
		{"unknown flag", func(t *testing.T) []string {
			return []string{"--bogus", writeMIDI(t, "a.mid")}
		}, "unknown flag: --bogus"},
		{"unknown engine", func(t *testing.T) []string {
			return []string{"--engine", "fluid", writeMIDI(t, "a.mid")}
		}, `unknown engine "fluid"`},
		{"missing config", func(t *testing.T) []string {
			return []string{"--config", filepath.Join(t.TempDir(), "none.yaml"), writeMIDI(t, "a.mid")}
		}, "failed to read config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			code := h.execute(tt.args(t)...)
			assert.Equal(t, ExitCommandError, code)
			assert.Contains(t, h.stderr.String(), tt.want)
			assert.Zero(t, h.lib.Inits)
			assert.Zero(t, h.stdout.Len())
		})
	}
}

func TestRenderFailure(t *testing.T) {
	h := newHarness(t)
	missing := filepath.Join(t.TempDir(), "missing.mid")

	code := h.execute(writeMIDI(t, "a.mid"), missing, writeMIDI(t, "c.mid"))
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, h.stderr.String(), "missing.mid")

	// the first file was already streamed out
	assert.Equal(t, songBytes, h.stdout.Len())
	assert.Len(t, h.lib.Synth.CallsOf(fake.OpOpen), 1)
	assert.Equal(t, 1, h.lib.Synth.Shutdowns)
}

func TestInitFailure(t *testing.T) {
	h := newHarness(t)
	h.lib.InitErr = errors.New("no memory")

	code := h.execute(writeMIDI(t, "a.mid"))
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, h.stderr.String(), "no memory")
}

func TestVersion(t *testing.T) {
	h := newHarness(t)

	code := h.execute("-v")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, h.stdout.String(), "version: 3.6.0.0")
	assert.Zero(t, h.lib.Inits)

	h = newHarness(t)
	h.lib.Cfg = nil
	code = h.execute("--version")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, h.stderr.String(), "failed to get the library configuration")
}

func TestHelp(t *testing.T) {
	h := newHarness(t)

	code := h.execute("--help")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, h.stdout.String(), "renders standard MIDI files")
	assert.Contains(t, h.stdout.String(), "--Verbosity")
	assert.Zero(t, h.lib.Inits)
}

func TestPresetsCommand(t *testing.T) {
	h := newHarness(t)

	code := h.execute("presets")
	require.Equal(t, ExitSuccess, code)
	out := h.stdout.String()
	assert.Contains(t, out, "reverb presets:\n  0  off\n  1  large hall\n")
	assert.Contains(t, out, "  4  room\n")
	assert.Contains(t, out, "chorus presets:\n")
	assert.Contains(t, out, "  4  preset 4\n")
}

func TestServeCommand(t *testing.T) {
	h := newHarness(t)

	code := h.execute("serve", "--port", "9000", "-g", "40")
	require.Equal(t, ExitSuccess, code, h.stderr.String())
	require.NotNil(t, h.served)
	assert.Equal(t, 9000, h.served.Port)
	assert.Equal(t, 40, h.served.Gain)
	assert.Contains(t, h.stderr.String(), "port 9000")

	h = newHarness(t)
	t.Setenv("SONIVOXRENDER_PORT", "70000")
	require.Equal(t, ExitSuccess, h.execute("serve", "-p", "8081"), h.stderr.String())
	assert.Equal(t, 8081, h.served.Port)

	h = newHarness(t)
	assert.Equal(t, ExitCommandError, h.execute("serve", "--port", "70000"))
	assert.Contains(t, h.stderr.String(), "invalid port: 70000")
	assert.Nil(t, h.served)
}

func TestTUICommand(t *testing.T) {
	h := newHarness(t)

	code := h.execute("tui", "-c", "2", "-l", "100")
	require.Equal(t, ExitSuccess, code, h.stderr.String())
	require.NotNil(t, h.tuiOpts)
	assert.Equal(t, 2, h.tuiOpts.Settings.ChorusPreset)
	assert.Equal(t, 100, h.tuiOpts.Settings.ChorusLevel)

	lib, err := h.tuiOpts.Library()
	require.NoError(t, err)
	assert.Same(t, h.lib, lib)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("boom")))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitCommandError, "bad"))))

	err := WrapExitError(ExitFailure, "", errors.New("inner"))
	assert.Equal(t, "inner", err.Error())
	assert.Equal(t, "outer: inner", WrapExitError(ExitFailure, "outer", errors.New("inner")).Error())
}
