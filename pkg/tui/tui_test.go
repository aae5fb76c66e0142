package tui

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/james-see/sonivoxrender/pkg/eas"
	"github.com/james-see/sonivoxrender/pkg/eas/fake"
	"github.com/james-see/sonivoxrender/pkg/renderer"
)

func fakeOptions(lib *fake.Library) Options {
	return Options{
		Library:  func() (eas.Library, error) { return lib, nil },
		Settings: renderer.DefaultSettings(),
	}
}

func writeMIDI(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "song.mid")
	require.NoError(t, os.WriteFile(path, []byte("MThd"), 0o644))
	return path
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestMenuNavigation(t *testing.T) {
	m := New(fakeOptions(fake.NewLibrary()))
	assert.Equal(t, StateMenu, m.state)
	assert.Contains(t, m.View(), "MIDI → WAV")
	assert.Contains(t, m.View(), "gain 90 • reverb off • chorus off")

	next, _ := m.Update(key("down"))
	m = next.(Model)
	assert.Equal(t, 1, m.menuIndex)

	next, cmd := m.Update(key("enter"))
	m = next.(Model)
	assert.Equal(t, StateFilePicker, m.state)
	assert.Equal(t, FormatRaw, m.item.Format)
	assert.NotNil(t, cmd)

	next, _ = m.Update(key("esc"))
	m = next.(Model)
	assert.Equal(t, StateMenu, m.state)
}

func TestMenuExit(t *testing.T) {
	m := New(fakeOptions(fake.NewLibrary()))
	m.menuIndex = len(menuItems) - 1

	_, cmd := m.Update(key("enter"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestResultView(t *testing.T) {
	m := New(fakeOptions(fake.NewLibrary()))
	m.state = StateRendering
	m.selectedFile = "/music/song.mid"

	next, _ := m.Update(renderDoneMsg{
		outputFile: "/music/song.wav",
		result:     renderer.Result{Frames: 22050, PlayLength: time.Second},
	})
	m = next.(Model)
	assert.Equal(t, StateResult, m.state)
	view := m.View()
	assert.Contains(t, view, "Render complete")
	assert.Contains(t, view, "song.wav")
	assert.Contains(t, view, "22050")
	assert.Contains(t, view, "1s")

	next, _ = m.Update(key("enter"))
	m = next.(Model)
	assert.Equal(t, StateMenu, m.state)
	assert.Empty(t, m.outputFile)

	m.state = StateResult
	m.err = errors.New("boom")
	assert.Contains(t, m.View(), "Render failed: boom")
}

func TestPerformRender(t *testing.T) {
	lib := fake.NewLibrary()
	m := New(fakeOptions(lib))
	m.item = menuItems[1]
	m.selectedFile = writeMIDI(t)

	msg := m.performRender()()
	done, ok := msg.(renderDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)
	assert.Equal(t, filepath.Join(filepath.Dir(m.selectedFile), "song.pcm"), done.outputFile)
	assert.Equal(t, int64(4*128), done.result.Frames)

	data, err := os.ReadFile(done.outputFile)
	require.NoError(t, err)
	assert.Len(t, data, 4*128*2*2)
	assert.Equal(t, 1, lib.Synth.Shutdowns)
}

func TestRenderWAV(t *testing.T) {
	input := writeMIDI(t)
	output := filepath.Join(t.TempDir(), "song.wav")

	res, err := Render(fakeOptions(fake.NewLibrary()), input, output, FormatWAV)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Buffers)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(data[:4]))
}

func TestRenderFailureRemovesOutput(t *testing.T) {
	lib := fake.NewLibrary()
	lib.Synth.PlayLength = 0
	output := filepath.Join(t.TempDir(), "song.pcm")

	_, err := Render(fakeOptions(lib), writeMIDI(t), output, FormatRaw)
	assert.True(t, renderer.IsCode(err, renderer.ErrEmptyPlayLength))
	assert.NoFileExists(t, output)
	assert.Equal(t, 1, lib.Synth.Shutdowns)
}

func TestRenderErrors(t *testing.T) {
	input := writeMIDI(t)
	out := filepath.Join(t.TempDir(), "x")

	_, err := Render(Options{}, input, out, FormatRaw)
	assert.Error(t, err)

	_, err = Render(fakeOptions(fake.NewLibrary()), input, out, "mp3")
	assert.ErrorContains(t, err, "unsupported output format")

	bad := fakeOptions(fake.NewLibrary())
	bad.Settings.PlaybackGain = 500
	_, err = Render(bad, input, out, FormatRaw)
	assert.ErrorContains(t, err, "invalid playback gain")
}
