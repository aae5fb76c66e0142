//go:build sonivox

package sonivox

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/james-see/sonivoxrender/pkg/eas"
)

func writeSong(t *testing.T) string {
	t.Helper()
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(480)
	var tr smf.Track
	tr.Add(0, smf.Message([]byte{0xFF, 0x51, 0x03, 0x07, 0xA1, 0x20}))
	tr.Add(0, midi.NoteOn(0, 60, 100))
	tr.Add(480, midi.NoteOff(0, 60))
	tr.Close(0)
	require.NoError(t, s.Add(tr))

	var buf bytes.Buffer
	_, err := s.WriteTo(&buf)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "song.mid")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestRenderSong(t *testing.T) {
	lib := New()
	lib.SetDebugFile(io.Discard, true)
	lib.SetDebugLevel(0)

	cfg := lib.Config()
	require.NotNil(t, cfg)
	assert.Positive(t, cfg.MixBufferSize)

	synth, err := lib.Init()
	require.NoError(t, err)
	require.NotNil(t, synth)
	defer synth.Shutdown()

	require.NoError(t, synth.SetVolume(90))
	require.NoError(t, synth.SetParameter(eas.ModuleReverb, eas.ReverbBypass, 1))

	f, err := os.Open(writeSong(t))
	require.NoError(t, err)
	defer f.Close()

	st, err := synth.OpenFile(eas.NewFile(f.Name(), f))
	require.NoError(t, err)
	require.NotNil(t, st)
	require.NoError(t, synth.Prepare(st))

	length, err := synth.ParseMetaData(st)
	require.NoError(t, err)
	assert.InDelta(t, 500, length, 50)

	buf := make([]int16, cfg.BufferSamples())
	buffers := 0
	for ; buffers < 10000; buffers++ {
		state, err := synth.State(st)
		require.NoError(t, err)
		if state.Done() {
			break
		}
		n, err := synth.Render(buf, cfg.MixBufferSize)
		require.NoError(t, err)
		require.Equal(t, cfg.MixBufferSize, n)
	}
	assert.Positive(t, buffers)
	require.NoError(t, synth.CloseFile(st))
}
