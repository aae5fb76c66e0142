package melty

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"
)

// defaultTempo is 120 BPM in microseconds per quarter note.
const defaultTempo = 500000

var errSMPTE = errors.New("only metrical time division is supported")

// SongInfo is the metadata of a standard MIDI file.
type SongInfo struct {
	Resolution uint16
	Tracks     int
	LastTick   int64
	Tempos     int
	LengthMS   int32
}

type tempoChange struct {
	tick  int64
	tempo int64 // microseconds per quarter note
}

// ParseSong reads the tempo map and the last event tick of an SMF and
// derives the play length from them.
func ParseSong(data []byte) (*SongInfo, error) {
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIDI: %w", err)
	}

	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, errSMPTE
	}
	info := &SongInfo{Resolution: mt.Resolution(), Tracks: len(s.Tracks)}
	if info.Resolution == 0 {
		return nil, errors.New("MIDI file has a resolution of 0")
	}

	var tempos []tempoChange
	for _, track := range s.Tracks {
		var tick int64
		for _, ev := range track {
			tick += int64(ev.Delta)

			// Tempo meta message: FF 51 03 tt tt tt
			msg := ev.Message
			if len(msg) >= 6 && msg[0] == 0xFF && msg[1] == 0x51 && msg[2] == 0x03 {
				us := int64(msg[3])<<16 | int64(msg[4])<<8 | int64(msg[5])
				if us > 0 {
					tempos = append(tempos, tempoChange{tick: tick, tempo: us})
				}
			}
		}
		if tick > info.LastTick {
			info.LastTick = tick
		}
	}
	info.Tempos = len(tempos)
	info.LengthMS = lengthMS(tempos, info.LastTick, int64(info.Resolution))
	return info, nil
}

// lengthMS converts end ticks to milliseconds across the tempo map.
func lengthMS(tempos []tempoChange, end, resolution int64) int32 {
	sort.SliceStable(tempos, func(i, j int) bool { return tempos[i].tick < tempos[j].tick })

	var acc int64 // tick * microseconds per quarter
	last, tempo := int64(0), int64(defaultTempo)
	for _, tc := range tempos {
		if tc.tick >= end {
			break
		}
		acc += (tc.tick - last) * tempo
		last, tempo = tc.tick, tc.tempo
	}
	acc += (end - last) * tempo

	ms := acc / resolution / 1000
	if ms > int64(^uint32(0)>>1) {
		return int32(^uint32(0) >> 1)
	}
	return int32(ms)
}
