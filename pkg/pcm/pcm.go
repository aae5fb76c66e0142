// Package pcm converts engine sample buffers to bytes and writes them to
// raw or WAV sinks.
package pcm

import (
	"encoding/binary"
	"fmt"
)

// PutSamples writes src into dst as little-endian 16-bit samples.
// dst must hold at least 2*len(src) bytes.
func PutSamples(dst []byte, src []int16) {
	for i, s := range src {
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(s))
	}
}

// BytesToSamples decodes little-endian 16-bit samples. A trailing odd byte
// is ignored.
func BytesToSamples(b []byte) []int16 {
	samples := make([]int16, len(b)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return samples
}

// Format describes a raw PCM stream.
type Format struct {
	SampleRate int
	Channels   int
}

// FrameBytes is the size of one interleaved frame.
func (f Format) FrameBytes() int {
	return f.Channels * 2
}

func (f Format) String() string {
	return fmt.Sprintf("s16le %d Hz %d ch", f.SampleRate, f.Channels)
}
