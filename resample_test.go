package realtime

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func pcm16(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestLinearResamplerPassthrough(t *testing.T) {
	in := pcm16(1, 2, 3, 4)
	out, err := LinearResampler{}.Resample(in, 24000, 24000)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestLinearResamplerUpsampleDoublesLength(t *testing.T) {
	in := pcm16(0, 1000, 2000, 3000)
	out, err := LinearResampler{}.Resample(in, 24000, 48000)
	require.NoError(t, err)
	require.Len(t, out, len(in)*2)

	// Interpolated midpoints land between the originals.
	second := int16(binary.LittleEndian.Uint16(out[2:]))
	require.InDelta(t, 500, second, 1)
}

func TestLinearResamplerDownsampleHalvesLength(t *testing.T) {
	in := pcm16(0, 100, 200, 300, 400, 500, 600, 700)
	out, err := LinearResampler{}.Resample(in, 48000, 24000)
	require.NoError(t, err)
	require.Len(t, out, len(in)/2)
}

func TestResampleWriterForwardsToSink(t *testing.T) {
	var sink bytes.Buffer
	w := &ResampleWriter{
		Sink:      &sink,
		FromRate:  48000,
		ToRate:    24000,
		Resampler: LinearResampler{},
	}

	in := pcm16(0, 100, 200, 300)
	n, err := w.Write(in)
	require.NoError(t, err)
	require.Equal(t, len(in), n)
	require.Len(t, sink.Bytes(), len(in)/2)
}

func TestBeepResamplerConvertsRate(t *testing.T) {
	in := make([]byte, 2400*2) // 100ms at 24kHz
	out, err := ResamplePCM(in, 24000, 16000)
	require.NoError(t, err)

	// The windowed-sinc resampler trims edges, so allow some slack around
	// the ideal 2/3 length.
	require.InDelta(t, len(in)*2/3, len(out), 64)
}
