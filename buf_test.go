package realtime

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetChunkSize(t *testing.T) {
	// 200ms of mono PCM16 at 24kHz.
	require.Equal(t, 9600, getChunkSize(24000, 200*time.Millisecond, 2, 1))
	// 10ms of stereo PCM16 at 48kHz.
	require.Equal(t, 1920, getChunkSize(48000, 10*time.Millisecond, 2, 2))
}

func TestFixedChunkReaderEmitsFullChunks(t *testing.T) {
	src := bytes.NewReader(bytes.Repeat([]byte{0xAB}, 10))
	r := NewFixedChunkReader(src, 4)
	buf := make([]byte, 4)

	n, err := r.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 4, n)

	n, err = r.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 4, n)

	// The tail is shorter than a chunk and emitted as-is.
	n, err = r.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	_, err = r.Read(buf)
	require.ErrorIs(t, err, io.EOF)
}

func TestFixedChunkReaderRejectsSmallBuffer(t *testing.T) {
	r := NewFixedChunkReader(bytes.NewReader(nil), 8)
	_, err := r.Read(make([]byte, 4))
	require.Error(t, err)
}

func TestFixedAudioChunkReaderSizesFromLatency(t *testing.T) {
	data := bytes.Repeat([]byte{0x01}, 9600)
	r := NewFixedAudioChunkReader(bytes.NewReader(data), 24000, 100*time.Millisecond, 2, 1)

	buf := make([]byte, 9600)
	n, err := r.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 4800, n) // 100ms at 24kHz mono PCM16
}
