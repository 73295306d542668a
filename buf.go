package realtime

import (
	"fmt"
	"io"
	"time"
)

// FixedChunkReader re-slices an arbitrary byte stream into chunks of a
// fixed size. Only the final chunk before EOF may be shorter. The audio
// pump relies on this to send uniform latency-sized frames regardless of
// how the source fragments its writes.
type FixedChunkReader struct {
	src       io.Reader
	pending   []byte
	chunkSize int
	eof       bool
}

func NewFixedChunkReader(src io.Reader, chunkSize int) *FixedChunkReader {
	return &FixedChunkReader{
		src:       src,
		chunkSize: chunkSize,
		pending:   make([]byte, 0, chunkSize*2),
	}
}

// NewFixedAudioChunkReader sizes the chunk to one latency window of PCM
// at the given sample rate.
func NewFixedAudioChunkReader(src io.Reader, sampleRate int, latency time.Duration, bytesPerSample, channels int) *FixedChunkReader {
	return NewFixedChunkReader(src, getChunkSize(sampleRate, latency, bytesPerSample, channels))
}

// getChunkSize is the byte length of one window of PCM audio.
func getChunkSize(sampleRate int, window time.Duration, bytesPerSample, channels int) int {
	frames := int(float64(sampleRate) * window.Seconds())
	return frames * bytesPerSample * channels
}

// Read emits one chunk per call. p must have room for a full chunk.
func (f *FixedChunkReader) Read(p []byte) (int, error) {
	if len(p) < f.chunkSize {
		return 0, fmt.Errorf("buffer passed to Read must be at least %d bytes", f.chunkSize)
	}

	for len(f.pending) < f.chunkSize && !f.eof {
		tmp := make([]byte, f.chunkSize)
		n, err := f.src.Read(tmp)
		f.pending = append(f.pending, tmp[:n]...)
		if err == io.EOF {
			f.eof = true
			break
		}
		if err != nil {
			return 0, err
		}
	}

	if len(f.pending) == 0 && f.eof {
		return 0, io.EOF
	}

	n := min(f.chunkSize, len(f.pending))
	copy(p, f.pending[:n])
	f.pending = f.pending[n:]
	return n, nil
}
