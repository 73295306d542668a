package realtime

import (
	"io"
	"time"

	"github.com/smallnest/ringbuffer"
)

// wireSampleRate is the fixed PCM16 sample rate of the wire protocol.
const wireSampleRate = 24_000

// AudioIO bridges the caller's audio devices and the session's wire
// format. The user side runs at the configured local sample rate, the
// agent side at the wire's 24kHz; both directions resample in between.
type AudioIO struct {
	agentBuffer       *ringbuffer.RingBuffer
	userBuffer        *ringbuffer.RingBuffer
	userInputWriter   io.Writer // userInputWriter is where to write audio to the agent.
	userOutputReader  io.Reader // userOutputReader is where to read audio from the agent.
	agentInputReader  io.Reader // agentInputReader is where to read audio from the user.
	agentOutputWriter io.Writer // agentOutputWriter is where to write audio to the user.
}

// ClearOutputBuffer drops all buffered agent audio, e.g. when the user
// starts speaking over the agent.
func (io *AudioIO) ClearOutputBuffer() {
	io.agentBuffer.Reset()
}

// Close unblocks readers on both buffers so pump goroutines can exit.
func (io *AudioIO) Close() {
	io.userBuffer.CloseWriter()
	io.agentBuffer.CloseWriter()
}

func NewAudioIO(userSampleRate int, latency time.Duration) *AudioIO {

	userBufferSize := getChunkSize(wireSampleRate, latency, 2, 1) * 2
	userBuffer := ringbuffer.New(userBufferSize).SetBlocking(true)

	agentBufferSize := getChunkSize(wireSampleRate, 60*time.Second, 2, 1) * 2
	agentBuffer := ringbuffer.New(agentBufferSize).SetBlocking(true)

	return &AudioIO{
		// agent
		agentBuffer:      agentBuffer,
		userBuffer:       userBuffer,
		agentInputReader: newChunkReader(userBuffer, wireSampleRate, latency),
		agentOutputWriter: &ResampleWriter{
			Sink:      agentBuffer,
			FromRate:  wireSampleRate,
			ToRate:    userSampleRate,
			Resampler: LinearResampler{},
		},
		// user
		userOutputReader: newChunkReader(agentBuffer, userSampleRate, latency),
		userInputWriter: &ResampleWriter{
			Sink:      userBuffer,
			FromRate:  userSampleRate,
			ToRate:    wireSampleRate,
			Resampler: LinearResampler{},
		},
	}
}

func newChunkReader(r io.Reader, sampleRate int, latency time.Duration) io.Reader {
	return NewFixedAudioChunkReader(r, sampleRate, latency, 2, 1)
}
