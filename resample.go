package realtime

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/faiface/beep"
)

// Resampler converts PCM16 between sample rates.
type Resampler interface {
	Resample(pcm []byte, fromRate, toRate int) ([]byte, error)
}

// LinearResampler interpolates samples linearly. Cheap and good enough
// for voice.
type LinearResampler struct{}

func (LinearResampler) Resample(pcm []byte, fromRate, toRate int) ([]byte, error) {
	if fromRate == toRate || len(pcm) < 2 {
		return pcm, nil
	}

	in := make([]int16, len(pcm)/2)
	for i := range in {
		in[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}

	outLen := int(int64(len(in)) * int64(toRate) / int64(fromRate))
	out := make([]byte, outLen*2)
	for i := 0; i < outLen; i++ {
		pos := float64(i) * float64(fromRate) / float64(toRate)
		j := int(pos)
		frac := pos - float64(j)
		s := float64(in[j])
		if j+1 < len(in) {
			s = s*(1-frac) + float64(in[j+1])*frac
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(s)))
	}
	return out, nil
}

// ResampleWriter resamples everything written to it and forwards the
// result to Sink.
type ResampleWriter struct {
	Sink      io.Writer
	FromRate  int
	ToRate    int
	Resampler Resampler
}

func (w *ResampleWriter) Write(p []byte) (int, error) {
	out, err := w.Resampler.Resample(p, w.FromRate, w.ToRate)
	if err != nil {
		return 0, err
	}
	if _, err := w.Sink.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

type PCMStreamer struct {
	data []int16
	pos  int
}

func NewPCMStreamer(b []byte) *PCMStreamer {
	samples := make([]int16, len(b)/2)
	for i := 0; i < len(samples); i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return &PCMStreamer{data: samples}
}

func (s *PCMStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if s.pos >= len(s.data) {
			return i, false
		}
		val := float64(s.data[s.pos]) / 32768.0
		samples[i][0] = val
		samples[i][1] = val // duplicate mono to stereo
		s.pos++
	}
	return len(samples), true
}

func (s *PCMStreamer) Err() error { return nil }

// BeepResampler uses beep's windowed-sinc resampler. Higher quality than
// LinearResampler at higher cost; suited to offline conversion rather
// than the live path.
type BeepResampler struct {
	// Quality is beep's resampling quality factor, 1..64. Zero means 3.
	Quality int
}

func (r BeepResampler) Resample(pcm []byte, fromRate, toRate int) ([]byte, error) {
	if fromRate == toRate {
		return pcm, nil
	}

	quality := r.Quality
	if quality == 0 {
		quality = 3
	}

	streamer := NewPCMStreamer(pcm)
	resampler := beep.Resample(quality, beep.SampleRate(fromRate), beep.SampleRate(toRate), streamer)

	// Buffer to collect the output
	buf := new(bytes.Buffer)
	sample := make([][2]float64, 1024)

	for {
		n, ok := resampler.Stream(sample)
		for i := 0; i < n; i++ {
			mono := (sample[i][0] + sample[i][1]) / 2.0
			int16Val := int16(mono * 32767)
			err := binary.Write(buf, binary.LittleEndian, int16Val)
			if err != nil {
				return nil, err
			}
		}
		if !ok {
			break
		}
	}

	return buf.Bytes(), nil
}

// ResamplePCM converts PCM16 audio between sample rates using the beep
// resampler.
func ResamplePCM(pcmData []byte, fromRate, toRate int) ([]byte, error) {
	return BeepResampler{}.Resample(pcmData, fromRate, toRate)
}
