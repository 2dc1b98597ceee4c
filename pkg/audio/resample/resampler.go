// ABOUTME: Linear interpolation resampling for mono speech audio
// ABOUTME: Offline rate conversion and a variable-ratio streaming reader
package resample

import (
	"sync"

	"github.com/kisandost/kisandost-go/pkg/audio"
)

// Linear converts mono samples from inRate to outRate using linear interpolation
func Linear(input []float32, inRate, outRate int) []float32 {
	if len(input) == 0 || inRate <= 0 || outRate <= 0 {
		return nil
	}
	if inRate == outRate {
		out := make([]float32, len(input))
		copy(out, input)
		return out
	}

	ratio := float64(inRate) / float64(outRate)
	outLen := int(float64(len(input)) / ratio)
	if outLen == 0 {
		outLen = 1
	}

	out := make([]float32, outLen)
	for i := range out {
		out[i] = interpolate(input, float64(i)*ratio)
	}
	return out
}

// interpolate reads a mono signal at a fractional frame position
func interpolate(input []float32, pos float64) float32 {
	idx := int(pos)
	if idx >= len(input)-1 {
		return input[len(input)-1]
	}
	frac := float32(pos - float64(idx))
	return input[idx]*(1-frac) + input[idx+1]*frac
}

// Stream reads a sample buffer as mono at a ratio that can change while playing.
// A ratio of 1 consumes one input frame per output frame; 1.5 plays 50% faster.
type Stream struct {
	mu       sync.Mutex
	mono     []float32
	position float64
	ratio    float64
	closed   bool
}

// NewStream creates a stream starting at startFrame. Multi-channel input is downmixed.
func NewStream(buf *audio.SampleBuffer, startFrame int, ratio float64) *Stream {
	s := &Stream{ratio: ratio}
	if ratio <= 0 {
		s.ratio = 1
	}
	if buf == nil {
		return s
	}

	s.mono = downmix(buf)
	if startFrame > 0 {
		s.position = float64(min(startFrame, len(s.mono)))
	}
	return s
}

func downmix(buf *audio.SampleBuffer) []float32 {
	if buf.Channels <= 1 {
		return buf.Samples
	}

	frames := buf.Frames()
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for ch := 0; ch < buf.Channels; ch++ {
			sum += buf.Samples[i*buf.Channels+ch]
		}
		mono[i] = sum / float32(buf.Channels)
	}
	return mono
}

// SetRatio changes the consumption rate for subsequent reads
func (s *Stream) SetRatio(ratio float64) {
	if ratio <= 0 {
		return
	}
	s.mu.Lock()
	s.ratio = ratio
	s.mu.Unlock()
}

// Ratio returns the current consumption rate
func (s *Stream) Ratio() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ratio
}

// Read fills out with interpolated samples and returns how many were written.
// Zero means the stream is exhausted or closed.
func (s *Stream) Read(out []float32) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0
	}

	n := 0
	for n < len(out) && s.position < float64(len(s.mono)) {
		out[n] = interpolate(s.mono, s.position)
		s.position += s.ratio
		n++
	}
	return n
}

// Position returns the current input frame
func (s *Stream) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(s.position)
}

// Done reports whether every frame has been consumed or the stream was closed
func (s *Stream) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed || s.position >= float64(len(s.mono))
}

// Close stops the stream; later reads return nothing
func (s *Stream) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
