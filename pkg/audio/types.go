// ABOUTME: Audio type definitions
// ABOUTME: Defines the speech format and the decoded sample buffer
package audio

import (
	"math"
	"time"
)

const (
	// SampleRate is the rate of all speech audio (Hz)
	SampleRate = 24000
	// Channels is the channel count of speech audio (mono)
	Channels = 1
	// BitDepth is the bit depth of encoded speech PCM
	BitDepth = 16

	int16Scale = 32768.0
)

// Format describes an audio stream format
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
}

// SpeechFormat is the format produced by the text-to-speech service
var SpeechFormat = Format{
	Codec:      "pcm",
	SampleRate: SampleRate,
	Channels:   Channels,
	BitDepth:   BitDepth,
}

// SampleBuffer holds decoded PCM audio as normalized floats in [-1, 1]
type SampleBuffer struct {
	SampleRate int
	Channels   int
	Samples    []float32 // interleaved, len = frames * channels
}

// NewSampleBuffer creates a buffer, defaulting to the speech format
func NewSampleBuffer(samples []float32, sampleRate, channels int) *SampleBuffer {
	if sampleRate <= 0 {
		sampleRate = SampleRate
	}
	if channels <= 0 {
		channels = Channels
	}
	return &SampleBuffer{
		SampleRate: sampleRate,
		Channels:   channels,
		Samples:    samples,
	}
}

// Frames returns the number of frames in the buffer
func (b *SampleBuffer) Frames() int {
	if b == nil || b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the buffer length in seconds
func (b *SampleBuffer) Duration() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// DurationTime returns the buffer length as a time.Duration
func (b *SampleBuffer) DurationTime() time.Duration {
	return time.Duration(b.Duration() * float64(time.Second))
}

// FrameAt converts a position in seconds to a frame index clamped to the buffer
func (b *SampleBuffer) FrameAt(seconds float64) int {
	if b == nil || seconds <= 0 {
		return 0
	}
	frame := int(math.Floor(seconds * float64(b.SampleRate)))
	if n := b.Frames(); frame > n {
		return n
	}
	return frame
}

// SampleFromInt16 converts a signed 16-bit sample to a normalized float
func SampleFromInt16(sample int16) float32 {
	return float32(float64(sample) / int16Scale)
}

// SampleToInt16 converts a normalized float to a signed 16-bit sample with clipping
func SampleToInt16(sample float32) int16 {
	scaled := math.Round(float64(sample) * int16Scale)
	if scaled > math.MaxInt16 {
		return math.MaxInt16
	}
	if scaled < math.MinInt16 {
		return math.MinInt16
	}
	return int16(scaled)
}
