// ABOUTME: PCM audio decoder
// ABOUTME: Decodes 16-bit little-endian PCM into normalized float samples
package decode

import (
	"encoding/binary"
	"fmt"

	"github.com/kisandost/kisandost-go/pkg/audio"
)

// PCMDecoder decodes PCM audio
type PCMDecoder struct {
	format audio.Format
}

// NewPCM creates a new PCM decoder
func NewPCM(format audio.Format) (Decoder, error) {
	if format.Codec != "pcm" {
		return nil, fmt.Errorf("invalid codec for PCM decoder: %s", format.Codec)
	}

	if format.BitDepth != 16 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16)", format.BitDepth)
	}

	if format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid PCM format: %dHz %dch", format.SampleRate, format.Channels)
	}

	return &PCMDecoder{format: format}, nil
}

// Decode converts PCM bytes to samples, dividing each by 32768
func (d *PCMDecoder) Decode(data []byte) (*audio.SampleBuffer, error) {
	if len(data) == 0 {
		return nil, ErrAudioUnavailable
	}
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("%w: odd PCM byte length %d", ErrDecodeFailure, len(data))
	}

	numSamples := len(data) / 2
	frames := numSamples / d.format.Channels
	if frames == 0 {
		return nil, fmt.Errorf("%w: no complete frames", ErrDecodeFailure)
	}

	// Trailing partial frames are dropped
	samples := make([]float32, frames*d.format.Channels)
	for i := range samples {
		samples[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(data[i*2:])))
	}

	return audio.NewSampleBuffer(samples, d.format.SampleRate, d.format.Channels), nil
}

// Close releases resources
func (d *PCMDecoder) Close() error {
	return nil
}
