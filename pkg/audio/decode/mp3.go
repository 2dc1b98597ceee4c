// ABOUTME: MP3 audio decoder
// ABOUTME: Decodes MP3 speech payloads to mono samples at the speech rate
package decode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
	"github.com/kisandost/kisandost-go/pkg/audio"
	"github.com/kisandost/kisandost-go/pkg/audio/resample"
)

// MP3Decoder decodes MP3 audio
type MP3Decoder struct {
	targetRate int
}

// NewMP3 creates a new MP3 decoder that outputs mono at format.SampleRate
func NewMP3(format audio.Format) (Decoder, error) {
	if format.Codec != "mp3" {
		return nil, fmt.Errorf("invalid codec for MP3 decoder: %s", format.Codec)
	}

	rate := format.SampleRate
	if rate <= 0 {
		rate = audio.SampleRate
	}

	return &MP3Decoder{targetRate: rate}, nil
}

// Decode converts a complete MP3 file to samples
func (d *MP3Decoder) Decode(data []byte) (*audio.SampleBuffer, error) {
	if len(data) == 0 {
		return nil, ErrAudioUnavailable
	}

	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: mp3: %v", ErrDecodeFailure, err)
	}

	// go-mp3 always produces 16-bit stereo
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: mp3 read: %v", ErrDecodeFailure, err)
	}

	frames := len(raw) / 4
	if frames == 0 {
		return nil, fmt.Errorf("%w: mp3 contained no frames", ErrDecodeFailure)
	}

	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		left := audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(raw[i*4:])))
		right := audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(raw[i*4+2:])))
		mono[i] = (left + right) / 2
	}

	if dec.SampleRate() != d.targetRate {
		mono = resample.Linear(mono, dec.SampleRate(), d.targetRate)
	}

	return audio.NewSampleBuffer(mono, d.targetRate, 1), nil
}

// Close releases decoder resources
func (d *MP3Decoder) Close() error {
	return nil
}
