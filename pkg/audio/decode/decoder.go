// ABOUTME: Decoder interface definition and payload dispatch
// ABOUTME: Maps text-to-speech payloads to the matching decoder
package decode

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"strconv"
	"strings"

	"github.com/kisandost/kisandost-go/pkg/audio"
)

var (
	// ErrAudioUnavailable means the speech service returned no playable payload
	ErrAudioUnavailable = errors.New("audio unavailable")

	// ErrDecodeFailure means the payload could not be decoded into samples
	ErrDecodeFailure = errors.New("audio decode failed")
)

// Decoder decodes encoded audio into a sample buffer
type Decoder interface {
	// Decode converts encoded audio data to normalized samples
	Decode(data []byte) (*audio.SampleBuffer, error)

	// Close releases decoder resources
	Close() error
}

// Base64PCM decodes a base64 payload of 16-bit LE mono PCM at 24kHz
func Base64PCM(payload string) (*audio.SampleBuffer, error) {
	if strings.TrimSpace(payload) == "" {
		return nil, ErrAudioUnavailable
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", ErrDecodeFailure, err)
	}

	dec, err := NewPCM(audio.SpeechFormat)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	return dec.Decode(data)
}

// Payload decodes raw audio bytes according to their MIME type.
// PCM types may carry a rate parameter (audio/L16;codec=pcm;rate=24000).
func Payload(mimeType string, data []byte) (*audio.SampleBuffer, error) {
	if len(data) == 0 {
		return nil, ErrAudioUnavailable
	}

	format, err := FormatFromMIME(mimeType)
	if err != nil {
		return nil, err
	}

	var dec Decoder
	switch format.Codec {
	case "pcm":
		dec, err = NewPCM(format)
	case "mp3":
		dec, err = NewMP3(format)
	}
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	return dec.Decode(data)
}

// FormatFromMIME derives an audio format from a blob MIME type
func FormatFromMIME(mimeType string) (audio.Format, error) {
	if mimeType == "" {
		return audio.SpeechFormat, nil
	}

	mediaType, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return audio.Format{}, fmt.Errorf("%w: bad mime type %q: %v", ErrDecodeFailure, mimeType, err)
	}

	switch mediaType {
	case "audio/l16", "audio/pcm", "audio/x-pcm":
		format := audio.SpeechFormat
		if rate, ok := params["rate"]; ok {
			n, err := strconv.Atoi(rate)
			if err != nil || n <= 0 {
				return audio.Format{}, fmt.Errorf("%w: bad sample rate %q", ErrDecodeFailure, rate)
			}
			format.SampleRate = n
		}
		if ch, ok := params["channels"]; ok {
			n, err := strconv.Atoi(ch)
			if err != nil || n <= 0 {
				return audio.Format{}, fmt.Errorf("%w: bad channel count %q", ErrDecodeFailure, ch)
			}
			format.Channels = n
		}
		return format, nil

	case "audio/mpeg", "audio/mp3":
		return audio.Format{Codec: "mp3", SampleRate: audio.SampleRate, Channels: audio.Channels, BitDepth: 16}, nil
	}

	return audio.Format{}, fmt.Errorf("%w: unsupported audio type %q", ErrDecodeFailure, mediaType)
}
