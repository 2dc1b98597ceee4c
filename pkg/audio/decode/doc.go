// ABOUTME: Audio decoder package for speech payloads
// ABOUTME: Provides PCM and MP3 decoders producing sample buffers
// Package decode turns text-to-speech payloads into audio.SampleBuffer values.
//
// The speech service returns base64 encoded 16-bit little-endian mono PCM at
// 24 kHz. Each sample is divided by 32768 to land in [-1, 1]:
//
//	buf, err := decode.Base64PCM(payload)
//	if errors.Is(err, decode.ErrAudioUnavailable) {
//	    // nothing to play
//	}
//
// Raw blobs can be dispatched on their MIME type with Payload.
package decode
