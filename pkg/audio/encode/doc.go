// ABOUTME: Audio encoder package for writing sample buffers as bytes
// ABOUTME: Provides 16-bit PCM conversion and WAV files
// Package encode turns normalized float32 samples back into bytes.
//
// PCM16 fills an output buffer for the audio device, and WriteWAV saves a
// whole SampleBuffer so a guide can be replayed without a connection:
//
//	n := encode.PCM16(dst, samples)
//	err := encode.WriteWAV(f, buf)
package encode
