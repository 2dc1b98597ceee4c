// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, SampleBuffer and sample conversion functions
// Package audio provides the audio types shared by the decoder, output and
// playback packages.
//
// Speech audio arrives as 16-bit little-endian mono PCM at 24 kHz and is held
// in memory as a SampleBuffer of normalized float32 samples:
//
//	buf := audio.NewSampleBuffer(samples, audio.SampleRate, audio.Channels)
//	fmt.Printf("%.1fs\n", buf.Duration())
//
//	// Convert a 16-bit sample to the normalized range
//	f := audio.SampleFromInt16(sample16)
package audio
