// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts speech audio between rates and playback speeds
// Package resample provides sample rate conversion and variable speed reading.
//
// Linear converts a whole mono signal between sample rates. Stream reads a
// decoded buffer at a ratio that may change mid-playback, which is how
// playback speed is applied.
//
// Example:
//
//	s := resample.NewStream(buf, 0, 1.5)
//	n := s.Read(out)
package resample
