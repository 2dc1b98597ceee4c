// ABOUTME: Audio output package for playing speech
// ABOUTME: Provides Device and Unit interfaces with oto and silent implementations
// Package output provides audio playback devices.
//
// A Device owns the hardware clock and creates a Unit for every started
// playback. Units are one-shot: seeking or resuming creates a new one.
//
// Example:
//
//	dev, err := output.NewOto()
//	unit, err := dev.NewUnit(buf, 0, 1.0, 0.8)
//	unit.SetSpeed(1.5)
//	unit.Stop()
package output
