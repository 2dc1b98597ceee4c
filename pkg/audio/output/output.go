// ABOUTME: Audio output interface definition
// ABOUTME: Devices own the hardware clock and create one playback unit per play
package output

import (
	"errors"

	"github.com/kisandost/kisandost-go/pkg/audio"
)

// ErrClosed is returned when creating a unit on a closed device
var ErrClosed = errors.New("output device closed")

// Device represents an audio output device with a monotonic clock
type Device interface {
	// NewUnit starts playing buf from offset seconds at the given speed and volume
	NewUnit(buf *audio.SampleBuffer, offset, speed, volume float64) (Unit, error)

	// Now returns the device clock in seconds
	Now() float64

	// Latency is the delay in seconds between starting a unit and hearing it
	Latency() float64

	// Close releases output resources
	Close() error
}

// Unit is a single started playback of a buffer. It cannot be restarted.
type Unit interface {
	// SetSpeed changes the playback rate without restarting
	SetSpeed(speed float64)

	// SetVolume changes the gain (0-1)
	SetVolume(level float64)

	// Stop halts playback and releases the unit
	Stop()
}

// ClampVolume limits a gain to [0, 1]
func ClampVolume(level float64) float64 {
	if level < 0 {
		return 0
	}
	if level > 1 {
		return 1
	}
	return level
}
