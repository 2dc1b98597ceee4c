// ABOUTME: Silent output device for headless hosts and tests
// ABOUTME: Tracks units and volume without producing sound
package output

import (
	"sync"
	"time"

	"github.com/kisandost/kisandost-go/pkg/audio"
)

// Null is an output device that discards audio but keeps real time
type Null struct {
	mu     sync.Mutex
	start  time.Time
	active int
	closed bool
}

// NewNull creates a silent device
func NewNull() *Null {
	return &Null{start: time.Now()}
}

// Now returns seconds since the device was created
func (n *Null) Now() float64 {
	return time.Since(n.start).Seconds()
}

// Latency is zero; nothing is buffered
func (n *Null) Latency() float64 {
	return 0
}

// NewUnit returns a unit that plays nothing
func (n *Null) NewUnit(buf *audio.SampleBuffer, offset, speed, volume float64) (Unit, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil, ErrClosed
	}
	n.active++
	return &nullUnit{owner: n, speed: speed, volume: ClampVolume(volume)}, nil
}

// Active returns the number of units not yet stopped
func (n *Null) Active() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.active
}

// Close marks the device closed
func (n *Null) Close() error {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
	return nil
}

type nullUnit struct {
	mu      sync.Mutex
	owner   *Null
	speed   float64
	volume  float64
	stopped bool
}

func (u *nullUnit) SetSpeed(speed float64) {
	u.mu.Lock()
	u.speed = speed
	u.mu.Unlock()
}

func (u *nullUnit) SetVolume(level float64) {
	u.mu.Lock()
	u.volume = ClampVolume(level)
	u.mu.Unlock()
}

func (u *nullUnit) Stop() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.stopped {
		return
	}
	u.stopped = true

	u.owner.mu.Lock()
	u.owner.active--
	u.owner.mu.Unlock()
}
