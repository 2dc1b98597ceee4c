// ABOUTME: Oto-based audio output implementation
// ABOUTME: Plays speech buffers through a single process-wide oto context
package output

import (
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/kisandost/kisandost-go/pkg/audio"
	"github.com/kisandost/kisandost-go/pkg/audio/encode"
	"github.com/kisandost/kisandost-go/pkg/audio/resample"
)

// outputLatency is the device buffer requested from oto
const outputLatency = 60 * time.Millisecond

// oto only allows one context per process
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoErr  error
)

// Oto output implementation using oto library
type Oto struct {
	mu         sync.Mutex
	start      time.Time
	sampleRate int
	units      map[*otoUnit]struct{}
	closed     bool
}

// NewOto opens the audio context at the speech rate, mono
func NewOto() (*Oto, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   audio.SampleRate,
			ChannelCount: 1,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   outputLatency,
		}

		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			otoErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-readyChan
		otoCtx = ctx

		log.Printf("Audio output initialized: %dHz, mono", audio.SampleRate)
	})
	if otoErr != nil {
		return nil, otoErr
	}

	if err := otoCtx.Resume(); err != nil {
		log.Printf("Audio context resume failed: %v", err)
	}

	return &Oto{
		start:      time.Now(),
		sampleRate: audio.SampleRate,
		units:      make(map[*otoUnit]struct{}),
	}, nil
}

// Latency is the oto buffer duration; reported positions trail the clock by this much
func (o *Oto) Latency() float64 {
	return outputLatency.Seconds()
}

// Now returns seconds since the device was opened
func (o *Oto) Now() float64 {
	return time.Since(o.start).Seconds()
}

// NewUnit starts a player reading buf from offset seconds
func (o *Oto) NewUnit(buf *audio.SampleBuffer, offset, speed, volume float64) (Unit, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil, ErrClosed
	}
	if buf == nil || buf.Frames() == 0 {
		return nil, fmt.Errorf("empty sample buffer")
	}

	u := &otoUnit{
		owner:      o,
		bufRate:    buf.SampleRate,
		outputRate: o.sampleRate,
		stream:     resample.NewStream(buf, buf.FrameAt(offset), ratio(speed, buf.SampleRate, o.sampleRate)),
	}
	u.player = otoCtx.NewPlayer(&int16Reader{stream: u.stream})
	u.player.SetVolume(ClampVolume(volume))
	u.player.Play()

	o.units[u] = struct{}{}
	return u, nil
}

// Close stops all units and suspends the shared context
func (o *Oto) Close() error {
	o.mu.Lock()
	units := make([]*otoUnit, 0, len(o.units))
	for u := range o.units {
		units = append(units, u)
	}
	o.closed = true
	o.mu.Unlock()

	for _, u := range units {
		u.Stop()
	}

	if otoCtx != nil {
		return otoCtx.Suspend()
	}
	return nil
}

func (o *Oto) release(u *otoUnit) {
	o.mu.Lock()
	delete(o.units, u)
	o.mu.Unlock()
}

func ratio(speed float64, bufRate, outputRate int) float64 {
	if speed <= 0 {
		speed = 1
	}
	return speed * float64(bufRate) / float64(outputRate)
}

type otoUnit struct {
	owner      *Oto
	player     *oto.Player
	stream     *resample.Stream
	bufRate    int
	outputRate int
	stopOnce   sync.Once
}

func (u *otoUnit) SetSpeed(speed float64) {
	u.stream.SetRatio(ratio(speed, u.bufRate, u.outputRate))
}

func (u *otoUnit) SetVolume(level float64) {
	u.player.SetVolume(ClampVolume(level))
}

func (u *otoUnit) Stop() {
	u.stopOnce.Do(func() {
		u.player.Pause()
		u.stream.Close()
		u.owner.release(u)
	})
}

// int16Reader feeds oto signed 16-bit LE bytes from a stream
type int16Reader struct {
	stream  *resample.Stream
	scratch []float32
}

func (r *int16Reader) Read(p []byte) (int, error) {
	want := len(p) / 2
	if want == 0 {
		return 0, nil
	}
	if cap(r.scratch) < want {
		r.scratch = make([]float32, want)
	}

	n := r.stream.Read(r.scratch[:want])
	if n == 0 {
		return 0, io.EOF
	}

	return encode.PCM16(p, r.scratch[:n]), nil
}
