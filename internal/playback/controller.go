// ABOUTME: Playback controller for spoken guides
// ABOUTME: State machine over one decoded buffer with seek, speed and volume
package playback

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/kisandost/kisandost-go/pkg/audio"
	"github.com/kisandost/kisandost-go/pkg/audio/decode"
	"github.com/kisandost/kisandost-go/pkg/audio/output"
)

// Status is the playback session state
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusPlaying Status = "playing"
	StatusPaused  Status = "paused"
	StatusEnded   Status = "ended"
	StatusError   Status = "error"
)

// Speeds is the ordered set CycleSpeed steps through
var Speeds = []float64{1, 1.25, 1.5, 2}

var (
	// ErrSuperseded means a newer request or a teardown replaced this session
	ErrSuperseded = errors.New("playback request superseded")

	// ErrClosed means the controller has been closed
	ErrClosed = errors.New("playback controller closed")
)

// Speech is an encoded text-to-speech payload.
// An empty MIMEType means 16-bit LE mono PCM at 24kHz.
type Speech struct {
	Payload  string // base64
	MIMEType string
}

// Synthesizer turns text into speech
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (Speech, error)
}

// SynthesizerFunc adapts a function to Synthesizer
type SynthesizerFunc func(ctx context.Context, text string) (Speech, error)

// Synthesize calls f
func (f SynthesizerFunc) Synthesize(ctx context.Context, text string) (Speech, error) {
	return f(ctx, text)
}

// Config holds controller configuration
type Config struct {
	// Device plays buffers and provides the clock
	Device output.Device

	// Synthesizer fetches speech for RequestPlay
	Synthesizer Synthesizer

	// Volume is the initial gain; nil means 0.8
	Volume *float64

	// PollInterval is the position sampling interval (default: 50ms)
	PollInterval time.Duration

	// ErrorResetDelay is how long the error state lasts before idle (default: 4s)
	ErrorResetDelay time.Duration

	// MaxTextRunes truncates text sent for synthesis (default: 1000)
	MaxTextRunes int

	// OnStateChange is called outside the lock on every change and poll
	OnStateChange func(Snapshot)
}

// Snapshot is a consistent view of the session
type Snapshot struct {
	Status   Status
	Position float64 // seconds
	Duration float64 // seconds
	Speed    float64
	Volume   float64
	Err      error
}

// Controller owns the playback session and its single hardware unit
type Controller struct {
	config Config

	mu         sync.Mutex
	status     Status
	position   float64
	duration   float64
	speedIdx   int
	volume     float64
	err        error
	buf        *audio.SampleBuffer
	unit       output.Unit
	anchor     float64
	session    uint64
	pollCancel context.CancelFunc
	resetTimer *time.Timer
	closed     bool
}

// New creates a controller in the idle state
func New(config Config) (*Controller, error) {
	if config.Device == nil {
		return nil, fmt.Errorf("playback: device is required")
	}
	if config.Synthesizer == nil {
		return nil, fmt.Errorf("playback: synthesizer is required")
	}

	volume := 0.8
	if config.Volume != nil {
		volume = *config.Volume
	}
	if config.PollInterval == 0 {
		config.PollInterval = 50 * time.Millisecond
	}
	if config.ErrorResetDelay == 0 {
		config.ErrorResetDelay = 4 * time.Second
	}
	if config.MaxTextRunes == 0 {
		config.MaxTextRunes = 1000
	}

	return &Controller{
		config: config,
		status: StatusIdle,
		volume: output.ClampVolume(volume),
	}, nil
}

// RequestPlay fetches speech for text, decodes it and plays from the start.
// Any previous session is torn down first.
func (c *Controller) RequestPlay(ctx context.Context, text string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.session++
	id := c.session
	c.resetLocked()
	c.status = StatusLoading
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	speech, err := c.config.Synthesizer.Synthesize(ctx, truncate(text, c.config.MaxTextRunes))
	var buf *audio.SampleBuffer
	if err == nil {
		buf, err = DecodeSpeech(speech)
	}

	c.mu.Lock()
	if c.closed || c.session != id {
		c.mu.Unlock()
		return ErrSuperseded
	}

	if err == nil {
		c.buf = buf
		c.duration = buf.Duration()
		c.position = 0
		err = c.startLocked(0)
	}
	if err != nil {
		c.failLocked(id, err)
		snap = c.snapshotLocked()
		c.mu.Unlock()
		c.notify(snap)
		return err
	}

	c.status = StatusPlaying
	c.startPollLocked(id)
	snap = c.snapshotLocked()
	c.mu.Unlock()

	log.Printf("Playing speech: %.1fs", snap.Duration)
	c.notify(snap)
	return nil
}

// TogglePause pauses from playing or resumes from paused; other states are ignored
func (c *Controller) TogglePause() {
	c.mu.Lock()
	switch c.status {
	case StatusPlaying:
		c.position = c.livePositionLocked()
		c.stopPollLocked()
		c.stopUnitLocked()
		c.status = StatusPaused

	case StatusPaused:
		if err := c.startLocked(c.position); err != nil {
			c.failLocked(c.session, err)
			break
		}
		c.status = StatusPlaying
		c.startPollLocked(c.session)

	default:
		c.mu.Unlock()
		return
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// Seek moves to target seconds clamped to [0, duration]
func (c *Controller) Seek(target float64) {
	c.mu.Lock()
	c.seekLocked(target)
}

// Skip seeks relative to the current position
func (c *Controller) Skip(delta float64) {
	c.mu.Lock()
	c.seekLocked(c.livePositionLocked() + delta)
}

// seekLocked releases the lock
func (c *Controller) seekLocked(target float64) {
	if c.buf == nil {
		c.mu.Unlock()
		return
	}

	target = clamp(target, 0, c.duration)
	c.position = target

	// Seeking back into a finished guide leaves it ready to resume
	if c.status == StatusEnded {
		c.status = StatusPaused
	}

	if c.status == StatusPlaying {
		if err := c.startLocked(target); err != nil {
			c.stopPollLocked()
			c.failLocked(c.session, err)
		}
	}

	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// CycleSpeed advances to the next speed and applies it without interrupting playback
func (c *Controller) CycleSpeed() float64 {
	c.mu.Lock()
	position := c.livePositionLocked()

	c.speedIdx = (c.speedIdx + 1) % len(Speeds)
	speed := Speeds[c.speedIdx]

	if c.status == StatusPlaying && c.unit != nil {
		c.unit.SetSpeed(speed)
		c.anchor = c.config.Device.Now() - position/speed
	}

	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
	return speed
}

// SetVolume sets the output gain, clamped to [0, 1]
func (c *Controller) SetVolume(level float64) {
	c.mu.Lock()
	c.volume = output.ClampVolume(level)
	if c.unit != nil {
		c.unit.SetVolume(c.volume)
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// Snapshot returns the current session state with a live position
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Teardown returns to idle, releasing the unit, poller and timers
func (c *Controller) Teardown() {
	c.mu.Lock()
	c.session++
	c.resetLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// Close tears down and rejects further requests
func (c *Controller) Close() error {
	c.Teardown()
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *Controller) resetLocked() {
	c.stopPollLocked()
	c.stopUnitLocked()
	if c.resetTimer != nil {
		c.resetTimer.Stop()
		c.resetTimer = nil
	}
	c.status = StatusIdle
	c.buf = nil
	c.position = 0
	c.duration = 0
	c.err = nil
}

// startLocked replaces the active unit with one playing from offset
func (c *Controller) startLocked(offset float64) error {
	c.stopUnitLocked()

	speed := Speeds[c.speedIdx]
	unit, err := c.config.Device.NewUnit(c.buf, offset, speed, c.volume)
	if err != nil {
		return fmt.Errorf("start playback: %w", err)
	}

	c.unit = unit
	// Audible playback starts once the device latency has drained
	c.anchor = c.config.Device.Now() + c.config.Device.Latency() - offset/speed
	return nil
}

func (c *Controller) stopUnitLocked() {
	if c.unit != nil {
		c.unit.Stop()
		c.unit = nil
	}
}

func (c *Controller) failLocked(id uint64, err error) {
	log.Printf("Playback error: %v", err)

	c.stopUnitLocked()
	c.status = StatusError
	c.err = err

	if c.resetTimer != nil {
		c.resetTimer.Stop()
	}
	c.resetTimer = time.AfterFunc(c.config.ErrorResetDelay, func() {
		c.mu.Lock()
		if c.session != id || c.status != StatusError {
			c.mu.Unlock()
			return
		}
		c.resetLocked()
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.notify(snap)
	})
}

func (c *Controller) startPollLocked(id uint64) {
	c.stopPollLocked()

	ctx, cancel := context.WithCancel(context.Background())
	c.pollCancel = cancel

	go func() {
		ticker := time.NewTicker(c.config.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !c.tick(id) {
					return
				}
			}
		}
	}()
}

func (c *Controller) stopPollLocked() {
	if c.pollCancel != nil {
		c.pollCancel()
		c.pollCancel = nil
	}
}

// tick samples the position; false stops the poller
func (c *Controller) tick(id uint64) bool {
	c.mu.Lock()
	if c.session != id || c.status != StatusPlaying {
		c.mu.Unlock()
		return false
	}

	position := (c.config.Device.Now() - c.anchor) * Speeds[c.speedIdx]
	more := true
	if position >= c.duration {
		c.position = c.duration
		c.status = StatusEnded
		c.stopUnitLocked()
		c.stopPollLocked()
		more = false
	} else {
		c.position = max(position, 0)
	}

	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
	return more
}

func (c *Controller) livePositionLocked() float64 {
	if c.status != StatusPlaying {
		return c.position
	}
	position := (c.config.Device.Now() - c.anchor) * Speeds[c.speedIdx]
	return clamp(position, 0, c.duration)
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Status:   c.status,
		Position: c.livePositionLocked(),
		Duration: c.duration,
		Speed:    Speeds[c.speedIdx],
		Volume:   c.volume,
		Err:      c.err,
	}
}

func (c *Controller) notify(snap Snapshot) {
	if c.config.OnStateChange != nil {
		c.config.OnStateChange(snap)
	}
}

// DecodeSpeech decodes a synthesized payload into samples
func DecodeSpeech(s Speech) (*audio.SampleBuffer, error) {
	if s.MIMEType == "" {
		return decode.Base64PCM(s.Payload)
	}
	if strings.TrimSpace(s.Payload) == "" {
		return nil, decode.ErrAudioUnavailable
	}

	data, err := base64.StdEncoding.DecodeString(s.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", decode.ErrDecodeFailure, err)
	}
	return decode.Payload(s.MIMEType, data)
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
