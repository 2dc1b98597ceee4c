// ABOUTME: Tests for the playback controller state machine
// ABOUTME: Uses a manual clock device to check position, speed and unit lifecycle
package playback

import (
	"context"
	"encoding/base64"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/kisandost/kisandost-go/pkg/audio"
	"github.com/kisandost/kisandost-go/pkg/audio/decode"
	"github.com/kisandost/kisandost-go/pkg/audio/output"
)

// fakeDevice has a manual clock and records every unit it creates
type fakeDevice struct {
	mu        sync.Mutex
	now       float64
	units     []*fakeUnit
	maxActive int
	failNext  error
	latency   float64
}

func (d *fakeDevice) NewUnit(buf *audio.SampleBuffer, offset, speed, volume float64) (output.Unit, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failNext != nil {
		err := d.failNext
		d.failNext = nil
		return nil, err
	}

	u := &fakeUnit{owner: d, offset: offset, speed: speed, volume: volume}
	d.units = append(d.units, u)
	if n := d.activeLocked(); n > d.maxActive {
		d.maxActive = n
	}
	return u, nil
}

func (d *fakeDevice) Now() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.now
}

func (d *fakeDevice) Close() error { return nil }

func (d *fakeDevice) Latency() float64 { return d.latency }

func (d *fakeDevice) advance(seconds float64) {
	d.mu.Lock()
	d.now += seconds
	d.mu.Unlock()
}

func (d *fakeDevice) active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.activeLocked()
}

func (d *fakeDevice) activeLocked() int {
	n := 0
	for _, u := range d.units {
		if !u.stopped {
			n++
		}
	}
	return n
}

func (d *fakeDevice) last() *fakeUnit {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.units) == 0 {
		return nil
	}
	return d.units[len(d.units)-1]
}

type fakeUnit struct {
	owner   *fakeDevice
	offset  float64
	speed   float64
	volume  float64
	stopped bool
}

func (u *fakeUnit) SetSpeed(speed float64) {
	u.owner.mu.Lock()
	u.speed = speed
	u.owner.mu.Unlock()
}

func (u *fakeUnit) SetVolume(level float64) {
	u.owner.mu.Lock()
	u.volume = level
	u.owner.mu.Unlock()
}

func (u *fakeUnit) Stop() {
	u.owner.mu.Lock()
	u.stopped = true
	u.owner.mu.Unlock()
}

// pcmSpeech returns seconds of silent 24kHz PCM as a base64 payload
func pcmSpeech(seconds float64) Speech {
	raw := make([]byte, int(seconds*audio.SampleRate)*2)
	return Speech{Payload: base64.StdEncoding.EncodeToString(raw)}
}

func staticSynth(speech Speech, err error) Synthesizer {
	return SynthesizerFunc(func(ctx context.Context, text string) (Speech, error) {
		return speech, err
	})
}

func newTestController(t *testing.T, dev *fakeDevice, synth Synthesizer) *Controller {
	t.Helper()
	c, err := New(Config{
		Device:          dev,
		Synthesizer:     synth,
		PollInterval:    time.Hour, // tests drive tick directly
		ErrorResetDelay: 20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("failed to create controller: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNewDefaults(t *testing.T) {
	c := newTestController(t, &fakeDevice{}, staticSynth(pcmSpeech(1), nil))

	snap := c.Snapshot()
	if snap.Status != StatusIdle {
		t.Errorf("expected idle, got %s", snap.Status)
	}
	if snap.Volume != 0.8 {
		t.Errorf("expected default volume 0.8, got %v", snap.Volume)
	}
	if snap.Speed != 1 {
		t.Errorf("expected speed 1, got %v", snap.Speed)
	}
	if c.config.MaxTextRunes != 1000 {
		t.Errorf("expected text limit 1000, got %d", c.config.MaxTextRunes)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Config{Synthesizer: staticSynth(Speech{}, nil)}); err == nil {
		t.Error("expected error without device")
	}
	if _, err := New(Config{Device: &fakeDevice{}}); err == nil {
		t.Error("expected error without synthesizer")
	}
}

func TestRequestPlayStartsAtZero(t *testing.T) {
	dev := &fakeDevice{}
	c := newTestController(t, dev, staticSynth(pcmSpeech(10), nil))

	if err := c.RequestPlay(context.Background(), "hello"); err != nil {
		t.Fatalf("RequestPlay failed: %v", err)
	}

	snap := c.Snapshot()
	if snap.Status != StatusPlaying {
		t.Errorf("expected playing, got %s", snap.Status)
	}
	if snap.Duration != 10 {
		t.Errorf("expected duration 10, got %v", snap.Duration)
	}
	if snap.Position != 0 {
		t.Errorf("expected position 0, got %v", snap.Position)
	}
	if u := dev.last(); u == nil || u.offset != 0 || u.volume != 0.8 {
		t.Errorf("expected unit at offset 0 volume 0.8, got %+v", u)
	}
}

func TestRequestPlayErrors(t *testing.T) {
	tests := []struct {
		name  string
		synth Synthesizer
		want  error
	}{
		{"no payload", staticSynth(Speech{}, nil), decode.ErrAudioUnavailable},
		{"bad payload", staticSynth(Speech{Payload: "%%%"}, nil), decode.ErrDecodeFailure},
		{"bad mime", staticSynth(Speech{Payload: "AAAA", MIMEType: "video/mp4"}, nil), decode.ErrDecodeFailure},
		{"service error", staticSynth(Speech{}, errors.New("boom")), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := &fakeDevice{}
			c := newTestController(t, dev, tt.synth)

			err := c.RequestPlay(context.Background(), "hello")
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}

			snap := c.Snapshot()
			if snap.Status != StatusError || snap.Err == nil {
				t.Errorf("expected error state, got %s (%v)", snap.Status, snap.Err)
			}
			if dev.active() != 0 {
				t.Errorf("expected no active units, got %d", dev.active())
			}
		})
	}
}

func TestErrorResetsToIdle(t *testing.T) {
	c := newTestController(t, &fakeDevice{}, staticSynth(Speech{}, nil))

	c.RequestPlay(context.Background(), "hello")

	deadline := time.Now().Add(2 * time.Second)
	for c.Snapshot().Status != StatusIdle {
		if time.Now().After(deadline) {
			t.Fatalf("expected idle after reset delay, still %s", c.Snapshot().Status)
		}
		time.Sleep(5 * time.Millisecond)
	}

	if c.Snapshot().Err != nil {
		t.Error("expected error cleared after reset")
	}
}

func TestErrorResetCancelledByNewRequest(t *testing.T) {
	dev := &fakeDevice{}
	fail := true
	synth := SynthesizerFunc(func(ctx context.Context, text string) (Speech, error) {
		if fail {
			return Speech{}, nil
		}
		return pcmSpeech(5), nil
	})
	c := newTestController(t, dev, synth)

	c.RequestPlay(context.Background(), "first")
	fail = false
	if err := c.RequestPlay(context.Background(), "second"); err != nil {
		t.Fatalf("RequestPlay failed: %v", err)
	}

	time.Sleep(60 * time.Millisecond)
	if s := c.Snapshot().Status; s != StatusPlaying {
		t.Errorf("stale reset timer changed state to %s", s)
	}
}

func TestTextTruncated(t *testing.T) {
	var got string
	synth := SynthesizerFunc(func(ctx context.Context, text string) (Speech, error) {
		got = text
		return pcmSpeech(1), nil
	})
	c := newTestController(t, &fakeDevice{}, synth)

	long := make([]rune, 1500)
	for i := range long {
		long[i] = 'क'
	}
	c.RequestPlay(context.Background(), string(long))

	if n := len([]rune(got)); n != 1000 {
		t.Errorf("expected 1000 runes sent, got %d", n)
	}
}

func TestTogglePause(t *testing.T) {
	dev := &fakeDevice{}
	c := newTestController(t, dev, staticSynth(pcmSpeech(10), nil))

	// Ignored from idle
	c.TogglePause()
	if c.Snapshot().Status != StatusIdle {
		t.Fatal("expected toggle ignored from idle")
	}

	c.RequestPlay(context.Background(), "hello")
	dev.advance(3)

	c.TogglePause()
	snap := c.Snapshot()
	if snap.Status != StatusPaused || !near(snap.Position, 3) {
		t.Errorf("expected paused at 3s, got %s at %v", snap.Status, snap.Position)
	}
	if dev.active() != 0 {
		t.Errorf("expected unit released on pause, got %d active", dev.active())
	}

	// Position holds while paused
	dev.advance(5)
	if p := c.Snapshot().Position; !near(p, 3) {
		t.Errorf("expected position held at 3, got %v", p)
	}

	c.TogglePause()
	if c.Snapshot().Status != StatusPlaying {
		t.Errorf("expected playing after resume")
	}
	if u := dev.last(); !near(u.offset, 3) {
		t.Errorf("expected resume at offset 3, got %v", u.offset)
	}

	dev.advance(1)
	if p := c.Snapshot().Position; !near(p, 4) {
		t.Errorf("expected position 4 after resume, got %v", p)
	}
}

func TestSeekClamps(t *testing.T) {
	tests := []struct {
		target float64
		want   float64
	}{
		{-5, 0},
		{0, 0},
		{4.5, 4.5},
		{10, 10},
		{99, 10},
	}

	for _, tt := range tests {
		dev := &fakeDevice{}
		c := newTestController(t, dev, staticSynth(pcmSpeech(10), nil))
		c.RequestPlay(context.Background(), "hello")
		c.TogglePause()

		c.Seek(tt.target)
		if p := c.Snapshot().Position; !near(p, tt.want) {
			t.Errorf("Seek(%v): expected %v, got %v", tt.target, tt.want, p)
		}
		if dev.active() != 0 {
			t.Errorf("Seek(%v) while paused started a unit", tt.target)
		}
	}
}

func TestSeekWhilePlayingRestartsUnit(t *testing.T) {
	dev := &fakeDevice{}
	c := newTestController(t, dev, staticSynth(pcmSpeech(10), nil))
	c.RequestPlay(context.Background(), "hello")

	first := dev.last()
	c.Seek(6)

	if !first.stopped {
		t.Error("expected previous unit stopped")
	}
	if u := dev.last(); u == first || !near(u.offset, 6) {
		t.Errorf("expected new unit at 6s, got %+v", u)
	}
	if s := c.Snapshot(); s.Status != StatusPlaying || !near(s.Position, 6) {
		t.Errorf("expected playing at 6, got %s at %v", s.Status, s.Position)
	}
}

func TestSkip(t *testing.T) {
	dev := &fakeDevice{}
	c := newTestController(t, dev, staticSynth(pcmSpeech(30), nil))
	c.RequestPlay(context.Background(), "hello")
	dev.advance(15)

	c.Skip(-10)
	if p := c.Snapshot().Position; !near(p, 5) {
		t.Errorf("expected 5 after replay, got %v", p)
	}

	c.Skip(10)
	if p := c.Snapshot().Position; !near(p, 15) {
		t.Errorf("expected 15 after forward, got %v", p)
	}

	c.Skip(-100)
	if p := c.Snapshot().Position; p != 0 {
		t.Errorf("expected clamp to 0, got %v", p)
	}
}

func TestSingleActiveUnit(t *testing.T) {
	dev := &fakeDevice{}
	c := newTestController(t, dev, staticSynth(pcmSpeech(20), nil))

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		c.RequestPlay(ctx, "hello")
		c.Seek(float64(i * 3))
		c.CycleSpeed()
		c.Skip(2)
		c.TogglePause()
		c.TogglePause()
		c.Seek(1)
	}

	if dev.maxActive != 1 {
		t.Errorf("expected at most 1 active unit, saw %d", dev.maxActive)
	}
	if dev.active() != 1 {
		t.Errorf("expected exactly 1 active unit while playing, got %d", dev.active())
	}

	c.Teardown()
	if dev.active() != 0 {
		t.Errorf("expected no active units after teardown, got %d", dev.active())
	}
}

func TestPositionMonotonic(t *testing.T) {
	dev := &fakeDevice{}
	c := newTestController(t, dev, staticSynth(pcmSpeech(2), nil))
	c.RequestPlay(context.Background(), "hello")

	session := c.session
	last := 0.0
	for i := 0; i < 100; i++ {
		dev.advance(0.05)
		c.tick(session)
		p := c.Snapshot().Position
		if p < last {
			t.Fatalf("position decreased: %v -> %v", last, p)
		}
		if p > 2 {
			t.Fatalf("position %v exceeds duration", p)
		}
		last = p
	}

	if s := c.Snapshot().Status; s != StatusEnded {
		t.Errorf("expected ended, got %s", s)
	}
}

func TestEndedStopsPoller(t *testing.T) {
	dev := &fakeDevice{}
	c := newTestController(t, dev, staticSynth(pcmSpeech(1), nil))
	c.RequestPlay(context.Background(), "hello")

	dev.advance(1.5)
	if more := c.tick(c.session); more {
		t.Error("expected tick to stop the poller at the end")
	}

	c.mu.Lock()
	polling := c.pollCancel != nil
	c.mu.Unlock()
	if polling {
		t.Error("expected poller cancelled after end")
	}

	snap := c.Snapshot()
	if snap.Status != StatusEnded || snap.Position != snap.Duration {
		t.Errorf("expected ended at duration, got %s at %v", snap.Status, snap.Position)
	}
	if dev.active() != 0 {
		t.Error("expected unit released at end")
	}

	// ended -> requestPlay fetches again
	if err := c.RequestPlay(context.Background(), "hello"); err != nil {
		t.Fatalf("RequestPlay after end failed: %v", err)
	}
	if c.Snapshot().Status != StatusPlaying {
		t.Error("expected playing after replay")
	}
}

func TestPollerReachesEnd(t *testing.T) {
	dev := &fakeDevice{}
	c, _ := New(Config{
		Device:       dev,
		Synthesizer:  staticSynth(pcmSpeech(1), nil),
		PollInterval: time.Millisecond,
	})
	defer c.Close()

	c.RequestPlay(context.Background(), "hello")
	dev.advance(2)

	deadline := time.Now().Add(2 * time.Second)
	for c.Snapshot().Status != StatusEnded {
		if time.Now().After(deadline) {
			t.Fatal("poller never reached the end")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSpeedContinuity(t *testing.T) {
	dev := &fakeDevice{}
	c := newTestController(t, dev, staticSynth(pcmSpeech(600), nil))
	c.RequestPlay(context.Background(), "hello")

	dev.advance(10)
	expected := 10.0

	// Rapid toggling through every speed, several laps
	for i := 0; i < 12; i++ {
		before := c.Snapshot().Position
		speed := c.CycleSpeed()
		after := c.Snapshot().Position
		if !near(before, after) {
			t.Fatalf("position jumped on speed change %d: %v -> %v", i, before, after)
		}
		if u := dev.last(); u.speed != speed {
			t.Errorf("unit speed %v, want %v", u.speed, speed)
		}

		dev.advance(0.5)
		expected += 0.5 * speed
		if p := c.Snapshot().Position; math.Abs(p-expected) > 1e-6 {
			t.Fatalf("after speed %v: expected %v, got %v", speed, expected, p)
		}
	}

	if dev.maxActive != 1 || len(dev.units) != 1 {
		t.Errorf("speed change must not restart the unit, saw %d units", len(dev.units))
	}
}

func TestCycleSpeedOrder(t *testing.T) {
	c := newTestController(t, &fakeDevice{}, staticSynth(pcmSpeech(1), nil))

	expected := []float64{1.25, 1.5, 2, 1, 1.25}
	for _, want := range expected {
		if got := c.CycleSpeed(); got != want {
			t.Errorf("expected %v, got %v", want, got)
		}
	}
}

func TestSetVolume(t *testing.T) {
	dev := &fakeDevice{}
	c := newTestController(t, dev, staticSynth(pcmSpeech(10), nil))
	c.RequestPlay(context.Background(), "hello")
	dev.advance(2)

	c.SetVolume(0.3)
	if u := dev.last(); u.volume != 0.3 {
		t.Errorf("expected unit volume 0.3, got %v", u.volume)
	}
	if p := c.Snapshot().Position; !near(p, 2) {
		t.Errorf("volume changed position: %v", p)
	}

	c.SetVolume(4)
	if v := c.Snapshot().Volume; v != 1 {
		t.Errorf("expected clamp to 1, got %v", v)
	}
	c.SetVolume(-1)
	if v := c.Snapshot().Volume; v != 0 {
		t.Errorf("expected clamp to 0, got %v", v)
	}
}

func TestStaleRequestDiscarded(t *testing.T) {
	dev := &fakeDevice{}
	release := make(chan struct{})
	synth := SynthesizerFunc(func(ctx context.Context, text string) (Speech, error) {
		<-release
		return pcmSpeech(5), nil
	})
	c := newTestController(t, dev, synth)

	done := make(chan error, 1)
	go func() {
		done <- c.RequestPlay(context.Background(), "slow")
	}()

	deadline := time.Now().Add(2 * time.Second)
	for c.Snapshot().Status != StatusLoading {
		if time.Now().After(deadline) {
			t.Fatal("never entered loading")
		}
		time.Sleep(time.Millisecond)
	}

	c.Teardown()
	close(release)

	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Errorf("expected ErrSuperseded, got %v", err)
	}
	if s := c.Snapshot().Status; s != StatusIdle {
		t.Errorf("expected idle, got %s", s)
	}
	if len(dev.units) != 0 {
		t.Errorf("stale request touched the device: %d units", len(dev.units))
	}
}

func TestUnitFailureEntersError(t *testing.T) {
	dev := &fakeDevice{failNext: errors.New("device busy")}
	c := newTestController(t, dev, staticSynth(pcmSpeech(5), nil))

	if err := c.RequestPlay(context.Background(), "hello"); err == nil {
		t.Fatal("expected error")
	}
	if s := c.Snapshot().Status; s != StatusError {
		t.Errorf("expected error, got %s", s)
	}
}

func TestCloseRejectsRequests(t *testing.T) {
	c := newTestController(t, &fakeDevice{}, staticSynth(pcmSpeech(1), nil))
	c.Close()

	if err := c.RequestPlay(context.Background(), "hello"); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestStateChangeCallback(t *testing.T) {
	var mu sync.Mutex
	var statuses []Status

	c, _ := New(Config{
		Device:       &fakeDevice{},
		Synthesizer:  staticSynth(pcmSpeech(5), nil),
		PollInterval: time.Hour,
		OnStateChange: func(s Snapshot) {
			mu.Lock()
			statuses = append(statuses, s.Status)
			mu.Unlock()
		},
	})
	defer c.Close()

	c.RequestPlay(context.Background(), "hello")
	c.TogglePause()
	c.Teardown()

	mu.Lock()
	defer mu.Unlock()
	expected := []Status{StatusLoading, StatusPlaying, StatusPaused, StatusIdle}
	if len(statuses) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, statuses)
	}
	for i := range expected {
		if statuses[i] != expected[i] {
			t.Errorf("change %d: expected %s, got %s", i, expected[i], statuses[i])
		}
	}
}

func TestExplicitMuteKept(t *testing.T) {
	dev := &fakeDevice{}
	muted := 0.0
	c, err := New(Config{
		Device:       dev,
		Synthesizer:  staticSynth(pcmSpeech(2), nil),
		Volume:       &muted,
		PollInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	if v := c.Snapshot().Volume; v != 0 {
		t.Errorf("expected volume 0, got %v", v)
	}
	c.RequestPlay(context.Background(), "hello")
	if u := dev.last(); u.volume != 0 {
		t.Errorf("expected muted unit, got volume %v", u.volume)
	}
}

func TestReplayAfterEnded(t *testing.T) {
	dev := &fakeDevice{}
	var mu sync.Mutex
	calls := 0
	synth := SynthesizerFunc(func(ctx context.Context, text string) (Speech, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return pcmSpeech(2), nil
	})

	var statuses []Status
	c, _ := New(Config{
		Device:       dev,
		Synthesizer:  synth,
		PollInterval: time.Hour,
		OnStateChange: func(s Snapshot) {
			mu.Lock()
			statuses = append(statuses, s.Status)
			mu.Unlock()
		},
	})
	defer c.Close()

	c.RequestPlay(context.Background(), "guide")
	first := dev.last()
	dev.advance(3)
	c.tick(c.session)
	if s := c.Snapshot().Status; s != StatusEnded {
		t.Fatalf("expected ended, got %s", s)
	}

	mu.Lock()
	statuses = nil
	mu.Unlock()

	if err := c.RequestPlay(context.Background(), "guide"); err != nil {
		t.Fatalf("replay failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Errorf("expected a fresh fetch, synthesizer called %d times", calls)
	}
	if len(statuses) < 2 || statuses[0] != StatusLoading || statuses[len(statuses)-1] != StatusPlaying {
		t.Errorf("expected loading then playing, got %v", statuses)
	}

	u := dev.last()
	if u == first || u.offset != 0 {
		t.Errorf("expected a new unit at offset 0, got %+v", u)
	}
	if dev.maxActive != 1 {
		t.Errorf("expected at most one active unit, got %d", dev.maxActive)
	}
	if p := c.Snapshot().Position; p != 0 {
		t.Errorf("expected position 0 after replay, got %v", p)
	}
}

func TestSeekAfterEndedPauses(t *testing.T) {
	dev := &fakeDevice{}
	c := newTestController(t, dev, staticSynth(pcmSpeech(10), nil))
	c.RequestPlay(context.Background(), "hello")
	dev.advance(11)
	c.tick(c.session)

	c.Skip(-6)
	snap := c.Snapshot()
	if snap.Status != StatusPaused || !near(snap.Position, 4) {
		t.Fatalf("expected paused at 4, got %s at %v", snap.Status, snap.Position)
	}
	if dev.active() != 0 {
		t.Error("seek after end must not start a unit")
	}

	c.TogglePause()
	if u := dev.last(); c.Snapshot().Status != StatusPlaying || !near(u.offset, 4) {
		t.Errorf("expected resume from 4, got %s at offset %v", c.Snapshot().Status, u.offset)
	}
}

func TestPositionAccountsForLatency(t *testing.T) {
	dev := &fakeDevice{latency: 0.25}
	c := newTestController(t, dev, staticSynth(pcmSpeech(10), nil))
	c.RequestPlay(context.Background(), "hello")

	dev.advance(0.2)
	if p := c.Snapshot().Position; p != 0 {
		t.Errorf("expected 0 while the device buffer fills, got %v", p)
	}

	dev.advance(1.05)
	if p := c.Snapshot().Position; !near(p, 1) {
		t.Errorf("expected audible position 1, got %v", p)
	}

	c.TogglePause()
	c.TogglePause()
	if u := dev.last(); !near(u.offset, 1) {
		t.Errorf("expected resume from audible position 1, got %v", u.offset)
	}
}
