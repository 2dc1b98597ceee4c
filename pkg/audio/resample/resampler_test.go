// ABOUTME: Tests for linear resampling and the variable ratio stream
// ABOUTME: Covers rate conversion lengths, interpolation and live ratio changes
package resample

import (
	"math"
	"testing"

	"github.com/kisandost/kisandost-go/pkg/audio"
)

func TestLinearLength(t *testing.T) {
	tests := []struct {
		name    string
		inRate  int
		outRate int
		inLen   int
		outLen  int
	}{
		{"downsample 48k to 24k", 48000, 24000, 4800, 2400},
		{"upsample 16k to 24k", 16000, 24000, 1600, 2400},
		{"same rate", 24000, 24000, 100, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Linear(make([]float32, tt.inLen), tt.inRate, tt.outRate)
			if len(out) != tt.outLen {
				t.Errorf("expected %d samples, got %d", tt.outLen, len(out))
			}
		})
	}
}

func TestLinearInterpolates(t *testing.T) {
	in := []float32{0, 1, 0, -1}
	out := Linear(in, 1, 2)

	expected := []float32{0, 0.5, 1, 0.5, 0, -0.5, -1, -1}
	if len(out) != len(expected) {
		t.Fatalf("expected %d samples, got %d", len(expected), len(out))
	}
	for i := range expected {
		if math.Abs(float64(out[i]-expected[i])) > 1e-6 {
			t.Errorf("sample %d: expected %f, got %f", i, expected[i], out[i])
		}
	}
}

func TestLinearEmpty(t *testing.T) {
	if out := Linear(nil, 48000, 24000); out != nil {
		t.Errorf("expected nil, got %v", out)
	}
	if out := Linear([]float32{1}, 0, 24000); out != nil {
		t.Errorf("expected nil for zero rate, got %v", out)
	}
}

func TestStreamReadsAtRatio(t *testing.T) {
	buf := audio.NewSampleBuffer(make([]float32, 1000), 24000, 1)

	tests := []struct {
		ratio  float64
		frames int
	}{
		{1, 1000},
		{2, 500},
		{1.25, 800},
		{0.5, 2000},
	}

	for _, tt := range tests {
		s := NewStream(buf, 0, tt.ratio)
		out := make([]float32, 4096)
		total := 0
		for {
			n := s.Read(out[:256])
			if n == 0 {
				break
			}
			total += n
		}
		if total != tt.frames {
			t.Errorf("ratio %v: expected %d output frames, got %d", tt.ratio, tt.frames, total)
		}
		if !s.Done() {
			t.Errorf("ratio %v: expected stream done", tt.ratio)
		}
	}
}

func TestStreamStartOffset(t *testing.T) {
	samples := make([]float32, 100)
	for i := range samples {
		samples[i] = float32(i)
	}
	s := NewStream(audio.NewSampleBuffer(samples, 24000, 1), 40, 1)

	out := make([]float32, 1)
	s.Read(out)
	if out[0] != 40 {
		t.Errorf("expected first sample 40, got %f", out[0])
	}
	if s.Position() != 41 {
		t.Errorf("expected position 41, got %d", s.Position())
	}
}

func TestStreamSetRatioMidway(t *testing.T) {
	s := NewStream(audio.NewSampleBuffer(make([]float32, 100), 24000, 1), 0, 1)

	out := make([]float32, 50)
	if n := s.Read(out); n != 50 {
		t.Fatalf("expected 50 samples, got %d", n)
	}

	s.SetRatio(2)
	if s.Ratio() != 2 {
		t.Errorf("expected ratio 2, got %v", s.Ratio())
	}

	total := 0
	for n := s.Read(out); n > 0; n = s.Read(out) {
		total += n
	}
	if total != 25 {
		t.Errorf("expected 25 samples after doubling speed, got %d", total)
	}

	s.SetRatio(-1)
	if s.Ratio() != 2 {
		t.Error("expected non-positive ratio to be ignored")
	}
}

func TestStreamDownmix(t *testing.T) {
	buf := audio.NewSampleBuffer([]float32{1, 0, 0.5, 0.5}, 24000, 2)
	s := NewStream(buf, 0, 1)

	out := make([]float32, 4)
	n := s.Read(out)
	if n != 2 {
		t.Fatalf("expected 2 mono samples, got %d", n)
	}
	if out[0] != 0.5 || out[1] != 0.5 {
		t.Errorf("expected [0.5 0.5], got %v", out[:n])
	}
}

func TestStreamClose(t *testing.T) {
	s := NewStream(audio.NewSampleBuffer(make([]float32, 100), 24000, 1), 0, 1)
	s.Close()

	if n := s.Read(make([]float32, 10)); n != 0 {
		t.Errorf("expected no samples after close, got %d", n)
	}
	if !s.Done() {
		t.Error("expected closed stream to be done")
	}
}
