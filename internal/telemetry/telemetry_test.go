// ABOUTME: Tests for MQTT telemetry
// ABOUTME: Uses a recording publisher in place of a broker
package telemetry

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/kisandost/kisandost-go/internal/scan"
)

type fakeToken struct {
	err error
}

func (t fakeToken) Wait() bool                     { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Error() error                   { return t.err }
func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type message struct {
	topic   string
	payload []byte
}

type recorder struct {
	mu   sync.Mutex
	msgs []message
	err  error
}

func (r *recorder) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, message{topic: topic, payload: payload.([]byte)})
	return fakeToken{err: r.err}
}

func TestNewWithoutBroker(t *testing.T) {
	r, err := New(Config{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := r.(Nop); !ok {
		t.Errorf("expected Nop reporter, got %T", r)
	}
	r.SyncCompleted(scan.SyncReport{})
	r.Close()
}

func TestSyncCompleted(t *testing.T) {
	rec := &recorder{}
	m := NewWithPublisher(rec, "field-7")

	m.SyncCompleted(scan.SyncReport{Processed: 2, Synced: []string{"a"}, Failed: []string{"b"}, Remaining: 1})

	if len(rec.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(rec.msgs))
	}
	if rec.msgs[0].topic != "kisandost/field-7/sync" {
		t.Errorf("unexpected topic %s", rec.msgs[0].topic)
	}

	var got map[string]any
	if err := json.Unmarshal(rec.msgs[0].payload, &got); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if got["processed"] != float64(2) || got["device"] != "field-7" || got["remaining"] != float64(1) {
		t.Errorf("unexpected payload %v", got)
	}
}

func TestVerifiedOnlyCounterfeit(t *testing.T) {
	rec := &recorder{}
	m := NewWithPublisher(rec, "")

	m.Verified(scan.VerificationRecord{ID: "ok", Status: scan.StatusAuthentic})
	m.Verified(scan.VerificationRecord{
		ID:          "bad",
		Status:      scan.StatusCounterfeit,
		ProductName: "Urea 45kg",
		ImageData:   []byte{0xff, 0xd8},
	})

	if len(rec.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(rec.msgs))
	}
	if rec.msgs[0].topic != "kisandost/unknown/counterfeit" {
		t.Errorf("unexpected topic %s", rec.msgs[0].topic)
	}

	var got map[string]any
	json.Unmarshal(rec.msgs[0].payload, &got)
	if got["id"] != "bad" || got["productName"] != "Urea 45kg" {
		t.Errorf("unexpected payload %v", got)
	}
	if _, ok := got["imageData"]; ok {
		t.Error("image data must not be published")
	}
}

func TestPublishErrorIsLogged(t *testing.T) {
	rec := &recorder{err: errors.New("broker gone")}
	m := NewWithPublisher(rec, "x")

	// Must not panic or block
	m.SyncCompleted(scan.SyncReport{})
	if len(rec.msgs) != 1 {
		t.Errorf("expected publish attempt, got %d", len(rec.msgs))
	}
}
