// ABOUTME: MQTT telemetry for sync passes and counterfeit verdicts
// ABOUTME: Publishes JSON summaries to kisandost/<device>/... topics
package telemetry

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/kisandost/kisandost-go/internal/scan"
	"github.com/kisandost/kisandost-go/internal/version"
)

const publishTimeout = 5 * time.Second

// Config holds broker settings. An empty Broker disables telemetry.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	DeviceID string
}

// Reporter is a scan.Reporter that can be shut down
type Reporter interface {
	scan.Reporter
	Close()
}

// Publisher is the subset of the paho client used here
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes scan events to a broker
type MQTT struct {
	pub      Publisher
	client   mqtt.Client
	deviceID string
}

// New connects to the broker, or returns a no-op reporter when none is configured
func New(config Config) (Reporter, error) {
	if config.Broker == "" {
		return Nop{}, nil
	}
	if config.ClientID == "" {
		config.ClientID = "kisandost-" + config.DeviceID
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Printf("Telemetry connected to %s", config.Broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("Telemetry connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(publishTimeout) {
		return nil, fmt.Errorf("connect to MQTT broker %s: timed out", config.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", config.Broker, err)
	}

	m := NewWithPublisher(client, config.DeviceID)
	m.client = client
	return m, nil
}

// NewWithPublisher builds a reporter over an existing publisher
func NewWithPublisher(pub Publisher, deviceID string) *MQTT {
	if deviceID == "" {
		deviceID = "unknown"
	}
	return &MQTT{pub: pub, deviceID: deviceID}
}

// Topic returns the full topic for a suffix
func (m *MQTT) Topic(suffix string) string {
	return fmt.Sprintf("kisandost/%s/%s", m.deviceID, suffix)
}

type syncEvent struct {
	scan.SyncReport
	Device  string `json:"device"`
	Version string `json:"version"`
}

type counterfeitEvent struct {
	ID              string  `json:"id"`
	ProductName     string  `json:"productName"`
	Brand           string  `json:"brand"`
	BatchNumber     string  `json:"batchNumber,omitempty"`
	Serial          string  `json:"serial,omitempty"`
	ConfidenceScore float64 `json:"confidenceScore"`
	VerifiedAtMs    int64   `json:"verifiedAtMs"`
	Device          string  `json:"device"`
}

// SyncCompleted publishes a sync report
func (m *MQTT) SyncCompleted(report scan.SyncReport) {
	m.publish("sync", syncEvent{SyncReport: report, Device: m.deviceID, Version: version.Version})
}

// Verified publishes counterfeit verdicts only. Images never leave the device.
func (m *MQTT) Verified(record scan.VerificationRecord) {
	if record.Authentic() {
		return
	}
	m.publish("counterfeit", counterfeitEvent{
		ID:              record.ID,
		ProductName:     record.ProductName,
		Brand:           record.Brand,
		BatchNumber:     record.BatchNumber,
		Serial:          record.Serial,
		ConfidenceScore: record.ConfidenceScore,
		VerifiedAtMs:    record.VerifiedAtMs,
		Device:          m.deviceID,
	})
}

func (m *MQTT) publish(suffix string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("Telemetry marshal failed: %v", err)
		return
	}

	topic := m.Topic(suffix)
	token := m.pub.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		log.Printf("Telemetry publish to %s timed out", topic)
		return
	}
	if err := token.Error(); err != nil {
		log.Printf("Telemetry publish to %s failed: %v", topic, err)
	}
}

// Close disconnects from the broker
func (m *MQTT) Close() {
	if m.client != nil {
		m.client.Disconnect(250)
	}
}

// Nop discards all events
type Nop struct{}

func (Nop) SyncCompleted(scan.SyncReport)    {}
func (Nop) Verified(scan.VerificationRecord) {}
func (Nop) Close()                           {}
