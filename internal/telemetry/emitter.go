// Package telemetry publishes portal and capture statistics to MQTT as
// msgpack payloads.
//
// Topics:
//
//	<prefix>/stats   periodic StatsMessage
//	<prefix>/keys    one KeyMessage per watched key press
//
// Telemetry is optional: with an empty broker the emitter is disabled and
// every publish is a no-op. Publish failures are counted and logged, never
// returned to the render or capture paths.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/config"
)

// Publisher is the subset of an MQTT client the emitter needs.
type Publisher interface {
	Publish(topic string, qos byte, payload []byte) error
}

// Emitter publishes telemetry messages
type Emitter struct {
	cfg      config.TelemetryConfig
	clientID string

	client mqtt.Client
	pub    Publisher

	mu        sync.Mutex
	published map[string]uint64 // count per topic
	errors    uint64
	lastErr   string
}

// Stats contains emitter statistics
type Stats struct {
	Enabled   bool
	Published map[string]uint64
	Errors    uint64
	LastError string
}

// New creates an emitter. Nothing is connected until Connect.
func New(cfg config.TelemetryConfig, clientID string) *Emitter {
	return &Emitter{
		cfg:       cfg,
		clientID:  clientID,
		published: make(map[string]uint64),
	}
}

// NewWithPublisher creates an enabled emitter over an existing publisher.
func NewWithPublisher(cfg config.TelemetryConfig, pub Publisher) *Emitter {
	e := New(cfg, "")
	e.pub = pub
	return e
}

// Enabled reports whether messages are actually sent.
func (e *Emitter) Enabled() bool {
	return e.pub != nil
}

// Connect establishes the broker connection. A no-op when the broker is
// empty. The client reconnects on its own after a lost connection.
func (e *Emitter) Connect(ctx context.Context) error {
	if e.cfg.Broker == "" {
		slog.Info("telemetry: disabled (no broker configured)")
		return nil
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(e.cfg.Broker)
	opts.SetClientID(e.clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(mqtt.Client) {
		slog.Info("telemetry: mqtt connection established",
			"broker", e.cfg.Broker,
			"client_id", e.clientID,
		)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		slog.Warn("telemetry: mqtt connection lost, will auto-reconnect",
			"error", err,
			"broker", e.cfg.Broker,
		)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()

	select {
	case <-token.Done():
	case <-time.After(5 * time.Second):
		return fmt.Errorf("telemetry: mqtt connection timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("telemetry: mqtt connection failed: %w", err)
	}

	e.client = client
	e.pub = &clientPublisher{client: client}
	return nil
}

// Disconnect closes the MQTT connection.
func (e *Emitter) Disconnect() {
	if e.client != nil && e.client.IsConnected() {
		e.client.Disconnect(250) // 250ms grace period
		slog.Info("telemetry: mqtt disconnected")
	}
}

// PublishStats publishes msg on <prefix>/stats.
func (e *Emitter) PublishStats(msg StatsMessage) {
	e.publish(e.cfg.TopicPrefix+"/stats", msg)
}

// PublishKey publishes a key press on <prefix>/keys.
func (e *Emitter) PublishKey(msg KeyMessage) {
	e.publish(e.cfg.TopicPrefix+"/keys", msg)
}

func (e *Emitter) publish(topic string, v any) {
	if e.pub == nil {
		return
	}

	payload, err := msgpack.Marshal(v)
	if err != nil {
		e.recordError(topic, fmt.Errorf("failed to marshal: %w", err))
		return
	}

	if err := e.pub.Publish(topic, e.cfg.QoS, payload); err != nil {
		e.recordError(topic, err)
		return
	}

	e.mu.Lock()
	e.published[topic]++
	e.mu.Unlock()

	slog.Debug("telemetry: published", "topic", topic, "size", len(payload))
}

func (e *Emitter) recordError(topic string, err error) {
	e.mu.Lock()
	e.errors++
	first := e.errors == 1
	e.lastErr = err.Error()
	e.mu.Unlock()

	// Later failures only show in Stats
	if first {
		slog.Warn("telemetry: publish failed", "topic", topic, "error", err)
	} else {
		slog.Debug("telemetry: publish failed", "topic", topic, "error", err)
	}
}

// Run publishes collect() every interval until ctx is cancelled.
func (e *Emitter) Run(ctx context.Context, collect func() StatsMessage) {
	if e.pub == nil {
		return
	}

	interval := time.Duration(e.cfg.IntervalS) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.PublishStats(collect())
		}
	}
}

// Stats returns emitter statistics
func (e *Emitter) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	published := make(map[string]uint64, len(e.published))
	for k, v := range e.published {
		published[k] = v
	}

	return Stats{
		Enabled:   e.pub != nil,
		Published: published,
		Errors:    e.errors,
		LastError: e.lastErr,
	}
}

// clientPublisher adapts a paho client to Publisher.
type clientPublisher struct {
	client mqtt.Client
}

func (p *clientPublisher) Publish(topic string, qos byte, payload []byte) error {
	token := p.client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	return token.Error()
}
