package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nerrad567/irhvac-core/internal/hvac"
	"github.com/nerrad567/irhvac-core/internal/infrastructure/logging"
	"github.com/nerrad567/irhvac-core/internal/infrastructure/mqtt"
)

// Client is the subset of the MQTT client the bridge uses.
type Client interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Topics() mqtt.Topics
	QoS() byte
}

// Metrics receives bridge counters. Optional.
type Metrics interface {
	InvalidJSON(source string)
}

// Deps holds the bridge dependencies.
type Deps struct {
	Client  Client
	Engine  *hvac.Engine
	Logger  *logging.Logger
	Metrics Metrics
}

// Bridge relays commands and state between MQTT and the engine.
type Bridge struct {
	client  Client
	engine  *hvac.Engine
	logger  *logging.Logger
	metrics Metrics
	topics  mqtt.Topics

	mu      sync.RWMutex
	ctx     context.Context
	started bool
}

// reply is the payload published on the reply topic.
type reply struct {
	RequestID string `json:"request_id,omitempty"`
	hvac.Reply
}

// New creates a Bridge. It does not subscribe until Start.
func New(deps Deps) (*Bridge, error) {
	if deps.Client == nil {
		return nil, fmt.Errorf("mqtt client is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Bridge{
		client:  deps.Client,
		engine:  deps.Engine,
		logger:  deps.Logger,
		metrics: deps.Metrics,
		topics:  deps.Client.Topics(),
		ctx:     context.Background(),
	}, nil
}

// Start publishes the current snapshot and subscribes to the command topic.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	b.ctx = ctx
	b.started = true
	b.mu.Unlock()

	states, err := b.engine.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("reading state snapshot: %w", err)
	}
	for _, st := range states {
		b.publishState(st)
	}

	topic := b.topics.Command()
	if err := b.client.Subscribe(topic, b.client.QoS(), b.handleCommand); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	b.logger.Info("mqtt command bridge started", "topic", topic, "devices", len(states))
	return nil
}

// Close unsubscribes from the command topic.
func (b *Bridge) Close() error {
	b.mu.Lock()
	started := b.started
	b.started = false
	b.mu.Unlock()

	if !started {
		return nil
	}
	if err := b.client.Unsubscribe(b.topics.Command()); err != nil {
		return fmt.Errorf("unsubscribing command topic: %w", err)
	}
	return nil
}

// HandleState implements hvac.StateSink.
func (b *Bridge) HandleState(_ context.Context, change hvac.StateChange) {
	b.publishState(change.Message)
}

func (b *Bridge) publishState(st hvac.StateMessage) {
	payload, err := json.Marshal(st)
	if err != nil {
		return
	}
	if err := b.client.Publish(b.topics.State(st.ID), payload, b.client.QoS(), true); err != nil {
		b.logger.Warn("state publish failed", "device_id", st.ID, "error", err)
	}
}

func (b *Bridge) handleCommand(_ string, payload []byte) error {
	b.mu.RLock()
	ctx := b.ctx
	b.mu.RUnlock()

	var out reply
	var meta struct {
		RequestID string `json:"request_id"`
	}
	_ = json.Unmarshal(payload, &meta) //nolint:errcheck // absent or malformed ids are simply not echoed
	out.RequestID = meta.RequestID

	cmd, err := hvac.Decode(payload)
	if err != nil {
		if b.metrics != nil {
			b.metrics.InvalidJSON(hvac.SourceMQTT)
		}
		out.Reply = hvac.ErrorReply(hvac.CodeInvalidJSON)
	} else {
		out.Reply, err = b.engine.Execute(ctx, cmd, hvac.MQTTOrigin)
		if err != nil {
			return fmt.Errorf("executing mqtt command: %w", err)
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encoding reply: %w", err)
	}
	if err := b.client.Publish(b.topics.Reply(), data, b.client.QoS(), false); err != nil {
		return fmt.Errorf("publishing reply: %w", err)
	}
	return nil
}
