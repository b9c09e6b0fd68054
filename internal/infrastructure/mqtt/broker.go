package mqtt

import (
	"fmt"
	"log/slog"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"

	"github.com/nerrad567/irhvac-core/internal/infrastructure/config"
)

// Broker is an in-process MQTT broker for installs that have none.
type Broker struct {
	server *mochi.Server
	addr   string
}

// StartBroker binds the listener and starts serving. Every client is allowed.
func StartBroker(cfg config.MQTTEmbeddedConfig, logger *slog.Logger) (*Broker, error) {
	server := mochi.New(&mochi.Options{
		InlineClient: true,
		Logger:       logger,
	})

	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, fmt.Errorf("%w: adding auth hook: %w", ErrBrokerFailed, err)
	}

	tcp := listeners.NewTCP(listeners.Config{ID: "irhvac", Address: cfg.Address})
	if err := server.AddListener(tcp); err != nil {
		return nil, fmt.Errorf("%w: listening on %s: %w", ErrBrokerFailed, cfg.Address, err)
	}

	if err := server.Serve(); err != nil {
		server.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("%w: %w", ErrBrokerFailed, err)
	}

	return &Broker{server: server, addr: cfg.Address}, nil
}

// Address returns the configured listen address.
func (b *Broker) Address() string {
	return b.addr
}

// Close stops the listener and disconnects all clients.
func (b *Broker) Close() error {
	if b == nil || b.server == nil {
		return nil
	}
	return b.server.Close()
}
