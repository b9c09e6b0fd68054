package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/irhvac-core/internal/ir"
)

// Hard limits inherited from the controller's fixed-size tables.
const (
	MaxEmitters    = 8
	MaxHVACs       = 32
	MaxCustomTemps = 16

	DefaultLinePort   = 4998
	DefaultMaxClients = 4
	DefaultHostname   = "ir-server"

	// ProtocolCustom marks a device whose codes are user-supplied strings.
	ProtocolCustom = "CUSTOM"
)

// Emitter transports.
const (
	TransportLog  = "log"
	TransportMQTT = "mqtt"
)

// Config is the root configuration structure for the IR HVAC controller.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Line      LineConfig      `yaml:"line"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Emitters  []EmitterConfig `yaml:"emitters"`
	HVACs     []HVACConfig    `yaml:"hvacs"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SiteConfig identifies this controller on the network.
type SiteConfig struct {
	Hostname string `yaml:"hostname"`
}

// LineConfig contains settings for the line-oriented command listener.
type LineConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	MaxClients int    `yaml:"max_clients"`
	QueueSize  int    `yaml:"queue_size"`
}

// APIConfig contains HTTP server settings for the web glue.
type APIConfig struct {
	Host          string           `yaml:"host"`
	Port          int              `yaml:"port"`
	Timeouts      APITimeoutConfig `yaml:"timeouts"`
	Auth          WebAuthConfig    `yaml:"auth"`
	CaptivePortal bool             `yaml:"captive_portal"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebAuthConfig protects the web glue with HTTP basic auth.
// PasswordHash takes precedence over Password and must be an argon2id PHC string.
type WebAuthConfig struct {
	Password     string `yaml:"password"`
	PasswordHash string `yaml:"password_hash"`
}

// Enabled reports whether any web credential is configured.
func (w WebAuthConfig) Enabled() bool {
	return w.Password != "" || w.PasswordHash != ""
}

// WebSocketConfig contains WebSocket state push settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// EmitterConfig describes one IR output channel.
type EmitterConfig struct {
	// GPIO is the physical pin the LED driver is wired to.
	GPIO int `yaml:"gpio"`

	// Transport selects how pulse programs leave the process: "log" or "mqtt".
	Transport string `yaml:"transport"`

	// DisableProtocols removes the named-protocol sender from this emitter,
	// leaving raw pulse output only.
	DisableProtocols bool `yaml:"disable_protocols"`
}

// HVACConfig describes one addressable climate device.
type HVACConfig struct {
	ID       string        `yaml:"id" json:"id"`
	Protocol string        `yaml:"protocol" json:"protocol"`
	Emitter  int           `yaml:"emitter" json:"emitter"`
	Model    *int          `yaml:"model,omitempty" json:"model,omitempty"`
	Custom   *CustomConfig `yaml:"custom,omitempty" json:"custom,omitempty"`
}

// CustomConfig holds the user-supplied codes of a custom device.
// Temps maps an integer temperature (as a string key) to a code.
type CustomConfig struct {
	Encoding string            `yaml:"encoding" json:"encoding"`
	Off      string            `yaml:"off" json:"off"`
	Temps    map[string]string `yaml:"temps" json:"temps"`
}

// IsCustom reports whether the device is driven by user-supplied codes.
func (h HVACConfig) IsCustom() bool {
	return h.Custom != nil || strings.EqualFold(h.Protocol, ProtocolCustom)
}

// ModelOrDefault returns the configured model number, or -1 when unset.
func (h HVACConfig) ModelOrDefault() int {
	if h.Model == nil {
		return -1
	}
	return *h.Model
}

// DatabaseConfig contains SQLite settings for the state-change history.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// RetentionDays bounds how long state history rows are kept.
	RetentionDays int `yaml:"retention_days"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Embedded    MQTTEmbeddedConfig  `yaml:"embedded"`
}

// MQTTEmbeddedConfig runs an in-process broker for installs without one.
type MQTTEmbeddedConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: IRHVAC_SECTION_KEY
// For example: IRHVAC_LINE_PORT, IRHVAC_MQTT_HOST
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyEmitterDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			Hostname: DefaultHostname,
		},
		Line: LineConfig{
			Host:       "0.0.0.0",
			Port:       DefaultLinePort,
			MaxClients: DefaultMaxClients,
			QueueSize:  64,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
			CaptivePortal: true,
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 4096,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Database: DatabaseConfig{
			Path:          "./data/irhvac.db",
			WALMode:       true,
			BusyTimeout:   5,
			RetentionDays: 30,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "irhvac",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			TopicPrefix: "irhvac",
			Embedded: MQTTEmbeddedConfig{
				Address: ":1883",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("IRHVAC_LINE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Line.Port = port
		}
	}
	if v := os.Getenv("IRHVAC_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("IRHVAC_WEB_PASSWORD"); v != "" {
		cfg.API.Auth.Password = v
	}
	if v := os.Getenv("IRHVAC_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("IRHVAC_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("IRHVAC_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("IRHVAC_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("IRHVAC_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
	if v := os.Getenv("IRHVAC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// applyEmitterDefaults fills in the transport of emitters that omit it.
func applyEmitterDefaults(cfg *Config) {
	for i := range cfg.Emitters {
		if cfg.Emitters[i].Transport == "" {
			cfg.Emitters[i].Transport = TransportLog
		}
	}
}

// Validate checks the configuration for errors.
//
// Device bindings are checked here so that the command core never sees a
// device whose emitter index does not resolve.
func (c *Config) Validate() error {
	var errs []string

	if c.Line.Port < 1 || c.Line.Port > 65535 {
		errs = append(errs, "line.port must be between 1 and 65535")
	}
	if c.Line.MaxClients < 1 {
		errs = append(errs, "line.max_clients must be at least 1")
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required when mqtt is enabled")
	}
	if c.MQTT.Embedded.Enabled && c.MQTT.Embedded.Address == "" {
		errs = append(errs, "mqtt.embedded.address is required when the embedded broker is enabled")
	}
	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when the database is enabled")
	}
	if c.Database.RetentionDays < 1 {
		errs = append(errs, "database.retention_days must be at least 1")
	}

	errs = append(errs, c.validateEmitters()...)
	errs = append(errs, c.validateHVACs()...)

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (c *Config) validateEmitters() []string {
	var errs []string
	if len(c.Emitters) > MaxEmitters {
		errs = append(errs, fmt.Sprintf("at most %d emitters are supported", MaxEmitters))
	}
	for i, e := range c.Emitters {
		switch e.Transport {
		case TransportLog, TransportMQTT:
		default:
			errs = append(errs, fmt.Sprintf("emitters[%d].transport %q is not one of log, mqtt", i, e.Transport))
		}
		if e.Transport == TransportMQTT && !c.MQTT.Enabled {
			errs = append(errs, fmt.Sprintf("emitters[%d] uses the mqtt transport but mqtt is disabled", i))
		}
		if e.GPIO < 0 {
			errs = append(errs, fmt.Sprintf("emitters[%d].gpio must not be negative", i))
		}
	}
	return errs
}

func (c *Config) validateHVACs() []string {
	var errs []string
	if len(c.HVACs) > MaxHVACs {
		errs = append(errs, fmt.Sprintf("at most %d hvacs are supported", MaxHVACs))
	}

	seen := make(map[string]bool, len(c.HVACs))
	for i, h := range c.HVACs {
		if h.ID == "" {
			errs = append(errs, fmt.Sprintf("hvacs[%d].id is required", i))
		} else if seen[h.ID] {
			errs = append(errs, fmt.Sprintf("hvacs[%d].id %q is duplicated", i, h.ID))
		}
		seen[h.ID] = true

		if h.Emitter < 0 || h.Emitter >= len(c.Emitters) {
			errs = append(errs, fmt.Sprintf("hvacs[%d].emitter %d does not exist", i, h.Emitter))
		}

		if !h.IsCustom() {
			if h.Protocol == "" {
				errs = append(errs, fmt.Sprintf("hvacs[%d].protocol is required", i))
			}
			continue
		}
		if h.Custom == nil {
			errs = append(errs, fmt.Sprintf("hvacs[%d] is custom but has no custom section", i))
			continue
		}
		if _, err := ir.ParseEncoding(h.Custom.Encoding); err != nil {
			errs = append(errs, fmt.Sprintf("hvacs[%d].custom.encoding: %v", i, err))
		}
		if len(h.Custom.Temps) > MaxCustomTemps {
			errs = append(errs, fmt.Sprintf("hvacs[%d].custom.temps has more than %d entries", i, MaxCustomTemps))
		}
		for key := range h.Custom.Temps {
			if _, err := strconv.Atoi(key); err != nil {
				errs = append(errs, fmt.Sprintf("hvacs[%d].custom.temps key %q is not an integer", i, key))
			}
		}
	}
	return errs
}

// Hostname returns the configured hostname or the default.
func (c *Config) Hostname() string {
	if c.Site.Hostname == "" {
		return DefaultHostname
	}
	return c.Site.Hostname
}

// GetHistoryRetention returns the state history retention as a Duration.
func (c *Config) GetHistoryRetention() time.Duration {
	return time.Duration(c.Database.RetentionDays) * 24 * time.Hour
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
