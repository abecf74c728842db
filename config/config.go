package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sbkit/sbscan/logger"
)

// Config is the root configuration structure for sbscand.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Radio   RadioConfig   `yaml:"radio"`
	Logging LoggingConfig `yaml:"logging"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
}

// ServerConfig contains the control protocol listener settings.
type ServerConfig struct {
	// Listen is the TCP address the protocol server binds.
	Listen string `yaml:"listen"`
	// AutoStart issues a BLE_START at boot instead of waiting for the first
	// client to do it.
	AutoStart bool `yaml:"auto_start"`
}

// RadioConfig contains the BlueZ backend settings.
type RadioConfig struct {
	// Adapter is the BlueZ adapter id, e.g. "hci0".
	Adapter string `yaml:"adapter"`
}

// LoggingConfig contains log level and rotation settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// AddSource includes source positions in log records.
	AddSource bool `yaml:"add_source"`
	// File, when set, sends log output to a size-rotated file instead of stdout.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// MQTTConfig contains the optional reading publisher settings.
type MQTTConfig struct {
	Enabled bool `yaml:"enabled"`
	// Broker is the broker URL, e.g. "tcp://127.0.0.1:1883".
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         int    `yaml:"qos"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen: "127.0.0.1:5900",
		},
		Radio: RadioConfig{
			Adapter: "hci0",
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  20,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://127.0.0.1:1883",
			ClientID:    "sbscand",
			TopicPrefix: "sbscan",
			QoS:         1,
		},
	}
}

// Load reads the YAML file at path over the defaults and validates the
// result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen must not be empty")
	}
	if c.Radio.Adapter == "" {
		return fmt.Errorf("radio.adapter must not be empty")
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker must not be empty when mqtt is enabled")
	}

	return nil
}

// LogLevel maps the configured level name onto a logger level.
func (c *Config) LogLevel() (logger.Level, error) {
	switch c.Logging.Level {
	case "debug":
		return logger.DebugLevel, nil
	case "info", "":
		return logger.InfoLevel, nil
	case "warn":
		return logger.WarnLevel, nil
	case "error":
		return logger.ErrorLevel, nil
	default:
		return logger.InfoLevel, fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}
