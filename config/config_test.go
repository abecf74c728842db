package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbkit/sbscan/logger"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sbscand.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "127.0.0.1:5900", cfg.Server.Listen)
	assert.Equal(t, "hci0", cfg.Radio.Adapter)
	assert.False(t, cfg.MQTT.Enabled)

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, logger.InfoLevel, level)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  listen: "0.0.0.0:7000"
  auto_start: true
radio:
  adapter: hci1
logging:
  level: debug
  file: /var/log/sbscand.log
mqtt:
  enabled: true
  broker: tcp://broker.local:1883
  topic_prefix: home/ble
  qos: 2
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:7000", cfg.Server.Listen)
	assert.True(t, cfg.Server.AutoStart)
	assert.Equal(t, "hci1", cfg.Radio.Adapter)
	assert.Equal(t, "/var/log/sbscand.log", cfg.Logging.File)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "home/ble", cfg.MQTT.TopicPrefix)
	assert.Equal(t, 2, cfg.MQTT.QoS)

	// Unset fields keep their defaults.
	assert.Equal(t, "sbscand", cfg.MQTT.ClientID)

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, logger.DebugLevel, level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		description string
		mutate      func(*Config)
		wantErr     string
	}{
		{
			description: "empty listen address",
			mutate:      func(c *Config) { c.Server.Listen = "" },
			wantErr:     "server.listen",
		},
		{
			description: "empty adapter",
			mutate:      func(c *Config) { c.Radio.Adapter = "" },
			wantErr:     "radio.adapter",
		},
		{
			description: "bad log level",
			mutate:      func(c *Config) { c.Logging.Level = "verbose" },
			wantErr:     "logging.level",
		},
		{
			description: "qos out of range",
			mutate:      func(c *Config) { c.MQTT.QoS = 3 },
			wantErr:     "mqtt.qos",
		},
		{
			description: "mqtt enabled without broker",
			mutate: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.Broker = ""
			},
			wantErr: "mqtt.broker",
		},
	}

	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			cfg := Default()
			test.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), test.wantErr)
		})
	}
}
