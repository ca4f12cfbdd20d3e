package utils

import (
	"fmt"
	"time"

	"github.com/benmeehan/location-sender/internal/constants"
	"github.com/benmeehan/location-sender/pkg/file"
)

// Config represents the structure of the optional configuration file.
// Command-line flags take precedence over every value here.
type Config struct {
	Server    string `yaml:"server"`    // Telemetry server base URL
	Token     string `yaml:"token"`     // Device access token
	Transport string `yaml:"transport"` // "http" or "mqtt"
	LogLevel  string `yaml:"log_level"` // zerolog level name

	Timeout time.Duration `yaml:"timeout"` // Per-request HTTP timeout, also bounds the MQTT connect

	MQTT struct {
		Broker        string `yaml:"broker"`         // MQTT broker address
		ClientID      string `yaml:"client_id"`      // MQTT client ID prefix
		CACertificate string `yaml:"ca_certificate"` // Path to the CA certificate, empty for plain TCP
		QOS           int    `yaml:"qos"`            // MQTT QoS level for telemetry messages
	} `yaml:"mqtt"`

	Simulation struct {
		Duration int   `yaml:"duration"` // Total run time in seconds
		Interval int   `yaml:"interval"` // Seconds between ticks
		Seed     int64 `yaml:"seed"`     // Random seed, 0 picks one from the clock
	} `yaml:"simulation"`

	GPS struct {
		DevicePort string `yaml:"device_port"` // Serial port of an attached GPS receiver
		BaudRate   int    `yaml:"baud_rate"`   // Baud rate for the GPS receiver
	} `yaml:"gps"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	var config Config
	config.Server = constants.DefaultServer
	config.Transport = "http"
	config.LogLevel = "info"
	config.Timeout = 10 * time.Second
	config.MQTT.ClientID = "locsend"
	config.MQTT.QOS = constants.DefaultMQTTQOS
	config.Simulation.Duration = constants.DefaultDuration
	config.Simulation.Interval = constants.DefaultInterval
	config.GPS.BaudRate = constants.DefaultGPSBaud
	return &config
}

// LoadConfig loads the YAML configuration from the specified file on top of
// DefaultConfig. Keys missing from the file keep their default values.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	exists, err := fileClient.IsFileExists(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file %s: %w", filename, err)
	}
	if !exists {
		return nil, fmt.Errorf("config file %s does not exist", filename)
	}

	config := DefaultConfig()
	err = fileClient.ReadYamlFile(filename, config)
	if err != nil {
		return nil, err
	}

	return config, nil
}
