// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDReceiver string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string
	MQTTClientIDDisplay  string
	MQTTQoS              byte
	MQTTRetain           bool
	PublishQueueSize     int

	// Topics
	TopicFix string

	// Receiver
	ListenAddr  string
	Precision   float64
	ParserDebug bool

	// Forwarder
	GPSSerialPort  string
	GPSBaudRate    int
	ForwardAddr    string
	ReconnectDelay int // milliseconds

	// Web Server
	WebServerPort int

	// Display
	DisplayI2CBus         string
	DisplayI2CAddr        uint16
	DisplayUpdateInterval int // milliseconds
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal and Get.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration used for keys missing from the file.
func Default() *Config {
	return &Config{
		MQTTBroker:           "tcp://localhost:1883",
		MQTTClientIDReceiver: "nmea-location-receiver",
		MQTTClientIDConsole:  "nmea-location-console",
		MQTTClientIDWeb:      "nmea-location-web",
		MQTTClientIDDisplay:  "nmea-location-display",
		MQTTQoS:              0,
		MQTTRetain:           true,
		PublishQueueSize:     64,

		TopicFix: "location/fix",

		ListenAddr: ":5897",
		Precision:  5.0,

		GPSSerialPort:  "/dev/ttyUSB0",
		GPSBaudRate:    115200,
		ForwardAddr:    "localhost:5897",
		ReconnectDelay: 5000,

		WebServerPort: 8080,

		DisplayI2CAddr:        0x3C,
		DisplayUpdateInterval: 500,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines over the defaults. Blank lines and lines
// starting with '#' are skipped.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_RECEIVER":
		c.MQTTClientIDReceiver = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value
	case "MQTT_QOS":
		qos, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MQTT_QOS %q: %w", value, err)
		}
		if qos < 0 || qos > 2 {
			return fmt.Errorf("MQTT_QOS must be 0-2, got %d", qos)
		}
		c.MQTTQoS = byte(qos)
	case "MQTT_RETAIN":
		retain, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid MQTT_RETAIN %q: %w", value, err)
		}
		c.MQTTRetain = retain
	case "PUBLISH_QUEUE_SIZE":
		size, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid PUBLISH_QUEUE_SIZE %q: %w", value, err)
		}
		c.PublishQueueSize = size

	// Topics
	case "TOPIC_FIX":
		c.TopicFix = value

	// Receiver
	case "LISTEN_ADDR":
		c.ListenAddr = value
	case "PRECISION":
		p, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid PRECISION %q: %w", value, err)
		}
		c.Precision = p
	case "PARSER_DEBUG":
		debug, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid PARSER_DEBUG %q: %w", value, err)
		}
		c.ParserDebug = debug

	// Forwarder
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_BAUD_RATE %q: %w", value, err)
		}
		c.GPSBaudRate = rate
	case "FORWARD_ADDR":
		c.ForwardAddr = value
	case "RECONNECT_DELAY":
		delay, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid RECONNECT_DELAY %q: %w", value, err)
		}
		c.ReconnectDelay = delay

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Display
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, err)
		}
		c.DisplayI2CAddr = uint16(addr)
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicFix == "" {
		return fmt.Errorf("TOPIC_FIX is required")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("LISTEN_ADDR is required")
	}
	if c.Precision <= 0 {
		return fmt.Errorf("PRECISION must be positive, got %v", c.Precision)
	}
	if c.PublishQueueSize <= 0 {
		return fmt.Errorf("PUBLISH_QUEUE_SIZE must be positive, got %d", c.PublishQueueSize)
	}
	if c.GPSBaudRate <= 0 {
		return fmt.Errorf("GPS_BAUD_RATE must be positive, got %d", c.GPSBaudRate)
	}
	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("RECONNECT_DELAY must be positive, got %d", c.ReconnectDelay)
	}
	if c.DisplayUpdateInterval <= 0 {
		return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be positive, got %d", c.DisplayUpdateInterval)
	}
	return nil
}

// ReconnectDelayDuration returns RECONNECT_DELAY as a time.Duration.
func (c *Config) ReconnectDelayDuration() time.Duration {
	return time.Duration(c.ReconnectDelay) * time.Millisecond
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
