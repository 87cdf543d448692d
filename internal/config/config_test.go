// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader("# nothing set\n\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.ListenAddr != ":5897" {
		t.Errorf("ListenAddr=%q", cfg.ListenAddr)
	}
	if cfg.Precision != 5.0 {
		t.Errorf("Precision=%v", cfg.Precision)
	}
	if cfg.GPSBaudRate != 115200 {
		t.Errorf("GPSBaudRate=%d", cfg.GPSBaudRate)
	}
	if cfg.TopicFix != "location/fix" || !cfg.MQTTRetain {
		t.Errorf("topic=%q retain=%v", cfg.TopicFix, cfg.MQTTRetain)
	}
	if cfg.ReconnectDelayDuration() != 5*time.Second {
		t.Errorf("reconnect=%v", cfg.ReconnectDelayDuration())
	}
}

func TestParse_Overrides(t *testing.T) {
	in := `
MQTT_BROKER = tcp://broker:1883
TOPIC_FIX=car/fix
MQTT_QOS=1
MQTT_RETAIN=false
PRECISION=10
PARSER_DEBUG=true
LISTEN_ADDR=127.0.0.1:6000
DISPLAY_I2C_ADDR=0x3D
`
	cfg, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.MQTTBroker != "tcp://broker:1883" {
		t.Errorf("MQTTBroker=%q", cfg.MQTTBroker)
	}
	if cfg.TopicFix != "car/fix" || cfg.MQTTQoS != 1 || cfg.MQTTRetain {
		t.Errorf("topic=%q qos=%d retain=%v", cfg.TopicFix, cfg.MQTTQoS, cfg.MQTTRetain)
	}
	if cfg.Precision != 10 || !cfg.ParserDebug {
		t.Errorf("precision=%v debug=%v", cfg.Precision, cfg.ParserDebug)
	}
	if cfg.ListenAddr != "127.0.0.1:6000" {
		t.Errorf("ListenAddr=%q", cfg.ListenAddr)
	}
	if cfg.DisplayI2CAddr != 0x3D {
		t.Errorf("DisplayI2CAddr=%#x", cfg.DisplayI2CAddr)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no equals", "MQTT_BROKER\n", "invalid config line 1"},
		{"unknown key", "FOO=bar\n", "unknown config key"},
		{"qos range", "MQTT_QOS=3\n", "MQTT_QOS must be 0-2"},
		{"bad precision", "PRECISION=abc\n", "invalid PRECISION"},
		{"non-positive precision", "PRECISION=0\n", "PRECISION must be positive"},
		{"empty topic", "TOPIC_FIX=\n", "TOPIC_FIX is required"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.in))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err=%v want containing %q", err, tc.want)
			}
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nmea_location_config.txt")
	if err := os.WriteFile(path, []byte("GPS_SERIAL_PORT=/dev/serial0\nGPS_BAUD_RATE=9600\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GPSSerialPort != "/dev/serial0" || cfg.GPSBaudRate != 9600 {
		t.Fatalf("port=%q baud=%d", cfg.GPSSerialPort, cfg.GPSBaudRate)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
