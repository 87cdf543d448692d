// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package location

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/relabs-tech/nmea_location/internal/gps"
)

// Latest keeps the most recent fix. Safe for concurrent use.
type Latest struct {
	mu   sync.RWMutex
	fix  gps.Fix
	have bool
}

// Accept stores f as the latest fix.
func (l *Latest) Accept(f gps.Fix) {
	l.mu.Lock()
	l.fix = f
	l.have = true
	l.mu.Unlock()
}

// Get returns the latest fix and whether one was seen.
func (l *Latest) Get() (gps.Fix, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fix, l.have
}

// Multi delivers each fix to every sink in order.
type Multi []gps.Sink

// Accept forwards f to all sinks.
func (m Multi) Accept(f gps.Fix) {
	for _, s := range m {
		s.Accept(f)
	}
}

// LogSink logs every fix with the given prefix.
func LogSink(logger *log.Logger, prefix string) gps.Sink {
	if logger == nil {
		logger = log.Default()
	}
	return gps.SinkFunc(func(f gps.Fix) {
		logger.Printf("%s: new fix %s", prefix, f)
	})
}

// DecodeFix unmarshals an MQTT payload into a fix.
func DecodeFix(payload []byte) (gps.Fix, error) {
	var f gps.Fix
	if err := json.Unmarshal(payload, &f); err != nil {
		return gps.Fix{}, fmt.Errorf("fix unmarshal error: %w", err)
	}
	return f, nil
}
