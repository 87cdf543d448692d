// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"fmt"
	"strings"
	"time"
)

// Fix represents a single combined GPS fix suitable for JSON and MQTT.
//
// Latitude and Longitude default to zero when no sentence reported them.
// The pointer fields are nil when not reported.
type Fix struct {
	Timestamp  int64    `json:"timestamp"`             // epoch ms, GPS time of day on the current UTC date
	Latitude   float64  `json:"lat"`                   // decimal degrees, south negative
	Longitude  float64  `json:"lon"`                   // decimal degrees, west negative
	Altitude   *float64 `json:"alt_m,omitempty"`       // metres above mean sea level
	Accuracy   *float64 `json:"accuracy_m,omitempty"`  // HDOP * precision
	Speed      *float64 `json:"speed_mps,omitempty"`   // metres per second
	Bearing    *float64 `json:"bearing_deg,omitempty"` // degrees true
	Satellites *int     `json:"satellites,omitempty"`  // satellites in use
	ReceivedAt int64    `json:"received_at"`           // epoch ms, wall clock when the parser started the fix
}

// Time returns the GPS timestamp as a time.Time in UTC.
func (f Fix) Time() time.Time {
	return time.UnixMilli(f.Timestamp).UTC()
}

// String renders the fix on one line, leaving out unreported fields.
func (f Fix) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "time=%s lat=%.6f lon=%.6f", f.Time().Format("2006-01-02T15:04:05.000Z"), f.Latitude, f.Longitude)
	if f.Altitude != nil {
		fmt.Fprintf(&b, " alt=%.1fm", *f.Altitude)
	}
	if f.Accuracy != nil {
		fmt.Fprintf(&b, " acc=%.1fm", *f.Accuracy)
	}
	if f.Speed != nil {
		fmt.Fprintf(&b, " speed=%.2fm/s", *f.Speed)
	}
	if f.Bearing != nil {
		fmt.Fprintf(&b, " bearing=%.1f", *f.Bearing)
	}
	if f.Satellites != nil {
		fmt.Fprintf(&b, " sats=%d", *f.Satellites)
	}
	return b.String()
}

// Sink receives finished fixes. Accept is called synchronously from the
// parse call and should not block.
type Sink interface {
	Accept(Fix)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Fix)

// Accept calls fn(f).
func (fn SinkFunc) Accept(f Fix) { fn(f) }

func floatPtr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }
