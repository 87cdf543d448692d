// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"time"

	"github.com/relabs-tech/nmea_location/internal/config"
	"github.com/relabs-tech/nmea_location/internal/gps"
)

const (
	mockRadiusDeg = 0.001 // roughly 110 m north-south
	mockPeriod    = 120.0 // seconds per lap
	mockAltitude  = 545.4
)

// mockTrack generates GGA/RMC pairs for a receiver driving in a circle.
type mockTrack struct {
	start     time.Time
	centerLat float64
	centerLon float64
}

func newMockTrack(start time.Time, lat, lon float64) *mockTrack {
	return &mockTrack{start: start, centerLat: lat, centerLon: lon}
}

// sentences returns the terminated GGA and RMC sentences for time t.
func (m *mockTrack) sentences(t time.Time) []string {
	t = t.UTC()
	phase := 2 * math.Pi * t.Sub(m.start).Seconds() / mockPeriod
	lat := m.centerLat + mockRadiusDeg*math.Sin(phase)
	lon := m.centerLon + mockRadiusDeg*math.Cos(phase)

	// Heading is tangent to the circle, counter-clockwise.
	course := math.Mod(360+math.Atan2(-math.Sin(phase), math.Cos(phase))*180/math.Pi, 360)
	knots := 2 * math.Pi * mockRadiusDeg * 60 / (mockPeriod / 3600)

	latDMM, ns := dmm(lat, 2, "N", "S")
	lonDMM, ew := dmm(lon, 3, "E", "W")
	token := t.Format("150405.00")

	gga := fmt.Sprintf("GPGGA,%s,%s,%s,%s,%s,1,08,0.9,%.1f,M,46.9,M,,",
		token, latDMM, ns, lonDMM, ew, mockAltitude)
	rmc := fmt.Sprintf("GPRMC,%s,A,%s,%s,%s,%s,%05.1f,%05.1f,%s,003.1,W",
		token, latDMM, ns, lonDMM, ew, knots, course, t.Format("020106"))

	return []string{gps.Sentence(gga), gps.Sentence(rmc)}
}

// dmm formats decimal degrees as NMEA degrees and decimal minutes.
func dmm(deg float64, width int, pos, neg string) (string, string) {
	dir := pos
	if deg < 0 {
		dir, deg = neg, -deg
	}
	whole := math.Floor(deg)
	minutes := (deg - whole) * 60
	return fmt.Sprintf("%0*d%07.4f", width, int(whole), minutes), dir
}

// RunSimulator feeds a synthetic 1 Hz track through a forwarder to the
// receiver, for testing without a GPS attached.
func RunSimulator(ctx context.Context) error {
	cfg := config.Get()

	pr, pw := io.Pipe()
	track := newMockTrack(time.Now(), 48.1173, 11.516667)

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				pw.Close()
				return
			case t := <-ticker.C:
				for _, s := range track.sentences(t) {
					if _, err := io.WriteString(pw, s); err != nil {
						return
					}
				}
			}
		}
	}()

	fwd := NewForwarder(ForwarderConfig{
		Addr:           cfg.ForwardAddr,
		ReconnectDelay: cfg.ReconnectDelayDuration(),
		Debug:          cfg.ParserDebug,
	})
	log.Printf("simulator: sending mock track to %s", cfg.ForwardAddr)
	err := fwd.Run(ctx, pr)

	s := fwd.Stats()
	log.Printf("simulator: stopped: lines=%d forwarded=%d dropped=%d", s.Lines, s.Forwarded, s.Dropped)
	return err
}
