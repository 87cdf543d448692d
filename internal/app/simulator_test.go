// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"math"
	"strings"
	"testing"
	"time"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/relabs-tech/nmea_location/internal/gps"
)

func TestDMM(t *testing.T) {
	tests := []struct {
		deg       float64
		width     int
		pos, neg  string
		wantValue string
		wantDir   string
	}{
		{48.1173, 2, "N", "S", "4807.0380", "N"},
		{-11.516667, 3, "E", "W", "01131.0000", "W"},
		{0.5, 2, "N", "S", "0030.0000", "N"},
	}
	for _, tc := range tests {
		v, dir := dmm(tc.deg, tc.width, tc.pos, tc.neg)
		if v != tc.wantValue || dir != tc.wantDir {
			t.Errorf("dmm(%v)=%q,%q want %q,%q", tc.deg, v, dir, tc.wantValue, tc.wantDir)
		}
	}
}

func TestMockTrack_ParsesIntoFixes(t *testing.T) {
	start := time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC)
	track := newMockTrack(start, 48.1173, 11.516667)

	rec := newFixRecorder()
	p := gps.NewParser(rec, gps.WithLogger(quiet), gps.WithClock(func() time.Time { return start }))

	for i := 0; i < 3; i++ {
		now := start.Add(time.Duration(i) * time.Second)
		for _, s := range track.sentences(now) {
			if _, err := nmea.Parse(strings.TrimSpace(s)); err != nil {
				t.Fatalf("go-nmea rejects %q: %v", s, err)
			}
			if _, err := p.ParseLine(s); err != nil {
				t.Fatalf("ParseLine(%q): %v", s, err)
			}
		}
		f := rec.wait(t)
		if f.Timestamp != now.UnixMilli() {
			t.Fatalf("timestamp=%s want %s", f.Time(), now)
		}
		if math.Abs(f.Latitude-48.1173) > 0.0011 || math.Abs(f.Longitude-11.516667) > 0.0011 {
			t.Fatalf("fix off track: %s", f)
		}
		if f.Accuracy == nil || math.Abs(*f.Accuracy-4.5) > 1e-9 {
			t.Fatalf("accuracy=%v", f.Accuracy)
		}
		if f.Bearing == nil || f.Speed == nil {
			t.Fatalf("fix missing RMC fields: %s", f)
		}
	}
}
