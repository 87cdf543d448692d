// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"reflect"
	"testing"

	"github.com/relabs-tech/nmea_location/internal/gps"
)

func TestFixLines(t *testing.T) {
	speed := 10.0
	sats := 8
	f := sampleFix(-33.8688)
	f.Longitude = -70.5
	f.Speed = &speed
	f.Satellites = &sats

	tests := []struct {
		name string
		fix  gps.Fix
		have bool
		want []string
	}{
		{"waiting", gps.Fix{}, false, []string{"", "GPS Position", "Waiting..."}},
		{"full", f, true, []string{"33.86880S", "70.50000W", "Alt: 545m S:8", "36.0km/h 12:35:19"}},
		{"bare", gps.Fix{Latitude: 1, Longitude: 2}, true, []string{"1.00000N", "2.00000E", "Alt: --", "00:00:00Z"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := fixLines(tc.fix, tc.have)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestRenderLines(t *testing.T) {
	img := renderLines(fixLines(gps.Fix{}, false))
	if img.Bounds().Dx() != displayWidth || img.Bounds().Dy() != displayHeight {
		t.Fatalf("bounds=%v", img.Bounds())
	}
	lit := false
	for _, b := range img.Pix {
		if b != 0 {
			lit = true
			break
		}
	}
	if !lit {
		t.Fatalf("nothing drawn")
	}
	if blank := renderLines(nil); blank.Pix[0] != 0 {
		t.Fatalf("blank image not blank")
	}
}
