// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

const (
	msPerDay     = int64(24 * time.Hour / time.Millisecond)
	msPerHalfDay = msPerDay / 2
)

// Latitude converts a ddmm.mmmm value and N/S orientation to decimal degrees.
// An empty or unparseable value, or an orientation other than N or S,
// yields 0.
func Latitude(value, orientation string) float64 {
	return dmmToDegrees(value, orientation, "N", "S")
}

// Longitude converts a dddmm.mmmm value and E/W orientation to decimal
// degrees. An empty or unparseable value, or an orientation other than E
// or W, yields 0.
func Longitude(value, orientation string) float64 {
	return dmmToDegrees(value, orientation, "E", "W")
}

func dmmToDegrees(value, orientation, positive, negative string) float64 {
	if value == "" || orientation == "" {
		return 0
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	deg := math.Floor(v / 100)
	dec := deg + (v/100-deg)/0.6
	switch orientation {
	case positive:
		return dec
	case negative:
		return -dec
	default:
		return 0
	}
}

// Speed converts a ground speed to metres per second. unit is "K" for km/h
// or "N" for knots. The knots path divides by 3.6 before applying 1.852,
// so knots come out as (v/3.6)*1.852 rather than v*0.514444; downstream
// consumers were calibrated against this.
func Speed(value, unit string) float64 {
	if value == "" || unit == "" {
		return 0
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	mps := v / 3.6
	switch unit {
	case "K":
		return mps
	case "N":
		return mps * 1.852
	default:
		return 0
	}
}

// Timestamp turns an hhmmss[.sss] time token into epoch milliseconds on the
// UTC day of now. When the result lands more than twelve hours away from now
// it is moved one day towards now, which covers receivers reporting just
// across midnight. A malformed token yields 0 and ErrMalformedTimeToken.
func Timestamp(token string, now time.Time) (int64, error) {
	ofDay, err := timeOfDay(token)
	if err != nil {
		return 0, err
	}

	nowMs := now.UnixMilli()
	ts := nowMs - nowMs%msPerDay + ofDay
	switch {
	case ts-nowMs > msPerHalfDay:
		ts -= msPerDay
	case nowMs-ts > msPerHalfDay:
		ts += msPerDay
	}
	return ts, nil
}

// timeOfDay reads hhmmss.sss into milliseconds since midnight. Tokens
// without a fraction are padded to three decimals first. Field ranges are
// not checked, so 60 seconds rolls into the next minute.
func timeOfDay(token string) (int64, error) {
	v, err := strconv.ParseFloat(token, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTimeToken, token)
	}
	s := fmt.Sprintf("%010.3f", v)
	if len(s) != 10 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTimeToken, token)
	}

	hh, _ := strconv.ParseInt(s[0:2], 10, 64)
	mm, _ := strconv.ParseInt(s[2:4], 10, 64)
	ss, _ := strconv.ParseInt(s[4:6], 10, 64)
	ms, _ := strconv.ParseInt(s[7:10], 10, 64)
	return ((hh*60+mm)*60+ss)*1000 + ms, nil
}
