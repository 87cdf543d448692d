// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"log"
	"strconv"
	"time"
)

// Phase is the assembly state of the accumulator.
type Phase int

const (
	// PhaseIdle: no time token recorded. A fix left over from a reset may
	// still be held and is flushed when the next fix starts.
	PhaseIdle Phase = iota
	// PhaseAssembling: a fix is being built for the current time token.
	PhaseAssembling
	// PhaseReady: both GGA and RMC contributed. The accumulator flushes in
	// the same call, so this phase is never observed between calls.
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAssembling:
		return "assembling"
	case PhaseReady:
		return "ready"
	default:
		return "phase(" + strconv.Itoa(int(p)) + ")"
	}
}

// contributor records which complementary sentence fed the current fix.
type contributor uint8

const (
	contributorNone     contributor = iota
	contributorPosition             // GGA
	contributorMinimum              // RMC
)

// State is a read-only view of the accumulator, for status output and tests.
type State struct {
	Phase                 Phase
	TimeToken             string
	SawPositionFix        bool
	SawRecommendedMinimum bool
	Holding               bool // a fix object is held, possibly stale
}

// Accumulator merges GGA and RMC reports sharing a time token into one Fix.
// It is not safe for concurrent use; each session owns one.
type Accumulator struct {
	sink      Sink
	precision float64
	now       func() time.Time
	logger    *log.Logger

	phase Phase
	token string
	seen  contributor
	fix   *Fix
}

// positionReport carries the GGA fields the accumulator consumes.
type positionReport struct {
	time, lat, latDir, lon, lonDir, quality, sats, hdop, alt string
}

// minimumReport carries the RMC fields the accumulator consumes.
type minimumReport struct {
	time, status, lat, latDir, lon, lonDir, speed, bearing string
}

func newAccumulator(sink Sink, precision float64, now func() time.Time, logger *log.Logger) *Accumulator {
	return &Accumulator{
		sink:      sink,
		precision: precision,
		now:       now,
		logger:    logger,
	}
}

// State returns the current accumulator state.
func (a *Accumulator) State() State {
	return State{
		Phase:                 a.phase,
		TimeToken:             a.token,
		SawPositionFix:        a.seen == contributorPosition,
		SawRecommendedMinimum: a.seen == contributorMinimum,
		Holding:               a.fix != nil,
	}
}

// Reset forgets the time token and contributors after bad input. The fix
// object is kept and goes out with the next flush.
func (a *Accumulator) Reset() {
	a.phase = PhaseIdle
	a.token = ""
	a.seen = contributorNone
}

func (a *Accumulator) position(r positionReport) {
	if r.quality == "" || r.quality == "0" {
		return
	}
	if a.phase == PhaseIdle || r.time != a.token {
		a.begin(r.time)
	}

	f := a.fix
	if r.lat != "" {
		f.Latitude = Latitude(r.lat, r.latDir)
	}
	if r.lon != "" {
		f.Longitude = Longitude(r.lon, r.lonDir)
	}
	if v, ok := a.float("hdop", r.hdop); ok {
		f.Accuracy = floatPtr(v * a.precision)
	}
	if v, ok := a.float("altitude", r.alt); ok {
		f.Altitude = floatPtr(v)
	}
	if r.sats != "" {
		if n, err := strconv.Atoi(r.sats); err == nil {
			f.Satellites = intPtr(n)
		} else {
			a.logger.Printf("gps: ignoring satellites %q: %v", r.sats, err)
		}
	}

	a.contribute(contributorPosition)
}

func (a *Accumulator) minimum(r minimumReport) {
	if r.status != "A" {
		return
	}
	if a.phase == PhaseIdle || (r.time != "" && r.time != a.token) {
		a.begin(r.time)
	}

	f := a.fix
	if r.lat != "" {
		f.Latitude = Latitude(r.lat, r.latDir)
	}
	if r.lon != "" {
		f.Longitude = Longitude(r.lon, r.lonDir)
	}
	if r.speed != "" {
		f.Speed = floatPtr(Speed(r.speed, "N"))
	}
	if v, ok := a.float("bearing", r.bearing); ok {
		f.Bearing = floatPtr(v)
	}

	a.contribute(contributorMinimum)
}

// begin flushes whatever is held and starts a fix for token.
func (a *Accumulator) begin(token string) {
	a.flush()

	now := a.now()
	ts, err := Timestamp(token, now)
	if err != nil {
		a.logger.Printf("gps: %v, fix time set to 0", err)
	}
	a.fix = &Fix{Timestamp: ts, ReceivedAt: now.UnixMilli()}
	a.phase = PhaseAssembling
	a.token = token
	a.seen = contributorNone
}

func (a *Accumulator) contribute(c contributor) {
	if a.seen == contributorNone || a.seen == c {
		a.seen = c
		return
	}
	a.phase = PhaseReady
	a.flush()
}

// flush hands the held fix to the sink and clears all state.
func (a *Accumulator) flush() {
	f := a.fix
	a.fix = nil
	a.Reset()
	if f != nil {
		a.sink.Accept(*f)
	}
}

func (a *Accumulator) float(name, s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		a.logger.Printf("gps: ignoring %s %q: %v", name, s, err)
		return 0, false
	}
	return v, true
}
