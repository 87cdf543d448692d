// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import "errors"

// All parse errors are recoverable. Every one except ErrMalformedTimeToken
// resets the accumulator before it is returned.
var (
	ErrFraming            = errors.New("nmea: line is not a sentence")
	ErrChecksum           = errors.New("nmea: checksum mismatch")
	ErrMalformedCommand   = errors.New("nmea: malformed command")
	ErrMalformedFields    = errors.New("nmea: malformed fields")
	ErrMalformedTimeToken = errors.New("nmea: malformed time token")
)
