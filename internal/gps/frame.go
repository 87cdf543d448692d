// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"fmt"
	"strings"
)

// Terminator ends every sentence on the wire.
const Terminator = "\r\n"

// Frame checks that line is exactly one sentence of the form
//
//	$<body>[*HH]\r\n
//
// where body contains neither '$' nor '*' and HH are two uppercase hex
// digits. It returns the body and, when present, the checksum digits.
func Frame(line string) (body, checksum string, hasChecksum bool, err error) {
	rest, ok := strings.CutSuffix(line, Terminator)
	if !ok {
		return "", "", false, fmt.Errorf("%w: missing terminator", ErrFraming)
	}
	rest, ok = strings.CutPrefix(rest, "$")
	if !ok {
		return "", "", false, fmt.Errorf("%w: missing '$'", ErrFraming)
	}

	body, checksum, hasChecksum = strings.Cut(rest, "*")
	if strings.ContainsAny(body, "$*") {
		return "", "", false, fmt.Errorf("%w: unexpected delimiter in body", ErrFraming)
	}
	if hasChecksum && !isChecksumDigits(checksum) {
		return "", "", false, fmt.Errorf("%w: bad checksum digits %q", ErrFraming, checksum)
	}
	return body, checksum, hasChecksum, nil
}

// Checksum is the running XOR of every byte of body.
func Checksum(body string) byte {
	var ck byte
	for i := 0; i < len(body); i++ {
		ck ^= body[i]
	}
	return ck
}

// FormatChecksum renders a checksum the way it appears after '*'.
func FormatChecksum(ck byte) string {
	return fmt.Sprintf("%02X", ck)
}

// ValidateChecksum compares the checksum of body against the framed digits.
func ValidateChecksum(body, digits string) error {
	if want := FormatChecksum(Checksum(body)); want != digits {
		return fmt.Errorf("%w: got %s, computed %s", ErrChecksum, digits, want)
	}
	return nil
}

// Sentence builds a terminated sentence for body, checksum included.
func Sentence(body string) string {
	return "$" + body + "*" + FormatChecksum(Checksum(body)) + Terminator
}

func isChecksumDigits(s string) bool {
	if len(s) != 2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9') && !(c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}
