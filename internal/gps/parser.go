// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"fmt"
	"log"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
)

// DefaultPrecision multiplies HDOP into Fix.Accuracy.
const DefaultPrecision = 5.0

const (
	minGGATokens = 10 // command through altitude
	minRMCTokens = 9  // command through bearing
)

// Parser turns NMEA lines into fixes for one session. It keeps assembly
// state between calls and must not be shared across goroutines.
type Parser struct {
	acc    *Accumulator
	logger *log.Logger
	debug  bool
}

type parserOptions struct {
	precision float64
	now       func() time.Time
	logger    *log.Logger
	debug     bool
}

// Option configures a Parser.
type Option func(*parserOptions)

// WithPrecision sets the HDOP multiplier used for Fix.Accuracy.
func WithPrecision(p float64) Option {
	return func(o *parserOptions) { o.precision = p }
}

// WithClock replaces time.Now, used for the date of fixes and ReceivedAt.
func WithClock(now func() time.Time) Option {
	return func(o *parserOptions) { o.now = now }
}

// WithLogger sets the logger. Defaults to log.Default().
func WithLogger(l *log.Logger) Option {
	return func(o *parserOptions) { o.logger = l }
}

// WithDebug logs every line and every rejection.
func WithDebug(on bool) Option {
	return func(o *parserOptions) { o.debug = on }
}

// NewParser creates a parser delivering fixes to sink.
func NewParser(sink Sink, opts ...Option) *Parser {
	o := parserOptions{
		precision: DefaultPrecision,
		now:       time.Now,
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Parser{
		acc:    newAccumulator(sink, o.precision, o.now, o.logger),
		logger: o.logger,
		debug:  o.debug,
	}
}

// State returns the accumulator state.
func (p *Parser) State() State {
	return p.acc.State()
}

// Reset drops the assembly state the same way a rejected sentence does.
func (p *Parser) Reset() {
	p.acc.Reset()
}

// ParseLine parses one terminated sentence ("$...*HH\r\n") and returns it
// without the terminator. On bad framing, checksum, command or field
// structure it resets the assembly state and returns "" with an error that
// matches one of the package sentinels. Unknown sentence types are accepted
// and ignored.
func (p *Parser) ParseLine(line string) (string, error) {
	if p.debug {
		p.logger.Printf("gps: data %q", line)
	}

	body, digits, hasChecksum, err := Frame(line)
	if err != nil {
		return p.reject(err)
	}
	if !hasChecksum {
		return p.reject(fmt.Errorf("%w: no checksum", ErrChecksum))
	}
	if err := ValidateChecksum(body, digits); err != nil {
		return p.reject(err)
	}

	fields := strings.Split(body, ",")
	command := fields[0]
	if len(command) != 5 {
		return p.reject(fmt.Errorf("%w: %q", ErrMalformedCommand, command))
	}

	switch kind := command[2:]; kind {
	case "GGA":
		if len(fields) < minGGATokens {
			return p.reject(fmt.Errorf("%w: %s has %d fields", ErrMalformedFields, command, len(fields)))
		}
		p.acc.position(positionReport{
			time:    fields[1],
			lat:     fields[2],
			latDir:  fields[3],
			lon:     fields[4],
			lonDir:  fields[5],
			quality: fields[6],
			sats:    fields[7],
			hdop:    fields[8],
			alt:     fields[9],
		})
	case "RMC":
		if len(fields) < minRMCTokens {
			return p.reject(fmt.Errorf("%w: %s has %d fields", ErrMalformedFields, command, len(fields)))
		}
		p.acc.minimum(minimumReport{
			time:    fields[1],
			status:  fields[2],
			lat:     fields[3],
			latDir:  fields[4],
			lon:     fields[5],
			lonDir:  fields[6],
			speed:   fields[7],
			bearing: fields[8],
		})
	case "GSA", "VTG", "GLL":
		// Checked for structure, then dropped.
		if _, err := nmea.Parse("$" + body + "*" + digits); err != nil {
			return p.reject(fmt.Errorf("%w: %v", ErrMalformedFields, err))
		}
	default:
		if p.debug {
			p.logger.Printf("gps: ignoring %s", command)
		}
	}

	return strings.TrimSuffix(line, Terminator), nil
}

func (p *Parser) reject(err error) (string, error) {
	p.acc.Reset()
	if p.debug {
		p.logger.Printf("gps: sentence rejected: %v", err)
	}
	return "", err
}
