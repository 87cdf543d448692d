// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/nmea_location/internal/config"
)

// ForwarderConfig configures a Forwarder.
type ForwarderConfig struct {
	Addr           string
	ReconnectDelay time.Duration
	DialTimeout    time.Duration
	Debug          bool
	Logger         *log.Logger
}

// ForwarderStats counts lines read from the GPS and what became of them.
type ForwarderStats struct {
	Lines       uint64
	Forwarded   uint64
	Dropped     uint64 // read while no receiver connection was up
	BadChecksum uint64 // forwarded anyway, the receiver rejects them
}

// Forwarder copies NMEA lines from a serial GPS to a TCP receiver. While
// the receiver is unreachable lines are read and discarded so the GPS
// output never backs up, and the connection is retried every
// ReconnectDelay.
type Forwarder struct {
	cfg ForwarderConfig

	mu   sync.Mutex
	link *link

	up chan struct{} // signalled on every new connection, for tests

	lines       atomic.Uint64
	forwarded   atomic.Uint64
	dropped     atomic.Uint64
	badChecksum atomic.Uint64
}

type link struct {
	conn net.Conn
	dead chan struct{}
	once sync.Once
}

func (l *link) close() {
	l.once.Do(func() {
		l.conn.Close()
		close(l.dead)
	})
}

// NewForwarder creates a forwarder.
func NewForwarder(cfg ForwarderConfig) *Forwarder {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Forwarder{cfg: cfg, up: make(chan struct{}, 1)}
}

// Run forwards lines from src until ctx is done or src fails. Closing src
// is the caller's job; a blocked serial read only returns once the port
// is closed.
func (f *Forwarder) Run(ctx context.Context, src io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		f.maintain(ctx)
	}()
	defer func() {
		cancel()
		f.disconnect()
		wg.Wait()
	}()

	reader := bufio.NewReader(src)
	for {
		line, err := reader.ReadString('\n')
		if err == nil {
			f.forward(line)
			continue
		}
		if ctx.Err() != nil || errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("forwarder: serial read: %w", err)
	}
}

// Stats returns the current counters.
func (f *Forwarder) Stats() ForwarderStats {
	return ForwarderStats{
		Lines:       f.lines.Load(),
		Forwarded:   f.forwarded.Load(),
		Dropped:     f.dropped.Load(),
		BadChecksum: f.badChecksum.Load(),
	}
}

func (f *Forwarder) forward(line string) {
	trimmed := strings.TrimRight(line, "\r\n")
	if trimmed == "" {
		return
	}
	f.lines.Add(1)

	if !checksumOK(trimmed) {
		f.badChecksum.Add(1)
		if f.cfg.Debug {
			f.cfg.Logger.Printf("forwarder: bad checksum: %q", trimmed)
		}
	}

	l := f.current()
	if l == nil {
		f.dropped.Add(1)
		return
	}
	if _, err := io.WriteString(l.conn, trimmed+"\r\n"); err != nil {
		f.cfg.Logger.Printf("forwarder: write to %s failed: %v", f.cfg.Addr, err)
		f.drop(l)
		f.dropped.Add(1)
		return
	}
	f.forwarded.Add(1)
}

// checksumOK reports whether a "$body*HH" line carries a matching checksum.
func checksumOK(line string) bool {
	if !strings.HasPrefix(line, "$") {
		return false
	}
	body, digits, ok := strings.Cut(line[1:], "*")
	if !ok {
		return false
	}
	return strings.EqualFold(nmea.Checksum(body), digits)
}

func (f *Forwarder) current() *link {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.link
}

func (f *Forwarder) drop(l *link) {
	f.mu.Lock()
	if f.link == l {
		f.link = nil
	}
	f.mu.Unlock()
	l.close()
}

func (f *Forwarder) disconnect() {
	if l := f.current(); l != nil {
		f.drop(l)
	}
}

// maintain keeps one receiver connection open, redialling after every
// failure or loss.
func (f *Forwarder) maintain(ctx context.Context) {
	dialer := net.Dialer{Timeout: f.cfg.DialTimeout}
	for {
		conn, err := dialer.DialContext(ctx, "tcp", f.cfg.Addr)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			f.cfg.Logger.Printf("forwarder: connect to %s failed: %v (retrying in %s)", f.cfg.Addr, err, f.cfg.ReconnectDelay)
		} else {
			l := &link{conn: conn, dead: make(chan struct{})}
			f.mu.Lock()
			f.link = l
			f.mu.Unlock()
			f.cfg.Logger.Printf("forwarder: connected to %s", f.cfg.Addr)
			select {
			case f.up <- struct{}{}:
			default:
			}

			select {
			case <-ctx.Done():
				f.drop(l)
				return
			case <-l.dead:
			}
			f.cfg.Logger.Printf("forwarder: connection to %s lost (retrying in %s)", f.cfg.Addr, f.cfg.ReconnectDelay)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(f.cfg.ReconnectDelay):
		}
	}
}

// RunForwarder opens the GPS serial port and forwards its sentences to the
// receiver.
func RunForwarder(ctx context.Context) error {
	cfg := config.Get()

	serialOpts := serial.OpenOptions{
		PortName:              cfg.GPSSerialPort,
		BaudRate:              uint(cfg.GPSBaudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	port, err := serial.Open(serialOpts)
	if err != nil {
		return fmt.Errorf("forwarder: open %s: %w", serialOpts.PortName, err)
	}
	log.Printf("forwarder: serial port opened on %s at %d baud", serialOpts.PortName, serialOpts.BaudRate)

	go func() {
		<-ctx.Done()
		port.Close()
	}()

	fwd := NewForwarder(ForwarderConfig{
		Addr:           cfg.ForwardAddr,
		ReconnectDelay: cfg.ReconnectDelayDuration(),
		Debug:          cfg.ParserDebug,
	})
	err = fwd.Run(ctx, port)
	port.Close()

	s := fwd.Stats()
	log.Printf("forwarder: stopped: lines=%d forwarded=%d dropped=%d bad_checksum=%d",
		s.Lines, s.Forwarded, s.Dropped, s.BadChecksum)
	return err
}
