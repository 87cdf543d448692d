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

	"github.com/relabs-tech/nmea_location/internal/config"
	"github.com/relabs-tech/nmea_location/internal/gps"
	"github.com/relabs-tech/nmea_location/internal/location"
)

// MaxLineBytes bounds a single NMEA line read from a connection.
// Longer lines are discarded and counted as rejected.
const MaxLineBytes = 4096

// ReceiverConfig configures a Receiver.
type ReceiverConfig struct {
	Addr      string
	Precision float64
	Debug     bool
	Logger    *log.Logger
}

// SessionStats counts what happened on one connection.
type SessionStats struct {
	Lines    uint64 // non-empty lines read
	Accepted uint64 // lines that passed framing, checksum and field checks
	Rejected uint64 // lines that reset the parser
	Fixes    uint64 // fixes delivered to the sink
}

// Receiver accepts TCP connections carrying NMEA lines and feeds each one
// into its own parser session. Finished fixes from every session go to a
// shared sink, which must be safe for concurrent use.
type Receiver struct {
	cfg  ReceiverConfig
	sink gps.Sink

	mu       sync.Mutex
	conns    map[uint64]net.Conn
	nextID   uint64
	closed   bool
	wg       sync.WaitGroup
	sessions atomic.Uint64
}

// NewReceiver creates a receiver delivering fixes to sink.
func NewReceiver(cfg ReceiverConfig, sink gps.Sink) *Receiver {
	if cfg.Precision <= 0 {
		cfg.Precision = gps.DefaultPrecision
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Receiver{
		cfg:   cfg,
		sink:  sink,
		conns: make(map[uint64]net.Conn),
	}
}

// ListenAndServe listens on cfg.Addr and serves until ctx is done.
func (r *Receiver) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", r.cfg.Addr)
	if err != nil {
		return fmt.Errorf("receiver: listen on %s: %w", r.cfg.Addr, err)
	}
	return r.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done. It closes ln and all
// open connections before returning.
func (r *Receiver) Serve(ctx context.Context, ln net.Listener) error {
	r.cfg.Logger.Printf("receiver: listening on %s", ln.Addr())

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		ln.Close()
		r.closeAll()
	}()

	var err error
	for {
		conn, aerr := ln.Accept()
		if aerr != nil {
			if ctx.Err() == nil && !errors.Is(aerr, net.ErrClosed) {
				err = fmt.Errorf("receiver: accept: %w", aerr)
			}
			break
		}
		id := r.track(conn)
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			defer r.untrack(id)
			r.serveConn(conn)
		}()
	}

	close(stop)
	r.wg.Wait()
	return err
}

// Sessions returns how many connections have been served so far.
func (r *Receiver) Sessions() uint64 {
	return r.sessions.Load()
}

func (r *Receiver) track(conn net.Conn) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	if r.closed {
		conn.Close()
		return r.nextID
	}
	r.conns[r.nextID] = conn
	return r.nextID
}

func (r *Receiver) untrack(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
}

func (r *Receiver) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for _, c := range r.conns {
		c.Close()
	}
}

func (r *Receiver) serveConn(conn net.Conn) {
	defer conn.Close()
	r.sessions.Add(1)

	remote := conn.RemoteAddr().String()
	r.cfg.Logger.Printf("receiver: session %s opened", remote)

	stats := r.Session(conn)
	r.cfg.Logger.Printf("receiver: session %s closed: lines=%d accepted=%d rejected=%d fixes=%d",
		remote, stats.Lines, stats.Accepted, stats.Rejected, stats.Fixes)
}

// Session runs one parser over the lines read from rd until EOF or a read
// error, and returns the session counters.
func (r *Receiver) Session(rd io.Reader) SessionStats {
	var stats SessionStats
	sink := gps.SinkFunc(func(f gps.Fix) {
		stats.Fixes++
		r.sink.Accept(f)
	})
	parser := gps.NewParser(sink,
		gps.WithPrecision(r.cfg.Precision),
		gps.WithDebug(r.cfg.Debug),
		gps.WithLogger(r.cfg.Logger),
	)

	reader := bufio.NewReaderSize(rd, MaxLineBytes)
	for {
		line, tooLong, err := readLine(reader)
		if tooLong {
			stats.Lines++
			stats.Rejected++
			parser.Reset()
			if r.cfg.Debug {
				r.cfg.Logger.Printf("receiver: dropped line longer than %d bytes", MaxLineBytes)
			}
		} else if line != "" {
			stats.Lines++
			if _, perr := parser.ParseLine(line + gps.Terminator); perr != nil {
				stats.Rejected++
			} else {
				stats.Accepted++
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				r.cfg.Logger.Printf("receiver: read error: %v", err)
			}
			return stats
		}
	}
}

// readLine returns the next line with any "\n" or "\r\n" terminator removed.
// A line exceeding the reader's buffer is consumed and reported as tooLong.
func readLine(rd *bufio.Reader) (line string, tooLong bool, err error) {
	var b []byte
	for {
		chunk, isPrefix, rerr := rd.ReadLine()
		if rerr != nil {
			return "", tooLong, rerr
		}
		if !tooLong {
			b = append(b, chunk...)
			if len(b) > MaxLineBytes {
				tooLong = true
				b = nil
			}
		}
		if !isPrefix {
			break
		}
	}
	if tooLong {
		return "", true, nil
	}
	return strings.TrimRight(string(b), "\r"), false, nil
}

// RunReceiver listens for NMEA streams and publishes every fix to MQTT.
func RunReceiver(ctx context.Context) error {
	cfg := config.Get()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDReceiver, "receiver")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	publisher := location.NewPublisher(client, location.PublisherConfig{
		Topic:     cfg.TopicFix,
		QoS:       cfg.MQTTQoS,
		Retain:    cfg.MQTTRetain,
		QueueSize: cfg.PublishQueueSize,
	})
	pubDone := make(chan struct{})
	go func() {
		defer close(pubDone)
		publisher.Run(ctx)
	}()

	receiver := NewReceiver(ReceiverConfig{
		Addr:      cfg.ListenAddr,
		Precision: cfg.Precision,
		Debug:     cfg.ParserDebug,
	}, location.Multi{publisher, location.LogSink(nil, "receiver")})

	err = receiver.ListenAndServe(ctx)
	cancel()
	<-pubDone

	published, dropped, failed := publisher.Stats()
	log.Printf("receiver: shutting down after %d sessions: published=%d dropped=%d failed=%d",
		receiver.Sessions(), published, dropped, failed)
	return err
}
