// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"io"
	"log"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/relabs-tech/nmea_location/internal/gps"
)

const (
	ggaLine = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"
	rmcLine = "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A"
)

var quiet = log.New(io.Discard, "", 0)

type fixRecorder struct {
	mu    sync.Mutex
	fixes []gps.Fix
	got   chan gps.Fix
}

func newFixRecorder() *fixRecorder {
	return &fixRecorder{got: make(chan gps.Fix, 16)}
}

func (r *fixRecorder) Accept(f gps.Fix) {
	r.mu.Lock()
	r.fixes = append(r.fixes, f)
	r.mu.Unlock()
	r.got <- f
}

func (r *fixRecorder) wait(t *testing.T) gps.Fix {
	t.Helper()
	select {
	case f := <-r.got:
		return f
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for fix")
		return gps.Fix{}
	}
}

func TestReceiverSession_Counts(t *testing.T) {
	rec := newFixRecorder()
	r := NewReceiver(ReceiverConfig{Logger: quiet}, rec)

	input := strings.Join([]string{
		ggaLine + "\r\n",
		rmcLine + "\n",
		"\n",
		"$GPGGA,bad*00\n",
		strings.Repeat("x", MaxLineBytes+10) + "\n",
	}, "")

	stats := r.Session(strings.NewReader(input))
	want := SessionStats{Lines: 4, Accepted: 2, Rejected: 2, Fixes: 1}
	if stats != want {
		t.Fatalf("stats=%+v want %+v", stats, want)
	}

	f := rec.wait(t)
	if f.Latitude < 48.117 || f.Latitude > 48.118 || f.Speed == nil || f.Altitude == nil {
		t.Fatalf("fix=%s", f)
	}
}

func TestReceiverSession_LastLineWithoutTerminator(t *testing.T) {
	rec := newFixRecorder()
	r := NewReceiver(ReceiverConfig{Logger: quiet}, rec)

	stats := r.Session(strings.NewReader(ggaLine + "\n" + rmcLine))
	if stats.Accepted != 2 || stats.Fixes != 1 {
		t.Fatalf("stats=%+v", stats)
	}
}

func TestReceiver_ServeOverTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	rec := newFixRecorder()
	r := NewReceiver(ReceiverConfig{Logger: quiet}, rec)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Serve(ctx, ln) }()

	// Two sessions, each assembling its own fix.
	for i := 0; i < 2; i++ {
		conn, err := net.Dial("tcp", ln.Addr().String())
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		if _, err := io.WriteString(conn, ggaLine+"\r\n"+rmcLine+"\r\n"); err != nil {
			t.Fatalf("write: %v", err)
		}
		f := rec.wait(t)
		if f.Satellites == nil || *f.Satellites != 8 {
			t.Fatalf("fix=%s", f)
		}
		conn.Close()
	}

	// An open connection must not keep Serve from returning.
	idle, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer idle.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Serve did not return")
	}
	if got := r.Sessions(); got < 2 {
		t.Fatalf("sessions=%d", got)
	}
}

func TestReceiver_SplitSentencesDoNotMerge(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	rec := newFixRecorder()
	r := NewReceiver(ReceiverConfig{Logger: quiet}, rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Serve(ctx, ln)

	a, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer a.Close()
	b, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer b.Close()

	io.WriteString(a, ggaLine+"\r\n")
	io.WriteString(b, rmcLine+"\r\n")

	select {
	case f := <-rec.got:
		t.Fatalf("unexpected fix across sessions: %s", f)
	case <-time.After(200 * time.Millisecond):
	}
}
