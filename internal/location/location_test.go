// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package location

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/nmea_location/internal/gps"
)

type fakeToken struct{ err error }

func (t fakeToken) Wait() bool                     { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Error() error                   { return t.err }
func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type message struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	mu   sync.Mutex
	msgs []message
	err  error
	sent chan struct{}
}

func newFakeClient() *fakeClient {
	return &fakeClient{sent: make(chan struct{}, 16)}
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	c.msgs = append(c.msgs, message{topic, qos, retained, payload.([]byte)})
	err := c.err
	c.mu.Unlock()
	c.sent <- struct{}{}
	return fakeToken{err: err}
}

func (c *fakeClient) messages() []message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]message(nil), c.msgs...)
}

func waitSent(t *testing.T, c *fakeClient) {
	t.Helper()
	select {
	case <-c.sent:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for publish")
	}
}

func testFix() gps.Fix {
	alt := 545.4
	sats := 8
	return gps.Fix{
		Timestamp:  time.Date(2026, time.October, 17, 12, 35, 19, 0, time.UTC).UnixMilli(),
		Latitude:   48.1173,
		Longitude:  11.516667,
		Altitude:   &alt,
		Satellites: &sats,
	}
}

func TestPublisher_PublishesJSON(t *testing.T) {
	client := newFakeClient()
	p := NewPublisher(client, PublisherConfig{Topic: "location/fix", QoS: 1, Retain: true})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	p.Accept(testFix())
	waitSent(t, client)
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	msgs := client.messages()
	if len(msgs) != 1 {
		t.Fatalf("got %d messages want 1", len(msgs))
	}
	m := msgs[0]
	if m.topic != "location/fix" || m.qos != 1 || !m.retained {
		t.Fatalf("message=%+v", m)
	}
	got, err := DecodeFix(m.payload)
	if err != nil {
		t.Fatalf("DecodeFix: %v", err)
	}
	if got.Latitude != 48.1173 || got.Altitude == nil || *got.Altitude != 545.4 || got.Speed != nil {
		t.Fatalf("decoded=%+v", got)
	}
	if published, _, _ := p.Stats(); published != 1 {
		t.Fatalf("published=%d", published)
	}
}

func TestPublisher_DropsWhenQueueFull(t *testing.T) {
	p := NewPublisher(newFakeClient(), PublisherConfig{Topic: "t", QueueSize: 1})
	p.Accept(testFix())
	p.Accept(testFix())
	if _, dropped, _ := p.Stats(); dropped != 1 {
		t.Fatalf("dropped=%d want 1", dropped)
	}
}

func TestPublisher_CountsFailures(t *testing.T) {
	client := newFakeClient()
	client.err = errors.New("not connected")
	p := NewPublisher(client, PublisherConfig{Topic: "t"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	p.Accept(testFix())
	waitSent(t, client)

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, _, failed := p.Stats(); failed == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("failure not counted")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLatestAndMulti(t *testing.T) {
	var latest Latest
	if _, ok := latest.Get(); ok {
		t.Fatalf("expected no fix yet")
	}

	var count int
	m := Multi{&latest, gps.SinkFunc(func(gps.Fix) { count++ })}
	m.Accept(testFix())

	f, ok := latest.Get()
	if !ok || f.Latitude != 48.1173 {
		t.Fatalf("latest=%+v ok=%v", f, ok)
	}
	if count != 1 {
		t.Fatalf("count=%d", count)
	}
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	LogSink(log.New(&buf, "", 0), "receiver").Accept(testFix())
	if !strings.HasPrefix(buf.String(), "receiver: new fix time=2026-10-17T12:35:19.000Z") {
		t.Fatalf("log=%q", buf.String())
	}
}

func TestDecodeFix_Invalid(t *testing.T) {
	if _, err := DecodeFix([]byte("{")); err == nil {
		t.Fatalf("expected error")
	}
}
