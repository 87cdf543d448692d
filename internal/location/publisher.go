// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package location

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/nmea_location/internal/gps"
)

// TokenPublisher is the part of mqtt.Client the publisher needs.
type TokenPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// PublisherConfig holds the MQTT publish settings.
type PublisherConfig struct {
	Topic     string
	QoS       byte
	Retain    bool
	QueueSize int
}

// Publisher is a gps.Sink that publishes fixes as JSON to an MQTT topic.
// Accept only enqueues; Run does the publishing, so a slow broker never
// stalls the parser. Fixes arriving while the queue is full are dropped.
type Publisher struct {
	client TokenPublisher
	cfg    PublisherConfig
	queue  chan gps.Fix

	published atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

// NewPublisher creates a publisher. A non-positive QueueSize means 64.
func NewPublisher(client TokenPublisher, cfg PublisherConfig) *Publisher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	return &Publisher{
		client: client,
		cfg:    cfg,
		queue:  make(chan gps.Fix, cfg.QueueSize),
	}
}

// Accept enqueues f for publishing.
func (p *Publisher) Accept(f gps.Fix) {
	select {
	case p.queue <- f:
	default:
		p.dropped.Add(1)
		log.Printf("location: publish queue full, dropping fix at %s", f.Time().Format("15:04:05.000"))
	}
}

// Run publishes queued fixes until ctx is done.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case f := <-p.queue:
			if err := p.publish(f); err != nil {
				p.failed.Add(1)
				log.Printf("location: %v", err)
				continue
			}
			p.published.Add(1)
		}
	}
}

func (p *Publisher) publish(f gps.Fix) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("fix marshal error: %w", err)
	}
	token := p.client.Publish(p.cfg.Topic, p.cfg.QoS, p.cfg.Retain, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT publish error (%s): %w", p.cfg.Topic, err)
	}
	return nil
}

// Stats returns how many fixes were published, dropped and failed.
func (p *Publisher) Stats() (published, dropped, failed uint64) {
	return p.published.Load(), p.dropped.Load(), p.failed.Load()
}
