// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/relabs-tech/nmea_location/internal/config"
	"github.com/relabs-tech/nmea_location/internal/gps"
)

// consolePrinter writes one line per fix.
func consolePrinter(w io.Writer) gps.Sink {
	return gps.SinkFunc(func(f gps.Fix) {
		age := time.Duration(0)
		if f.ReceivedAt != 0 {
			age = time.Since(time.UnixMilli(f.ReceivedAt)).Round(time.Millisecond)
		}
		fmt.Fprintf(w, "[FIX ] %s age=%s\n", f, age)
	})
}

// RunConsoleMQTT prints every fix published on the fix topic until ctx is
// done.
func RunConsoleMQTT(ctx context.Context) error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole, "console")
	if err != nil {
		return err
	}

	if err := subscribeFixes(client, cfg.TopicFix, cfg.MQTTQoS, "console", consolePrinter(os.Stdout)); err != nil {
		client.Disconnect(250)
		return err
	}

	<-ctx.Done()

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
