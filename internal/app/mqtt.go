// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/nmea_location/internal/gps"
	"github.com/relabs-tech/nmea_location/internal/location"
)

// connectMQTT connects to the broker and blocks until the connection is up.
func connectMQTT(broker, clientID, component string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect to %s: %w", broker, token.Error())
	}
	log.Printf("%s: connected to MQTT broker at %s", component, broker)
	return client, nil
}

// subscribeFixes decodes every message on topic and hands it to sink.
func subscribeFixes(client mqtt.Client, topic string, qos byte, component string, sink gps.Sink) error {
	token := client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		f, err := location.DecodeFix(msg.Payload())
		if err != nil {
			log.Printf("%s: %v", component, err)
			return
		}
		sink.Accept(f)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("%s: subscribed to %s", component, topic)
	return nil
}
