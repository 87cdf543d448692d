// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"image"
	"log"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/nmea_location/internal/config"
	"github.com/relabs-tech/nmea_location/internal/gps"
	"github.com/relabs-tech/nmea_location/internal/location"
)

const (
	displayWidth  = 128
	displayHeight = 64
	lineHeight    = 13
)

// addrBus sends every transaction to addr. The ssd1306 driver always
// addresses 0x3C; this lets a panel strapped to 0x3D work too.
type addrBus struct {
	i2c.Bus
	addr uint16
}

func (b addrBus) Tx(_ uint16, w, r []byte) error {
	return b.Bus.Tx(b.addr, w, r)
}

// fixLines returns the text shown on the OLED for a fix, at most four
// lines of 18 characters.
func fixLines(f gps.Fix, have bool) []string {
	if !have {
		return []string{"", "GPS Position", "Waiting..."}
	}

	latDir, lat := "N", f.Latitude
	if lat < 0 {
		latDir, lat = "S", -lat
	}
	lonDir, lon := "E", f.Longitude
	if lon < 0 {
		lonDir, lon = "W", -lon
	}

	lines := []string{
		fmt.Sprintf("%.5f%s", lat, latDir),
		fmt.Sprintf("%.5f%s", lon, lonDir),
	}

	alt := "Alt: --"
	if f.Altitude != nil {
		alt = fmt.Sprintf("Alt: %.0fm", *f.Altitude)
	}
	if f.Satellites != nil {
		alt += fmt.Sprintf(" S:%d", *f.Satellites)
	}
	lines = append(lines, alt)

	if f.Speed != nil {
		lines = append(lines, fmt.Sprintf("%.1fkm/h %s", *f.Speed*3.6, f.Time().Format("15:04:05")))
	} else {
		lines = append(lines, f.Time().Format("15:04:05")+"Z")
	}
	return lines
}

// renderLines draws lines top to bottom on a blank 1-bit image.
func renderLines(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		drawer.Dot = fixed.P(0, (i+1)*lineHeight)
		drawer.DrawString(line)
	}
	return img
}

// RunDisplay shows the latest fix on an SSD1306 OLED.
func RunDisplay(ctx context.Context) error {
	cfg := config.Get()

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(cfg.DisplayI2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(addrBus{Bus: bus, addr: cfg.DisplayI2CAddr}, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized at 0x%02X", cfg.DisplayI2CAddr)

	splash := renderLines([]string{"", " NMEA Location", "  Looking for", "     sats"})
	if err := dev.Draw(dev.Bounds(), splash, image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDisplay, "display")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	var latest location.Latest
	if err := subscribeFixes(client, cfg.TopicFix, cfg.MQTTQoS, "display", &latest); err != nil {
		return err
	}

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")
	for {
		select {
		case <-ctx.Done():
			log.Println("display: shutting down")
			return dev.Halt()
		case <-ticker.C:
			f, have := latest.Get()
			if err := dev.Draw(dev.Bounds(), renderLines(fixLines(f, have)), image.Point{}); err != nil {
				log.Printf("display: error updating display: %v", err)
			}
		}
	}
}
