// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/nmea_location/internal/config"
	"github.com/relabs-tech/nmea_location/internal/gps"
	"github.com/relabs-tech/nmea_location/internal/location"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

const wsWriteTimeout = 5 * time.Second

// WebServer serves the latest fix over HTTP and streams new fixes to
// websocket clients. It is a gps.Sink.
type WebServer struct {
	staticDir string
	latest    location.Latest

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewWebServer creates a server. Static files come from staticDir when it
// is non-empty.
func NewWebServer(staticDir string) *WebServer {
	return &WebServer{
		staticDir: staticDir,
		clients:   make(map[*wsClient]struct{}),
	}
}

// Accept records f and pushes it to every websocket client. Slow clients
// miss fixes rather than block the caller.
func (s *WebServer) Accept(f gps.Fix) {
	s.latest.Accept(f)

	payload, err := json.Marshal(f)
	if err != nil {
		log.Printf("web: fix marshal error: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- payload:
		default:
		}
	}
}

// Handler returns the HTTP routes.
func (s *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/fix", s.handleFix)
	mux.HandleFunc("/ws", s.handleWS)
	if s.staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.staticDir)))
	}
	return mux
}

func (s *WebServer) handleFix(w http.ResponseWriter, r *http.Request) {
	f, ok := s.latest.Get()
	if !ok {
		http.Error(w, "no fix yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(f); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

func (s *WebServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, 16)}
	if f, ok := s.latest.Get(); ok {
		if payload, err := json.Marshal(f); err == nil {
			c.send <- payload
		}
	}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	done := make(chan struct{})
	go s.writeLoop(c, done)

	// Read until the client goes away; incoming messages are ignored.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("web: websocket error: %v", err)
			}
			break
		}
	}

	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	close(done)
	conn.Close()
}

func (s *WebServer) writeLoop(c *wsClient, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.conn.Close()
				return
			}
		}
	}
}

// RunWeb subscribes to fixes and serves them until ctx is done.
func RunWeb(ctx context.Context) error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb, "web")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	server := NewWebServer("web")
	if err := subscribeFixes(client, cfg.TopicFix, cfg.MQTTQoS, "web", server); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler: server.Handler(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("web: server listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
