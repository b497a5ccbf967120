package hudfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AtsuiOcha/overheat-punisher/internal/hud"
)

// WSConfig configures WebSocket source behavior.
type WSConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the backoff between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is the interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is the timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is the timeout for writing control frames.
	WriteTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket source configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// WSSource is a hud.FrameSource fed by the sensor process over WebSocket.
// It keeps only the most recent valid reading: the monitor loop samples at
// its own cadence and stale intermediate readings carry no extra signal.
type WSSource struct {
	endpoint string
	config   WSConfig
	logger   *log.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	mu        sync.Mutex
	latest    *hud.Frame
	ready     chan struct{}
	readyOnce sync.Once

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWSSource connects to the sensor endpoint and starts receiving.
func NewWSSource(ctx context.Context, endpoint string, config *WSConfig, logger *log.Logger) (*WSSource, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.Default()
	}

	s := &WSSource{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger,
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
	}

	if err := s.connect(ctx); err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go s.readLoop()

	s.wg.Add(1)
	go s.pingLoop()

	return s, nil
}

// connect establishes the WebSocket connection.
func (s *WSSource) connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	s.conn = conn
	return nil
}

// PollFrame returns the most recent valid sensor frame. It blocks only
// until the first reading arrives.
func (s *WSSource) PollFrame(ctx context.Context) (*hud.Frame, error) {
	select {
	case <-s.ready:
	case <-s.done:
		return nil, fmt.Errorf("source closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	frame := *s.latest
	return &frame, nil
}

// readLoop receives sensor messages and retains the latest valid one.
// Malformed messages are dropped with a warning; read errors trigger
// reconnection with exponential backoff.
func (s *WSSource) readLoop() {
	defer s.wg.Done()

	for {
		if s.closed.Load() {
			return
		}

		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if s.config.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}
			s.logger.Printf("sensor read error: %v, reconnecting...", err)
			if !s.reconnect() {
				return
			}
			continue
		}

		s.storeReading(msg)
	}
}

// storeReading validates a raw sensor message and retains it as the latest
// frame. Invalid payloads never become frames.
func (s *WSSource) storeReading(msg []byte) {
	var reading WireReading
	if err := json.Unmarshal(msg, &reading); err != nil {
		s.logger.Printf("dropping undecodable sensor message: %v", err)
		return
	}
	if _, err := reading.Snapshot(); err != nil {
		s.logger.Printf("dropping malformed sensor reading: %v", err)
		return
	}
	if _, err := reading.Phase(); err != nil {
		s.logger.Printf("dropping malformed sensor reading: %v", err)
		return
	}

	frame := &hud.Frame{
		CapturedAt: reading.CapturedAt,
		Payload:    msg,
	}

	s.mu.Lock()
	s.latest = frame
	s.mu.Unlock()

	s.readyOnce.Do(func() { close(s.ready) })
}

// reconnect re-establishes the connection with exponential backoff.
// Returns false when the source was closed while retrying.
func (s *WSSource) reconnect() bool {
	delay := s.config.ReconnectDelay

	for {
		select {
		case <-s.done:
			return false
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := s.connect(ctx)
		cancel()
		if err == nil {
			s.logger.Printf("sensor reconnected to %s", s.endpoint)
			return true
		}

		s.logger.Printf("sensor reconnect failed: %v", err)
		delay *= 2
		if delay > s.config.MaxReconnectDelay {
			delay = s.config.MaxReconnectDelay
		}
	}
}

// pingLoop keeps the connection alive.
func (s *WSSource) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			conn := s.conn
			s.connMu.Unlock()

			deadline := time.Now().Add(s.config.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil && !s.closed.Load() {
				s.logger.Printf("sensor ping failed: %v", err)
			}
		}
	}
}

// Close shuts the source down and waits for its goroutines.
func (s *WSSource) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(s.done)

	s.connMu.Lock()
	err := s.conn.Close()
	s.connMu.Unlock()

	s.wg.Wait()
	return err
}
