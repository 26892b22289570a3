package alpaca

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// streamReconnectDelay is the base delay before attempting to reconnect.
	streamReconnectDelay = 2 * time.Second

	// streamMaxReconnectDelay caps the exponential backoff.
	streamMaxReconnectDelay = 60 * time.Second

	// streamReadWait is the time allowed between messages before the
	// connection is considered dead. The stream is quiet most of the day, so
	// this is generous.
	streamReadWait = 5 * time.Minute
)

// TradeUpdateHandler is called for each trade_updates event received from the
// stream.
type TradeUpdateHandler func(TradeUpdate)

// StreamClient listens to the Alpaca trade_updates WebSocket and forwards
// order lifecycle events (accepted, filled, cancelled) to a handler. It is
// observe-only: the trading loop fires orders and moves on; this stream
// exists so operators can see what became of them.
type StreamClient struct {
	wsURL     string
	apiKey    string
	apiSecret string
	handler   TradeUpdateHandler
	logger    *slog.Logger
}

// NewStreamClient creates a trade-updates stream client.
//
// wsURL is the stream endpoint, e.g. "wss://paper-api.alpaca.markets/stream".
func NewStreamClient(wsURL, apiKey, apiSecret string, handler TradeUpdateHandler, logger *slog.Logger) *StreamClient {
	return &StreamClient{
		wsURL:     wsURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		handler:   handler,
		logger:    logger.With(slog.String("component", "alpaca_stream")),
	}
}

// Run connects, authenticates, subscribes to trade_updates, and reads events
// until ctx is cancelled, reconnecting with exponential backoff on any
// connection failure.
func (s *StreamClient) Run(ctx context.Context) error {
	delay := streamReconnectDelay
	for {
		err := s.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.logger.Warn("stream disconnected, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("delay", delay),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > streamMaxReconnectDelay {
			delay = streamMaxReconnectDelay
		}
	}
}

// runOnce performs a single connect/auth/listen/read session.
func (s *StreamClient) runOnce(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return fmt.Errorf("alpaca/stream: connect: %w", err)
	}
	defer conn.Close()

	// Close the connection when the context is cancelled so the blocking
	// ReadMessage below unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	auth := map[string]any{
		"action": "authenticate",
		"data": map[string]string{
			"key_id":     s.apiKey,
			"secret_key": s.apiSecret,
		},
	}
	if err := conn.WriteJSON(auth); err != nil {
		return fmt.Errorf("alpaca/stream: send auth: %w", err)
	}

	listen := map[string]any{
		"action": "listen",
		"data": map[string][]string{
			"streams": {"trade_updates"},
		},
	}
	if err := conn.WriteJSON(listen); err != nil {
		return fmt.Errorf("alpaca/stream: send listen: %w", err)
	}

	s.logger.Info("trade update stream connected", slog.String("url", s.wsURL))

	for {
		_ = conn.SetReadDeadline(time.Now().Add(streamReadWait))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("alpaca/stream: read: %w", err)
		}

		var frame struct {
			Stream string          `json:"stream"`
			Data   json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &frame); err != nil {
			s.logger.Warn("unparseable stream frame", slog.String("error", err.Error()))
			continue
		}

		switch frame.Stream {
		case "trade_updates":
			var update TradeUpdate
			if err := json.Unmarshal(frame.Data, &update); err != nil {
				s.logger.Warn("unparseable trade update", slog.String("error", err.Error()))
				continue
			}
			if s.handler != nil {
				s.handler(update)
			}
		case "authorization":
			var status struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(frame.Data, &status); err == nil && status.Status != "authorized" {
				return fmt.Errorf("alpaca/stream: authorization failed: %s", status.Status)
			}
		case "listening":
			// Subscription acknowledgement.
		}
	}
}
