package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/pairbot/internal/domain"
)

// SignalBus implements domain.SignalBus by publishing each cycle's decision
// as JSON on a Redis Pub/Sub channel. The engine is write-only here: nothing
// in the bot consumes the channel, it exists for dashboards and external
// observers.
type SignalBus struct {
	rdb     *redis.Client
	channel string
}

// NewSignalBus creates a SignalBus publishing on the given channel.
func NewSignalBus(c *Client, channel string) *SignalBus {
	return &SignalBus{rdb: c.Underlying(), channel: channel}
}

// decisionMessage is the wire form of a published decision.
type decisionMessage struct {
	Action      string    `json:"action"`
	LongSymbol  string    `json:"long_symbol,omitempty"`
	ShortSymbol string    `json:"short_symbol,omitempty"`
	Spread      float64   `json:"spread"`
	Threshold   float64   `json:"threshold"`
	DecidedAt   time.Time `json:"decided_at"`
}

// PublishDecision serializes d and publishes it on the configured channel.
func (b *SignalBus) PublishDecision(ctx context.Context, d domain.TradeDecision) error {
	payload, err := json.Marshal(decisionMessage{
		Action:      string(d.Action),
		LongSymbol:  d.LongSymbol,
		ShortSymbol: d.ShortSymbol,
		Spread:      d.Spread,
		Threshold:   d.Threshold,
		DecidedAt:   d.DecidedAt,
	})
	if err != nil {
		return fmt.Errorf("redis: marshal decision: %w", err)
	}

	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", b.channel, err)
	}
	return nil
}
