package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"

	kafkax "github.com/mhardiyanto/go-stock-orders/internal/kafka"
	"github.com/mhardiyanto/go-stock-orders/internal/orders"
	"github.com/mhardiyanto/go-stock-orders/internal/redisx"
)

// EmailSender and SMSSender are the outbound delivery boundaries. Actual
// transports (SMTP, SMS gateway) live outside this service.
type EmailSender interface {
	SendOrderConfirmation(ctx context.Context, to string, p orders.OrderCreatedPayload) error
}

type SMSSender interface {
	SendOrderConfirmation(ctx context.Context, phone string, p orders.OrderCreatedPayload) error
}

// Service consumes OrderCreated events and fans out customer notifications.
// The channel delivers at-least-once, so events are deduplicated by order id
// before any message goes out.
type Service struct {
	Redis       *redis.Client
	Email       EmailSender
	SMS         SMSSender
	ServiceName string
	Log         zerolog.Logger
}

// HandleOrderCreated is installed as the consumer handler.
func (s *Service) HandleOrderCreated(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderCreated {
		return nil // ignore
	}

	p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
	if err != nil {
		return err
	}

	// dedup by order id: a redelivered event must not notify twice
	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, p.OrderID)
	if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
		s.Log.Debug().Str("order_id", p.OrderID).Msg("duplicate event, skipping")
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if p.CustomerEmail != "" {
		g.Go(func() error { return s.Email.SendOrderConfirmation(gctx, p.CustomerEmail, p) })
	}
	if p.CustomerPhone != "" {
		g.Go(func() error { return s.SMS.SendOrderConfirmation(gctx, p.CustomerPhone, p) })
	}
	if err := g.Wait(); err != nil {
		return err // no dedup mark: the event will be redelivered
	}

	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	s.Log.Info().Str("order_id", p.OrderID).Msg("order notifications sent")
	return nil
}
