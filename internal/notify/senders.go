package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mhardiyanto/go-stock-orders/internal/orders"
)

// LogEmailSender writes the confirmation to the log instead of a mailbox.
// Stands in for a real SMTP-backed sender in local runs and tests.
type LogEmailSender struct{ Log zerolog.Logger }

func (s LogEmailSender) SendOrderConfirmation(ctx context.Context, to string, p orders.OrderCreatedPayload) error {
	s.Log.Info().
		Str("to", to).
		Str("order_id", p.OrderID).
		Str("status", string(p.Status)).
		Str("total", p.TotalAmount.String()).
		Int("items", len(p.Items)).
		Msg("order confirmation email")
	return nil
}

type LogSMSSender struct{ Log zerolog.Logger }

func (s LogSMSSender) SendOrderConfirmation(ctx context.Context, phone string, p orders.OrderCreatedPayload) error {
	s.Log.Info().
		Str("phone", phone).
		Str("order_id", p.OrderID).
		Str("total", p.TotalAmount.String()).
		Msg("order confirmation sms")
	return nil
}
