package stripegw

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go"
	"github.com/stripe/stripe-go/paymentintent"
	"golang.org/x/time/rate"

	"hotel_booking/internal/adapters/observability"
)

// Gateway implements domain.PaymentGateway against Stripe. Calls are rate
// limited client-side; each intent carries a fresh idempotency key so a
// transport-level retry inside the SDK cannot double-create.
type Gateway struct {
	rl *rate.Limiter
}

func New(secretKey string, rps int) (*Gateway, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}
	if rps <= 0 {
		rps = 5
	}
	stripe.Key = secretKey
	return &Gateway{rl: rate.NewLimiter(rate.Limit(rps), rps)}, nil
}

func (g *Gateway) CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (string, error) {
	if err := g.rl.Wait(ctx); err != nil {
		return "", err
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountMinor),
		Currency: stripe.String(currency),
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	params.SetIdempotencyKey(uuid.New().String())

	start := time.Now()
	pi, err := paymentintent.New(params)
	observability.ObserveGateway("create_intent", err, time.Since(start))
	if err != nil {
		return "", err
	}
	return pi.ClientSecret, nil
}
