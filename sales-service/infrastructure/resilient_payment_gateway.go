package infrastructure

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker/v2"
	"github.com/vehiclemarket/sales-system/sales-service/domain"
	"github.com/vehiclemarket/sales-system/shared/logging"
)

// ErrCircuitOpen is returned without calling the gateway while the breaker is open
var ErrCircuitOpen = errors.New("payment gateway circuit breaker open")

const defaultBreakerResetTimeout = 30 * time.Second

// CircuitBreakerConfig configures the payment gateway circuit breaker
type CircuitBreakerConfig struct {
	MaxFailures  int
	ResetTimeout time.Duration
	Logger       *logging.Logger
}

// PaymentCircuitBreaker guards the calls of one payment gateway
type PaymentCircuitBreaker = gobreaker.CircuitBreaker[*domain.GatewayPayment]

// NewCircuitBreaker opens after MaxFailures consecutive failures and lets a
// single call through once ResetTimeout has passed
func NewCircuitBreaker(cfg CircuitBreakerConfig) *PaymentCircuitBreaker {
	maxFails := uint32(1)
	if cfg.MaxFailures > 1 {
		maxFails = uint32(cfg.MaxFailures)
	}
	resetAfter := cfg.ResetTimeout
	if resetAfter <= 0 {
		resetAfter = defaultBreakerResetTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	return gobreaker.NewCircuitBreaker[*domain.GatewayPayment](gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: 1,
		Timeout:     resetAfter,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFails
		},
		// a caller giving up says nothing about the gateway
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnf("circuit breaker state changed", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})
}

// ResilientPaymentGateway bounds every gateway call with its own timeout and a
// shared circuit breaker. Reads are retried, writes are not.
type ResilientPaymentGateway struct {
	base         domain.PaymentGateway
	breaker      *PaymentCircuitBreaker
	timeout      time.Duration
	readAttempts uint
	retryDelay   time.Duration
}

var _ domain.PaymentGateway = (*ResilientPaymentGateway)(nil)

// ResilientGatewayOption configures a ResilientPaymentGateway
type ResilientGatewayOption func(*ResilientPaymentGateway)

// WithReadRetries sets how many times GetPayment is attempted and the initial delay between attempts
func WithReadRetries(attempts int, delay time.Duration) ResilientGatewayOption {
	return func(g *ResilientPaymentGateway) {
		if attempts > 0 {
			g.readAttempts = uint(attempts)
		}
		g.retryDelay = delay
	}
}

func NewResilientPaymentGateway(base domain.PaymentGateway, breaker *PaymentCircuitBreaker, timeout time.Duration, opts ...ResilientGatewayOption) *ResilientPaymentGateway {
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	if breaker == nil {
		breaker = NewCircuitBreaker(CircuitBreakerConfig{})
	}
	g := &ResilientPaymentGateway{
		base:         base,
		breaker:      breaker,
		timeout:      timeout,
		readAttempts: 1,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *ResilientPaymentGateway) CreatePayment(ctx context.Context, req domain.PaymentGatewayRequest) (*domain.GatewayPayment, error) {
	return g.call(ctx, func(ctx context.Context) (*domain.GatewayPayment, error) {
		return g.base.CreatePayment(ctx, req)
	})
}

func (g *ResilientPaymentGateway) GetPayment(ctx context.Context, id string) (*domain.GatewayPayment, error) {
	read := func() (*domain.GatewayPayment, error) {
		payment, err := g.call(ctx, func(ctx context.Context) (*domain.GatewayPayment, error) {
			return g.base.GetPayment(ctx, id)
		})
		if err != nil && (ctx.Err() != nil || errors.Is(err, ErrCircuitOpen)) {
			return nil, backoff.Permanent(err)
		}
		return payment, err
	}

	return backoff.Retry(ctx, read,
		backoff.WithBackOff(g.readBackOff()),
		backoff.WithMaxTries(g.readAttempts),
	)
}

func (g *ResilientPaymentGateway) CancelPayment(ctx context.Context, id string) (*domain.GatewayPayment, error) {
	return g.call(ctx, func(ctx context.Context) (*domain.GatewayPayment, error) {
		return g.base.CancelPayment(ctx, id)
	})
}

func (g *ResilientPaymentGateway) readBackOff() backoff.BackOff {
	if g.retryDelay <= 0 {
		return &backoff.ZeroBackOff{}
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.retryDelay
	b.MaxInterval = g.timeout
	return b
}

func (g *ResilientPaymentGateway) call(ctx context.Context, fn func(context.Context) (*domain.GatewayPayment, error)) (*domain.GatewayPayment, error) {
	payment, err := g.breaker.Execute(func() (*domain.GatewayPayment, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		return fn(callCtx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCircuitOpen
	}
	if err != nil {
		return nil, err
	}
	return payment, nil
}
