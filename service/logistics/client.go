package logistics

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config controls calls to the provider.
type Config struct {
	RatePerSecond float64       `json:"ratePerSecond" yaml:"ratePerSecond" mapstructure:"ratePerSecond"`
	Burst         int           `json:"burst" yaml:"burst" mapstructure:"burst"`
	MaxFailures   uint32        `json:"maxFailures" yaml:"maxFailures" mapstructure:"maxFailures"`
	OpenTimeout   time.Duration `json:"openTimeout" yaml:"openTimeout" mapstructure:"openTimeout"`
}

// DefaultConfig returns the default provider call limits.
func DefaultConfig() *Config {
	return &Config{RatePerSecond: 10, Burst: 10, MaxFailures: 5, OpenTimeout: 30 * time.Second}
}

// Client guards a Provider with a rate limiter and a circuit breaker.
type Client struct {
	provider Provider
	breaker  *gobreaker.CircuitBreaker
	limiter  *rate.Limiter
}

var _ Provider = (*Client)(nil)

func (c *Client) CreateShipment(ctx context.Context, request *ShipmentRequest) (*Shipment, error) {
	ret, err := c.call(ctx, func() (interface{}, error) { return c.provider.CreateShipment(ctx, request) })
	if err != nil {
		return nil, err
	}
	return ret.(*Shipment), nil
}

func (c *Client) GetStatus(ctx context.Context, shipmentID string) (ShipmentStatus, error) {
	ret, err := c.call(ctx, func() (interface{}, error) { return c.provider.GetStatus(ctx, shipmentID) })
	if err != nil {
		return "", err
	}
	return ret.(ShipmentStatus), nil
}

func (c *Client) Cancel(ctx context.Context, shipmentID string) error {
	_, err := c.call(ctx, func() (interface{}, error) { return nil, c.provider.Cancel(ctx, shipmentID) })
	return err
}

func (c *Client) CheckServiceability(ctx context.Context, partnerID string) (bool, error) {
	ret, err := c.call(ctx, func() (interface{}, error) { return c.provider.CheckServiceability(ctx, partnerID) })
	if err != nil {
		return false, err
	}
	return ret.(bool), nil
}

// State returns the circuit breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

func (c *Client) call(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("logistics rate limit: %w", err)
	}
	return c.breaker.Execute(fn)
}

// NewClient wraps provider.
func NewClient(provider Provider, config *Config, logger *zap.Logger) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	maxFailures := config.MaxFailures
	if maxFailures == 0 {
		maxFailures = DefaultConfig().MaxFailures
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "logistics",
		Timeout: config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	limit := rate.Inf
	if config.RatePerSecond > 0 {
		limit = rate.Limit(config.RatePerSecond)
	}
	burst := config.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Client{provider: provider, breaker: breaker, limiter: rate.NewLimiter(limit, burst)}
}
