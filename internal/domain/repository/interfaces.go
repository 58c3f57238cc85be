package repository

import (
	"context"
	"time"

	"OptionWatch/internal/domain/models"
)

// MarketData supplies underlying prices, bar history, and option chains.
// All methods are fallible and potentially slow; callers own the timeout policy.
type MarketData interface {
	GetPrice(ctx context.Context, symbol string) (float64, error)
	GetBars(ctx context.Context, symbol string, interval Interval, rng string) ([]models.Bar, error)
	GetOptionChain(ctx context.Context, symbol string) (*models.OptionChain, error)
}

// Publisher routes quote observations to a message broker.
type Publisher interface {
	Publish(ctx context.Context, o *models.QuoteObservation) error
	PublishBatch(ctx context.Context, obs []*models.QuoteObservation) error
	Close() error
}

// Storage persists and queries quote observations.
type Storage interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, o *models.QuoteObservation) error
	StoreBatch(ctx context.Context, obs []*models.QuoteObservation) error
	Query(ctx context.Context, symbol, contractID string, from, to time.Time, limit int) ([]*models.QuoteObservation, error)
	Health(ctx context.Context) error // ping
	Close() error
}

type Metrics interface {
	RecordGrade(symbol string, grade models.SignalGrade)
	RecordObservation(backend, symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
