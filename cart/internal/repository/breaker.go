package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/Alturino/shopcart/cart/internal/metrics"
	"github.com/Alturino/shopcart/internal/config"
	inErrors "github.com/Alturino/shopcart/internal/errors"
	"github.com/Alturino/shopcart/internal/log"
)

// BreakerStorage fails fast with gobreaker.ErrOpenState once the wrapped storage keeps
// failing. A missing blob counts as a successful call.
type BreakerStorage struct {
	next    Storage
	breaker *gobreaker.CircuitBreaker[[]byte]
}

func NewBreakerStorage(c context.Context, name string, next Storage, cfg config.Breaker) *BreakerStorage {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "NewBreakerStorage").
		Str(log.KeyBreakerName, name).
		Logger()

	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			metrics.StorageBreakerState.WithLabelValues(name).Set(float64(to))
			logger.Warn().
				Str(log.KeyBreakerStateFrom, from.String()).
				Str(log.KeyBreakerStateTo, to.String()).
				Msgf("storage breaker changed state from %s to %s", from.String(), to.String())
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, inErrors.ErrBlobNotFound)
		},
	}
	metrics.StorageBreakerState.WithLabelValues(name).Set(float64(gobreaker.StateClosed))

	return &BreakerStorage{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[[]byte](settings),
	}
}

func (b *BreakerStorage) State() gobreaker.State {
	return b.breaker.State()
}

func (b *BreakerStorage) Get(c context.Context, key string) ([]byte, error) {
	blob, err := b.breaker.Execute(func() ([]byte, error) {
		return b.next.Get(c, key)
	})
	if err != nil {
		return nil, b.wrap(err)
	}
	return blob, nil
}

func (b *BreakerStorage) Set(c context.Context, key string, value []byte) error {
	_, err := b.breaker.Execute(func() ([]byte, error) {
		return nil, b.next.Set(c, key, value)
	})
	return b.wrap(err)
}

func (b *BreakerStorage) Delete(c context.Context, key string) error {
	_, err := b.breaker.Execute(func() ([]byte, error) {
		return nil, b.next.Delete(c, key)
	})
	return b.wrap(err)
}

func (b *BreakerStorage) wrap(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("storage unavailable with error=%w", err)
	}
	return err
}
