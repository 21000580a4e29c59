package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Alturino/shopcart/cart/internal/metrics"
	inErrors "github.com/Alturino/shopcart/internal/errors"
)

// InstrumentedStorage records the latency of every call on the storage histogram.
type InstrumentedStorage struct {
	driver string
	next   Storage
}

func NewInstrumentedStorage(driver string, next Storage) *InstrumentedStorage {
	return &InstrumentedStorage{driver: driver, next: next}
}

func (s *InstrumentedStorage) Get(c context.Context, key string) ([]byte, error) {
	start := time.Now()
	blob, err := s.next.Get(c, key)
	observed := err
	if errors.Is(err, inErrors.ErrBlobNotFound) {
		observed = nil
	}
	metrics.ObserveStorage(s.driver, "get", start, observed)
	return blob, err
}

func (s *InstrumentedStorage) Set(c context.Context, key string, value []byte) error {
	start := time.Now()
	err := s.next.Set(c, key, value)
	metrics.ObserveStorage(s.driver, "set", start, err)
	return err
}

func (s *InstrumentedStorage) Delete(c context.Context, key string) error {
	start := time.Now()
	err := s.next.Delete(c, key)
	metrics.ObserveStorage(s.driver, "delete", start, err)
	return err
}
