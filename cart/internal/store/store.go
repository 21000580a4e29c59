package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alturino/shopcart/cart/internal/common/otel"
	"github.com/Alturino/shopcart/cart/internal/metrics"
	"github.com/Alturino/shopcart/cart/internal/repository"
	"github.com/Alturino/shopcart/cart/pkg/response"
	inErrors "github.com/Alturino/shopcart/internal/errors"
	"github.com/Alturino/shopcart/internal/log"
	inOtel "github.com/Alturino/shopcart/internal/otel"
)

// UpdateFunc transforms a private copy of the cart. Returning an error aborts the update.
type UpdateFunc func(items []response.CartItem) ([]response.CartItem, error)

// Store owns the cart of one shopper: the in-memory collection and its persisted blob.
type Store struct {
	mu       sync.Locker
	storage  repository.Storage
	key      string
	validate *validator.Validate
	items    []response.CartItem
}

func NewStore(storage repository.Storage, key string) *Store {
	return NewLockedStore(storage, key, &sync.Mutex{})
}

// NewLockedStore builds a store guarded by mu, shared with every other store of the same key.
func NewLockedStore(storage repository.Storage, key string, mu sync.Locker) *Store {
	return &Store{
		mu:       mu,
		storage:  storage,
		key:      key,
		validate: validateItem,
		items:    []response.CartItem{},
	}
}

func (s *Store) Key() string {
	return s.key
}

// Items returns a copy of the in-memory collection.
func (s *Store) Items() []response.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.items)
}

// Load replaces the in-memory collection with the persisted one. A missing or malformed
// blob yields an empty cart; only storage failures are returned.
func (s *Store) Load(c context.Context) ([]response.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(c)
	if err != nil {
		return clone(s.items), err
	}
	s.items = items
	return clone(items), nil
}

func (s *Store) Save(c context.Context, items []response.CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items = clone(items)
	if err := s.save(c, items); err != nil {
		return err
	}
	s.items = items
	return nil
}

// Clear deletes the persisted blob and then empties memory. Memory is untouched when the
// delete fails.
func (s *Store) Clear(c context.Context) error {
	c, span := otel.Tracer.Start(c, "Store Clear", trace.WithAttributes(attribute.String(log.KeyStorageKey, s.key)))
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Store Clear").
		Str(log.KeyStorageKey, s.key).
		Logger()

	s.mu.Lock()
	defer s.mu.Unlock()

	logger.Trace().Msg("deleting persisted cart")
	if err := s.storage.Delete(c, s.key); err != nil {
		err = fmt.Errorf("failed deleting persisted cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	s.items = []response.CartItem{}
	logger.Trace().Msg("deleted persisted cart")

	return nil
}

// Update loads the latest persisted cart, applies fn to a copy, saves the result once and
// publishes it to memory. When fn or the save fails nothing changes and the loaded items
// are returned with the error.
func (s *Store) Update(c context.Context, fn UpdateFunc) ([]response.CartItem, error) {
	c, span := otel.Tracer.Start(c, "Store Update", trace.WithAttributes(attribute.String(log.KeyStorageKey, s.key)))
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Store Update").
		Str(log.KeyStorageKey, s.key).
		Logger()

	s.mu.Lock()
	defer s.mu.Unlock()

	logger = logger.With().Str(log.KeyProcess, "loading latest cart").Logger()
	logger.Trace().Msg("loading latest cart")
	current, err := s.load(c)
	if err != nil {
		inOtel.RecordError(err, span)
		return clone(s.items), err
	}
	logger.Trace().Int(log.KeyCartItemsCount, len(current)).Msg("loaded latest cart")

	logger = logger.With().Str(log.KeyProcess, "applying update").Logger()
	logger.Trace().Msg("applying update")
	next, err := fn(clone(current))
	if err != nil {
		logger.Trace().Err(err).Msg("update rejected")
		return current, err
	}
	logger.Trace().Int(log.KeyCartItemsCount, len(next)).Msg("applied update")

	if err = s.save(c, next); err != nil {
		inOtel.RecordError(err, span)
		return current, err
	}
	s.items = clone(next)

	return clone(next), nil
}

func (s *Store) load(c context.Context) ([]response.CartItem, error) {
	c, span := otel.Tracer.Start(c, "Store load", trace.WithAttributes(attribute.String(log.KeyStorageKey, s.key)))
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Store load").
		Str(log.KeyStorageKey, s.key).
		Logger()

	logger.Trace().Msg("getting persisted cart")
	blob, err := s.storage.Get(c, s.key)
	if errors.Is(err, inErrors.ErrBlobNotFound) {
		logger.Trace().Msg("persisted cart not found, starting empty")
		return []response.CartItem{}, nil
	}
	if err != nil {
		err = fmt.Errorf("failed getting persisted cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}

	logger.Trace().Msg("decoding persisted cart")
	items, err := decode(s.validate, blob)
	if err != nil {
		metrics.CartCorruptLoadsTotal.Inc()
		logger.Warn().Err(err).Msg("discarding malformed persisted cart")
		return []response.CartItem{}, nil
	}
	logger.Trace().Int(log.KeyCartItemsCount, len(items)).Msg("decoded persisted cart")

	return items, nil
}

func (s *Store) save(c context.Context, items []response.CartItem) error {
	c, span := otel.Tracer.Start(c, "Store save", trace.WithAttributes(attribute.String(log.KeyStorageKey, s.key)))
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Store save").
		Str(log.KeyStorageKey, s.key).
		Int(log.KeyCartItemsCount, len(items)).
		Logger()

	logger.Trace().Msg("encoding cart")
	blob, err := encode(items)
	if err != nil {
		err = fmt.Errorf("failed encoding cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	logger.Trace().Msg("persisting cart")
	if err = s.storage.Set(c, s.key, blob); err != nil {
		err = fmt.Errorf("failed persisting cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("persisted cart")

	return nil
}

func clone(items []response.CartItem) []response.CartItem {
	return append(make([]response.CartItem, 0, len(items)), items...)
}
