package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alturino/shopcart/cart/internal/common/otel"
	"github.com/Alturino/shopcart/cart/internal/repository"
	"github.com/Alturino/shopcart/cart/internal/store"
	"github.com/Alturino/shopcart/cart/pkg/response"
	"github.com/Alturino/shopcart/internal/clock"
	"github.com/Alturino/shopcart/internal/config"
	inErrors "github.com/Alturino/shopcart/internal/errors"
	"github.com/Alturino/shopcart/internal/log"
	inOtel "github.com/Alturino/shopcart/internal/otel"
)

const (
	defaultSessionTTL  = 30 * time.Minute
	defaultMaxSessions = 10000
)

// Registry hands out the cart and checkout of each shopper. Carts are built per call over a
// lock shared by key. Checkouts live in a bounded cache and expire once idle for the
// session TTL.
type Registry struct {
	mu            sync.Mutex
	storage       repository.Storage
	keyPrefix     string
	validate      *validator.Validate
	clock         clock.Clock
	confirmations repository.ConfirmationRepository
	locks         *store.Locks
	checkouts     *expirable.LRU[uuid.UUID, *CheckoutService]
}

func NewRegistry(
	storage repository.Storage,
	keyPrefix string,
	validate *validator.Validate,
	clk clock.Clock,
	confirmations repository.ConfirmationRepository,
	sessions config.Checkout,
) *Registry {
	if sessions.SessionTTL <= 0 {
		sessions.SessionTTL = defaultSessionTTL
	}
	if sessions.MaxSessions <= 0 {
		sessions.MaxSessions = defaultMaxSessions
	}
	return &Registry{
		storage:       storage,
		keyPrefix:     keyPrefix,
		validate:      validate,
		clock:         clk,
		confirmations: confirmations,
		locks:         store.NewLocks(0),
		checkouts: expirable.NewLRU[uuid.UUID, *CheckoutService](
			sessions.MaxSessions,
			nil,
			sessions.SessionTTL,
		),
	}
}

// Enter initialises the cart view: an unauthenticated shopper gets ErrUnauthenticated and no
// store is created, otherwise the persisted cart is loaded.
func (r *Registry) Enter(
	c context.Context,
	authenticated bool,
	shopperID uuid.UUID,
) (*CartService, response.Cart, error) {
	c, span := otel.Tracer.Start(
		c,
		"Registry Enter",
		trace.WithAttributes(attribute.String(log.KeyUserID, shopperID.String())),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Registry Enter").
		Str(log.KeyUserID, shopperID.String()).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "checking authentication").Logger()
	logger.Info().Msg("checking authentication")
	if !authenticated || shopperID == uuid.Nil {
		err := inErrors.ErrUnauthenticated
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, response.Cart{}, err
	}
	logger.Info().Msg("checked authentication")

	cartService := r.cart(shopperID)

	logger = logger.With().Str(log.KeyProcess, "loading cart").Logger()
	logger.Info().Msg("loading cart")
	c = logger.WithContext(c)
	cart, err := cartService.Cart(c)
	if err != nil {
		err = fmt.Errorf("failed loading cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return cartService, cart, err
	}
	logger.Info().Msg("loaded cart")

	return cartService, cart, nil
}

// Checkout returns the checkout flow of an entered shopper. Every call restarts the idle
// timer of the session.
func (r *Registry) Checkout(c context.Context, authenticated bool, shopperID uuid.UUID) (*CheckoutService, error) {
	if !authenticated || shopperID == uuid.Nil {
		return nil, inErrors.ErrUnauthenticated
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	checkoutService, ok := r.checkouts.Get(shopperID)
	if !ok {
		checkoutService = NewCheckoutService(shopperID, r.cart(shopperID), r.confirmations, r.clock)
		zerolog.Ctx(c).Trace().
			Str(log.KeyTag, "Registry Checkout").
			Str(log.KeyUserID, shopperID.String()).
			Msg("created checkout for shopper")
	}
	r.checkouts.Add(shopperID, checkoutService)
	return checkoutService, nil
}

func (r *Registry) cart(shopperID uuid.UUID) *CartService {
	key := repository.CartKey(r.keyPrefix, shopperID)
	return NewCartService(store.NewLockedStore(r.storage, key, r.locks.For(key)), r.validate)
}
