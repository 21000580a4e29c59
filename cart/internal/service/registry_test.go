package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/shopcart/cart/internal/checkout"
	"github.com/Alturino/shopcart/cart/internal/repository"
	"github.com/Alturino/shopcart/cart/pkg/request"
	"github.com/Alturino/shopcart/internal/clock"
	"github.com/Alturino/shopcart/internal/common/validate"
	"github.com/Alturino/shopcart/internal/config"
	inErrors "github.com/Alturino/shopcart/internal/errors"
)

func newRegistry(storage repository.Storage) *Registry {
	return newRegistryWithSessions(storage, config.Checkout{SessionTTL: time.Hour, MaxSessions: 100})
}

func newRegistryWithSessions(storage repository.Storage, sessions config.Checkout) *Registry {
	return NewRegistry(
		storage,
		"carts",
		validate.New(),
		clock.NewFixedClock(now),
		repository.NewMemoryConfirmationRepository(),
		sessions,
	)
}

func TestRegistry_EnterRequiresAuthentication(t *testing.T) {
	c := context.Background()
	storage := repository.NewMemoryStorage()
	registry := newRegistry(storage)
	shopperID := uuid.New()

	svc, _, err := registry.Enter(c, false, shopperID)
	assert.ErrorIs(t, err, inErrors.ErrUnauthenticated)
	assert.Nil(t, svc)

	_, err = registry.Checkout(c, false, shopperID)
	assert.ErrorIs(t, err, inErrors.ErrUnauthenticated)
	assert.Zero(t, registry.checkouts.Len(), "no checkout is created for an unauthenticated shopper")

	_, err = storage.Get(c, repository.CartKey("carts", shopperID))
	assert.ErrorIs(t, err, inErrors.ErrBlobNotFound)
}

func TestRegistry_EnterLoadsPersistedCart(t *testing.T) {
	c := context.Background()
	storage := repository.NewMemoryStorage()
	shopperID := uuid.New()

	svc, cart, err := newRegistry(storage).Enter(c, true, shopperID)
	require.NoError(t, err)
	assert.True(t, cart.Empty)
	_, err = svc.AddItem(c, request.AddItem{Product: product("1", "10"), Quantity: 3})
	require.NoError(t, err)

	_, cart, err = newRegistry(storage).Enter(c, true, shopperID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)

	_, other, err := newRegistry(storage).Enter(c, true, uuid.New())
	require.NoError(t, err)
	assert.True(t, other.Empty, "carts are isolated per shopper")
}

func TestRegistry_SharesCartPerShopper(t *testing.T) {
	c := context.Background()
	registry := newRegistry(repository.NewMemoryStorage())
	shopperID := uuid.New()

	first, _, err := registry.Enter(c, true, shopperID)
	require.NoError(t, err)
	second, _, err := registry.Enter(c, true, shopperID)
	require.NoError(t, err)

	_, err = first.AddItem(c, request.AddItem{Product: product("1", "10"), Quantity: 2})
	require.NoError(t, err)
	cart, err := second.IncrementItem(c, "1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity, "every cart of a shopper reads the same persisted items")

	checkoutService, err := registry.Checkout(c, true, shopperID)
	require.NoError(t, err)
	again, err := registry.Checkout(c, true, shopperID)
	require.NoError(t, err)
	assert.Same(t, checkoutService, again)
}

func TestRegistry_ConcurrentAddsAreSerialized(t *testing.T) {
	c := context.Background()
	registry := newRegistry(repository.NewMemoryStorage())
	shopperID := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc, _, err := registry.Enter(c, true, shopperID)
			if !assert.NoError(t, err) {
				return
			}
			_, err = svc.AddItem(c, request.AddItem{Product: product("1", "10"), Quantity: 1})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	svc, cart, err := registry.Enter(c, true, shopperID)
	require.NoError(t, err)
	require.NotNil(t, svc)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 20, cart.Items[0].Quantity)
}

func TestRegistry_ReleasesIdleCheckouts(t *testing.T) {
	c := context.Background()
	registry := newRegistryWithSessions(
		repository.NewMemoryStorage(),
		config.Checkout{SessionTTL: 50 * time.Millisecond, MaxSessions: 100},
	)
	shopperID := uuid.New()

	idle, err := registry.Checkout(c, true, shopperID)
	require.NoError(t, err)
	_, err = idle.Open(c)
	require.NoError(t, err)
	assert.Equal(t, 1, registry.checkouts.Len())

	assert.Eventually(t, func() bool {
		return registry.checkouts.Len() == 0
	}, 2*time.Second, 10*time.Millisecond, "idle checkout is released")

	fresh, err := registry.Checkout(c, true, shopperID)
	require.NoError(t, err)
	assert.NotSame(t, idle, fresh)
	assert.Equal(t, string(checkout.StageClosed), fresh.State(c).Stage, "an expired session starts closed")
}

func TestRegistry_BoundsCheckoutSessions(t *testing.T) {
	c := context.Background()
	registry := newRegistryWithSessions(
		repository.NewMemoryStorage(),
		config.Checkout{SessionTTL: time.Hour, MaxSessions: 2},
	)
	shoppers := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	for _, shopperID := range shoppers {
		_, err := registry.Checkout(c, true, shopperID)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, registry.checkouts.Len())
	_, ok := registry.checkouts.Peek(shoppers[0])
	assert.False(t, ok, "least recently used checkout is released first")
	_, ok = registry.checkouts.Peek(shoppers[2])
	assert.True(t, ok)
}
