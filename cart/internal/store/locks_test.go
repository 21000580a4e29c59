package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/shopcart/cart/internal/repository"
	"github.com/Alturino/shopcart/cart/pkg/response"
)

func TestLocks_SameKeySameMutex(t *testing.T) {
	locks := NewLocks(0)
	assert.Len(t, locks.stripes, defaultStripes)
	assert.Same(t, locks.For("carts:a"), locks.For("carts:a"))

	single := NewLocks(1)
	assert.Same(t, single.For("carts:a"), single.For("carts:b"), "keys share stripes when there are fewer stripes than keys")
}

func TestLocks_SerializeStoresOfOneKey(t *testing.T) {
	c := context.Background()
	storage := repository.NewMemoryStorage()
	locks := NewLocks(8)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := NewLockedStore(storage, testKey, locks.For(testKey))
			_, err := s.Update(c, func(items []response.CartItem) ([]response.CartItem, error) {
				if len(items) == 0 {
					return append(items, item("1", "1", 1)), nil
				}
				items[0].Quantity++
				return items, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	items, err := NewStore(storage, testKey).Load(c)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 20, items[0].Quantity)
}
