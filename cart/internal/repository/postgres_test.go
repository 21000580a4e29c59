package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	pgxuuid "github.com/vgarvardt/pgx-google-uuid/v5"

	"github.com/Alturino/shopcart/cart/pkg/response"
	inErrors "github.com/Alturino/shopcart/internal/errors"
)

type (
	setupFunc    func(context.Context) (*pgxpool.Pool, *postgres.PostgresContainer)
	teardownFunc func(*pgxpool.Pool, *postgres.PostgresContainer)
)

func setup(t *testing.T) setupFunc {
	return func(c context.Context) (*pgxpool.Pool, *postgres.PostgresContainer) {
		pgContainer, err := postgres.Run(
			c,
			"postgres:16.6-alpine3.21",
			postgres.WithUsername("postgres"),
			postgres.WithPassword("postgres"),
			postgres.WithDatabase("postgres"),
			postgres.BasicWaitStrategies(),
			postgres.WithInitScripts(
				filepath.Join("..", "..", "..", "migrations", "20250301090000_create_table_cart_blobs.up.sql"),
				filepath.Join("..", "..", "..", "migrations", "20250301091500_create_table_checkout_confirmations.up.sql"),
			),
		)
		if err != nil {
			t.Fatalf("failed running postgres container with error: %s", err)
		}

		pgConnStr, err := pgContainer.ConnectionString(c)
		if err != nil {
			t.Fatalf("failed getting postgres connection string with error: %s", err)
		}

		pgConfig, err := pgxpool.ParseConfig(pgConnStr)
		if err != nil {
			t.Fatalf("failed parsing pgconfig with error: %s", err)
		}
		pgConfig.AfterConnect = func(c context.Context, conn *pgx.Conn) error {
			pgxuuid.Register(conn.TypeMap())
			return nil
		}

		pool, err := pgxpool.NewWithConfig(c, pgConfig)
		if err != nil {
			t.Fatalf("failed creating postgres pool with error: %s", err)
		}
		if err = pool.Ping(c); err != nil {
			t.Fatalf("failed ping postgres pool with error: %s", err)
		}

		return pool, pgContainer
	}
}

func teardown(t *testing.T) teardownFunc {
	return func(pool *pgxpool.Pool, pgContainer *postgres.PostgresContainer) {
		pool.Close()
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	}
}

func TestPostgresStorage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	c := context.Background()
	pool, pgContainer := setup(t)(c)
	defer teardown(t)(pool, pgContainer)

	storage := NewPostgresStorage(pool)

	_, err := storage.Get(c, "carts:a")
	assert.ErrorIs(t, err, inErrors.ErrBlobNotFound)

	require.NoError(t, storage.Set(c, "carts:a", []byte(`[{"id":"1","quantity":1}]`)))
	require.NoError(t, storage.Set(c, "carts:a", []byte(`[{"id":"2","quantity":3}]`)))

	blob, err := storage.Get(c, "carts:a")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"2","quantity":3}]`, string(blob))

	require.NoError(t, storage.Delete(c, "carts:a"))
	_, err = storage.Get(c, "carts:a")
	assert.ErrorIs(t, err, inErrors.ErrBlobNotFound)
}

func TestPostgresConfirmationRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	c := context.Background()
	pool, pgContainer := setup(t)(c)
	defer teardown(t)(pool, pgContainer)

	repo := NewPostgresConfirmationRepository(pool)
	shopperID := uuid.New()
	first := response.Confirmation{
		SessionID:     uuid.New(),
		ShopperID:     shopperID,
		TotalPrice:    decimal.RequireFromString("250.50"),
		ItemCount:     2,
		PaymentMethod: "COD",
		ConfirmedAt:   time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	second := first
	second.SessionID = uuid.New()
	second.ConfirmedAt = first.ConfirmedAt.Add(time.Hour)

	require.NoError(t, repo.InsertConfirmation(c, first))
	require.NoError(t, repo.InsertConfirmation(c, second))

	confirmations, err := repo.FindConfirmationsByShopperID(c, shopperID, 10)
	require.NoError(t, err)
	require.Len(t, confirmations, 2)
	assert.Equal(t, second.SessionID, confirmations[0].SessionID)
	assert.True(t, first.TotalPrice.Equal(confirmations[1].TotalPrice))
	assert.Equal(t, 2, confirmations[1].ItemCount)

	others, err := repo.FindConfirmationsByShopperID(c, uuid.New(), 10)
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestMemoryConfirmationRepository(t *testing.T) {
	c := context.Background()
	repo := NewMemoryConfirmationRepository()
	shopperID := uuid.New()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.InsertConfirmation(c, response.Confirmation{
			SessionID:   uuid.New(),
			ShopperID:   shopperID,
			ConfirmedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	confirmations, err := repo.FindConfirmationsByShopperID(c, shopperID, 2)
	require.NoError(t, err)
	require.Len(t, confirmations, 2)
	assert.Equal(t, base.Add(2*time.Minute), confirmations[0].ConfirmedAt)
}
