package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alturino/shopcart/cart/internal/common/otel"
	inErrors "github.com/Alturino/shopcart/internal/errors"
	"github.com/Alturino/shopcart/internal/log"
	inOtel "github.com/Alturino/shopcart/internal/otel"
)

type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

const getCartBlob = `-- name: GetCartBlob :one
SELECT payload FROM cart_blobs WHERE key = $1
`

const upsertCartBlob = `-- name: UpsertCartBlob :exec
INSERT INTO cart_blobs (key, payload, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()
`

const deleteCartBlob = `-- name: DeleteCartBlob :exec
DELETE FROM cart_blobs WHERE key = $1
`

type PostgresStorage struct {
	db DBTX
}

func NewPostgresStorage(db DBTX) *PostgresStorage {
	return &PostgresStorage{db: db}
}

func (p *PostgresStorage) Get(c context.Context, key string) ([]byte, error) {
	c, span := otel.Tracer.Start(c, "PostgresStorage Get", trace.WithAttributes(attribute.String(log.KeyStorageKey, key)))
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PostgresStorage Get").
		Str(log.KeyStorageKey, key).
		Logger()

	logger.Trace().Msg("selecting cart blob")
	var payload []byte
	err := p.db.QueryRow(c, getCartBlob, key).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		logger.Trace().Msg("cart blob not found")
		return nil, inErrors.ErrBlobNotFound
	}
	if err != nil {
		err = fmt.Errorf("failed selecting cart blob key=%s with error=%w", key, err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Trace().Msg("selected cart blob")

	return payload, nil
}

func (p *PostgresStorage) Set(c context.Context, key string, value []byte) error {
	c, span := otel.Tracer.Start(c, "PostgresStorage Set", trace.WithAttributes(attribute.String(log.KeyStorageKey, key)))
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PostgresStorage Set").
		Str(log.KeyStorageKey, key).
		Logger()

	logger.Trace().Msg("upserting cart blob")
	if _, err := p.db.Exec(c, upsertCartBlob, key, value); err != nil {
		err = fmt.Errorf("failed upserting cart blob key=%s with error=%w", key, err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("upserted cart blob")

	return nil
}

func (p *PostgresStorage) Delete(c context.Context, key string) error {
	c, span := otel.Tracer.Start(c, "PostgresStorage Delete", trace.WithAttributes(attribute.String(log.KeyStorageKey, key)))
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PostgresStorage Delete").
		Str(log.KeyStorageKey, key).
		Logger()

	logger.Trace().Msg("deleting cart blob")
	if _, err := p.db.Exec(c, deleteCartBlob, key); err != nil {
		err = fmt.Errorf("failed deleting cart blob key=%s with error=%w", key, err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("deleted cart blob")

	return nil
}
