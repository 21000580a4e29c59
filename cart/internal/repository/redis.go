package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alturino/shopcart/cart/internal/common/otel"
	inErrors "github.com/Alturino/shopcart/internal/errors"
	"github.com/Alturino/shopcart/internal/log"
	inOtel "github.com/Alturino/shopcart/internal/otel"
)

type RedisStorage struct {
	client redis.Cmdable
}

func NewRedisStorage(client redis.Cmdable) *RedisStorage {
	return &RedisStorage{client: client}
}

func (r *RedisStorage) Get(c context.Context, key string) ([]byte, error) {
	c, span := otel.Tracer.Start(c, "RedisStorage Get", trace.WithAttributes(attribute.String(log.KeyCacheKey, key)))
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "RedisStorage Get").
		Str(log.KeyCacheKey, key).
		Logger()

	logger.Trace().Msg("getting blob from redis")
	blob, err := r.client.Get(c, key).Bytes()
	if errors.Is(err, redis.Nil) {
		logger.Trace().Msg("blob not found in redis")
		return nil, inErrors.ErrBlobNotFound
	}
	if err != nil {
		err = fmt.Errorf("failed getting key=%s from redis with error=%w", key, err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Trace().Msg("got blob from redis")

	return blob, nil
}

func (r *RedisStorage) Set(c context.Context, key string, value []byte) error {
	c, span := otel.Tracer.Start(c, "RedisStorage Set", trace.WithAttributes(attribute.String(log.KeyCacheKey, key)))
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "RedisStorage Set").
		Str(log.KeyCacheKey, key).
		Logger()

	logger.Trace().Msg("setting blob to redis")
	if err := r.client.Set(c, key, value, 0).Err(); err != nil {
		err = fmt.Errorf("failed setting key=%s to redis with error=%w", key, err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("set blob to redis")

	return nil
}

func (r *RedisStorage) Delete(c context.Context, key string) error {
	c, span := otel.Tracer.Start(c, "RedisStorage Delete", trace.WithAttributes(attribute.String(log.KeyCacheKey, key)))
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "RedisStorage Delete").
		Str(log.KeyCacheKey, key).
		Logger()

	logger.Trace().Msg("deleting blob from redis")
	if err := r.client.Del(c, key).Err(); err != nil {
		err = fmt.Errorf("failed deleting key=%s from redis with error=%w", key, err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("deleted blob from redis")

	return nil
}
