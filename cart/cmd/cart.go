package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	commonOtel "github.com/Alturino/shopcart/cart/internal/common/otel"
	"github.com/Alturino/shopcart/cart/internal/controller"
	"github.com/Alturino/shopcart/cart/internal/repository"
	"github.com/Alturino/shopcart/cart/internal/service"
	"github.com/Alturino/shopcart/internal/clock"
	"github.com/Alturino/shopcart/internal/common/validate"
	"github.com/Alturino/shopcart/internal/config"
	"github.com/Alturino/shopcart/internal/constants"
	"github.com/Alturino/shopcart/internal/infra"
	"github.com/Alturino/shopcart/internal/log"
	"github.com/Alturino/shopcart/internal/otel"
)

type cartBackends struct {
	storage       repository.Storage
	confirmations repository.ConfirmationRepository
	close         func()
}

// newBackends builds the storage selected by storage.driver, wrapped with latency metrics and,
// when enabled, the circuit breaker.
func newBackends(c context.Context, cfg *config.Config) (cartBackends, error) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "cart newBackends").
		Str(log.KeyStorageDriver, cfg.Storage.Driver).
		Logger()

	var (
		storage       repository.Storage
		confirmations repository.ConfirmationRepository
		closeFunc     = func() {}
	)

	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		logger.Warn().Msg("using in-memory storage, carts do not survive a restart")
		storage = repository.NewMemoryStorage()
		confirmations = repository.NewMemoryConfirmationRepository()
	case config.StorageDriverRedis:
		cache, err := infra.NewCacheClient(c, cfg.Cache)
		if err != nil {
			return cartBackends{}, fmt.Errorf("failed initializing cache with error=%w", err)
		}
		storage = repository.NewRedisStorage(cache)
		confirmations = repository.NewMemoryConfirmationRepository()
		closeFunc = closeCache(logger, cache)
	case config.StorageDriverPostgres:
		pool, err := infra.NewDatabaseClient(c, cfg.Database)
		if err != nil {
			return cartBackends{}, fmt.Errorf("failed initializing database with error=%w", err)
		}
		storage = repository.NewPostgresStorage(pool)
		confirmations = repository.NewPostgresConfirmationRepository(pool)
		closeFunc = closeDatabase(logger, pool)
	default:
		return cartBackends{}, fmt.Errorf("unknown storage driver=%s", cfg.Storage.Driver)
	}

	storage = repository.NewInstrumentedStorage(cfg.Storage.Driver, storage)
	if cfg.Storage.Breaker.Enabled {
		logger.Info().Msg("wrapping storage with circuit breaker")
		storage = repository.NewBreakerStorage(c, "cart-storage-"+cfg.Storage.Driver, storage, cfg.Storage.Breaker)
	}

	return cartBackends{storage: storage, confirmations: confirmations, close: closeFunc}, nil
}

func closeCache(logger zerolog.Logger, cache *redis.Client) func() {
	return func() {
		logger = logger.With().Str(log.KeyProcess, "shutting down cache").Logger()
		logger.Info().Msg("shutting down cache")
		if err := cache.Close(); err != nil {
			err = fmt.Errorf("failed shutting down cache with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
			return
		}
		logger.Info().Msg("shutdown cache")
	}
}

func closeDatabase(logger zerolog.Logger, pool *pgxpool.Pool) func() {
	return func() {
		logger = logger.With().Str(log.KeyProcess, "shutting down database").Logger()
		logger.Info().Msg("shutting down database")
		pool.Close()
		logger.Info().Msg("shutdown database")
	}
}

func RunCartService(c context.Context, cfg *config.Config) {
	c, span := commonOtel.Tracer.Start(c, "RunCartService")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyAppName, constants.AppCartService).
		Str(log.KeyTag, "main RunCartService").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "initializing otel sdk").Logger()
	logger.Info().Msg("initializing otel sdk")
	c = logger.WithContext(c)
	otelShutdowns, err := otel.InitOtelSdk(c, constants.AppCartService, cfg.Otel)
	if err != nil {
		err = fmt.Errorf("failed initializing otel sdk with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	defer func() {
		logger.Info().Msg("shutting down otel")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(c), 10*time.Second)
		defer cancel()
		if err := otel.ShutdownOtel(shutdownCtx, otelShutdowns); err != nil {
			err = fmt.Errorf("failed shutting down otel with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
			return
		}
		logger.Info().Msg("shutdown otel")
	}()
	logger.Info().Msg("initialized otel sdk")

	logger = logger.With().Str(log.KeyProcess, "initializing storage").Logger()
	logger.Info().Msg("initializing storage")
	c = logger.WithContext(c)
	b, err := newBackends(c, cfg)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	defer b.close()
	logger.Info().Msg("initialized storage")

	logger = logger.With().Str(log.KeyProcess, "initializing cart service").Logger()
	logger.Info().Msg("initializing cart service")
	v := validate.New()
	registry := service.NewRegistry(
		b.storage,
		cfg.Storage.KeyPrefix,
		v,
		clock.NewRealClock(),
		b.confirmations,
		cfg.Checkout,
	)
	logger.Info().Msg("initialized cart service")

	logger = logger.With().Str(log.KeyProcess, "initializing router").Logger()
	logger.Info().Msg("initializing router")
	router := controller.NewRouter(cfg.Application.SecretKey, registry, v)
	logger.Info().Msg("initialized router")

	logger = logger.With().Str(log.KeyProcess, "initializing server").Logger()
	logger.Info().Msg("initializing server")
	httpServer := http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Application.Host, cfg.Application.Port),
		BaseContext:  func(net.Listener) context.Context { return c },
		Handler:      router,
		ReadTimeout:  45 * time.Second,
		WriteTimeout: 45 * time.Second,
	}
	logger.Info().Msg("initialized server")

	serverErr := make(chan error, 1)
	go func() {
		logger := logger.With().Str(log.KeyProcess, "start server").Logger()
		logger.Info().Msgf("start listening request at %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("error=%w occured while server is running", err)
			return
		}
		close(serverErr)
	}()

	select {
	case err = <-serverErr:
		if err != nil {
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
		}
		return
	case <-c.Done():
		logger.Info().Msg("received interuption signal shutting down")
	}

	logger = logger.With().Str(log.KeyProcess, "shutting down http server").Logger()
	logger.Info().Msg("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(c), 15*time.Second)
	defer cancel()
	if err = httpServer.Shutdown(shutdownCtx); err != nil {
		err = fmt.Errorf("failed shutting down http server with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	logger.Info().Msg("shutdown http server")
}
