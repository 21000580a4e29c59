package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alturino/shopcart/cart/internal/common/otel"
	"github.com/Alturino/shopcart/cart/internal/metrics"
	"github.com/Alturino/shopcart/cart/internal/price"
	"github.com/Alturino/shopcart/cart/internal/store"
	"github.com/Alturino/shopcart/cart/pkg/request"
	"github.com/Alturino/shopcart/cart/pkg/response"
	inErrors "github.com/Alturino/shopcart/internal/errors"
	"github.com/Alturino/shopcart/internal/log"
	inOtel "github.com/Alturino/shopcart/internal/otel"
)

// CartService mutates one shopper's cart. Every operation returns the resulting cart, also
// when the operation reports ErrCartItemNotFound and changed nothing.
type CartService struct {
	store    *store.Store
	validate *validator.Validate
}

func NewCartService(store *store.Store, validate *validator.Validate) *CartService {
	return &CartService{store: store, validate: validate}
}

func (svc *CartService) Store() *store.Store {
	return svc.store
}

// Cart reloads the persisted cart, the way re-entering the cart view does.
func (svc *CartService) Cart(c context.Context) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService Cart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService Cart").
		Str(log.KeyStorageKey, svc.store.Key()).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "loading cart").Logger()
	logger.Info().Msg("loading cart")
	items, err := svc.store.Load(c)
	if err != nil {
		err = fmt.Errorf("failed loading cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		observe("load", err)
		return price.Cart(items), err
	}
	logger.Info().Int(log.KeyCartItemsCount, len(items)).Msg("loaded cart")
	observe("load", nil)

	return price.Cart(items), nil
}

func (svc *CartService) AddItem(c context.Context, param request.AddItem) (response.Cart, error) {
	c, span := otel.Tracer.Start(
		c,
		"CartService AddItem",
		trace.WithAttributes(
			attribute.String(log.KeyCartItemID, param.Product.ID),
			attribute.Int(log.KeyCartItemQuantity, param.Quantity),
		),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService AddItem").
		Str(log.KeyCartItemID, param.Product.ID).
		Int(log.KeyCartItemQuantity, param.Quantity).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "validating item").Logger()
	logger.Info().Msg("validating item")
	if param.Quantity < 1 || param.Quantity > request.MaxQuantity {
		err := fmt.Errorf("failed validating quantity=%d with error=%w", param.Quantity, inErrors.ErrInvalidQuantity)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		observe("add", err)
		return price.Cart(svc.store.Items()), err
	}
	if err := svc.validate.StructCtx(c, param.Product); err != nil {
		err = fmt.Errorf("%w with error=%w", inErrors.ErrInvalidProduct, err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		observe("add", err)
		return price.Cart(svc.store.Items()), err
	}
	logger.Info().Msg("validated item")

	logger = logger.With().Str(log.KeyProcess, "adding item").Logger()
	logger.Info().Msg("adding item")
	items, err := svc.store.Update(c, func(items []response.CartItem) ([]response.CartItem, error) {
		for i := range items {
			if items[i].ID == param.Product.ID {
				if items[i].Quantity > request.MaxQuantity-param.Quantity {
					return nil, fmt.Errorf(
						"failed merging quantity=%d into quantity=%d with error=%w",
						param.Quantity,
						items[i].Quantity,
						inErrors.ErrQuantityOverflow,
					)
				}
				items[i].Quantity += param.Quantity
				return items, nil
			}
		}
		return append(items, response.CartItem{
			ID:       param.Product.ID,
			Title:    param.Product.Title,
			Brand:    param.Product.Brand,
			ImageURL: param.Product.ImageURL,
			Price:    param.Product.Price,
			Quantity: param.Quantity,
		}), nil
	})
	if err != nil {
		err = fmt.Errorf("failed adding item with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		observe("add", err)
		return price.Cart(items), err
	}
	logger.Info().Int(log.KeyCartItemsCount, len(items)).Msg("added item")
	observe("add", nil)

	return price.Cart(items), nil
}

func (svc *CartService) IncrementItem(c context.Context, id string) (response.Cart, error) {
	return svc.mutateItem(c, "increment", id, func(items []response.CartItem, i int) ([]response.CartItem, error) {
		if items[i].Quantity >= request.MaxQuantity {
			return nil, fmt.Errorf("failed incrementing quantity=%d with error=%w", items[i].Quantity, inErrors.ErrQuantityOverflow)
		}
		items[i].Quantity++
		return items, nil
	})
}

// DecrementItem removes the item instead of letting its quantity reach zero.
func (svc *CartService) DecrementItem(c context.Context, id string) (response.Cart, error) {
	return svc.mutateItem(c, "decrement", id, func(items []response.CartItem, i int) ([]response.CartItem, error) {
		if items[i].Quantity <= 1 {
			return append(items[:i], items[i+1:]...), nil
		}
		items[i].Quantity--
		return items, nil
	})
}

func (svc *CartService) RemoveItem(c context.Context, id string) (response.Cart, error) {
	return svc.mutateItem(c, "remove", id, func(items []response.CartItem, i int) ([]response.CartItem, error) {
		return append(items[:i], items[i+1:]...), nil
	})
}

func (svc *CartService) RemoveAll(c context.Context) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService RemoveAll")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService RemoveAll").
		Str(log.KeyProcess, "clearing cart").
		Logger()

	logger.Info().Msg("clearing cart")
	if err := svc.store.Clear(c); err != nil {
		err = fmt.Errorf("failed clearing cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		observe("remove_all", err)
		return price.Cart(svc.store.Items()), err
	}
	logger.Info().Msg("cleared cart")
	observe("remove_all", nil)

	return price.Cart(svc.store.Items()), nil
}

func (svc *CartService) mutateItem(
	c context.Context,
	operation string,
	id string,
	mutate func(items []response.CartItem, i int) ([]response.CartItem, error),
) (response.Cart, error) {
	c, span := otel.Tracer.Start(
		c,
		"CartService "+operation,
		trace.WithAttributes(attribute.String(log.KeyCartItemID, id)),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService "+operation).
		Str(log.KeyCartItemID, id).
		Str(log.KeyProcess, operation+" item").
		Logger()

	logger.Info().Msgf("doing %s on item", operation)
	items, err := svc.store.Update(c, func(items []response.CartItem) ([]response.CartItem, error) {
		for i := range items {
			if items[i].ID == id {
				return mutate(items, i)
			}
		}
		return nil, fmt.Errorf("failed finding item id=%s with error=%w", id, inErrors.ErrCartItemNotFound)
	})
	if errors.Is(err, inErrors.ErrCartItemNotFound) {
		logger.Warn().Err(err).Msg(err.Error())
		observe(operation, err)
		return price.Cart(items), err
	}
	if err != nil {
		err = fmt.Errorf("failed %s item with error=%w", operation, err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		observe(operation, err)
		return price.Cart(items), err
	}
	logger.Info().Int(log.KeyCartItemsCount, len(items)).Msgf("did %s on item", operation)
	observe(operation, nil)

	return price.Cart(items), nil
}

func observe(operation string, err error) {
	result := metrics.ResultSuccess
	switch {
	case err == nil:
	case errors.Is(err, inErrors.ErrCartItemNotFound):
		result = metrics.ResultNotFound
	case errors.Is(err, inErrors.ErrInvalidQuantity),
		errors.Is(err, inErrors.ErrQuantityOverflow),
		errors.Is(err, inErrors.ErrInvalidProduct):
		result = metrics.ResultRejected
	default:
		result = metrics.ResultFailed
	}
	metrics.CartOperationsTotal.WithLabelValues(operation, result).Inc()
}
