package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alturino/shopcart/cart/internal/checkout"
	"github.com/Alturino/shopcart/cart/internal/common/otel"
	"github.com/Alturino/shopcart/cart/internal/metrics"
	"github.com/Alturino/shopcart/cart/internal/repository"
	"github.com/Alturino/shopcart/cart/pkg/request"
	"github.com/Alturino/shopcart/cart/pkg/response"
	"github.com/Alturino/shopcart/internal/clock"
	inErrors "github.com/Alturino/shopcart/internal/errors"
	"github.com/Alturino/shopcart/internal/log"
	inOtel "github.com/Alturino/shopcart/internal/otel"
)

const defaultHistoryLimit = 20

// CheckoutService serializes the checkout transitions of one shopper and feeds the machine
// with a snapshot of the persisted cart.
type CheckoutService struct {
	mu            sync.Mutex
	shopperID     uuid.UUID
	machine       *checkout.Machine
	cart          *CartService
	confirmations repository.ConfirmationRepository
}

func NewCheckoutService(
	shopperID uuid.UUID,
	cart *CartService,
	confirmations repository.ConfirmationRepository,
	clk clock.Clock,
) *CheckoutService {
	return &CheckoutService{
		shopperID:     shopperID,
		machine:       checkout.NewMachine(clk),
		cart:          cart,
		confirmations: confirmations,
	}
}

func (svc *CheckoutService) State(c context.Context) response.Checkout {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.response()
}

// Open takes the snapshot from the latest persisted cart. Later cart changes do not alter it.
func (svc *CheckoutService) Open(c context.Context) (response.Checkout, error) {
	c, span := otel.Tracer.Start(c, "CheckoutService Open", svc.attributes())
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutService Open").
		Str(log.KeyUserID, svc.shopperID.String()).
		Logger()

	svc.mu.Lock()
	defer svc.mu.Unlock()

	logger = logger.With().Str(log.KeyProcess, "taking cart snapshot").Logger()
	logger.Info().Msg("taking cart snapshot")
	c = logger.WithContext(c)
	cart, err := svc.cart.Cart(c)
	if err != nil {
		err = fmt.Errorf("failed taking cart snapshot with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		observeTransition("open", err)
		return svc.response(), err
	}
	logger.Info().
		Str(log.KeyCartTotalPrice, cart.Summary.TotalPrice.String()).
		Int(log.KeyCartItemsCount, cart.Summary.ItemCount).
		Msg("took cart snapshot")

	logger = logger.With().Str(log.KeyProcess, "opening checkout").Logger()
	logger.Info().Msg("opening checkout")
	state, err := svc.machine.Open(checkout.Snapshot{
		TotalPrice: cart.Summary.TotalPrice,
		ItemCount:  cart.Summary.ItemCount,
	})
	if err != nil {
		err = fmt.Errorf("failed opening checkout with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		observeTransition("open", err)
		return svc.response(), err
	}
	logger.Info().Str(log.KeyCheckoutSessionID, state.SessionID.String()).Msg("opened checkout")
	observeTransition("open", nil)

	return svc.response(), nil
}

func (svc *CheckoutService) SelectPayment(c context.Context, param request.SelectPayment) (response.Checkout, error) {
	c, span := otel.Tracer.Start(c, "CheckoutService SelectPayment", svc.attributes())
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutService SelectPayment").
		Str(log.KeyUserID, svc.shopperID.String()).
		Str(log.KeyPaymentMethod, param.Method).
		Str(log.KeyProcess, "selecting payment method").
		Logger()

	svc.mu.Lock()
	defer svc.mu.Unlock()

	logger.Info().Msg("selecting payment method")
	if _, err := svc.machine.SelectPayment(checkout.PaymentMethod(param.Method)); err != nil {
		err = fmt.Errorf("failed selecting payment method with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		observeTransition("select_payment", err)
		return svc.response(), err
	}
	logger.Info().Msg("selected payment method")
	observeTransition("select_payment", nil)

	return svc.response(), nil
}

// Confirm records the confirmation on a best effort basis. The cart is left as it is.
func (svc *CheckoutService) Confirm(c context.Context) (response.Confirmation, error) {
	c, span := otel.Tracer.Start(c, "CheckoutService Confirm", svc.attributes())
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutService Confirm").
		Str(log.KeyUserID, svc.shopperID.String()).
		Logger()

	svc.mu.Lock()
	defer svc.mu.Unlock()

	logger = logger.With().Str(log.KeyProcess, "confirming checkout").Logger()
	logger.Info().Msg("confirming checkout")
	confirmation, err := svc.machine.Confirm()
	if err != nil {
		err = fmt.Errorf("failed confirming checkout with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		observeTransition("confirm", err)
		return response.Confirmation{}, err
	}
	logger = logger.With().Str(log.KeyCheckoutSessionID, confirmation.SessionID.String()).Logger()
	logger.Info().Msg("confirmed checkout")
	observeTransition("confirm", nil)

	result := response.Confirmation{
		SessionID:     confirmation.SessionID,
		ShopperID:     svc.shopperID,
		TotalPrice:    confirmation.Snapshot.TotalPrice,
		ItemCount:     confirmation.Snapshot.ItemCount,
		PaymentMethod: string(confirmation.Method),
		Message:       confirmation.Message,
		ConfirmedAt:   confirmation.ConfirmedAt,
	}

	if svc.confirmations != nil {
		logger = logger.With().Str(log.KeyProcess, "recording confirmation").Logger()
		logger.Info().Msg("recording confirmation")
		c = logger.WithContext(c)
		if err = svc.confirmations.InsertConfirmation(c, result); err != nil {
			logger.Warn().Err(err).Msg("failed recording confirmation")
		} else {
			logger.Info().Msg("recorded confirmation")
		}
	}

	return result, nil
}

func (svc *CheckoutService) Close(c context.Context) (response.Checkout, error) {
	c, span := otel.Tracer.Start(c, "CheckoutService Close", svc.attributes())
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutService Close").
		Str(log.KeyUserID, svc.shopperID.String()).
		Str(log.KeyProcess, "closing checkout").
		Logger()

	svc.mu.Lock()
	defer svc.mu.Unlock()

	logger.Info().Msg("closing checkout")
	if _, err := svc.machine.Close(); err != nil {
		err = fmt.Errorf("failed closing checkout with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		observeTransition("close", err)
		return svc.response(), err
	}
	logger.Info().Msg("closed checkout")
	observeTransition("close", nil)

	return svc.response(), nil
}

func (svc *CheckoutService) History(c context.Context, limit int) ([]response.Confirmation, error) {
	c, span := otel.Tracer.Start(c, "CheckoutService History", svc.attributes())
	defer span.End()

	if svc.confirmations == nil {
		return []response.Confirmation{}, nil
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	confirmations, err := svc.confirmations.FindConfirmationsByShopperID(c, svc.shopperID, limit)
	if err != nil {
		err = fmt.Errorf("failed finding confirmations with error=%w", err)
		inOtel.RecordError(err, span)
		zerolog.Ctx(c).Error().Err(err).Str(log.KeyTag, "CheckoutService History").Msg(err.Error())
		return nil, err
	}
	return confirmations, nil
}

func (svc *CheckoutService) attributes() trace.SpanStartEventOption {
	return trace.WithAttributes(attribute.String(log.KeyUserID, svc.shopperID.String()))
}

func (svc *CheckoutService) response() response.Checkout {
	state := svc.machine.State()
	options := checkout.PaymentOptions()
	result := response.Checkout{
		Stage:         string(state.Stage),
		PaymentMethod: state.Method.String(),
		CanConfirm:    svc.machine.CanConfirm(),
		Options:       make([]response.PaymentOption, len(options)),
	}
	for i, option := range options {
		result.Options[i] = response.PaymentOption{
			Method:  string(option.Method),
			Label:   option.Label,
			Enabled: option.Enabled,
		}
	}
	if state.Stage == checkout.StageClosed {
		return result
	}

	sessionID := state.SessionID
	result.SessionID = &sessionID
	result.Summary = &response.Summary{
		TotalPrice: state.Snapshot.TotalPrice,
		ItemCount:  state.Snapshot.ItemCount,
	}
	if !state.OpenedAt.IsZero() {
		openedAt := state.OpenedAt
		result.OpenedAt = &openedAt
	}
	return result
}

func observeTransition(transition string, err error) {
	result := metrics.ResultSuccess
	switch {
	case err == nil:
	case errors.Is(err, inErrors.ErrIllegalTransition), errors.Is(err, inErrors.ErrUnknownPaymentMethod):
		result = metrics.ResultRejected
	default:
		result = metrics.ResultFailed
	}
	metrics.CheckoutTransitionsTotal.WithLabelValues(transition, result).Inc()
}
