package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/shopcart/cart/internal/checkout"
	"github.com/Alturino/shopcart/cart/internal/repository"
	"github.com/Alturino/shopcart/cart/pkg/request"
	"github.com/Alturino/shopcart/cart/pkg/response"
	"github.com/Alturino/shopcart/internal/clock"
	inErrors "github.com/Alturino/shopcart/internal/errors"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type failingConfirmations struct{}

func (failingConfirmations) InsertConfirmation(context.Context, response.Confirmation) error {
	return errors.New("database down")
}

func (failingConfirmations) FindConfirmationsByShopperID(context.Context, uuid.UUID, int) ([]response.Confirmation, error) {
	return nil, errors.New("database down")
}

func newCheckout(t *testing.T, confirmations repository.ConfirmationRepository) (*CheckoutService, *CartService) {
	t.Helper()
	c := context.Background()
	cartService := newCartService(repository.NewMemoryStorage())
	_, err := cartService.AddItem(c, request.AddItem{Product: product("1", "100"), Quantity: 2})
	require.NoError(t, err)
	_, err = cartService.AddItem(c, request.AddItem{Product: product("2", "50"), Quantity: 1})
	require.NoError(t, err)

	return NewCheckoutService(uuid.New(), cartService, confirmations, clock.NewFixedClock(now)), cartService
}

func TestCheckoutService_HappyPath(t *testing.T) {
	c := context.Background()
	confirmations := repository.NewMemoryConfirmationRepository()
	svc, cartService := newCheckout(t, confirmations)

	state := svc.State(c)
	assert.Equal(t, string(checkout.StageClosed), state.Stage)
	assert.Nil(t, state.Summary)
	assert.Len(t, state.Options, 4)

	state, err := svc.Open(c)
	require.NoError(t, err)
	assert.Equal(t, string(checkout.StageOpen), state.Stage)
	require.NotNil(t, state.Summary)
	assert.True(t, decimal.NewFromInt(250).Equal(state.Summary.TotalPrice))
	assert.Equal(t, 2, state.Summary.ItemCount)
	assert.False(t, state.CanConfirm)

	state, err = svc.SelectPayment(c, request.SelectPayment{Method: "COD"})
	require.NoError(t, err)
	assert.True(t, state.CanConfirm)

	confirmation, err := svc.Confirm(c)
	require.NoError(t, err)
	assert.Equal(t, "Your order has been placed successfully", confirmation.Message)
	assert.True(t, decimal.NewFromInt(250).Equal(confirmation.TotalPrice))
	assert.Equal(t, 2, confirmation.ItemCount)
	assert.Equal(t, "COD", confirmation.PaymentMethod)
	assert.Equal(t, now, confirmation.ConfirmedAt)
	assert.Equal(t, string(checkout.StageConfirmed), svc.State(c).Stage)

	cart, err := cartService.Cart(c)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2, "confirmation does not clear the cart")

	history, err := svc.History(c, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, confirmation.SessionID, history[0].SessionID)

	state, err = svc.Close(c)
	require.NoError(t, err)
	assert.Equal(t, string(checkout.StageClosed), state.Stage)
}

func TestCheckoutService_RejectedConfirmStaysOpen(t *testing.T) {
	c := context.Background()
	svc, _ := newCheckout(t, nil)

	opened, err := svc.Open(c)
	require.NoError(t, err)

	_, err = svc.Confirm(c)
	assert.ErrorIs(t, err, inErrors.ErrPaymentNotSelected)

	state := svc.State(c)
	assert.Equal(t, string(checkout.StageOpen), state.Stage)
	assert.Equal(t, checkout.PaymentNone.String(), state.PaymentMethod)
	assert.Equal(t, opened.SessionID, state.SessionID)

	_, err = svc.SelectPayment(c, request.SelectPayment{Method: "UPI"})
	require.NoError(t, err)
	_, err = svc.Confirm(c)
	assert.ErrorIs(t, err, inErrors.ErrPaymentUnavailable)
	assert.Equal(t, string(checkout.StageOpen), svc.State(c).Stage)
}

func TestCheckoutService_SnapshotIsFrozenAtOpen(t *testing.T) {
	c := context.Background()
	svc, cartService := newCheckout(t, nil)

	_, err := svc.Open(c)
	require.NoError(t, err)

	_, err = cartService.RemoveItem(c, "1")
	require.NoError(t, err)

	state := svc.State(c)
	require.NotNil(t, state.Summary)
	assert.True(t, decimal.NewFromInt(250).Equal(state.Summary.TotalPrice))

	_, err = svc.SelectPayment(c, request.SelectPayment{Method: "COD"})
	require.NoError(t, err)
	confirmation, err := svc.Confirm(c)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(250).Equal(confirmation.TotalPrice))
}

func TestCheckoutService_ConfirmationRecordingIsBestEffort(t *testing.T) {
	c := context.Background()
	svc, _ := newCheckout(t, failingConfirmations{})

	_, err := svc.Open(c)
	require.NoError(t, err)
	_, err = svc.SelectPayment(c, request.SelectPayment{Method: "COD"})
	require.NoError(t, err)

	confirmation, err := svc.Confirm(c)
	require.NoError(t, err)
	assert.Equal(t, checkout.SuccessMessage, confirmation.Message)

	_, err = svc.History(c, 5)
	assert.Error(t, err)
}

func TestCheckoutService_IllegalTransitions(t *testing.T) {
	c := context.Background()
	svc, _ := newCheckout(t, nil)

	_, err := svc.Close(c)
	assert.ErrorIs(t, err, inErrors.ErrIllegalTransition)

	_, err = svc.SelectPayment(c, request.SelectPayment{Method: "COD"})
	assert.ErrorIs(t, err, inErrors.ErrIllegalTransition)

	_, err = svc.Open(c)
	require.NoError(t, err)
	_, err = svc.Open(c)
	assert.ErrorIs(t, err, inErrors.ErrIllegalTransition)

	_, err = svc.SelectPayment(c, request.SelectPayment{Method: "PAYPAL"})
	assert.ErrorIs(t, err, inErrors.ErrUnknownPaymentMethod)
}
