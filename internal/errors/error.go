package errors

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyAuth    = errors.New("missing authorization")
	ErrEmptySubject = errors.New("missing subject")
	ErrTokenInvalid = errors.New("invalid token")

	ErrUnauthenticated  = errors.New("shopper is not authenticated")
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrInvalidQuantity  = errors.New("quantity must be between 1 and 999")
	ErrQuantityOverflow = errors.New("cart item quantity would exceed 999")
	ErrInvalidProduct   = errors.New("invalid product")

	ErrBlobNotFound = errors.New("persisted blob not found")
	ErrCorruptBlob  = errors.New("persisted cart is malformed")

	ErrIllegalTransition    = errors.New("illegal checkout transition")
	ErrPaymentNotSelected   = fmt.Errorf("payment method not selected: %w", ErrIllegalTransition)
	ErrPaymentUnavailable   = fmt.Errorf("payment method is not available: %w", ErrIllegalTransition)
	ErrUnknownPaymentMethod = errors.New("unknown payment method")
)
