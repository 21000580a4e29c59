package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/sony/gobreaker/v2"

	inErrors "github.com/Alturino/shopcart/internal/errors"
	inHttp "github.com/Alturino/shopcart/internal/http"
)

func statusCode(err error) int {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, inErrors.ErrUnauthenticated),
		errors.Is(err, inErrors.ErrEmptyAuth),
		errors.Is(err, inErrors.ErrEmptySubject),
		errors.Is(err, inErrors.ErrTokenInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, inErrors.ErrCartItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, inErrors.ErrIllegalTransition):
		return http.StatusConflict
	case errors.Is(err, inErrors.ErrInvalidQuantity),
		errors.Is(err, inErrors.ErrQuantityOverflow),
		errors.Is(err, inErrors.ErrInvalidProduct),
		errors.Is(err, inErrors.ErrUnknownPaymentMethod),
		errors.As(err, &validationErrs):
		return http.StatusBadRequest
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c context.Context, w http.ResponseWriter, err error, data map[string]interface{}) {
	body := map[string]interface{}{
		"status":     "failed",
		"statusCode": statusCode(err),
		"message":    err.Error(),
	}
	if data != nil {
		body["data"] = data
	}
	inHttp.WriteJsonResponse(c, w, map[string]string{}, body)
}
