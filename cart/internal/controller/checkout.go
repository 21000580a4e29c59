package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alturino/shopcart/cart/internal/common/otel"
	"github.com/Alturino/shopcart/cart/internal/service"
	"github.com/Alturino/shopcart/cart/pkg/request"
	"github.com/Alturino/shopcart/cart/pkg/response"
	"github.com/Alturino/shopcart/internal"
	inHttp "github.com/Alturino/shopcart/internal/http"
	"github.com/Alturino/shopcart/internal/log"
	inOtel "github.com/Alturino/shopcart/internal/otel"
)

type CheckoutController struct {
	registry *service.Registry
	validate *validator.Validate
}

func AttachCheckoutController(router *mux.Router, registry *service.Registry, validate *validator.Validate) {
	controller := CheckoutController{registry: registry, validate: validate}

	checkout := router.PathPrefix("/checkout").Subrouter()
	checkout.HandleFunc("", controller.FindCheckout).Methods(http.MethodGet)
	checkout.HandleFunc("/open", controller.Open).Methods(http.MethodPost)
	checkout.HandleFunc("/payment", controller.SelectPayment).Methods(http.MethodPut)
	checkout.HandleFunc("/confirm", controller.Confirm).Methods(http.MethodPost)
	checkout.HandleFunc("/close", controller.Close).Methods(http.MethodPost)
	checkout.HandleFunc("/confirmations", controller.FindConfirmations).Methods(http.MethodGet)
}

func (ctrl CheckoutController) checkout(w http.ResponseWriter, r *http.Request) (*service.CheckoutService, bool) {
	c := r.Context()
	logger := zerolog.Ctx(c).With().Str(log.KeyProcess, "resolving checkout").Logger()

	userId, err := internal.UserIdFromJwtToken(c)
	authenticated := err == nil

	checkoutService, err := ctrl.registry.Checkout(c, authenticated, userId)
	if err != nil {
		err = fmt.Errorf("failed resolving checkout with error=%w", err)
		inOtel.RecordError(err, trace.SpanFromContext(c))
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err, nil)
		return nil, false
	}
	return checkoutService, true
}

func (ctrl CheckoutController) FindCheckout(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController FindCheckout")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CheckoutController FindCheckout").Logger()
	c = logger.WithContext(c)

	checkoutService, ok := ctrl.checkout(w, r.WithContext(c))
	if !ok {
		return
	}
	state := checkoutService.State(c)
	logger.Info().Str(log.KeyCheckoutStage, state.Stage).Msg("found checkout")

	inHttp.WriteSuccess(c, w, "found checkout", map[string]interface{}{"checkout": state})
}

func (ctrl CheckoutController) Open(w http.ResponseWriter, r *http.Request) {
	ctrl.transition(w, r, "Open", "opened checkout", (*service.CheckoutService).Open)
}

func (ctrl CheckoutController) Close(w http.ResponseWriter, r *http.Request) {
	ctrl.transition(w, r, "Close", "closed checkout", (*service.CheckoutService).Close)
}

func (ctrl CheckoutController) SelectPayment(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController SelectPayment")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CheckoutController SelectPayment").Logger()

	logger = logger.With().Str(log.KeyProcess, "decoding request body").Logger()
	logger.Info().Msg("decoding request body")
	reqBody := request.SelectPayment{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err)
		return
	}
	logger.Info().Msg("decoded request body")

	logger = logger.With().Str(log.KeyProcess, "validating request body").Logger()
	logger.Info().Msg("validating request body")
	if err := ctrl.validate.StructCtx(c, reqBody); err != nil {
		err = fmt.Errorf("failed validating request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err, nil)
		return
	}
	logger.Info().Msg("validated request body")

	c = logger.WithContext(c)
	checkoutService, ok := ctrl.checkout(w, r.WithContext(c))
	if !ok {
		return
	}

	logger = logger.With().
		Str(log.KeyProcess, "selecting payment method").
		Str(log.KeyPaymentMethod, reqBody.Method).
		Logger()
	logger.Info().Msg("selecting payment method")
	c = logger.WithContext(c)
	state, err := checkoutService.SelectPayment(c, reqBody)
	if err != nil {
		err = fmt.Errorf("failed selecting payment method with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err, map[string]interface{}{"checkout": state})
		return
	}
	logger.Info().Msg("selected payment method")

	inHttp.WriteSuccess(c, w, "selected payment method", map[string]interface{}{"checkout": state})
}

func (ctrl CheckoutController) Confirm(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController Confirm")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CheckoutController Confirm").Logger()
	c = logger.WithContext(c)

	checkoutService, ok := ctrl.checkout(w, r.WithContext(c))
	if !ok {
		return
	}

	logger = logger.With().Str(log.KeyProcess, "confirming checkout").Logger()
	logger.Info().Msg("confirming checkout")
	c = logger.WithContext(c)
	confirmation, err := checkoutService.Confirm(c)
	if err != nil {
		err = fmt.Errorf("failed confirming checkout with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err, map[string]interface{}{"checkout": checkoutService.State(c)})
		return
	}
	logger.Info().Str(log.KeyCheckoutSessionID, confirmation.SessionID.String()).Msg("confirmed checkout")

	inHttp.WriteSuccess(c, w, confirmation.Message, map[string]interface{}{
		"confirmation": confirmation,
		"checkout":     checkoutService.State(c),
	})
}

func (ctrl CheckoutController) FindConfirmations(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController FindConfirmations")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CheckoutController FindConfirmations").Logger()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			err = fmt.Errorf("failed parsing limit=%s", raw)
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			inHttp.WriteFailed(c, w, http.StatusBadRequest, err)
			return
		}
		limit = parsed
	}

	c = logger.WithContext(c)
	checkoutService, ok := ctrl.checkout(w, r.WithContext(c))
	if !ok {
		return
	}

	logger = logger.With().Str(log.KeyProcess, "finding confirmations").Logger()
	logger.Info().Msg("finding confirmations")
	c = logger.WithContext(c)
	confirmations, err := checkoutService.History(c, limit)
	if err != nil {
		err = fmt.Errorf("failed finding confirmations with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err, nil)
		return
	}
	logger.Info().Msg("found confirmations")

	inHttp.WriteSuccess(c, w, "found confirmations", map[string]interface{}{"confirmations": confirmations})
}

func (ctrl CheckoutController) transition(
	w http.ResponseWriter,
	r *http.Request,
	name string,
	message string,
	do func(*service.CheckoutService, context.Context) (response.Checkout, error),
) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController "+name)
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CheckoutController "+name).Logger()
	c = logger.WithContext(c)

	checkoutService, ok := ctrl.checkout(w, r.WithContext(c))
	if !ok {
		return
	}

	logger = logger.With().Str(log.KeyProcess, name).Logger()
	logger.Info().Msgf("doing checkout %s", name)
	c = logger.WithContext(c)
	state, err := do(checkoutService, c)
	if err != nil {
		err = fmt.Errorf("failed checkout %s with error=%w", name, err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err, map[string]interface{}{"checkout": state})
		return
	}
	logger.Info().Msg(message)

	inHttp.WriteSuccess(c, w, message, map[string]interface{}{"checkout": state})
}
