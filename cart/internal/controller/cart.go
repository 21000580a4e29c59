package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
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

type CartController struct {
	registry *service.Registry
	validate *validator.Validate
}

func AttachCartController(router *mux.Router, registry *service.Registry, validate *validator.Validate) {
	controller := CartController{registry: registry, validate: validate}

	carts := router.PathPrefix("/carts").Subrouter()
	carts.HandleFunc("", controller.FindCart).Methods(http.MethodGet)
	carts.HandleFunc("/items", controller.AddItem).Methods(http.MethodPost)
	carts.HandleFunc("/items", controller.RemoveAll).Methods(http.MethodDelete)
	carts.HandleFunc("/items/{itemId}/increment", controller.IncrementItem).Methods(http.MethodPost)
	carts.HandleFunc("/items/{itemId}/decrement", controller.DecrementItem).Methods(http.MethodPost)
	carts.HandleFunc("/items/{itemId}", controller.RemoveItem).Methods(http.MethodDelete)
}

// enter resolves the shopper from the verified token and loads the cart view.
func (ctrl CartController) enter(w http.ResponseWriter, r *http.Request) (*service.CartService, response.Cart, bool) {
	c := r.Context()
	logger := zerolog.Ctx(c).With().Str(log.KeyProcess, "entering cart").Logger()

	userId, err := internal.UserIdFromJwtToken(c)
	authenticated := err == nil
	if authenticated {
		logger = logger.With().Str(log.KeyUserID, userId.String()).Logger()
	}

	c = logger.WithContext(c)
	cartService, cart, err := ctrl.registry.Enter(c, authenticated, userId)
	if err != nil {
		err = fmt.Errorf("failed entering cart with error=%w", err)
		inOtel.RecordError(err, trace.SpanFromContext(c))
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err, nil)
		return nil, response.Cart{}, false
	}
	return cartService, cart, true
}

func (ctrl CartController) FindCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController FindCart")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CartController FindCart").Logger()
	c = logger.WithContext(c)

	_, cart, ok := ctrl.enter(w, r.WithContext(c))
	if !ok {
		return
	}
	logger.Info().Int(log.KeyCartItemsCount, len(cart.Items)).Msg("found cart")

	inHttp.WriteSuccess(c, w, "found cart", map[string]interface{}{"cart": cart})
}

func (ctrl CartController) AddItem(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController AddItem")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CartController AddItem").Logger()

	logger = logger.With().Str(log.KeyProcess, "decoding request body").Logger()
	logger.Info().Msg("decoding request body")
	reqBody := request.AddItem{}
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
	cartService, _, ok := ctrl.enter(w, r.WithContext(c))
	if !ok {
		return
	}

	logger = logger.With().
		Str(log.KeyProcess, "adding item").
		Str(log.KeyCartItemID, reqBody.Product.ID).
		Logger()
	logger.Info().Msg("adding item")
	c = logger.WithContext(c)
	cart, err := cartService.AddItem(c, reqBody)
	if err != nil {
		err = fmt.Errorf("failed adding item with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err, map[string]interface{}{"cart": cart})
		return
	}
	logger.Info().Msg("added item")

	inHttp.WriteSuccess(c, w, "added item", map[string]interface{}{"cart": cart})
}

func (ctrl CartController) IncrementItem(w http.ResponseWriter, r *http.Request) {
	ctrl.mutateItem(w, r, "IncrementItem", "incremented item", (*service.CartService).IncrementItem)
}

func (ctrl CartController) DecrementItem(w http.ResponseWriter, r *http.Request) {
	ctrl.mutateItem(w, r, "DecrementItem", "decremented item", (*service.CartService).DecrementItem)
}

func (ctrl CartController) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctrl.mutateItem(w, r, "RemoveItem", "removed item", (*service.CartService).RemoveItem)
}

func (ctrl CartController) RemoveAll(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController RemoveAll")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CartController RemoveAll").Logger()
	c = logger.WithContext(c)

	cartService, _, ok := ctrl.enter(w, r.WithContext(c))
	if !ok {
		return
	}

	logger = logger.With().Str(log.KeyProcess, "removing all items").Logger()
	logger.Info().Msg("removing all items")
	c = logger.WithContext(c)
	cart, err := cartService.RemoveAll(c)
	if err != nil {
		err = fmt.Errorf("failed removing all items with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err, map[string]interface{}{"cart": cart})
		return
	}
	logger.Info().Msg("removed all items")

	inHttp.WriteSuccess(c, w, "removed all items", map[string]interface{}{"cart": cart})
}

func (ctrl CartController) mutateItem(
	w http.ResponseWriter,
	r *http.Request,
	name string,
	message string,
	mutate func(*service.CartService, context.Context, string) (response.Cart, error),
) {
	itemId := mux.Vars(r)["itemId"]
	c, span := otel.Tracer.Start(
		r.Context(),
		"CartController "+name,
		trace.WithAttributes(attribute.String(log.KeyCartItemID, itemId)),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController "+name).
		Str(log.KeyCartItemID, itemId).
		Logger()
	c = logger.WithContext(c)

	cartService, _, ok := ctrl.enter(w, r.WithContext(c))
	if !ok {
		return
	}

	logger = logger.With().Str(log.KeyProcess, name).Logger()
	logger.Info().Msgf("doing %s", name)
	c = logger.WithContext(c)
	cart, err := mutate(cartService, c, itemId)
	if err != nil {
		err = fmt.Errorf("failed %s with error=%w", name, err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err, map[string]interface{}{"cart": cart})
		return
	}
	logger.Info().Msg(message)

	inHttp.WriteSuccess(c, w, message, map[string]interface{}{"cart": cart})
}
