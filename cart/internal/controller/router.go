package controller

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Alturino/shopcart/cart/internal/metrics"
	"github.com/Alturino/shopcart/cart/internal/service"
	"github.com/Alturino/shopcart/internal/constants"
	"github.com/Alturino/shopcart/internal/middleware"
)

// NewRouter serves /metrics publicly and every cart and checkout route behind Auth.
func NewRouter(secretKey string, registry *service.Registry, validate *validator.Validate) *mux.Router {
	router := mux.NewRouter()
	router.Use(
		otelmux.Middleware(constants.AppCartService),
		middleware.Logging,
		middleware.RecoverPanic,
		metrics.Middleware,
	)
	router.Handle("/metrics", otelhttp.NewHandler(promhttp.Handler(), "metrics")).Methods(http.MethodGet)

	api := router.PathPrefix("/").Subrouter()
	api.Use(middleware.Auth(secretKey))
	AttachCartController(api, registry, validate)
	AttachCheckoutController(api, registry, validate)

	return router
}
