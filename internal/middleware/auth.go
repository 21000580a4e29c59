package middleware

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Alturino/shopcart/internal"
	inErrors "github.com/Alturino/shopcart/internal/errors"
	inHttp "github.com/Alturino/shopcart/internal/http"
	"github.com/Alturino/shopcart/internal/log"
)

// Auth rejects requests without a valid bearer token and attaches the parsed token to the
// request context for handlers to read the shopper id from.
func Auth(secretKey string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := r.Context()
			logger := zerolog.Ctx(c).With().Str(log.KeyTag, "middleware Auth").Logger()

			authorization := r.Header.Get(inHttp.KeyHeaderAuthorization)
			scheme, token, found := strings.Cut(authorization, " ")
			if authorization == "" || !found || !strings.EqualFold(scheme, "bearer") {
				logger.Error().Err(inErrors.ErrEmptyAuth).Msg(inErrors.ErrEmptyAuth.Error())
				inHttp.WriteFailed(c, w, http.StatusUnauthorized, inErrors.ErrEmptyAuth)
				return
			}

			jwtToken, err := internal.VerifyToken(c, token, secretKey)
			if err != nil {
				logger.Error().Err(err).Msg(err.Error())
				inHttp.WriteFailed(c, w, http.StatusUnauthorized, inErrors.ErrTokenInvalid)
				return
			}

			c = internal.AttachJwtToken(c, jwtToken)
			next.ServeHTTP(w, r.WithContext(c))
		})
	}
}
