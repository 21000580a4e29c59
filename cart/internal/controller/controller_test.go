package controller

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/shopcart/cart/internal/repository"
	"github.com/Alturino/shopcart/cart/internal/service"
	"github.com/Alturino/shopcart/internal"
	"github.com/Alturino/shopcart/internal/clock"
	"github.com/Alturino/shopcart/internal/common/validate"
	"github.com/Alturino/shopcart/internal/config"
)

const secretKey = "test-secret"

type envelope struct {
	Status     string                     `json:"status"`
	StatusCode int                        `json:"statusCode"`
	Message    string                     `json:"message"`
	Data       map[string]json.RawMessage `json:"data"`
}

type cartBody struct {
	Items []struct {
		ID       string `json:"id"`
		Price    string `json:"price"`
		Quantity int    `json:"quantity"`
	} `json:"items"`
	Summary struct {
		TotalPrice    string `json:"totalPrice"`
		ItemCount     int    `json:"itemCount"`
		TotalQuantity int    `json:"totalQuantity"`
	} `json:"summary"`
	Empty bool `json:"empty"`
}

func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()
	registry := service.NewRegistry(
		repository.NewMemoryStorage(),
		"carts",
		validate.New(),
		clock.NewFixedClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)),
		repository.NewMemoryConfirmationRepository(),
		config.Checkout{SessionTTL: time.Hour, MaxSessions: 100},
	)
	return NewRouter(secretKey, registry, validate.New())
}

func bearer(t *testing.T, shopperID uuid.UUID) string {
	t.Helper()
	token, err := internal.SignToken(secretKey, shopperID, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func do(t *testing.T, router http.Handler, method, path, auth string, body interface{}) envelope {
	t.Helper()
	var reader bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&reader).Encode(body))
	}
	req := httptest.NewRequest(method, path, &reader)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	res := envelope{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res), rec.Body.String())
	assert.Equal(t, rec.Code, res.StatusCode)
	return res
}

func decodeCart(t *testing.T, res envelope) cartBody {
	t.Helper()
	cart := cartBody{}
	require.NoError(t, json.Unmarshal(res.Data["cart"], &cart))
	return cart
}

func addItem(id string, price string, quantity int) map[string]interface{} {
	return map[string]interface{}{
		"product": map[string]interface{}{
			"id":       id,
			"title":    "Product " + id,
			"brand":    "Brand",
			"price":    price,
			"imageUrl": "https://cdn.example.com/" + id + ".jpg",
		},
		"quantity": quantity,
	}
}

func TestRoutesRequireAuthentication(t *testing.T) {
	router := newTestRouter(t)

	testCases := []struct {
		name   string
		method string
		path   string
		auth   string
	}{
		{name: "no header", method: http.MethodGet, path: "/carts"},
		{name: "wrong scheme", method: http.MethodGet, path: "/carts", auth: "Basic abc"},
		{name: "garbage token", method: http.MethodPost, path: "/checkout/open", auth: "Bearer not-a-jwt"},
	}
	for _, tC := range testCases {
		t.Run(tC.name, func(t *testing.T) {
			res := do(t, router, tC.method, tC.path, tC.auth, nil)
			assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
			assert.Equal(t, "failed", res.Status)
		})
	}

	forged, err := internal.SignToken("other-secret", uuid.New(), time.Hour)
	require.NoError(t, err)
	res := do(t, router, http.MethodGet, "/carts", "Bearer "+forged, nil)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestCartRoutes(t *testing.T) {
	router := newTestRouter(t)
	auth := bearer(t, uuid.New())

	res := do(t, router, http.MethodGet, "/carts", auth, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.True(t, decodeCart(t, res).Empty)

	res = do(t, router, http.MethodPost, "/carts/items", auth, addItem("1", "100", 2))
	require.Equal(t, http.StatusOK, res.StatusCode)
	res = do(t, router, http.MethodPost, "/carts/items", auth, addItem("2", "50", 1))
	require.Equal(t, http.StatusOK, res.StatusCode)
	cart := decodeCart(t, res)
	assert.Equal(t, "250", cart.Summary.TotalPrice)
	assert.Equal(t, 2, cart.Summary.ItemCount)

	res = do(t, router, http.MethodPost, "/carts/items/1/increment", auth, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, 3, decodeCart(t, res).Items[0].Quantity)

	res = do(t, router, http.MethodPost, "/carts/items/2/decrement", auth, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Len(t, decodeCart(t, res).Items, 1)

	res = do(t, router, http.MethodPost, "/carts/items/missing/increment", auth, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Len(t, decodeCart(t, res).Items, 1, "not found still carries the unchanged cart")

	res = do(t, router, http.MethodDelete, "/carts/items/1", auth, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.True(t, decodeCart(t, res).Empty)

	res = do(t, router, http.MethodPost, "/carts/items", auth, addItem("3", "5", 1))
	require.Equal(t, http.StatusOK, res.StatusCode)
	res = do(t, router, http.MethodDelete, "/carts/items", auth, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.True(t, decodeCart(t, res).Empty)
}

func TestAddItemValidation(t *testing.T) {
	router := newTestRouter(t)
	auth := bearer(t, uuid.New())

	testCases := []struct {
		name string
		body interface{}
	}{
		{name: "zero quantity", body: addItem("1", "10", 0)},
		{name: "quantity above maximum", body: addItem("1", "10", math.MaxInt)},
		{name: "negative price", body: addItem("1", "-10", 1)},
		{name: "missing id", body: addItem("", "10", 1)},
		{name: "not an object", body: []int{1, 2}},
	}
	for _, tC := range testCases {
		t.Run(tC.name, func(t *testing.T) {
			res := do(t, router, http.MethodPost, "/carts/items", auth, tC.body)
			assert.Equal(t, http.StatusBadRequest, res.StatusCode)
		})
	}
}

func TestQuantityOverflowIsRejected(t *testing.T) {
	router := newTestRouter(t)
	auth := bearer(t, uuid.New())

	res := do(t, router, http.MethodPost, "/carts/items", auth, addItem("1", "10", 1))
	require.Equal(t, http.StatusOK, res.StatusCode)
	res = do(t, router, http.MethodPost, "/carts/items", auth, addItem("2", "10", 999))
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = do(t, router, http.MethodPost, "/carts/items/2/increment", auth, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	res = do(t, router, http.MethodPost, "/carts/items", auth, addItem("2", "10", 1))
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = do(t, router, http.MethodGet, "/carts", auth, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	cart := decodeCart(t, res)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, 1, cart.Items[0].Quantity)
	assert.Equal(t, 999, cart.Items[1].Quantity)
}

func TestCheckoutRoutes(t *testing.T) {
	router := newTestRouter(t)
	auth := bearer(t, uuid.New())

	res := do(t, router, http.MethodPost, "/carts/items", auth, addItem("1", "100", 2))
	require.Equal(t, http.StatusOK, res.StatusCode)
	res = do(t, router, http.MethodPost, "/carts/items", auth, addItem("2", "50", 1))
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = do(t, router, http.MethodGet, "/checkout", auth, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = do(t, router, http.MethodPost, "/checkout/confirm", auth, nil)
	assert.Equal(t, http.StatusConflict, res.StatusCode, "confirm before open")

	res = do(t, router, http.MethodPost, "/checkout/open", auth, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = do(t, router, http.MethodPost, "/checkout/confirm", auth, nil)
	assert.Equal(t, http.StatusConflict, res.StatusCode, "confirm without payment")

	res = do(t, router, http.MethodPut, "/checkout/payment", auth, map[string]string{"method": "BITCOIN"})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = do(t, router, http.MethodPut, "/checkout/payment", auth, map[string]string{"method": "CARD"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	res = do(t, router, http.MethodPost, "/checkout/confirm", auth, nil)
	assert.Equal(t, http.StatusConflict, res.StatusCode, "card is not available")

	res = do(t, router, http.MethodPut, "/checkout/payment", auth, map[string]string{"method": "COD"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	res = do(t, router, http.MethodPost, "/checkout/confirm", auth, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "Your order has been placed successfully", res.Message)

	confirmation := struct {
		TotalPrice string `json:"totalPrice"`
		ItemCount  int    `json:"itemCount"`
	}{}
	require.NoError(t, json.Unmarshal(res.Data["confirmation"], &confirmation))
	assert.Equal(t, "250", confirmation.TotalPrice)
	assert.Equal(t, 2, confirmation.ItemCount)

	res = do(t, router, http.MethodGet, "/checkout/confirmations", auth, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = do(t, router, http.MethodPost, "/checkout/close", auth, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	res = do(t, router, http.MethodPost, "/checkout/close", auth, nil)
	assert.Equal(t, http.StatusConflict, res.StatusCode)

	res = do(t, router, http.MethodGet, "/carts", auth, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Len(t, decodeCart(t, res).Items, 2, "checkout never clears the cart")
}

func TestMetricsEndpointIsPublic(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
