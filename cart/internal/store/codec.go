package store

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/Alturino/shopcart/cart/pkg/response"
	"github.com/Alturino/shopcart/internal/common/validate"
	inErrors "github.com/Alturino/shopcart/internal/errors"
)

type blobItem struct {
	ID       string          `validate:"required"      json:"id"`
	Title    string          `json:"title"`
	Brand    string          `json:"brand"`
	ImageURL string          `json:"imageUrl"`
	Price    decimal.Decimal `validate:"price"         json:"price"`
	Quantity int             `validate:"gte=1,lte=999" json:"quantity"`
}

var validateItem = validate.New()

func encode(items []response.CartItem) ([]byte, error) {
	blob := make([]blobItem, len(items))
	for i, item := range items {
		blob[i] = blobItem(item)
	}
	return json.Marshal(blob)
}

// decode accepts exactly a JSON array of well formed items with unique ids. Anything else
// is reported as ErrCorruptBlob.
func decode(v *validator.Validate, data []byte) ([]response.CartItem, error) {
	blob := []blobItem{}
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, fmt.Errorf("%w: %w", inErrors.ErrCorruptBlob, err)
	}

	seen := make(map[string]struct{}, len(blob))
	items := make([]response.CartItem, 0, len(blob))
	for i, item := range blob {
		if err := v.Struct(item); err != nil {
			return nil, fmt.Errorf("%w: item at index=%d with error=%w", inErrors.ErrCorruptBlob, i, err)
		}
		if _, ok := seen[item.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate item id=%s", inErrors.ErrCorruptBlob, item.ID)
		}
		seen[item.ID] = struct{}{}
		items = append(items, response.CartItem(item))
	}
	return items, nil
}
