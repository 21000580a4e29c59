package request

import (
	"github.com/shopspring/decimal"
)

// Product is the finished catalogue record handed over by the product page.
type Product struct {
	ID       string          `validate:"required"       json:"id"`
	Title    string          `validate:"required"       json:"title"`
	Brand    string          `json:"brand"`
	Price    decimal.Decimal `validate:"price"          json:"price"`
	ImageURL string          `json:"imageUrl"`
}

// MaxQuantity bounds the quantity of a single cart item.
const MaxQuantity = 999

type AddItem struct {
	Product  Product `validate:"required"               json:"product"`
	Quantity int     `validate:"required,gte=1,lte=999" json:"quantity"`
}

// Quantity is the product page selector value. It stays within 1 and MaxQuantity.
type Quantity int

func NewQuantity() Quantity {
	return 1
}

func (q Quantity) Increment() Quantity {
	if q >= MaxQuantity {
		return MaxQuantity
	}
	return q + 1
}

func (q Quantity) Decrement() Quantity {
	if q <= 1 {
		return 1
	}
	return q - 1
}
