package response

import (
	"github.com/shopspring/decimal"
)

type CartItem struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Brand    string          `json:"brand"`
	ImageURL string          `json:"imageUrl"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type Summary struct {
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	ItemCount     int             `json:"itemCount"`
	TotalQuantity int             `json:"totalQuantity"`
}

type Cart struct {
	Items   []CartItem `json:"items"`
	Summary Summary    `json:"summary"`
	Empty   bool       `json:"empty"`
}
