package price

import (
	"github.com/shopspring/decimal"

	"github.com/Alturino/shopcart/cart/pkg/response"
)

// TotalPrice is the sum of price times quantity over all items, zero for an empty cart.
func TotalPrice(items []response.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// ItemCount counts distinct line items, not units.
func ItemCount(items []response.CartItem) int {
	return len(items)
}

func TotalQuantity(items []response.CartItem) int {
	quantity := 0
	for _, item := range items {
		quantity += item.Quantity
	}
	return quantity
}

func Summarize(items []response.CartItem) response.Summary {
	return response.Summary{
		TotalPrice:    TotalPrice(items),
		ItemCount:     ItemCount(items),
		TotalQuantity: TotalQuantity(items),
	}
}

func Cart(items []response.CartItem) response.Cart {
	if items == nil {
		items = []response.CartItem{}
	}
	return response.Cart{
		Items:   items,
		Summary: Summarize(items),
		Empty:   len(items) == 0,
	}
}
