package response

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentOption struct {
	Method  string `json:"method"`
	Label   string `json:"label"`
	Enabled bool   `json:"enabled"`
}

type Checkout struct {
	Stage         string          `json:"stage"`
	SessionID     *uuid.UUID      `json:"sessionId,omitempty"`
	PaymentMethod string          `json:"paymentMethod"`
	CanConfirm    bool            `json:"canConfirm"`
	Summary       *Summary        `json:"summary,omitempty"`
	OpenedAt      *time.Time      `json:"openedAt,omitempty"`
	Options       []PaymentOption `json:"paymentOptions"`
}

type Confirmation struct {
	SessionID     uuid.UUID       `json:"sessionId"`
	ShopperID     uuid.UUID       `json:"shopperId"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	ItemCount     int             `json:"itemCount"`
	PaymentMethod string          `json:"paymentMethod"`
	Message       string          `json:"message,omitempty"`
	ConfirmedAt   time.Time       `json:"confirmedAt"`
}
