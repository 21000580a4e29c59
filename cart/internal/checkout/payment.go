package checkout

import (
	"fmt"

	inErrors "github.com/Alturino/shopcart/internal/errors"
)

type PaymentMethod string

const (
	PaymentNone           PaymentMethod = ""
	PaymentCard           PaymentMethod = "CARD"
	PaymentUPI            PaymentMethod = "UPI"
	PaymentNetBanking     PaymentMethod = "NET_BANKING"
	PaymentCashOnDelivery PaymentMethod = "COD"
)

type PaymentOption struct {
	Method  PaymentMethod
	Label   string
	Enabled bool
}

var paymentOptions = []PaymentOption{
	{Method: PaymentCard, Label: "Credit / Debit Card", Enabled: false},
	{Method: PaymentUPI, Label: "UPI", Enabled: false},
	{Method: PaymentNetBanking, Label: "Net Banking", Enabled: false},
	{Method: PaymentCashOnDelivery, Label: "Cash on Delivery", Enabled: true},
}

// PaymentOptions lists the selectable methods in display order. Only cash on delivery can
// be confirmed.
func PaymentOptions() []PaymentOption {
	return append([]PaymentOption{}, paymentOptions...)
}

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	for _, option := range paymentOptions {
		if string(option.Method) == s {
			return option.Method, nil
		}
	}
	return PaymentNone, fmt.Errorf("%w: method=%q", inErrors.ErrUnknownPaymentMethod, s)
}

func (m PaymentMethod) Operable() bool {
	return m == PaymentCashOnDelivery
}

func (m PaymentMethod) String() string {
	if m == PaymentNone {
		return "NONE"
	}
	return string(m)
}
