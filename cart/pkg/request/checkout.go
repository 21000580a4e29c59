package request

type SelectPayment struct {
	Method string `validate:"required" json:"method"`
}
