package validate

import (
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const TagPrice = "price"

// New returns a validator that understands decimal.Decimal fields tagged with "price".
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(DecimalValue, decimal.Decimal{})
	if err := v.RegisterValidation(TagPrice, ValidatePrice); err != nil {
		panic(err)
	}
	return v
}

// ValidatePrice accepts zero and positive amounts.
func ValidatePrice(fl validator.FieldLevel) bool {
	value, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return false
	}
	return !d.IsNegative()
}

func DecimalValue(v reflect.Value) interface{} {
	d, ok := v.Interface().(decimal.Decimal)
	if !ok {
		return nil
	}
	return d.String()
}
