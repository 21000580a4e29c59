package request

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantity(t *testing.T) {
	q := NewQuantity()
	assert.Equal(t, Quantity(1), q)

	q = q.Decrement()
	assert.Equal(t, Quantity(1), q, "selector floors at 1")

	q = q.Increment().Increment()
	assert.Equal(t, Quantity(3), q)

	q = q.Decrement()
	assert.Equal(t, Quantity(2), q)
}

func TestQuantity_CapsAtMaximum(t *testing.T) {
	q := Quantity(MaxQuantity - 1)

	q = q.Increment()
	assert.Equal(t, Quantity(MaxQuantity), q)

	q = q.Increment()
	assert.Equal(t, Quantity(MaxQuantity), q, "selector caps at the maximum")
}
