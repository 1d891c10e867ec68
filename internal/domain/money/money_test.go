package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFloat(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"0", 0},
		{"21.00", 21},
		{"19.999", 20},
		{"7.125", 7.13},
		{"1234.5", 1234.5},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Float(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestMul(t *testing.T) {
	got := Mul(decimal.RequireFromString("12.50"), 3)
	assert.True(t, decimal.RequireFromString("37.50").Equal(got))
}
