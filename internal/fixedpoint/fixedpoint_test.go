package fixedpoint

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDecimal(t *testing.T) {
	tests := []struct {
		name string
		in   *big.Int
		want string
	}{
		{name: "nil", in: nil, want: "0"},
		{name: "zero", in: big.NewInt(0), want: "0"},
		{name: "one unit", in: Units(1), want: "1"},
		{name: "fractional", in: MustParse("1500000000000000000"), want: "1.5"},
		{name: "one wei", in: big.NewInt(1), want: "0.000000000000000001"},
		{name: "beyond int64", in: MustParse("123456789000000000000000000000"), want: "123456789000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToDecimal(tt.in)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestFromDecimal_Truncates(t *testing.T) {
	assert.Equal(t, Units(2), FromDecimal(decimal.RequireFromString("2")))
	assert.Equal(t, "1", FromDecimal(decimal.RequireFromString("0.0000000000000000019")).String())
}

func TestDiv(t *testing.T) {
	price := Div(ToDecimal(Units(98)), ToDecimal(Units(50)))
	assert.True(t, price.Equal(decimal.RequireFromString("1.96")), "got %s", price)

	assert.True(t, Div(decimal.NewFromInt(1), decimal.Zero).IsZero())
}

func TestParse(t *testing.T) {
	v, err := Parse("1000000000000000000000000")
	require.NoError(t, err)
	assert.Equal(t, 0, v.Cmp(OneMillion))

	_, err = Parse("1e18")
	assert.Error(t, err)
}

func TestArithmetic_DoesNotMutate(t *testing.T) {
	a := Units(5)
	b := Units(3)

	sum := Add(a, b)
	diff := Sub(a, b)

	assert.Equal(t, 0, sum.Cmp(Units(8)))
	assert.Equal(t, 0, diff.Cmp(Units(2)))
	assert.Equal(t, 0, a.Cmp(Units(5)))
	assert.Equal(t, 0, b.Cmp(Units(3)))

	assert.Equal(t, 0, Add(nil, b).Cmp(b))
	assert.True(t, IsZero(nil))
	assert.True(t, Less(nil, b))
	assert.False(t, Less(a, b))
}
