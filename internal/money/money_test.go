package money

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount("500.5")
	require.NoError(t, err)
	require.Equal(t, "500.50", String(d))

	_, err = ParseAmount("1.005")
	require.True(t, errors.Is(err, ErrPrecision))

	_, err = ParseAmount("-1")
	require.ErrorIs(t, err, ErrNegative)

	_, err = ParseAmount("abc")
	require.Error(t, err)

	d, err = ParseAmount("")
	require.NoError(t, err)
	require.True(t, d.IsZero())
}

func TestParseQuantity(t *testing.T) {
	q, err := ParseQuantity("2.125")
	require.NoError(t, err)
	require.Equal(t, "2.125", q.String())

	_, err = ParseQuantity("0")
	require.Error(t, err)
	_, err = ParseQuantity("1.0001")
	require.ErrorIs(t, err, ErrPrecision)
}

func TestRoundingIsHalfUp(t *testing.T) {
	require.Equal(t, "2.68", Round2(decimal.RequireFromString("2.675")).StringFixed(2))
	require.Equal(t, "5.6667", RoundCost(decimal.NewFromInt(85).Div(decimal.NewFromInt(15))).String())
	require.Equal(t, "0.0001", RoundCost(decimal.RequireFromString("0.00005")).String())
}

func TestFormatINR(t *testing.T) {
	require.Equal(t, "₹1,500.00", FormatINR(decimal.RequireFromString("1500")))
	require.Equal(t, "₹12.50", FormatINR(decimal.RequireFromString("12.5")))
	require.Equal(t, "-₹500.00", FormatINR(decimal.RequireFromString("-500")))
}

func TestSum(t *testing.T) {
	got := Sum(decimal.RequireFromString("0.10"), decimal.RequireFromString("0.20"))
	require.True(t, got.Equal(decimal.RequireFromString("0.30")))
}
