package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	m, err := NewMoney(decimal.NewFromInt(100), TRY)
	require.NoError(t, err)
	assert.Equal(t, TRY, m.Currency())
	assert.True(t, m.IsPositive())

	_, err = NewMoney(decimal.NewFromInt(100), "")
	assert.Error(t, err)
}

func TestMoney_Arithmetic(t *testing.T) {
	a := NewMoneyTRY(decimal.NewFromInt(1000))
	b := NewMoneyTRY(decimal.NewFromInt(20))

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, sum.Amount().Equal(decimal.NewFromInt(1020)))

	diff, err := a.Subtract(b)
	require.NoError(t, err)
	assert.True(t, diff.Amount().Equal(decimal.NewFromInt(980)))

	usd := Zero(USD)
	_, err = a.Add(usd)
	assert.Error(t, err, "currency mismatch must be rejected")
}

func TestMoney_Comparisons(t *testing.T) {
	a := NewMoneyTRYFromFloat(10.50)
	b := NewMoneyTRYFromFloat(11.00)

	less, err := a.LessThan(b)
	require.NoError(t, err)
	assert.True(t, less)

	greater, err := b.GreaterThan(a)
	require.NoError(t, err)
	assert.True(t, greater)

	assert.True(t, a.Equals(NewMoneyTRYFromFloat(10.50)))
	assert.False(t, a.Equals(b))
}

func TestMoney_JSONRoundTrip(t *testing.T) {
	m := NewMoneyTRYFromFloat(980.25)

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var got Money
	require.NoError(t, json.Unmarshal(data, &got))
	assert.True(t, m.Equals(got))
}

func TestMoney_Scan(t *testing.T) {
	var m Money
	require.NoError(t, m.Scan("123.45"))
	assert.True(t, m.Amount().Equal(decimal.NewFromFloat(123.45)))
	assert.Equal(t, DefaultCurrency, m.Currency())

	require.NoError(t, m.Scan(nil))
	assert.True(t, m.IsZero())

	assert.Error(t, m.Scan(42))
}
