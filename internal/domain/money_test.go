package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestNewMoney(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "Whole amount", input: "5", expected: "5.00"},
		{name: "Two decimals", input: "5.25", expected: "5.25"},
		{name: "Rounded to cents", input: "1.005", expected: "1.01"},
		{name: "Negative balance", input: "-12.4", expected: "-12.40"},
		{name: "Not a number", input: "five", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMoney(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, m.String())
		})
	}
}

func TestMoney_Arithmetic(t *testing.T) {
	price := MustMoney("5.00")

	assert.Equal(t, "10.00", price.Mul(2).String())
	assert.Equal(t, "990.00", MustMoney("1000").Sub(price.Mul(2)).String())
	assert.Equal(t, "-10.00", price.Mul(2).Neg().String())
	assert.True(t, price.Mul(2).Neg().Abs().Equals(MustMoney("10")))
	assert.True(t, MustMoney("5").Sub(MustMoney("7.5")).IsNegative())
	assert.True(t, ZeroMoney().IsZero())
	assert.True(t, Money{}.IsZero(), "zero value is usable")
	assert.Equal(t, "0.30", MustMoney("0.10").Add(MustMoney("0.20")).String())
	assert.Equal(t, "1.50", MoneyFromCents(150).String())
}

func TestMoney_JSON(t *testing.T) {
	data, err := json.Marshal(MustMoney("10"))
	require.NoError(t, err)
	assert.Equal(t, `"10.00"`, string(data))

	var fromString Money
	require.NoError(t, json.Unmarshal([]byte(`"7.25"`), &fromString))
	assert.Equal(t, "7.25", fromString.String())

	var fromNumber Money
	require.NoError(t, json.Unmarshal([]byte(`7.25`), &fromNumber))
	assert.Equal(t, "7.25", fromNumber.String())

	var bad Money
	assert.Error(t, json.Unmarshal([]byte(`true`), &bad))
}

func TestMoney_BSONDecimal128(t *testing.T) {
	type doc struct {
		Balance Money  `bson:"balance"`
		Running *Money `bson:"running,omitempty"`
	}

	negative := MustMoney("-42.10")
	raw, err := bson.Marshal(doc{Balance: MustMoney("990.00"), Running: &negative})
	require.NoError(t, err)

	value := bson.Raw(raw).Lookup("balance")
	assert.Equal(t, bson.TypeDecimal128, value.Type)

	var decoded doc
	require.NoError(t, bson.Unmarshal(raw, &decoded))
	assert.Equal(t, "990.00", decoded.Balance.String())
	require.NotNil(t, decoded.Running)
	assert.Equal(t, "-42.10", decoded.Running.String())
}

func TestMoney_BSONLegacyEncodings(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"a": 12.5, "b": int32(3), "c": "4.20"})
	require.NoError(t, err)

	var decoded struct {
		A Money `bson:"a"`
		B Money `bson:"b"`
		C Money `bson:"c"`
	}
	require.NoError(t, bson.Unmarshal(raw, &decoded))
	assert.Equal(t, "12.50", decoded.A.String())
	assert.Equal(t, "3.00", decoded.B.String())
	assert.Equal(t, "4.20", decoded.C.String())
}
