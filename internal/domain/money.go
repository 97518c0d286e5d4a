package domain

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MoneyScale is the number of fractional digits kept for amounts
const MoneyScale = 2

// Money errors
var (
	ErrInvalidAmount = errors.New("invalid monetary amount")
)

// Money is a signed fixed-point amount in the tenant's single currency.
// Balances and ledger amounts may be negative.
type Money struct {
	amount decimal.Decimal
}

// NewMoney parses a decimal string such as "5.00"
func NewMoney(value string) (Money, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	return Money{amount: d.Round(MoneyScale)}, nil
}

// MustMoney is NewMoney for literals known to be valid
func MustMoney(value string) Money {
	m, err := NewMoney(value)
	if err != nil {
		panic(err)
	}
	return m
}

// MoneyFromCents builds an amount from minor units
func MoneyFromCents(cents int64) Money {
	return Money{amount: decimal.New(cents, -MoneyScale)}
}

// ZeroMoney returns a zero amount
func ZeroMoney() Money {
	return Money{amount: decimal.Zero}
}

// Add returns m + other
func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

// Sub returns m - other. The result may be negative.
func (m Money) Sub(other Money) Money {
	return Money{amount: m.amount.Sub(other.amount)}
}

// Mul returns m multiplied by a quantity
func (m Money) Mul(quantity int) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromInt(int64(quantity)))}
}

// Neg returns -m
func (m Money) Neg() Money {
	return Money{amount: m.amount.Neg()}
}

// Abs returns |m|
func (m Money) Abs() Money {
	return Money{amount: m.amount.Abs()}
}

// IsZero reports whether the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsNegative reports whether the amount is below zero
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// IsPositive reports whether the amount is above zero
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// Equals compares amounts numerically, so 10 equals 10.00
func (m Money) Equals(other Money) bool {
	return m.amount.Equal(other.amount)
}

// Decimal exposes the underlying value
func (m Money) Decimal() decimal.Decimal {
	return m.amount
}

// String renders the amount with two fractional digits
func (m Money) String() string {
	return m.amount.StringFixed(MoneyScale)
}

// MarshalJSON renders money as a string to avoid float rounding in clients
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts both "10.00" and 10.00
func (m *Money) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidAmount, string(data))
		}
		s = n.String()
	}
	parsed, err := NewMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// MarshalBSONValue stores money as Decimal128 so the server can $inc it exactly
func (m Money) MarshalBSONValue() (bsontype.Type, []byte, error) {
	d, err := primitive.ParseDecimal128(m.String())
	if err != nil {
		return 0, nil, fmt.Errorf("failed to encode money: %w", err)
	}
	return bson.MarshalValue(d)
}

// UnmarshalBSONValue reads Decimal128, string, double or integer encodings
func (m *Money) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}

	var s string
	switch t {
	case bsontype.Decimal128:
		s = raw.Decimal128().String()
	case bsontype.String:
		s = raw.StringValue()
	case bsontype.Double:
		s = decimal.NewFromFloat(raw.Double()).String()
	case bsontype.Int32:
		s = fmt.Sprintf("%d", raw.Int32())
	case bsontype.Int64:
		s = fmt.Sprintf("%d", raw.Int64())
	case bsontype.Null:
		*m = ZeroMoney()
		return nil
	default:
		return fmt.Errorf("%w: unsupported bson type %s", ErrInvalidAmount, t)
	}

	parsed, err := NewMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
