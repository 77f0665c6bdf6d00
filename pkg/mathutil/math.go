package mathutil

import (
	"math/big"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.DivisionPrecision = 8
}

// Pow10 returns 10^n as uint64. n is a decimal precision and is capped at 19
// to stay within the uint64 range.
func Pow10(n uint8) uint64 {
	z := uint64(1)
	for i := uint8(0); i < n && i < 19; i++ {
		z *= 10
	}
	return z
}

// MulDivFloor computes floor(a*b/div) without intermediate overflow. div must
// be non-zero. The division truncates, it never rounds up.
func MulDivFloor(a, b, div uint64) uint64 {
	A := new(big.Int).SetUint64(a)
	B := new(big.Int).SetUint64(b)
	D := new(big.Int).SetUint64(div)
	z := new(big.Int).Mul(A, B)
	z.Quo(z, D)
	return z.Uint64()
}

// Mul takes two uint64 numbers and multiplies them x * y returning the result
// as decimal.Decimal
func Mul(x, y uint64) decimal.Decimal {
	X := decimal.NewFromBigInt(new(big.Int).SetUint64(x), 0)
	Y := decimal.NewFromBigInt(new(big.Int).SetUint64(y), 0)
	return X.Mul(Y)
}

// Div takes two uint64 numbers and divides them x / y returning the result as
// decimal.Decimal
func Div(x, y uint64) decimal.Decimal {
	X := decimal.NewFromBigInt(new(big.Int).SetUint64(x), 0)
	Y := decimal.NewFromBigInt(new(big.Int).SetUint64(y), 0)
	return X.Div(Y)
}

// ToUnitString renders an integer amount expressed with the given decimal
// precision as a human readable unit string, ie. 150000000 with precision 8
// becomes "1.5".
func ToUnitString(amount uint64, precision uint8) string {
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(amount), 0)
	return d.Div(decimal.NewFromInt(int64(Pow10(precision)))).String()
}
