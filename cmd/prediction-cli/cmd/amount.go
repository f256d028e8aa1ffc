package cmd

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/chokosabe/settlementvm/consts"
)

var (
	ErrNegativeAmount   = errors.New("amount cannot be negative")
	ErrAmountPrecision  = errors.New("amount has too many decimal places")
	ErrAmountOutOfRange = errors.New("amount exceeds uint64 base units")

	maxBaseUnits = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)
)

// ParseAmount converts a decimal string such as "12.5" into base units.
func ParseAmount(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: %s", ErrNegativeAmount, s)
	}
	units := d.Shift(int32(consts.Decimals))
	if !units.Equal(units.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s allows %d", ErrAmountPrecision, s, consts.Decimals)
	}
	if units.GreaterThan(maxBaseUnits) {
		return 0, fmt.Errorf("%w: %s", ErrAmountOutOfRange, s)
	}
	return units.BigInt().Uint64(), nil
}

// FormatAmount renders base units with the token's fixed decimals.
func FormatAmount(units uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), -int32(consts.Decimals)).StringFixed(int32(consts.Decimals))
}
