package swap

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const MaxDecimals = 77

// ZeroAddress is the any-sender sentinel of flat orders.
var ZeroAddress = common.Address{}

// MaxUint256 is the largest amount, id or nonce an order can carry.
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// ParseUint256 parses a decimal or 0x-prefixed hex string into a uint256.
func ParseUint256(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, &InvalidParamError{Message: "empty integer"}
	}
	v, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, &InvalidParamError{Message: fmt.Sprintf("invalid integer: %q", s)}
	}
	if v.Sign() < 0 || v.Cmp(MaxUint256) > 0 {
		return nil, &InvalidParamError{Message: fmt.Sprintf("integer out of uint256 range: %s", s)}
	}
	return v, nil
}

// ToBaseUnits converts a human-readable decimal amount such as "1.5" into
// base units of a token with the given decimals. Digits beyond the token's
// precision are rejected rather than rounded.
func ToBaseUnits(amount string, decimals int) (*big.Int, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return nil, &InvalidParamError{Message: fmt.Sprintf("decimals must be between 0 and %d, got: %d", MaxDecimals, decimals)}
	}

	amount = strings.TrimSpace(amount)
	parts := strings.Split(amount, ".")
	if len(parts) > 2 || amount == "" {
		return nil, &InvalidParamError{Message: fmt.Sprintf("invalid amount format: %q", amount)}
	}

	integerPart := parts[0]
	if integerPart == "" {
		integerPart = "0"
	}
	decimalPart := ""
	if len(parts) == 2 {
		decimalPart = strings.TrimRight(parts[1], "0")
	}
	if len(decimalPart) > decimals {
		return nil, &InvalidParamError{Message: fmt.Sprintf("amount %s has more than %d decimals", amount, decimals)}
	}
	decimalPart += strings.Repeat("0", decimals-len(decimalPart))

	result, ok := new(big.Int).SetString(integerPart+decimalPart, 10)
	if !ok || result.Sign() < 0 {
		return nil, &InvalidParamError{Message: fmt.Sprintf("invalid amount: %q", amount)}
	}
	if result.Cmp(MaxUint256) > 0 {
		return nil, &InvalidParamError{Message: fmt.Sprintf("amount too large for uint256: %s", result.String())}
	}
	return result, nil
}
