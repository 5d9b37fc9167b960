package utils

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// ValidateAmount parses an amount in the token's smallest unit. Only positive
// base-10 integers are accepted.
func ValidateAmount(amount string) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("amount cannot be empty")
	}

	value, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount format: %q", amount)
	}

	if value.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be greater than zero")
	}

	// uint256 ceiling
	if value.BitLen() > 256 {
		return nil, fmt.Errorf("amount exceeds uint256")
	}

	return value, nil
}

// ValidateAddress validates an EVM account address
func ValidateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("address cannot be empty")
	}
	if !common.IsHexAddress(address) {
		return fmt.Errorf("invalid address: %s", address)
	}
	return nil
}

// NormalizeAddress returns the EIP-55 checksummed form of address.
func NormalizeAddress(address string) string {
	return common.HexToAddress(address).Hex()
}

// FormatAmountFromBigInt formats a big.Int amount to decimal string with specified decimals
func FormatAmountFromBigInt(amount *big.Int, decimals int) string {
	dec := decimal.NewFromBigInt(amount, -int32(decimals))
	return dec.String()
}

// ParseAmountWithDecimals converts a human readable amount ("1.5") into the
// token's smallest unit. Fractions finer than the token precision are rejected.
func ParseAmountWithDecimals(amount string, decimals int) (*big.Int, error) {
	dec, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %w", err)
	}

	scaled := dec.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("amount has more than %d decimal places", decimals)
	}

	if scaled.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be greater than zero")
	}

	return scaled.BigInt(), nil
}
