package helpers

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// ETH to Wei conversion
func EthToWei(ethStr string) (*big.Int, error) {
	if ethStr == "" {
		return nil, fmt.Errorf("empty amount")
	}

	// Clean input
	ethStr = strings.TrimSuffix(strings.ToLower(ethStr), "eth")
	ethStr = strings.TrimSpace(ethStr)

	amount, err := decimal.NewFromString(ethStr)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %s", ethStr)
	}

	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}

	return amount.Shift(18).BigInt(), nil
}

// Wei to ETH formatting
func FormatEth(wei *big.Int) string {
	if wei == nil {
		return "0"
	}

	eth := decimal.NewFromBigInt(wei, -18)

	// Format with appropriate precision
	f, _ := eth.Float64()
	if f < 0.0001 {
		return fmt.Sprintf("%.8f", f)
	} else if f < 1 {
		return fmt.Sprintf("%.6f", f)
	} else if f < 100 {
		return fmt.Sprintf("%.4f", f)
	}
	return fmt.Sprintf("%.2f", f)
}

// ParseTokenAmount converts a human-readable amount to base units for a
// token with the given decimals. "1.5" with 6 decimals -> 1500000.
func ParseTokenAmount(amountStr string, decimals int32) (*big.Int, error) {
	if amountStr == "" {
		return nil, fmt.Errorf("empty amount")
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(amountStr))
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %s", amountStr)
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	scaled := amount.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("amount %s has more than %d decimal places", amountStr, decimals)
	}
	return scaled.BigInt(), nil
}

// FormatTokenAmount renders base units back to a human-readable string.
func FormatTokenAmount(amount *big.Int, decimals int32) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -decimals).String()
}

// Format address for display
func FormatAddress(addr common.Address) string {
	hex := addr.Hex()
	if len(hex) > 10 {
		return hex[:6] + "..." + hex[len(hex)-4:]
	}
	return hex
}

// Format transaction hash for display
func FormatTxHash(hash common.Hash) string {
	hex := hash.Hex()
	if len(hex) > 12 {
		return hex[:10] + "..." + hex[len(hex)-6:]
	}
	return hex
}

// WeiFromUnits creates wei from amount and decimal places
// e.g., WeiFromUnits(10, 18) = 10 * 10^18 = 10 ETH
func WeiFromUnits(amount int64, decimals int) *big.Int {
	multiplier := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Int).Mul(big.NewInt(amount), multiplier)
}

var (
	// Common ETH amounts in Wei
	Wei1ETH = big.NewInt(1e18)

	// Common Gwei amounts
	GWei1   = big.NewInt(1e9)
	GWei100 = big.NewInt(1e11)
)
