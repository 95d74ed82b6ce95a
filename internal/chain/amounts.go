package chain

import (
	"fmt"
	"math/big"
)

// WeiToEther converts a wei amount to a display value using 18 decimals
func WeiToEther(wei *big.Int) *big.Float {
	return WeiToToken(wei, 18)
}

// WeiToToken converts a raw token amount to a display value using the
// token's decimals
func WeiToToken(wei *big.Int, decimals uint8) *big.Float {
	if wei == nil {
		return big.NewFloat(0)
	}
	f := new(big.Float).SetInt(wei)
	divisor := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	return new(big.Float).Quo(f, divisor)
}

// TokenToWei converts a display value to a raw token amount
func TokenToWei(amount *big.Float, decimals uint8) *big.Int {
	if amount == nil {
		return big.NewInt(0)
	}
	multiplier := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	scaled := new(big.Float).Mul(amount, multiplier)
	wei, _ := scaled.Int(nil)
	return wei
}

// FormatAmount renders a token amount with a fixed number of fraction
// digits for chat output.
func FormatAmount(amount *big.Float, digits int) string {
	if amount == nil {
		return "0"
	}
	return amount.Text('f', digits)
}

// FormatAmountWithSymbol renders "12.3456 OLAS" style strings
func FormatAmountWithSymbol(amount *big.Float, symbol string) string {
	return fmt.Sprintf("%s %s", FormatAmount(amount, 4), symbol)
}
