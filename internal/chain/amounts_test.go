package chain

import (
	"math/big"
	"testing"
)

func TestWeiToEther(t *testing.T) {
	wei, _ := new(big.Int).SetString("1500000000000000000", 10)
	eth := WeiToEther(wei)

	if got := eth.Text('f', 2); got != "1.50" {
		t.Errorf("expected 1.50, got %s", got)
	}
}

func TestWeiToTokenCustomDecimals(t *testing.T) {
	raw := big.NewInt(1500000) // 1.5 with 6 decimals
	amount := WeiToToken(raw, 6)

	if got := amount.Text('f', 1); got != "1.5" {
		t.Errorf("expected 1.5, got %s", got)
	}
}

func TestWeiToTokenNil(t *testing.T) {
	amount := WeiToToken(nil, 18)
	if amount.Sign() != 0 {
		t.Errorf("expected zero for nil input, got %s", amount.String())
	}
}

func TestTokenToWeiRoundTrip(t *testing.T) {
	wei := TokenToWei(big.NewFloat(2.5), 18)
	expected, _ := new(big.Int).SetString("2500000000000000000", 10)

	if wei.Cmp(expected) != 0 {
		t.Errorf("expected %s, got %s", expected, wei)
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(big.NewFloat(0.123456), 4); got != "0.1235" {
		t.Errorf("expected 0.1235, got %s", got)
	}
	if got := FormatAmount(nil, 4); got != "0" {
		t.Errorf("expected 0 for nil, got %s", got)
	}
}

func TestFormatAmountWithSymbol(t *testing.T) {
	if got := FormatAmountWithSymbol(big.NewFloat(12.5), "OLAS"); got != "12.5000 OLAS" {
		t.Errorf("unexpected format: %s", got)
	}
}
