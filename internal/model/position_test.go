package model

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestLiquidityPositionRecord(t *testing.T) {
	pos := LiquidityPosition{
		Owner:  "0x3333333333333333333333333333333333333333",
		PairID: big.NewInt(42),
		Token0: Token{Address: common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"), Symbol: "WS", Decimals: 18},
		Token1: Token{Address: common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"), Symbol: "USDC", Decimals: 6},
		LongX:  big.NewInt(10),
		ShortX: big.NewInt(20),
		LongY:  big.NewInt(0),
		ShortY: big.NewInt(5),
	}

	rec := pos.Record()
	if rec.PairID != "42" || rec.Pair != "WS/USDC" {
		t.Fatalf("record identity mismatch: %+v", rec)
	}
	if rec.Liquidity != "35" {
		t.Fatalf("liquidity mismatch: %s", rec.Liquidity)
	}
	if rec.Amount0Long != "0" {
		t.Fatalf("nil amounts must render as zero: %s", rec.Amount0Long)
	}
}

func TestLiquidityPositionIsEmpty(t *testing.T) {
	if !(LiquidityPosition{}).IsEmpty() {
		t.Fatalf("zero value must be empty")
	}
	pos := LiquidityPosition{LongX: big.NewInt(0), ShortY: big.NewInt(1)}
	if pos.IsEmpty() {
		t.Fatalf("position with a balance must not be empty")
	}
}
