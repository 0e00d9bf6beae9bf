package model

import "math/big"

// LiquidityPosition is an owner's directional LP holding in one pair.
type LiquidityPosition struct {
	Owner  string
	PairID *big.Int
	Token0 Token
	Token1 Token

	// LP token balances, 18 decimals.
	LongX  *big.Int
	ShortX *big.Int
	LongY  *big.Int
	ShortY *big.Int

	// Underlying token amounts the balances redeem for.
	Amount0Long  *big.Int
	Amount0Short *big.Int
	Amount1Long  *big.Int
	Amount1Short *big.Int

	// Verified is set when getPairId(token0, token1) matched PairID.
	Verified bool
}

// IsEmpty reports whether all four LP balances are zero.
func (p LiquidityPosition) IsEmpty() bool {
	for _, v := range p.Balances() {
		if v != nil && v.Sign() > 0 {
			return false
		}
	}
	return true
}

// Balances returns the LP balances in (long0, short0, long1, short1) order.
func (p LiquidityPosition) Balances() [4]*big.Int {
	return [4]*big.Int{p.LongX, p.ShortX, p.LongY, p.ShortY}
}

// Liquidity is the sum of the four LP balances.
func (p LiquidityPosition) Liquidity() *big.Int {
	return sum(p.LongX, p.ShortX, p.LongY, p.ShortY)
}

// PairName renders "SYM0/SYM1".
func (p LiquidityPosition) PairName() string {
	return p.Token0.Symbol + "/" + p.Token1.Symbol
}

// Record converts the position to its storage form.
func (p LiquidityPosition) Record() PositionRecord {
	return PositionRecord{
		Owner:        p.Owner,
		PairID:       bigString(p.PairID),
		Pair:         p.PairName(),
		Token0:       p.Token0,
		Token1:       p.Token1,
		LongX:        bigString(p.LongX),
		ShortX:       bigString(p.ShortX),
		LongY:        bigString(p.LongY),
		ShortY:       bigString(p.ShortY),
		Liquidity:    p.Liquidity().String(),
		Amount0Long:  bigString(p.Amount0Long),
		Amount0Short: bigString(p.Amount0Short),
		Amount1Long:  bigString(p.Amount1Long),
		Amount1Short: bigString(p.Amount1Short),
		Verified:     p.Verified,
	}
}

// PositionRecord is the JSON and database form of LiquidityPosition.
type PositionRecord struct {
	Owner        string `json:"owner"`
	PairID       string `json:"pair_id"`
	Pair         string `json:"pair"`
	Token0       Token  `json:"token0"`
	Token1       Token  `json:"token1"`
	LongX        string `json:"long_x"`
	ShortX       string `json:"short_x"`
	LongY        string `json:"long_y"`
	ShortY       string `json:"short_y"`
	Liquidity    string `json:"liquidity"`
	Amount0Long  string `json:"amount0_long"`
	Amount0Short string `json:"amount0_short"`
	Amount1Long  string `json:"amount1_long"`
	Amount1Short string `json:"amount1_short"`
	Verified     bool   `json:"verified"`
	ObservedAt   string `json:"observed_at,omitempty"`
	BlockNumber  uint64 `json:"block_number,omitempty"`
}
