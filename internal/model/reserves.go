package model

import "math/big"

// PoolReserves is a read-only snapshot of the four directional reserves of a pair,
// in smallest token units.
type PoolReserves struct {
	Reserve0Long  *big.Int
	Reserve0Short *big.Int
	Reserve1Long  *big.Int
	Reserve1Short *big.Int
}

// Exists reports whether the pool has been initialised on chain.
func (r PoolReserves) Exists() bool {
	return r.Reserve0Long != nil && r.Reserve0Long.Sign() > 0
}

func (r PoolReserves) Total0() *big.Int {
	return sum(r.Reserve0Long, r.Reserve0Short)
}

func (r PoolReserves) Total1() *big.Int {
	return sum(r.Reserve1Long, r.Reserve1Short)
}

// Directional picks the reserve pair a swap trades against. The long side trades the
// two long reserves and the short side the two short reserves, oriented by whether
// token0 is the input.
func (r PoolReserves) Directional(token0In bool, long bool) (reserveIn *big.Int, reserveOut *big.Int) {
	r0, r1 := r.Reserve0Short, r.Reserve1Short
	if long {
		r0, r1 = r.Reserve0Long, r.Reserve1Long
	}
	if token0In {
		return orZero(r0), orZero(r1)
	}
	return orZero(r1), orZero(r0)
}

// Record converts the snapshot to its string form.
func (r PoolReserves) Record() ReservesRecord {
	return ReservesRecord{
		Reserve0Long:  bigString(r.Reserve0Long),
		Reserve0Short: bigString(r.Reserve0Short),
		Reserve1Long:  bigString(r.Reserve1Long),
		Reserve1Short: bigString(r.Reserve1Short),
	}
}

// ReservesRecord is the JSON form of PoolReserves.
type ReservesRecord struct {
	Reserve0Long  string `json:"reserve0_long"`
	Reserve0Short string `json:"reserve0_short"`
	Reserve1Long  string `json:"reserve1_long"`
	Reserve1Short string `json:"reserve1_short"`
}

func sum(values ...*big.Int) *big.Int {
	total := new(big.Int)
	for _, v := range values {
		if v != nil {
			total.Add(total, v)
		}
	}
	return total
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
