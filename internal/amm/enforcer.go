package amm

import (
	"sync"

	"github.com/shopspring/decimal"

	"directionalLiquidity/internal/model"
)

// Field identifies one of the two deposit inputs.
type Field int

const (
	FieldA Field = iota
	FieldB
)

func (f Field) String() string {
	if f == FieldB {
		return "B"
	}
	return "A"
}

// EditState is the enforcer's position in an edit cycle.
type EditState int

const (
	Idle EditState = iota
	EditingA
	EditingB
)

func (s EditState) String() string {
	switch s {
	case EditingA:
		return "editing_a"
	case EditingB:
		return "editing_b"
	default:
		return "idle"
	}
}

// Update is the result of feeding one input event to the enforcer.
type Update struct {
	A          decimal.Decimal
	B          decimal.Decimal
	Recomputed bool
}

// RatioEnforcer keeps the two deposit inputs on the pool price. An edit of one field
// recomputes the other; the write-back that recompute causes arrives while the cycle
// is still open and is recorded without recomputing in turn. Settle closes the cycle.
type RatioEnforcer struct {
	mu sync.Mutex

	aIsToken0 bool
	decimals0 uint8
	decimals1 uint8
	reserves  model.PoolReserves

	state EditState
	last  Field
	a     decimal.Decimal
	b     decimal.Decimal
}

// NewRatioEnforcer builds an enforcer for tokens A and B as the user selected them.
func NewRatioEnforcer(tokenA, tokenB model.Token, reserves model.PoolReserves) (*RatioEnforcer, error) {
	token0, token1, aFirst, err := model.SortTokens(tokenA, tokenB)
	if err != nil {
		return nil, err
	}
	return &RatioEnforcer{
		aIsToken0: aFirst,
		decimals0: token0.Decimals,
		decimals1: token1.Decimals,
		reserves:  reserves,
	}, nil
}

// SetReserves replaces the reserve snapshot used for later edits.
func (e *RatioEnforcer) SetReserves(reserves model.PoolReserves) {
	e.mu.Lock()
	e.reserves = reserves
	e.mu.Unlock()
}

// Edit feeds an input event for field.
func (e *RatioEnforcer) Edit(field Field, value decimal.Decimal) Update {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.isWriteBack(field) {
		e.set(field, value)
		return e.update(false)
	}

	e.state = EditingA
	if field == FieldB {
		e.state = EditingB
	}
	e.last = field
	e.set(field, value)

	editedIsToken0 := e.aIsToken0 == (field == FieldA)
	paired, ok := EnforceRatio(value, editedIsToken0, e.reserves, e.decimals0, e.decimals1)
	if !ok {
		return e.update(false)
	}
	e.set(other(field), paired)
	return e.update(true)
}

// Apply is Edit followed by Settle, for callers without a render cycle.
func (e *RatioEnforcer) Apply(field Field, value decimal.Decimal) Update {
	u := e.Edit(field, value)
	e.Settle()
	return u
}

// Settle ends the current edit cycle.
func (e *RatioEnforcer) Settle() {
	e.mu.Lock()
	e.state = Idle
	e.mu.Unlock()
}

func (e *RatioEnforcer) State() EditState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// LastEdited returns the field the user touched most recently.
func (e *RatioEnforcer) LastEdited() Field {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

func (e *RatioEnforcer) Values() (decimal.Decimal, decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.a, e.b
}

func (e *RatioEnforcer) isWriteBack(field Field) bool {
	return (e.state == EditingA && field == FieldB) || (e.state == EditingB && field == FieldA)
}

func (e *RatioEnforcer) set(field Field, value decimal.Decimal) {
	if field == FieldA {
		e.a = value
		return
	}
	e.b = value
}

func (e *RatioEnforcer) update(recomputed bool) Update {
	return Update{A: e.a, B: e.b, Recomputed: recomputed}
}

func other(field Field) Field {
	if field == FieldA {
		return FieldB
	}
	return FieldA
}
