package model

// PairRef remembers a discovered pair and its sorted tokens so refreshes skip the
// Create log lookup.
type PairRef struct {
	PairID string `json:"pair_id"`
	Token0 string `json:"token0"`
	Token1 string `json:"token1"`
}

// ScanCursor records how far position discovery has scanned for one owner.
type ScanCursor struct {
	Owner     string    `json:"owner"`
	LastBlock uint64    `json:"last_block"`
	Pairs     []PairRef `json:"pairs"`
	// Pending holds minted pair IDs whose Create log could not be resolved yet. They are
	// retried on every scan.
	Pending   []string `json:"pending,omitempty"`
	UpdatedAt string   `json:"updated_at"`
}

// HasPair reports whether the cursor already knows pairID.
func (c ScanCursor) HasPair(pairID string) bool {
	for _, p := range c.Pairs {
		if p.PairID == pairID {
			return true
		}
	}
	return false
}
