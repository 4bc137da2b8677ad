package model

// PoolRecord is one AMM pool as reported by the exchange realm. Reserves
// and supply are displayed as-is; the constant-product relation is the
// chain's to maintain.
type PoolRecord struct {
	Key           string          `json:"key"`
	TokenA        TokenDescriptor `json:"token_a"`
	TokenB        TokenDescriptor `json:"token_b"`
	ReserveA      uint64          `json:"reserve_a"`
	ReserveB      uint64          `json:"reserve_b"`
	TotalSupplyLP uint64          `json:"total_supply_lp"`
}

// Side returns the descriptor and reserve for a token path, and the
// opposite side's. ok is false when the path is not part of the pool.
func (p PoolRecord) Side(path string) (in TokenDescriptor, reserveIn uint64, out TokenDescriptor, reserveOut uint64, ok bool) {
	switch path {
	case p.TokenA.Path:
		return p.TokenA, p.ReserveA, p.TokenB, p.ReserveB, true
	case p.TokenB.Path:
		return p.TokenB, p.ReserveB, p.TokenA, p.ReserveA, true
	default:
		return TokenDescriptor{}, 0, TokenDescriptor{}, 0, false
	}
}
