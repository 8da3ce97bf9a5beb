package domain

import "time"

// Balance is the per-asset holding on one venue.
type Balance struct {
	Free   float64 `json:"free"`
	Locked float64 `json:"locked"`
	Total  float64 `json:"total"`
}

// BalanceSnapshot is a point-in-time view of balances across venues, keyed by
// venue and then asset. Venues whose balance fetch failed are absent.
type BalanceSnapshot struct {
	TakenAt time.Time                     `json:"taken_at"`
	Venues  map[string]map[string]Balance `json:"venues"`
}
