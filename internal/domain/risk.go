package domain

// RiskStatus is a read-only view of the risk gate's current state, served to
// the API and published to the live-state cache.
type RiskStatus struct {
	DailyPnL             float64 `json:"daily_pnl"`
	TotalExposure        float64 `json:"total_exposure"`
	ConsecutiveFailed    int     `json:"consecutive_failed_trades"`
	CircuitBreakerActive bool    `json:"circuit_breaker_active"`
	CanTrade             bool    `json:"can_trade"`
	TradesRecorded       int     `json:"trades_recorded"`
}
