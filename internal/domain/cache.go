package domain

import "context"

// StateCache publishes the loop's live state for out-of-process readers
// (dashboards, ops tooling). Writes are best-effort: a cache failure must
// never affect the trading cycle.
type StateCache interface {
	SetSnapshot(ctx context.Context, snap PriceSnapshot) error
	SetOpportunities(ctx context.Context, opps []Opportunity) error
	SetRiskStatus(ctx context.Context, status RiskStatus) error
}
