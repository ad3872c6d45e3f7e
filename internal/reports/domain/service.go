package domain

import (
	"context"
	"time"
)

// Service synthesizes reports from the usage, revenue and tier modules.
// Failures in any source collapse into empty sections, never errors.
type Service interface {
	UsageSummary(ctx context.Context, start, end time.Time) UsageSummary
	RevenueSummary(ctx context.Context) RevenueSummary
	CustomerSummary(ctx context.Context, start, end time.Time) CustomerSummary
	Comprehensive(ctx context.Context, start, end time.Time) ComprehensiveReport
}
