package service

import (
	"math"
	"math/rand"

	"github.com/shopspring/decimal"
	revenuedomain "github.com/supportiq/insight/internal/revenue/domain"
)

const (
	// Base customer count used when a tenant has no prior period on record.
	defaultBaseCustomers = 20
	// Fixed monthly churn assumption of the synthetic model.
	syntheticChurnRate = 0.02
)

var (
	churnRateDecimal = decimal.NewFromFloat(syntheticChurnRate)
	ltvMultiplier    = decimal.NewFromInt(1).Div(churnRateDecimal) // 1 / churn
	cacMultiplier    = decimal.NewFromInt(3)
	twelve           = decimal.NewFromInt(12)
)

// syntheticGenerator simulates period metrics from tier pricing and the prior
// period's customer base. It is deterministic per (tenant, period) so
// re-generation upserts identical rows. It stands in for billing-ledger
// aggregation; swap it out behind revenuedomain.Generator for production.
type syntheticGenerator struct{}

func NewSyntheticGenerator() revenuedomain.Generator {
	return syntheticGenerator{}
}

func (syntheticGenerator) GeneratePeriod(input revenuedomain.GeneratorInput) revenuedomain.RevenueAnalytics {
	rng := rand.New(rand.NewSource(input.TenantID ^ input.PeriodStart.Unix()))

	previous := input.PreviousTotalCustomers
	if previous <= 0 {
		previous = defaultBaseCustomers
	}

	// Monthly growth between 5% and 15%, shrinking roughly one month in four.
	growth := 0.05 + 0.10*rng.Float64()
	if rng.Float64() < 0.25 {
		growth = -growth
	}

	churned := int(math.Round(float64(previous) * syntheticChurnRate))
	total := previous + int(math.Round(float64(previous)*growth))
	if total < 1 {
		total = 1
	}
	newCustomers := total - previous + churned
	if newCustomers < 0 {
		newCustomers = 0
	}
	upgraded := int(math.Round(float64(total) * 0.03))
	downgraded := int(math.Round(float64(total) * 0.01))

	avgPrice := averageMonthlyPrice(input)
	mrr := avgPrice.Mul(decimal.NewFromInt(int64(total))).Round(2)
	arpu := decimal.Zero
	if total > 0 {
		arpu = mrr.Div(decimal.NewFromInt(int64(total))).Round(2)
	}

	return revenuedomain.RevenueAnalytics{
		PeriodStart:         input.PeriodStart,
		PeriodEnd:           input.PeriodEnd,
		MRR:                 mrr,
		ARR:                 mrr.Mul(twelve).Round(2),
		NewCustomers:        newCustomers,
		ChurnedCustomers:    churned,
		UpgradedCustomers:   upgraded,
		DowngradedCustomers: downgraded,
		TotalCustomers:      total,
		ChurnRate:           churnRateDecimal,
		LTV:                 arpu.Mul(ltvMultiplier).Round(2),
		CAC:                 arpu.Mul(cacMultiplier).Round(2),
		ARPU:                arpu,
	}
}

func averageMonthlyPrice(input revenuedomain.GeneratorInput) decimal.Decimal {
	if len(input.Tiers) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, t := range input.Tiers {
		sum = sum.Add(t.MonthlyPrice)
	}
	return sum.Div(decimal.NewFromInt(int64(len(input.Tiers))))
}
