// Package billing implements the subscription lifecycle and entitlement
// engine: the plan catalog, period-discounted pricing, transaction
// initiation, webhook reconciliation, and per-user entitlement resolution.
package billing

import (
	"fmt"

	"agendly/internal/types"
)

// Monthly list prices in centavos. These are the authoritative unit prices;
// period totals are always derived from them, never stored separately.
const (
	ProMonthlyCents     int64 = 2990 // R$ 29,90
	PremiumMonthlyCents int64 = 5900 // R$ 59,00
)

// Period discount schedule, in percent off the period total.
// 1 month pays list price; longer commitments are discounted.
const (
	discountSixMonths    = 15
	discountTwelveMonths = 30
)

// Catalog defines the authoritative limits and prices for each plan tier.
// It is the single source of truth for what each plan allows and costs.
type Catalog interface {
	// LimitsFor returns the resource limits for the given plan tier.
	// It is total: unknown tiers fail closed to the Free limits, never to
	// a more permissive plan.
	LimitsFor(tier types.PlanTier) types.PlanLimits

	// PriceFor returns the discount-adjusted period total in centavos for
	// the given tier and period length. Only periods of 1, 6, and 12
	// months exist; anything else is an invalid-input error, never a
	// silent default, since a silently defaulted price is a revenue bug.
	PriceFor(tier types.PlanTier, periodMonths int) (int64, error)

	// MonthlyPriceFor returns the undiscounted monthly unit price in
	// centavos. Free is zero.
	MonthlyPriceFor(tier types.PlanTier) int64
}

// staticCatalog is a compile-time catalog backed by in-memory maps.
// It is the standard implementation for production use.
type staticCatalog struct {
	limits map[types.PlanTier]types.PlanLimits
}

// planDefaults defines the hardcoded plan limits.
//
//	| Limit               | Free | Pro  | Premium   |
//	|---------------------|------|------|-----------|
//	| Appointments/month  | 20   | 200  | unlimited |
//	| Services            | 5    | 25   | unlimited |
//	| Employees           | 1    | 5    | 15        |
//	| Storage (MB)        | 100  | 1024 | 5120      |
//	| Bio links           | 1    | 5    | unlimited |
//	| Testimonials        | 3    | 20   | unlimited |
//
// Unlimited is types.LimitUnlimited (-1); enforcement treats it as no limit.
var planDefaults = map[types.PlanTier]types.PlanLimits{
	types.PlanFree: {
		MaxAppointmentsMonthly: 20,
		MaxServices:            5,
		MaxEmployees:           1,
		MaxStorageMB:           100,
		MaxBioLinks:            1,
		MaxTestimonials:        3,
	},
	types.PlanPro: {
		MaxAppointmentsMonthly: 200,
		MaxServices:            25,
		MaxEmployees:           5,
		MaxStorageMB:           1024,
		MaxBioLinks:            5,
		MaxTestimonials:        20,
		AllowMarketing:         true,
		AllowAnalytics:         true,
	},
	types.PlanPremium: {
		MaxAppointmentsMonthly: types.LimitUnlimited,
		MaxServices:            types.LimitUnlimited,
		MaxEmployees:           15,
		MaxStorageMB:           5120,
		MaxBioLinks:            types.LimitUnlimited,
		MaxTestimonials:        types.LimitUnlimited,
		AllowMarketing:         true,
		AllowAnalytics:         true,
		AllowLoyalty:           true,
		AllowInventory:         true,
	},
}

// freeLimits is cached to avoid map lookups on the fallback path.
var freeLimits = planDefaults[types.PlanFree]

// NewStaticCatalog returns a Catalog backed by the hardcoded plan limits and
// prices. No database or external service is required.
func NewStaticCatalog() Catalog {
	// Copy the defaults so callers cannot mutate the package-level variable.
	m := make(map[types.PlanTier]types.PlanLimits, len(planDefaults))
	for k, v := range planDefaults {
		m[k] = v
	}
	return &staticCatalog{limits: m}
}

// LimitsFor returns the resource limits for the given plan tier.
// If the tier is unknown, it returns the Free tier limits as a safe default.
func (c *staticCatalog) LimitsFor(tier types.PlanTier) types.PlanLimits {
	if limits, ok := c.limits[tier]; ok {
		return limits
	}
	return freeLimits
}

// MonthlyPriceFor returns the undiscounted monthly unit price in centavos.
func (c *staticCatalog) MonthlyPriceFor(tier types.PlanTier) int64 {
	switch tier {
	case types.PlanPro:
		return ProMonthlyCents
	case types.PlanPremium:
		return PremiumMonthlyCents
	}
	return 0
}

// PriceFor computes the discount-adjusted period total in centavos.
func (c *staticCatalog) PriceFor(tier types.PlanTier, periodMonths int) (int64, error) {
	if !tier.IsPaid() {
		return 0, types.NewAppError(types.ErrCodeValidationInvalidPlan,
			fmt.Sprintf("plan %q is not purchasable", tier), nil)
	}

	monthly := c.MonthlyPriceFor(tier)
	total := monthly * int64(periodMonths)

	switch periodMonths {
	case 1:
		return total, nil
	case 6:
		return total * (100 - discountSixMonths) / 100, nil
	case 12:
		return total * (100 - discountTwelveMonths) / 100, nil
	default:
		return 0, types.NewAppError(types.ErrCodeValidationInvalidPeriod,
			fmt.Sprintf("period of %d months is not offered; valid periods are 1, 6, and 12", periodMonths), nil)
	}
}

// TierForAmount maps a paid amount back to a plan tier using monthly unit
// price thresholds. This is the legacy fallback used only when a webhook
// event cannot be matched to a payment intent; the intent written at
// initiation is the authoritative signal. Thresholds use the monthly price
// regardless of period, so discounted multi-month totals always clear them.
func TierForAmount(c Catalog, amountCents int64) types.PlanTier {
	switch {
	case amountCents >= c.MonthlyPriceFor(types.PlanPremium):
		return types.PlanPremium
	case amountCents >= c.MonthlyPriceFor(types.PlanPro):
		return types.PlanPro
	default:
		return types.PlanFree
	}
}
