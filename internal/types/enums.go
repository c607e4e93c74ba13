package types

// PlanTier identifies the billing plan for a user account.
type PlanTier string

const (
	PlanFree    PlanTier = "free"
	PlanPro     PlanTier = "pro"
	PlanPremium PlanTier = "premium"
)

// IsPaid reports whether the tier is a purchasable plan.
// Free is never purchased; it is the default state of every account.
func (t PlanTier) IsPaid() bool {
	return t == PlanPro || t == PlanPremium
}

// IsValid reports whether the tier is one of the defined plan constants.
func (t PlanTier) IsValid() bool {
	switch t {
	case PlanFree, PlanPro, PlanPremium:
		return true
	}
	return false
}

// SubscriptionStatus represents the state of a billing subscription.
// There is no persisted "pending" status: a pending provider event causes
// no state mutation at all.
type SubscriptionStatus string

const (
	SubStatusActive    SubscriptionStatus = "active"
	SubStatusCancelled SubscriptionStatus = "cancelled"
	SubStatusPastDue   SubscriptionStatus = "past_due"
)

// ProviderStatus is the payment provider's status code carried by a webhook
// event. Unknown values are rejected at parse time as invalid input rather
// than silently ignored.
type ProviderStatus string

const (
	ProviderStatusAuthorized ProviderStatus = "authorized"
	ProviderStatusFailed     ProviderStatus = "failed"
	ProviderStatusChargeback ProviderStatus = "chargeback"
	ProviderStatusInDispute  ProviderStatus = "in_dispute"
	ProviderStatusPending    ProviderStatus = "pending"
)

// ParseProviderStatus validates a raw provider status string.
// It returns an AppError with code validation_invalid_status for anything
// outside the known set.
func ParseProviderStatus(raw string) (ProviderStatus, error) {
	switch ProviderStatus(raw) {
	case ProviderStatusAuthorized, ProviderStatusFailed, ProviderStatusChargeback,
		ProviderStatusInDispute, ProviderStatusPending:
		return ProviderStatus(raw), nil
	}
	return "", NewAppError(ErrCodeValidationInvalidStatus,
		"unrecognized payment provider status: "+raw, nil)
}

// UsageKind identifies a countable resource gated by plan limits.
type UsageKind string

const (
	UsageAppointments UsageKind = "appointments"
	UsageServices     UsageKind = "services"
	UsageEmployees    UsageKind = "employees"
	UsageBioLinks     UsageKind = "bio_links"
	UsageTestimonials UsageKind = "testimonials"
)

// UsageKinds lists every countable resource, in a stable order.
var UsageKinds = []UsageKind{
	UsageAppointments,
	UsageServices,
	UsageEmployees,
	UsageBioLinks,
	UsageTestimonials,
}

// FeatureFlag identifies a boolean feature gate on a plan.
type FeatureFlag string

const (
	FeatureMarketing FeatureFlag = "marketing"
	FeatureAnalytics FeatureFlag = "analytics"
	FeatureLoyalty   FeatureFlag = "loyalty"
	FeatureInventory FeatureFlag = "inventory"
)
