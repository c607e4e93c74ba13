package types

import "time"

// LimitUnlimited is the sentinel for an unlimited plan limit. It is a
// distinguished value, never an arbitrarily large number, so that quota
// arithmetic cannot silently truncate.
const LimitUnlimited = -1

// PlanLimits defines the resource quotas and feature gates for one plan tier.
// Exactly one PlanLimits record exists per tier; see billing.Catalog.
type PlanLimits struct {
	MaxAppointmentsMonthly int `json:"max_appointments_monthly"`
	MaxServices            int `json:"max_services"`
	MaxEmployees           int `json:"max_employees"`
	MaxStorageMB           int `json:"max_storage_mb"`
	MaxBioLinks            int `json:"max_bio_links"`
	MaxTestimonials        int `json:"max_testimonials"`

	AllowMarketing bool `json:"allow_marketing"`
	AllowAnalytics bool `json:"allow_analytics"`
	AllowLoyalty   bool `json:"allow_loyalty"`
	AllowInventory bool `json:"allow_inventory"`
}

// LimitFor returns the quota for the given countable resource.
func (l PlanLimits) LimitFor(kind UsageKind) int {
	switch kind {
	case UsageAppointments:
		return l.MaxAppointmentsMonthly
	case UsageServices:
		return l.MaxServices
	case UsageEmployees:
		return l.MaxEmployees
	case UsageBioLinks:
		return l.MaxBioLinks
	case UsageTestimonials:
		return l.MaxTestimonials
	}
	return 0
}

// FeatureEnabled returns the boolean gate for the given feature flag.
func (l PlanLimits) FeatureEnabled(flag FeatureFlag) bool {
	switch flag {
	case FeatureMarketing:
		return l.AllowMarketing
	case FeatureAnalytics:
		return l.AllowAnalytics
	case FeatureLoyalty:
		return l.AllowLoyalty
	case FeatureInventory:
		return l.AllowInventory
	}
	return false
}

// UsageSnapshot holds the current usage counts for one account. It is derived
// on demand from the data store and never cached beyond a single resolution.
type UsageSnapshot struct {
	AppointmentsThisMonth int `json:"appointments_this_month"`
	Services              int `json:"services"`
	Employees             int `json:"employees"`
	BioLinks              int `json:"bio_links"`
	Testimonials          int `json:"testimonials"`
}

// CountFor returns the snapshot count for the given resource.
func (u UsageSnapshot) CountFor(kind UsageKind) int {
	switch kind {
	case UsageAppointments:
		return u.AppointmentsThisMonth
	case UsageServices:
		return u.Services
	case UsageEmployees:
		return u.Employees
	case UsageBioLinks:
		return u.BioLinks
	case UsageTestimonials:
		return u.Testimonials
	}
	return 0
}

// Subscription is the durable billing state for one user. There is at most
// one row per user; it is exclusively mutated by the webhook reconciler and
// read-only everywhere else. Cancellation is a status value, not a row
// removal.
type Subscription struct {
	UserID             string             `json:"user_id" db:"user_id"`
	Plan               PlanTier           `json:"plan" db:"plan"`
	Status             SubscriptionStatus `json:"status" db:"status"`
	CurrentPeriodStart time.Time          `json:"current_period_start" db:"current_period_start"`
	CurrentPeriodEnd   time.Time          `json:"current_period_end" db:"current_period_end"`
	// LastEventAt is the ordering guard: events older than this are dropped
	// so a stale failure can never downgrade a newer activation.
	LastEventAt time.Time `json:"-" db:"last_event_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the subscription currently grants its plan.
func (s *Subscription) IsActive() bool {
	return s != nil && s.Status == SubStatusActive
}

// Customer carries the purchaser's contact and tax-identifier fields required
// by the payment provider. The initiator only checks structural presence; it
// does not verify deliverability or identity.
type Customer struct {
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"required"`
	Document     string `json:"document" validate:"required"`
	DocumentType string `json:"document_type" validate:"required,oneof=cpf cnpj"`
}

// PaymentIntent is the durable record of what was purchased, keyed by the
// correlation token. It is written before the provider call and consulted by
// the reconciler as the authoritative tier/period signal; the paid amount is
// only checked against ExpectedCents for consistency.
type PaymentIntent struct {
	Token         string    `json:"token" db:"token"`
	UserID        string    `json:"user_id" db:"user_id"`
	Plan          PlanTier  `json:"plan" db:"plan"`
	PeriodMonths  int       `json:"period_months" db:"period_months"`
	ExpectedCents int64     `json:"expected_cents" db:"expected_cents"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// TransactionReference is the initiator's result: the provider's echoed
// identifiers plus our correlation token.
type TransactionReference struct {
	TransactionID string `json:"transaction_id"`
	Token         string `json:"token"`
	PixPayload    string `json:"pix_payload"`
	Status        string `json:"status"`
	AmountCents   int64  `json:"amount_cents"`
}

// WebhookEvent is the validated form of an inbound payment-provider event.
// Only its effect (a Subscription mutation) is ever persisted.
type WebhookEvent struct {
	ProviderID    string         `json:"id"`
	ExternalID    string         `json:"external_id"`
	AmountCents   int64          `json:"-"`
	Status        ProviderStatus `json:"-"`
	PaymentMethod string         `json:"payment_method"`
}
