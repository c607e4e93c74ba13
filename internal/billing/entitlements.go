package billing

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"agendly/internal/types"
)

// SubscriptionReader is the read-side view of the subscription store needed
// by the resolver. Absence of a record is returned as (nil, nil); it is a
// normal state, not an error.
type SubscriptionReader interface {
	GetByUserID(ctx context.Context, userID string) (*types.Subscription, error)
}

// UsageCounter exposes the five count queries over the collaborator data
// store. The queries are logically read-only and independent of each other.
type UsageCounter interface {
	// CountAppointments counts appointments created in [from, to).
	CountAppointments(ctx context.Context, userID string, from, to time.Time) (int, error)
	CountServices(ctx context.Context, userID string) (int, error)
	CountEmployees(ctx context.Context, userID string) (int, error)
	CountBioLinks(ctx context.Context, userID string) (int, error)
	CountTestimonials(ctx context.Context, userID string) (int, error)
}

// Entitlements is the resolved view of what one user may do right now.
// Every feature-gated operation in the product treats this as ground truth.
// All predicates are pure given the embedded limits and usage.
type Entitlements struct {
	Plan   types.PlanTier           `json:"plan"`
	Status types.SubscriptionStatus `json:"status"`
	Limits types.PlanLimits         `json:"limits"`
	Usage  types.UsageSnapshot      `json:"usage"`
}

// CanCreate reports whether one more resource of the given kind may be
// created. Strict less-than: usage equal to the limit already denies.
func (e *Entitlements) CanCreate(kind types.UsageKind) bool {
	limit := e.Limits.LimitFor(kind)
	if limit == types.LimitUnlimited {
		return true
	}
	return e.Usage.CountFor(kind) < limit
}

// Remaining returns how many more resources of the given kind may be
// created. It returns types.LimitUnlimited for unlimited kinds and is never
// negative, even when usage exceeds the limit after a downgrade.
func (e *Entitlements) Remaining(kind types.UsageKind) int {
	limit := e.Limits.LimitFor(kind)
	if limit == types.LimitUnlimited {
		return types.LimitUnlimited
	}
	if remaining := limit - e.Usage.CountFor(kind); remaining > 0 {
		return remaining
	}
	return 0
}

// CanAccessFeature reports the plan's boolean gate for the given feature.
// It has no usage dependency.
func (e *Entitlements) CanAccessFeature(flag types.FeatureFlag) bool {
	return e.Limits.FeatureEnabled(flag)
}

// Resolver computes per-user entitlements from the subscription record and
// live usage counts.
type Resolver struct {
	subs    SubscriptionReader
	usage   UsageCounter
	catalog Catalog
	logger  *slog.Logger
	now     func() time.Time // injectable clock for tests
}

// NewResolver creates a Resolver.
func NewResolver(subs SubscriptionReader, usage UsageCounter, catalog Catalog, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		subs:    subs,
		usage:   usage,
		catalog: catalog,
		logger:  logger,
		now:     time.Now,
	}
}

// Resolve looks up the user's subscription and current usage and returns the
// combined entitlement view.
//
// A user without an active subscription resolves to the Free tier; this is
// the common case, not a failure. The five usage queries run concurrently
// and the resolution fails if any one of them fails: partial entitlement
// data could let a gated feature silently pass, which is worse than an
// explicit error.
func (r *Resolver) Resolve(ctx context.Context, userID string) (*Entitlements, error) {
	sub, err := r.subs.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	plan := types.PlanFree
	status := types.SubStatusActive
	if sub.IsActive() {
		plan = sub.Plan
		status = sub.Status
	} else if sub != nil {
		status = sub.Status
	}

	usage, err := r.collectUsage(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Entitlements{
		Plan:   plan,
		Status: status,
		Limits: r.catalog.LimitsFor(plan),
		Usage:  usage,
	}, nil
}

// collectUsage fans out the five independent count queries and joins on all
// of them, propagating the first failure.
func (r *Resolver) collectUsage(ctx context.Context, userID string) (types.UsageSnapshot, error) {
	monthStart, monthEnd := calendarMonthBounds(r.now().UTC())

	var usage types.UsageSnapshot
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := r.usage.CountAppointments(gCtx, userID, monthStart, monthEnd)
		usage.AppointmentsThisMonth = n
		return err
	})
	g.Go(func() error {
		n, err := r.usage.CountServices(gCtx, userID)
		usage.Services = n
		return err
	})
	g.Go(func() error {
		n, err := r.usage.CountEmployees(gCtx, userID)
		usage.Employees = n
		return err
	})
	g.Go(func() error {
		n, err := r.usage.CountBioLinks(gCtx, userID)
		usage.BioLinks = n
		return err
	})
	g.Go(func() error {
		n, err := r.usage.CountTestimonials(gCtx, userID)
		usage.Testimonials = n
		return err
	})

	if err := g.Wait(); err != nil {
		r.logger.ErrorContext(ctx, "usage collection failed",
			"user_id", userID,
			"error", err,
		)
		return types.UsageSnapshot{}, err
	}

	return usage, nil
}

// calendarMonthBounds returns [start of month, start of next month) for the
// given instant. The appointment count is always scoped to the current
// calendar month.
func calendarMonthBounds(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
