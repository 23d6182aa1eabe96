package agentcommerce

import (
	"time"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/apperrors"
)

// TrustTierLimits is the default per-tier spend policy (spec.md §4.2):
// "trust-tier defaults low->{$250, 10/h}, medium->{$750, 30/h},
// high->{$2000, 80/h}, overridable by per-client spendingLimits".
type TrustTierLimits struct {
	MaxOrderCents  int64
	MaxPerHour     int
}

var defaultTrustTiers = map[RiskLevel]TrustTierLimits{
	RiskLow:    {MaxOrderCents: 25000, MaxPerHour: 10},
	RiskMedium: {MaxOrderCents: 75000, MaxPerHour: 30},
	RiskHigh:   {MaxOrderCents: 200000, MaxPerHour: 80},
}

// SpendingLimitsOverride is a per-client override of the tier defaults.
type SpendingLimitsOverride struct {
	MaxOrderCents *int64
	MaxPerHour    *int
}

func resolveLimits(tier RiskLevel, override *SpendingLimitsOverride) TrustTierLimits {
	limits := defaultTrustTiers[tier]
	if override == nil {
		return limits
	}
	if override.MaxOrderCents != nil {
		limits.MaxOrderCents = *override.MaxOrderCents
	}
	if override.MaxPerHour != nil {
		limits.MaxPerHour = *override.MaxPerHour
	}
	return limits
}

// maxDenialsBeforeSuspend and suspendDuration implement spec.md §4.2:
// "after >=6 denials in 24h, the client is auto-suspended for 30 min".
const (
	maxDenialsBeforeSuspend = 6
	suspendDuration         = 30 * time.Minute
)

// RiskCheckInput carries the facts a delegated-mode risk check needs.
type RiskCheckInput struct {
	Tier                 RiskLevel
	Override             *SpendingLimitsOverride
	OrderAmountCents     int64
	OrdersInLastHour     int
	DenialsInLast24h     int
	CooldownUntil        *time.Time
	Now                  time.Time
}

// RiskCheckResult reports the outcome plus whether this check itself
// should count as a new denial and/or trigger a fresh suspension.
type RiskCheckResult struct {
	Allowed          bool
	ServiceError     *apperrors.ServiceError
	ShouldSuspend    bool
	SuspendUntil     time.Time
}

// CheckRisk evaluates a delegated-agent order against its trust tier
// (spec.md §4.2). Cooldown is honored and auto-resumes once elapsed.
func CheckRisk(in RiskCheckInput) RiskCheckResult {
	if in.CooldownUntil != nil && in.CooldownUntil.After(in.Now) {
		return RiskCheckResult{
			Allowed: false,
			ServiceError: apperrors.Conflict("agent client is in cooldown", "").
				WithDetails("cooldownUntil", in.CooldownUntil.Format(time.RFC3339)),
		}
	}

	limits := resolveLimits(in.Tier, in.Override)

	denied := false
	var svcErr *apperrors.ServiceError
	if in.OrderAmountCents > limits.MaxOrderCents {
		denied = true
		svcErr = apperrors.InvalidArgument("order exceeds trust-tier spend limit").
			WithDetails("maxOrderCents", limits.MaxOrderCents)
	} else if in.OrdersInLastHour >= limits.MaxPerHour {
		denied = true
		svcErr = apperrors.RateLimited(0).WithDetails("maxPerHour", limits.MaxPerHour)
	}

	if !denied {
		return RiskCheckResult{Allowed: true}
	}

	result := RiskCheckResult{Allowed: false, ServiceError: svcErr}
	if in.DenialsInLast24h+1 >= maxDenialsBeforeSuspend {
		result.ShouldSuspend = true
		result.SuspendUntil = in.Now.Add(suspendDuration)
	}
	return result
}
