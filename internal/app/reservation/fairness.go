package reservation

import (
	"fmt"
	"strings"
	"time"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/apperrors"
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/idgen"
)

// FairnessAction is one of the staff-only queue-fairness actions (spec.md
// §4.1.F).
type FairnessAction string

const (
	ActionRecordNoShow      FairnessAction = "record_no_show"
	ActionRecordLateArrival FairnessAction = "record_late_arrival"
	ActionSetOverrideBoost  FairnessAction = "set_override_boost"
	ActionClearOverride     FairnessAction = "clear_override"
)

const maxStaffNotesTrailing = maxStaffNotesLen

// recomputeFairnessPolicy derives QueueFairnessPolicy from QueueFairness,
// implementing R3/P-FAIRNESS exactly:
//
//	penalty_points        = 2*no_show_count + 1*late_arrival_count
//	override_boost_active = override_boost if override_until is nil or >= now, else 0
//	effective_penalty     = max(0, penalty_points - override_boost_active)
func recomputeFairnessPolicy(f QueueFairness, now time.Time) QueueFairnessPolicy {
	penaltyPoints := 2*f.NoShowCount + f.LateArrivalCount

	boostActive := 0
	if f.OverrideBoost > 0 && (f.OverrideUntil == nil || !f.OverrideUntil.Before(now)) {
		boostActive = f.OverrideBoost
	}

	effective := penaltyPoints - boostActive
	if effective < 0 {
		effective = 0
	}

	var reasons []string
	if f.NoShowCount >= 2 {
		reasons = append(reasons, "repeat_no_show")
	} else if f.NoShowCount == 1 {
		reasons = append(reasons, "no_show")
	}
	if f.LateArrivalCount > 0 {
		reasons = append(reasons, "late_arrival")
	}
	if boostActive > 0 {
		reasons = append(reasons, "staff_override_boost")
	}

	return QueueFairnessPolicy{
		NoShowCount:            f.NoShowCount,
		LateArrivalCount:       f.LateArrivalCount,
		PenaltyPoints:          penaltyPoints,
		EffectivePenaltyPoints: effective,
		OverrideBoostApplied:   boostActive,
		ReasonCodes:            reasons,
		PolicyVersion:          PolicyVersion,
		ComputedAt:             now,
	}
}

// ApplyFairnessAction mutates r.QueueFairness per action, recomputes the
// policy, appends a staff note, and returns the evidence record to persist
// under reservationQueueFairnessAudit (spec.md §4.1.F). Callers authorize
// staff-only access before calling this.
func ApplyFairnessAction(r *Reservation, action FairnessAction, reason, requestID, actorUID, actorRole string, boostPoints int, overrideUntil *time.Time, now time.Time) (FairnessAuditRecord, *apperrors.ServiceError) {
	if strings.TrimSpace(reason) == "" {
		return FairnessAuditRecord{}, apperrors.InvalidArgument("reason is required for fairness actions")
	}

	switch action {
	case ActionRecordNoShow:
		r.QueueFairness.NoShowCount++
	case ActionRecordLateArrival:
		r.QueueFairness.LateArrivalCount++
	case ActionSetOverrideBoost:
		if boostPoints < 0 || boostPoints > 20 {
			return FairnessAuditRecord{}, apperrors.InvalidArgument("boost_points must be within [0,20]")
		}
		r.QueueFairness.OverrideBoost = boostPoints
		r.QueueFairness.OverrideUntil = overrideUntil
		r.QueueFairness.OverrideReason = reason
	case ActionClearOverride:
		r.QueueFairness.OverrideBoost = 0
		r.QueueFairness.OverrideUntil = nil
		r.QueueFairness.OverrideReason = ""
	default:
		return FairnessAuditRecord{}, apperrors.InvalidArgument(fmt.Sprintf("unknown fairness action %q", action))
	}

	r.QueueFairness.UpdatedAt = now
	r.QueueFairness.UpdatedByUID = actorUID
	r.QueueFairness.UpdatedByRole = actorRole
	r.QueueFairness.LastPolicyNote = reason

	policy := recomputeFairnessPolicy(r.QueueFairness, now)
	r.QueueFairnessPolicy = policy

	evidenceID := idgen.Hash("reservation-fairness", r.ReservationID, fmt.Sprintf("%s:%s", action, requestID))
	r.QueueFairness.LastEvidenceID = evidenceID

	note := fmt.Sprintf("[fairness:%s] %s", action, reason)
	r.StaffNotes = appendTrailingNote(r.StaffNotes, note, maxStaffNotesTrailing)

	return FairnessAuditRecord{
		ReservationID: r.ReservationID,
		Action:        string(action),
		RequestID:     requestID,
		Reason:        reason,
		ActorUID:      actorUID,
		ActorRole:     actorRole,
		Policy:        policy,
	}, nil
}

// appendTrailingNote appends note to existing (newline-joined) and keeps
// only the trailing maxLen characters (spec.md §3.1 staff_notes ≤1500).
func appendTrailingNote(existing, note string, maxLen int) string {
	combined := note
	if existing != "" {
		combined = existing + "\n" + note
	}
	if len(combined) > maxLen {
		combined = combined[len(combined)-maxLen:]
	}
	return combined
}
