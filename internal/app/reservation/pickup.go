package reservation

import (
	"time"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/apperrors"
)

// PickupAction is one of the §4.1.E pickup-window transitions.
type PickupAction string

const (
	PickupActionStaffSetOpenWindow       PickupAction = "staff_set_open_window"
	PickupActionMemberConfirmWindow      PickupAction = "member_confirm_window"
	PickupActionMemberRequestReschedule  PickupAction = "member_request_reschedule"
	PickupActionStaffMarkMissed          PickupAction = "staff_mark_missed"
	PickupActionStaffMarkCompleted       PickupAction = "staff_mark_completed"
)

// pickupReasonCode maps each action to its stage-history reason code
// (spec.md §4.1.E).
var pickupReasonCode = map[PickupAction]string{
	PickupActionStaffSetOpenWindow:      "pickup_window_opened",
	PickupActionMemberConfirmWindow:     "pickup_window_confirmed",
	PickupActionMemberRequestReschedule: "pickup_window_reschedule_requested",
	PickupActionStaffMarkMissed:         "pickup_window_missed",
	PickupActionStaffMarkCompleted:      "pickup_window_completed",
}

// PickupWindowInput carries the action-specific fields a pickup-window
// transition may need.
type PickupWindowInput struct {
	Action          PickupAction
	RequestedStart  *time.Time
	RequestedEnd    *time.Time
	ConfirmedStart  *time.Time
	ConfirmedEnd    *time.Time
	Force           bool
}

// ApplyPickupWindowAction mutates r.PickupWindow per the §4.1.E state
// machine and returns the stage-history reason code plus a storage notice
// to append; actorIsStaff gates the staff-only actions.
func ApplyPickupWindowAction(r *Reservation, in PickupWindowInput, actorIsStaff bool, now time.Time) (reasonCode string, notice StorageNotice, svcErr *apperrors.ServiceError) {
	pw := &r.PickupWindow

	switch in.Action {
	case PickupActionStaffSetOpenWindow:
		if !actorIsStaff {
			return "", StorageNotice{}, apperrors.Forbidden("only staff may open a pickup window")
		}
		if r.LoadStatus != LoadStatusLoaded && !in.Force {
			return "", StorageNotice{}, apperrors.FailedPrecondition("pickup window requires load_status=loaded", "")
		}
		pw.Status = PickupOpen
		pw.ConfirmedStart = in.ConfirmedStart
		pw.ConfirmedEnd = in.ConfirmedEnd

	case PickupActionMemberConfirmWindow:
		if pw.Status != PickupOpen {
			return "", StorageNotice{}, apperrors.Conflict("pickup window is not open", "")
		}
		if pw.ConfirmedEnd != nil && pw.ConfirmedEnd.Before(now) {
			return "", StorageNotice{}, apperrors.Gone("pickup window has already ended")
		}
		pw.Status = PickupConfirmed
		pw.ConfirmedAt = &now

	case PickupActionMemberRequestReschedule:
		if pw.RescheduleCount >= 1 && !in.Force {
			return "", StorageNotice{}, apperrors.RescheduleLimitReached()
		}
		pw.RequestedStart = in.RequestedStart
		pw.RequestedEnd = in.RequestedEnd
		pw.ConfirmedStart = nil
		pw.ConfirmedEnd = nil
		pw.Status = PickupOpen
		pw.RescheduleCount++
		pw.LastRescheduleRequestedAt = &now

	case PickupActionStaffMarkMissed:
		if !actorIsStaff {
			return "", StorageNotice{}, apperrors.Forbidden("only staff may mark a pickup missed")
		}
		if !in.Force && (pw.ConfirmedEnd == nil || !pw.ConfirmedEnd.Before(now)) {
			return "", StorageNotice{}, apperrors.FailedPrecondition("pickup window has not yet ended", "")
		}
		pw.Status = PickupMissed
		pw.MissedCount++
		pw.LastMissedAt = &now
		if pw.MissedCount >= 2 {
			r.StorageStatus = StorageStoredByPolicy
		} else {
			r.StorageStatus = StorageHoldPending
		}

	case PickupActionStaffMarkCompleted:
		if !actorIsStaff {
			return "", StorageNotice{}, apperrors.Forbidden("only staff may mark a pickup completed")
		}
		pw.Status = PickupCompleted
		pw.CompletedAt = &now
		r.StorageStatus = StorageActive
		pw.MissedCount = 0

	default:
		return "", StorageNotice{}, apperrors.InvalidArgument("unknown pickup action")
	}

	code := pickupReasonCode[in.Action]
	notice = StorageNotice{At: now, Kind: code, Detail: string(r.StorageStatus)}
	r.appendStorageNotice(notice)

	return code, notice, nil
}
