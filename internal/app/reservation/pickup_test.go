package reservation

import (
	"testing"
	"time"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPickupWindowAction_StaffOpenRequiresLoaded(t *testing.T) {
	r := &Reservation{LoadStatus: LoadStatusQueued}
	_, _, svcErr := ApplyPickupWindowAction(r, PickupWindowInput{Action: PickupActionStaffSetOpenWindow}, true, time.Now())
	require.NotNil(t, svcErr)
	assert.Equal(t, apperrors.CodeFailedPrecondition, svcErr.Code)
}

func TestApplyPickupWindowAction_StaffOpenSucceeds(t *testing.T) {
	now := time.Now()
	start, end := now.Add(time.Hour), now.Add(3*time.Hour)
	r := &Reservation{LoadStatus: LoadStatusLoaded}

	code, _, svcErr := ApplyPickupWindowAction(r, PickupWindowInput{
		Action: PickupActionStaffSetOpenWindow, ConfirmedStart: &start, ConfirmedEnd: &end,
	}, true, now)

	require.Nil(t, svcErr)
	assert.Equal(t, "pickup_window_opened", code)
	assert.Equal(t, PickupOpen, r.PickupWindow.Status)
	assert.Len(t, r.StorageNoticeHistory, 1)
}

func TestApplyPickupWindowAction_MemberConfirmRejectsExpiredWindow(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	r := &Reservation{PickupWindow: PickupWindow{Status: PickupOpen, ConfirmedEnd: &past}}

	_, _, svcErr := ApplyPickupWindowAction(r, PickupWindowInput{Action: PickupActionMemberConfirmWindow}, false, now)

	require.NotNil(t, svcErr)
	assert.Equal(t, apperrors.CodeGone, svcErr.Code)
}

func TestApplyPickupWindowAction_RescheduleLimitEnforced(t *testing.T) {
	r := &Reservation{PickupWindow: PickupWindow{RescheduleCount: 1}}

	_, _, svcErr := ApplyPickupWindowAction(r, PickupWindowInput{Action: PickupActionMemberRequestReschedule}, false, time.Now())
	require.NotNil(t, svcErr)
	assert.Equal(t, apperrors.ReasonRescheduleLimitReached, svcErr.Details["reasonCode"])

	_, _, svcErr = ApplyPickupWindowAction(r, PickupWindowInput{Action: PickupActionMemberRequestReschedule, Force: true}, false, time.Now())
	require.Nil(t, svcErr)
	assert.Equal(t, 2, r.PickupWindow.RescheduleCount)
}

func TestApplyPickupWindowAction_MissedEscalatesStorageOnSecondMiss(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	r := &Reservation{PickupWindow: PickupWindow{ConfirmedEnd: &past, MissedCount: 1}}

	_, _, svcErr := ApplyPickupWindowAction(r, PickupWindowInput{Action: PickupActionStaffMarkMissed}, true, now)

	require.Nil(t, svcErr)
	assert.Equal(t, 2, r.PickupWindow.MissedCount)
	assert.Equal(t, StorageStoredByPolicy, r.StorageStatus)
}

func TestApplyPickupWindowAction_MissedRequiresStaff(t *testing.T) {
	r := &Reservation{}
	_, _, svcErr := ApplyPickupWindowAction(r, PickupWindowInput{Action: PickupActionStaffMarkMissed}, false, time.Now())
	require.NotNil(t, svcErr)
	assert.Equal(t, apperrors.CodeForbidden, svcErr.Code)
}

func TestApplyPickupWindowAction_CompletedResetsCounters(t *testing.T) {
	r := &Reservation{StorageStatus: StorageHoldPending, PickupWindow: PickupWindow{MissedCount: 2}}
	_, _, svcErr := ApplyPickupWindowAction(r, PickupWindowInput{Action: PickupActionStaffMarkCompleted}, true, time.Now())
	require.Nil(t, svcErr)
	assert.Equal(t, PickupCompleted, r.PickupWindow.Status)
	assert.Equal(t, StorageActive, r.StorageStatus)
	assert.Equal(t, 0, r.PickupWindow.MissedCount)
}
