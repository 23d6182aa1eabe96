package reservation

import (
	"context"
	"testing"
	"time"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memReservationStore struct {
	byID map[string]Reservation
}

func newMemReservationStore() *memReservationStore {
	return &memReservationStore{byID: map[string]Reservation{}}
}

func (m *memReservationStore) Get(ctx context.Context, id string) (Reservation, error) {
	r, ok := m.byID[id]
	if !ok {
		return Reservation{}, ErrNotFound
	}
	return r, nil
}

func (m *memReservationStore) GetByClientRequestID(ctx context.Context, ownerUID, clientRequestID string) (Reservation, bool, error) {
	for _, r := range m.byID {
		if r.OwnerUID == ownerUID && r.ClientRequestID == clientRequestID {
			return r, true, nil
		}
	}
	return Reservation{}, false, nil
}

func (m *memReservationStore) GetByArrivalTokenLookup(ctx context.Context, lookup string) (Reservation, bool, error) {
	for _, r := range m.byID {
		if r.ArrivalTokenLookup == lookup {
			return r, true, nil
		}
	}
	return Reservation{}, false, nil
}

func (m *memReservationStore) Create(ctx context.Context, r Reservation) error {
	m.byID[r.ReservationID] = r
	return nil
}

func (m *memReservationStore) Update(ctx context.Context, id string, fn func(r *Reservation) error) (Reservation, error) {
	r, ok := m.byID[id]
	if !ok {
		return Reservation{}, ErrNotFound
	}
	if err := fn(&r); err != nil {
		return Reservation{}, err
	}
	m.byID[id] = r
	return r, nil
}

func (m *memReservationStore) ListByOwner(ctx context.Context, ownerUID string, limit int) ([]Reservation, error) {
	var out []Reservation
	for _, r := range m.byID {
		if r.OwnerUID == ownerUID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memReservationStore) ListByStation(ctx context.Context, stationID string) ([]Reservation, error) {
	var out []Reservation
	for _, r := range m.byID {
		if r.AssignedStationID == stationID {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestCreate_ThenReplayIsIdempotent(t *testing.T) {
	store := newMemReservationStore()
	now := time.Date(2026, 2, 24, 9, 0, 0, 0, time.UTC)

	in := CreateInput{
		OwnerUID: "u1", ClientRequestID: "abc", FiringType: FiringBisque,
		ShelfEquivalent: 2, IntakeMode: IntakeShelfPurchase, Now: now,
	}

	first, replay1, svcErr := Create(context.Background(), store, in)
	require.Nil(t, svcErr)
	assert.False(t, replay1)
	assert.Equal(t, StatusRequested, first.Status)

	second, replay2, svcErr := Create(context.Background(), store, in)
	require.Nil(t, svcErr)
	assert.True(t, replay2)
	assert.Equal(t, first.ReservationID, second.ReservationID)
}

func TestCreate_RejectsBisqueOnlyMismatch(t *testing.T) {
	store := newMemReservationStore()
	in := CreateInput{OwnerUID: "u1", FiringType: FiringGlaze, SpecialHandling: true, ShelfEquivalent: 1}
	_, _, svcErr := Create(context.Background(), store, in)
	require.NotNil(t, svcErr)
	assert.Equal(t, apperrors.CodeInvalidArgument, svcErr.Code)
}

func TestCreate_RejectsEarliestAfterLatest(t *testing.T) {
	store := newMemReservationStore()
	now := time.Now()
	later, earlier := now.Add(2*time.Hour), now.Add(time.Hour)
	in := CreateInput{OwnerUID: "u1", ShelfEquivalent: 1, PreferredWindow: Window{Start: &later, End: &earlier}}
	_, _, svcErr := Create(context.Background(), store, in)
	require.NotNil(t, svcErr)
}

func TestCreate_CommunityShelfClearsPaidAddOns(t *testing.T) {
	store := newMemReservationStore()
	in := CreateInput{
		OwnerUID: "u1", IntakeMode: IntakeCommunityShelf, ShelfEquivalent: 1,
		RushRequested: true, DeliveryAddress: "123 Clay St", DeliveryInstructions: "leave at door",
	}
	r, _, svcErr := Create(context.Background(), store, in)
	require.Nil(t, svcErr)
	assert.False(t, r.RushRequested)
	assert.Empty(t, r.DeliveryAddress)
}

func TestApplyStatusUpdate_DeniesOutsideMatrixWithoutForce(t *testing.T) {
	now := time.Now()
	r := &Reservation{Status: StatusCancelled}
	to := StatusConfirmed
	svcErr := ApplyStatusUpdate(r, UpdateStatusInput{Status: &to}, now)
	require.NotNil(t, svcErr)
	assert.Equal(t, apperrors.ReasonInvalidStatusTransition, svcErr.Details["reasonCode"])
}

func TestApplyStatusUpdate_ForceByStaffBypassesMatrix(t *testing.T) {
	now := time.Now()
	r := &Reservation{Status: StatusCancelled}
	to := StatusConfirmed
	svcErr := ApplyStatusUpdate(r, UpdateStatusInput{Status: &to, Force: true, ActorStaff: true}, now)
	require.Nil(t, svcErr)
	assert.Equal(t, StatusConfirmed, r.Status)
}

func TestApplyStatusUpdate_ConfirmMintsArrivalToken(t *testing.T) {
	now := time.Now()
	r := &Reservation{Status: StatusRequested}
	to := StatusConfirmed
	svcErr := ApplyStatusUpdate(r, UpdateStatusInput{Status: &to}, now)
	require.Nil(t, svcErr)
	assert.Equal(t, 1, r.ArrivalTokenVersion)
	assert.NotEmpty(t, r.ArrivalToken)
	assert.Equal(t, ArrivalExpected, r.ArrivalStatus)
}

func TestApplyStatusUpdate_FirstLoadedSetsPickupReady(t *testing.T) {
	now := time.Now()
	r := &Reservation{Status: StatusConfirmed, LoadStatus: LoadStatusQueued}
	loaded := LoadStatusLoaded
	svcErr := ApplyStatusUpdate(r, UpdateStatusInput{LoadStatus: &loaded}, now)
	require.Nil(t, svcErr)
	assert.Len(t, r.StorageNoticeHistory, 1)
	assert.Equal(t, "pickup_ready", r.StorageNoticeHistory[0].Kind)
}

func TestApplyCheckIn_FailsWhenCancelled(t *testing.T) {
	r := &Reservation{Status: StatusCancelled}
	svcErr := ApplyCheckIn(r, CheckInInput{}, time.Now())
	require.NotNil(t, svcErr)
	assert.Equal(t, apperrors.CodeConflict, svcErr.Code)
}

func TestApplyCheckIn_IdempotentWhenAlreadyArrivedNoNewData(t *testing.T) {
	now := time.Now()
	arrivedAt := now.Add(-time.Hour)
	r := &Reservation{Status: StatusConfirmed, ArrivalStatus: ArrivalArrived, ArrivedAt: &arrivedAt}
	svcErr := ApplyCheckIn(r, CheckInInput{}, now)
	require.Nil(t, svcErr)
	assert.Equal(t, arrivedAt, *r.ArrivedAt)
}

func TestApplyCheckIn_RecordsArrivalFromConfirmed(t *testing.T) {
	now := time.Now()
	r := &Reservation{Status: StatusConfirmed}
	svcErr := ApplyCheckIn(r, CheckInInput{Note: "left at desk"}, now)
	require.Nil(t, svcErr)
	assert.Equal(t, ArrivalArrived, r.ArrivalStatus)
	require.Len(t, r.StageHistory, 1)
	assert.Equal(t, "arrival_check_in", r.StageHistory[0].Reason)
}

func TestApplyRotateArrivalToken_PreservesArrivedState(t *testing.T) {
	now := time.Now()
	r := &Reservation{ReservationID: "res-abc123", Status: StatusConfirmed, ArrivalStatus: ArrivalArrived, ArrivalTokenVersion: 1}
	svcErr := ApplyRotateArrivalToken(r, "staff-1", "staff", now)
	require.Nil(t, svcErr)
	assert.Equal(t, 2, r.ArrivalTokenVersion)
	assert.Equal(t, ArrivalArrived, r.ArrivalStatus)
}
