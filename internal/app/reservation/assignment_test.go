package reservation

import (
	"testing"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStations struct {
	capacities map[string]int
}

func (f fakeStations) IsKnown(id string) bool {
	_, ok := f.capacities[id]
	return ok
}

func (f fakeStations) Capacity(id string) (int, bool) {
	c, ok := f.capacities[id]
	return c, ok
}

func TestAssignStation_DeniesWhenOverCapacity(t *testing.T) {
	stations := fakeStations{capacities: map[string]int{"kiln-main": 4}}
	siblings := []Reservation{
		{ReservationID: "s1", AssignedStationID: "kiln-main", Status: StatusConfirmed, LoadStatus: LoadStatusQueued, Size: SizeProfile{EstimatedHalfShelves: 2}},
		{ReservationID: "s2", AssignedStationID: "kiln-main", Status: StatusConfirmed, LoadStatus: LoadStatusQueued, Size: SizeProfile{EstimatedHalfShelves: 2}},
	}
	r := &Reservation{ReservationID: "r3", Status: StatusConfirmed, LoadStatus: LoadStatusQueued, Size: SizeProfile{EstimatedHalfShelves: 1}}

	changed, svcErr := AssignStation(r, AssignStationInput{AssignedStationID: "kiln-main"}, siblings, stations)

	require.NotNil(t, svcErr)
	assert.False(t, changed)
	assert.Equal(t, apperrors.CodeConflict, svcErr.Code)
	assert.Equal(t, apperrors.ReasonStationCapacityExceeded, svcErr.Details["reasonCode"])
}

func TestAssignStation_AllowsWithinCapacity(t *testing.T) {
	stations := fakeStations{capacities: map[string]int{"kiln-main": 4}}
	siblings := []Reservation{
		{ReservationID: "s1", AssignedStationID: "kiln-main", Status: StatusConfirmed, LoadStatus: LoadStatusQueued, Size: SizeProfile{EstimatedHalfShelves: 2}},
	}
	r := &Reservation{ReservationID: "r3", Status: StatusConfirmed, LoadStatus: LoadStatusQueued, Size: SizeProfile{EstimatedHalfShelves: 1}}

	changed, svcErr := AssignStation(r, AssignStationInput{AssignedStationID: "kiln-main"}, siblings, stations)

	require.Nil(t, svcErr)
	assert.True(t, changed)
	assert.Equal(t, "kiln-main", r.AssignedStationID)
}

func TestAssignStation_NoOpWhenUnchanged(t *testing.T) {
	stations := fakeStations{capacities: map[string]int{"kiln-main": 4}}
	r := &Reservation{ReservationID: "r3", AssignedStationID: "kiln-main", QueueClass: "general"}

	changed, svcErr := AssignStation(r, AssignStationInput{AssignedStationID: "kiln-main", QueueClass: "general"}, nil, stations)

	require.Nil(t, svcErr)
	assert.False(t, changed)
}

func TestAssignStation_RejectsUnknownStation(t *testing.T) {
	stations := fakeStations{capacities: map[string]int{"kiln-main": 4}}
	r := &Reservation{ReservationID: "r3"}

	_, svcErr := AssignStation(r, AssignStationInput{AssignedStationID: "kiln-ghost"}, nil, stations)

	require.NotNil(t, svcErr)
	assert.Equal(t, apperrors.CodeNotFound, svcErr.Code)
}

func TestAssignStation_CommunityShelfExcludedFromCapacity(t *testing.T) {
	stations := fakeStations{capacities: map[string]int{"kiln-main": 2}}
	siblings := []Reservation{
		{ReservationID: "s1", AssignedStationID: "kiln-main", IntakeMode: IntakeCommunityShelf, Status: StatusConfirmed, LoadStatus: LoadStatusQueued, Size: SizeProfile{EstimatedHalfShelves: 5}},
	}
	r := &Reservation{ReservationID: "r3", Status: StatusConfirmed, LoadStatus: LoadStatusQueued, Size: SizeProfile{EstimatedHalfShelves: 2}}

	changed, svcErr := AssignStation(r, AssignStationInput{AssignedStationID: "kiln-main"}, siblings, stations)

	require.Nil(t, svcErr)
	assert.True(t, changed)
}
