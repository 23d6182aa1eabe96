package reservation

import (
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/apperrors"
)

// AssignStationInput is the §4.1.G request shape.
type AssignStationInput struct {
	AssignedStationID string
	QueueClass        string
	RequiredResources []string
}

// CapacityChecker resolves a station's configured capacity; satisfied by
// station.Registry.
type CapacityChecker interface {
	IsKnown(stationID string) bool
	Capacity(stationID string) (int, bool)
}

// AssignStation applies a station-assignment request to r, checking R5
// against siblings (every other reservation already on the target
// station), and reports whether anything changed (spec.md §4.1.G:
// "no-op assignments are detected and replayed as idempotent"). siblings
// must exclude r itself and must be read inside the same transaction as
// the write.
func AssignStation(r *Reservation, in AssignStationInput, siblings []Reservation, stations CapacityChecker) (changed bool, svcErr *apperrors.ServiceError) {
	if in.AssignedStationID == "" {
		return false, apperrors.InvalidArgument("assigned_station_id is required")
	}
	if !stations.IsKnown(in.AssignedStationID) {
		return false, apperrors.NotFound("station", in.AssignedStationID)
	}

	noOp := r.AssignedStationID == in.AssignedStationID &&
		r.QueueClass == in.QueueClass &&
		stringSlicesEqual(r.RequiredResources, in.RequiredResources)
	if noOp {
		return false, nil
	}

	if r.AssignedStationID != in.AssignedStationID {
		capacity, _ := stations.Capacity(in.AssignedStationID)

		used := 0.0
		for _, sibling := range siblings {
			if sibling.ReservationID == r.ReservationID {
				continue
			}
			if sibling.AssignedStationID != in.AssignedStationID {
				continue
			}
			if !CapacityRelevant(sibling) {
				continue
			}
			used += EstimateHalfShelves(sibling)
		}

		selfContribution := 0.0
		prospective := *r
		prospective.AssignedStationID = in.AssignedStationID
		if CapacityRelevant(prospective) {
			selfContribution = EstimateHalfShelves(prospective)
		}

		if used+selfContribution > float64(capacity) {
			return false, apperrors.StationCapacityExceeded(in.AssignedStationID)
		}
	}

	r.AssignedStationID = in.AssignedStationID
	r.QueueClass = in.QueueClass
	r.RequiredResources = in.RequiredResources
	return true, nil
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
