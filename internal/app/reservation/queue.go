package reservation

import (
	"sort"
	"time"
)

// queueRankKey is the six-factor tuple spec.md §4.1.H sorts by, lower
// ranks first, with reservation id as the final tie-breaker
// (P-QUEUE-RANK).
type queueRankKey struct {
	communityPriority int
	statusPriority    int
	rushPriority      int
	wholeKilnPriority int
	fairnessPenalty   int
	sizePenalty       float64
	createdAtMs       int64
	id                string
}

func rankKeyFor(r Reservation) queueRankKey {
	community := 0
	if r.IntakeMode == IntakeCommunityShelf {
		community = 1
	}

	status := 3
	switch r.Status {
	case StatusConfirmed:
		status = 0
	case StatusRequested:
		status = 1
	case StatusWaitlisted:
		status = 2
	}

	rush := 1
	if r.RushRequested {
		rush = 0
	}

	wholeKiln := 1
	if r.IntakeMode == IntakeWholeKiln {
		wholeKiln = 0
	}

	return queueRankKey{
		communityPriority: community,
		statusPriority:    status,
		rushPriority:      rush,
		wholeKilnPriority: wholeKiln,
		fairnessPenalty:   r.QueueFairnessPolicy.EffectivePenaltyPoints,
		sizePenalty:       EstimateHalfShelves(r),
		createdAtMs:       r.CreatedAtMs,
		id:                r.ReservationID,
	}
}

func (k queueRankKey) less(other queueRankKey) bool {
	if k.communityPriority != other.communityPriority {
		return k.communityPriority < other.communityPriority
	}
	if k.statusPriority != other.statusPriority {
		return k.statusPriority < other.statusPriority
	}
	if k.rushPriority != other.rushPriority {
		return k.rushPriority < other.rushPriority
	}
	if k.wholeKilnPriority != other.wholeKilnPriority {
		return k.wholeKilnPriority < other.wholeKilnPriority
	}
	if k.fairnessPenalty != other.fairnessPenalty {
		return k.fairnessPenalty < other.fairnessPenalty
	}
	if k.sizePenalty != other.sizePenalty {
		return k.sizePenalty < other.sizePenalty
	}
	if k.createdAtMs != other.createdAtMs {
		return k.createdAtMs < other.createdAtMs
	}
	return k.id < other.id
}

// RecomputeQueueHints assigns queue_position_hint and estimated_window
// across all non-cancelled rows assigned to one station (spec.md §4.1.H).
// Cancelled rows get queue_position_hint=nil and
// estimated_window.sla_state="unknown". Mutates the slice in place and
// returns it, ranked.
func RecomputeQueueHints(rows []Reservation, now time.Time) []Reservation {
	ranked := make([]int, 0, len(rows))
	for i, r := range rows {
		if r.Status != StatusCancelled {
			ranked = append(ranked, i)
		}
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return rankKeyFor(rows[ranked[a]]).less(rankKeyFor(rows[ranked[b]]))
	})

	for pos, idx := range ranked {
		rank := pos + 1
		rows[idx].QueuePositionHint = &rank
		rows[idx].EstimatedWindow = estimatedWindowFor(rank, now)
	}

	for i := range rows {
		if rows[i].Status == StatusCancelled {
			rows[i].QueuePositionHint = nil
			rows[i].EstimatedWindow = &EstimatedWindow{SLAState: "unknown"}
		}
	}

	return rows
}

// estimatedWindowFor derives the scheduling estimate for a 1-based queue
// rank (spec.md §4.1.H): slot_index = floor((pos-1)/2), each slot spans
// two days, confidence/sla_state bucketed by position.
func estimatedWindowFor(rank int, now time.Time) *EstimatedWindow {
	slotIndex := (rank - 1) / 2
	start := now.Add(time.Duration(slotIndex) * 2 * 24 * time.Hour)
	end := start.Add(2 * 24 * time.Hour)

	confidence := "low"
	slaState := "delayed"
	switch {
	case rank <= 2:
		confidence = "high"
		slaState = "on_track"
	case rank <= 5:
		confidence = "medium"
		slaState = "at_risk"
	}

	return &EstimatedWindow{
		Start:      &start,
		End:        &end,
		Confidence: confidence,
		SLAState:   slaState,
	}
}
