// Package reservation implements the Reservation Engine (spec.md §3.1,
// §4.1): the reservation lifecycle, queue-fairness, arrival tokens, pickup
// windows, storage escalation, and continuity export.
package reservation

import "time"

// Status is the top-level reservation lifecycle state (spec.md §3.1, R1).
type Status string

const (
	StatusRequested        Status = "REQUESTED"
	StatusConfirmed        Status = "CONFIRMED"
	StatusWaitlisted       Status = "WAITLISTED"
	StatusCancelled        Status = "CANCELLED"
	StatusConfirmedArrived Status = "CONFIRMED_ARRIVED"
	StatusLoaded           Status = "LOADED"
)

// normalizeStatus accepts the "CANCELED" input alias (spec.md §3.1).
func normalizeStatus(s string) Status {
	if s == "CANCELED" {
		return StatusCancelled
	}
	return Status(s)
}

// LoadStatus tracks physical loading progress. Transitions are unrestricted
// as an enum but must preserve invariant R5 (spec.md §4.1.B).
type LoadStatus string

const (
	LoadStatusQueued  LoadStatus = "queued"
	LoadStatusLoading LoadStatus = "loading"
	LoadStatusLoaded  LoadStatus = "loaded"
)

// IntakeMode is how material enters the studio pipeline (GLOSSARY).
type IntakeMode string

const (
	IntakeShelfPurchase   IntakeMode = "SHELF_PURCHASE"
	IntakeWholeKiln       IntakeMode = "WHOLE_KILN"
	IntakeCommunityShelf  IntakeMode = "COMMUNITY_SHELF"
)

// FiringType is the kiln cycle the reservation is booked for.
type FiringType string

const (
	FiringBisque FiringType = "bisque"
	FiringGlaze  FiringType = "glaze"
	FiringOther  FiringType = "other"
)

// PieceStatus tracks an individual piece within a reservation.
type PieceStatus string

const (
	PieceAwaitingPlacement PieceStatus = "awaiting_placement"
	PieceLoaded            PieceStatus = "loaded"
	PieceFired             PieceStatus = "fired"
	PieceReady             PieceStatus = "ready"
	PiecePickedUp          PieceStatus = "picked_up"
)

// Piece is one item placed under a reservation (spec.md §3.1, ≤250, unique
// piece_id within a reservation).
type Piece struct {
	PieceID      string
	PieceLabel   string
	PieceCount   int
	PiecePhotoURL string
	PieceStatus  PieceStatus
}

// Window is a half-open time range used for preferred firing windows and
// pickup windows.
type Window struct {
	Start *time.Time
	End   *time.Time
}

// ArrivalStatus tracks whether the owner has checked in.
type ArrivalStatus string

const (
	ArrivalExpected ArrivalStatus = "expected"
	ArrivalArrived  ArrivalStatus = "arrived"
)

// PickupStatus is the pickup-window state machine state (spec.md §4.1.E).
type PickupStatus string

const (
	PickupOpen      PickupStatus = "open"
	PickupConfirmed PickupStatus = "confirmed"
	PickupMissed    PickupStatus = "missed"
	PickupExpired   PickupStatus = "expired"
	PickupCompleted PickupStatus = "completed"
)

// PickupWindow is the post-fire pickup scheduling and storage-escalation
// state for a reservation (spec.md §3.1).
type PickupWindow struct {
	RequestedStart           *time.Time
	RequestedEnd             *time.Time
	ConfirmedStart           *time.Time
	ConfirmedEnd             *time.Time
	Status                   PickupStatus
	ConfirmedAt              *time.Time
	CompletedAt              *time.Time
	MissedCount              int
	RescheduleCount          int
	LastMissedAt             *time.Time
	LastRescheduleRequestedAt *time.Time
}

// StorageStatus is the post-fire storage escalation ladder (spec.md §3.1).
type StorageStatus string

const (
	StorageActive          StorageStatus = "active"
	StorageReminderPending StorageStatus = "reminder_pending"
	StorageHoldPending     StorageStatus = "hold_pending"
	StorageStoredByPolicy  StorageStatus = "stored_by_policy"
)

// StageStatus is the coarse lifecycle bucket plus the most recent
// transition's audit context (spec.md §3.1, GLOSSARY "Stage").
type StageStatus struct {
	Stage     string
	At        time.Time
	Source    string
	Reason    string
	Notes     string
	ActorUID  string
	ActorRole string
}

// StorageNotice is one entry of storage_notice_history (spec.md §3.1,
// capped at 80).
type StorageNotice struct {
	At     time.Time
	Kind   string
	Detail string
}

// QueueFairness is the raw counters behind the fairness policy (spec.md
// §3.1, §4.1.F).
type QueueFairness struct {
	NoShowCount       int
	LateArrivalCount  int
	OverrideBoost     int
	OverrideReason    string
	OverrideUntil     *time.Time
	UpdatedAt         time.Time
	UpdatedByUID      string
	UpdatedByRole     string
	LastPolicyNote    string
	LastEvidenceID    string
}

// QueueFairnessPolicy is the derived, recomputed view of QueueFairness
// (spec.md §3.1 R3, §4.1.F).
type QueueFairnessPolicy struct {
	NoShowCount           int
	LateArrivalCount      int
	PenaltyPoints         int
	EffectivePenaltyPoints int
	OverrideBoostApplied  int
	ReasonCodes           []string
	PolicyVersion         string
	ComputedAt            time.Time
}

// PolicyVersion is the fairness policy version stamped on every recompute
// (spec.md §4.1.F).
const PolicyVersion = "2026-02-24.v1"

// SizeProfile carries the half-shelf footprint fields (spec.md §3.1).
type SizeProfile struct {
	FootprintHalfShelves float64
	Tiers                int
	EstimatedHalfShelves float64
	ShelfEquivalent      float64
}

// EstimatedWindow is the derived queue-position scheduling estimate
// (spec.md §4.1.H).
type EstimatedWindow struct {
	Start      *time.Time
	End        *time.Time
	Confidence string
	SLAState   string
}

// Reservation is the aggregate root owned exclusively by the Reservation
// Engine (spec.md §3.1).
type Reservation struct {
	ReservationID  string
	OwnerUID       string
	CreatedByUID   string
	CreatedByRole  string
	ClientRequestID string

	IntakeMode IntakeMode
	FiringType FiringType
	Size       SizeProfile

	Status      Status
	LoadStatus  LoadStatus
	AssignedStationID string

	QueueClass        string
	QueuePositionHint *int
	EstimatedWindow   *EstimatedWindow

	PreferredWindow Window

	Pieces []Piece

	ArrivalToken          string
	ArrivalTokenLookup    string
	ArrivalTokenVersion   int
	ArrivalTokenIssuedAt  *time.Time
	ArrivalTokenExpiresAt *time.Time
	ArrivalStatus         ArrivalStatus
	ArrivedAt             *time.Time

	PickupWindow PickupWindow

	StorageStatus        StorageStatus
	StorageNoticeHistory []StorageNotice

	StageStatus   StageStatus
	StageHistory  []StageStatus

	QueueFairness       QueueFairness
	QueueFairnessPolicy QueueFairnessPolicy

	StaffNotes string

	RushRequested    bool
	RequiredResources []string
	SpecialHandling  bool
	DeliveryAddress  string
	DeliveryInstructions string

	CreatedAt time.Time
	UpdatedAt time.Time
	CreatedAtMs int64
}

const (
	maxStageHistory   = 120
	maxStorageNotices = 80
	maxPieces         = 250
	maxPieceCount     = 500
	maxStaffNotesLen  = 1500
)

// appendStageHistory appends entry and truncates from the head to keep the
// most recent maxStageHistory entries (spec.md R6, §9).
func (r *Reservation) appendStageHistory(entry StageStatus) {
	r.StageStatus = entry
	r.StageHistory = append(r.StageHistory, entry)
	if len(r.StageHistory) > maxStageHistory {
		r.StageHistory = r.StageHistory[len(r.StageHistory)-maxStageHistory:]
	}
}

// appendStorageNotice appends a storage notice and truncates from the head
// to keep the most recent maxStorageNotices entries (spec.md §3.1, §9).
func (r *Reservation) appendStorageNotice(notice StorageNotice) {
	r.StorageNoticeHistory = append(r.StorageNoticeHistory, notice)
	if len(r.StorageNoticeHistory) > maxStorageNotices {
		r.StorageNoticeHistory = r.StorageNoticeHistory[len(r.StorageNoticeHistory)-maxStorageNotices:]
	}
}

// EstimateHalfShelves returns the value R5/P-QUEUE-CAP sums over a
// station's assigned reservations: estimated_half_shelves if present
// (non-zero), falling back to shelf_equivalent*2 to stay consistent with
// the normalization rule in §4.1.A.
func EstimateHalfShelves(r Reservation) float64 {
	if r.Size.EstimatedHalfShelves > 0 {
		return r.Size.EstimatedHalfShelves
	}
	return r.Size.ShelfEquivalent * 2
}

// CapacityRelevant reports whether r should count against its assigned
// station's capacity (spec.md R5): not cancelled, loading/loaded/queued,
// and not a community-shelf fill-in.
func CapacityRelevant(r Reservation) bool {
	if r.Status == StatusCancelled {
		return false
	}
	if r.IntakeMode == IntakeCommunityShelf {
		return false
	}
	switch r.LoadStatus {
	case LoadStatusQueued, LoadStatusLoading, LoadStatusLoaded:
		return true
	default:
		return false
	}
}
