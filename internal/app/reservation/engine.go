package reservation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/apperrors"
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/idgen"
)

// statusTransitions is the authoritative matrix from spec.md §4.1.B.
// Absent entries are disallowed unless force=true by a staff actor.
var statusTransitions = map[Status]map[Status]bool{
	StatusRequested: {
		StatusRequested: true, StatusConfirmed: true, StatusWaitlisted: true, StatusCancelled: true,
	},
	StatusConfirmed: {
		StatusConfirmed: true, StatusWaitlisted: true, StatusCancelled: true, StatusLoaded: true,
	},
	StatusWaitlisted: {
		StatusWaitlisted: true, StatusConfirmed: true, StatusCancelled: true,
	},
	StatusCancelled: {
		StatusCancelled: true,
	},
	StatusLoaded: {
		StatusLoaded: true, StatusCancelled: true,
	},
	StatusConfirmedArrived: {
		StatusConfirmedArrived: true, StatusCancelled: true,
	},
}

// IsTransitionAllowed reports whether from->to is in the matrix
// (P-STATUS-MATRIX).
func IsTransitionAllowed(from, to Status) bool {
	allowed, ok := statusTransitions[from]
	if !ok {
		return false
	}
	return allowed[to]
}

// CreateInput is the §4.1.A request payload.
type CreateInput struct {
	OwnerUID        string
	CreatedByUID    string
	CreatedByRole   string
	ClientRequestID string

	IntakeMode IntakeMode
	FiringType FiringType

	FootprintHalfShelves float64
	Tiers                int
	HeightIn             float64
	EstimatedHalfShelves float64
	ShelfEquivalent      float64

	PreferredWindow Window

	Pieces []Piece

	RushRequested        bool
	RequiredResources    []string
	SpecialHandling      bool
	DeliveryAddress      string
	DeliveryInstructions string
	DropOffPhotoPath     string

	Now time.Time
}

// Create builds and persists a new reservation (spec.md §4.1.A). When
// ClientRequestID is supplied and the deterministic id already exists
// under the same owner, the existing row is returned with
// idempotentReplay=true.
func Create(ctx context.Context, store Store, in CreateInput) (r Reservation, idempotentReplay bool, svcErr *apperrors.ServiceError) {
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	if in.OwnerUID == "" {
		return Reservation{}, false, apperrors.InvalidArgument("owner_uid is required")
	}

	if in.ClientRequestID != "" {
		existing, ok, err := store.GetByClientRequestID(ctx, in.OwnerUID, in.ClientRequestID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return Reservation{}, false, apperrors.Internal("failed to check idempotent create", err)
		}
		if ok && existing.OwnerUID == in.OwnerUID {
			return existing, true, nil
		}
	}

	if in.PreferredWindow.Start != nil && in.PreferredWindow.End != nil && in.PreferredWindow.Start.After(*in.PreferredWindow.End) {
		return Reservation{}, false, apperrors.InvalidArgument("preferred_window.earliest must be <= latest")
	}

	if in.SpecialHandling && in.FiringType != FiringBisque {
		return Reservation{}, false, apperrors.InvalidArgument("bisque-only drop-off profile requires firing_type=bisque")
	}

	if (in.DeliveryAddress != "") != (in.DeliveryInstructions != "") {
		return Reservation{}, false, apperrors.InvalidArgument("delivery add-ons require both address and instructions")
	}

	if in.DropOffPhotoPath != "" && !strings.HasPrefix(in.DropOffPhotoPath, fmt.Sprintf("checkins/%s/", in.OwnerUID)) {
		return Reservation{}, false, apperrors.InvalidArgument("drop-off photo path must live under checkins/{owner_uid}/")
	}

	if len(in.Pieces) > maxPieces {
		return Reservation{}, false, apperrors.InvalidArgument("pieces exceeds the 250-item limit")
	}

	size := normalizeSizeProfile(in)
	intakeMode := in.IntakeMode
	if intakeMode == IntakeCommunityShelf {
		in.DeliveryAddress = ""
		in.DeliveryInstructions = ""
		in.RushRequested = false
	}

	var id string
	if in.ClientRequestID != "" {
		id = idgen.Hash("reservation", in.OwnerUID, in.ClientRequestID)
	} else {
		rnd, genErr := idgen.RandomAlnum(16)
		if genErr != nil {
			return Reservation{}, false, apperrors.Internal("failed to generate reservation id", genErr)
		}
		id = "res-" + strings.ToLower(rnd)
	}

	pieces, err := normalizePieces(id, in.Pieces)
	if err != nil {
		return Reservation{}, false, err
	}

	r = Reservation{
		ReservationID:        id,
		OwnerUID:             in.OwnerUID,
		CreatedByUID:         in.CreatedByUID,
		CreatedByRole:        in.CreatedByRole,
		ClientRequestID:      in.ClientRequestID,
		IntakeMode:           intakeMode,
		FiringType:           in.FiringType,
		Size:                 size,
		Status:               StatusRequested,
		LoadStatus:           LoadStatusQueued,
		PreferredWindow:      in.PreferredWindow,
		Pieces:               pieces,
		ArrivalStatus:        ArrivalExpected,
		ArrivalTokenVersion:  0,
		PickupWindow:         PickupWindow{Status: PickupOpen},
		StorageStatus:        StorageActive,
		RushRequested:        in.RushRequested,
		RequiredResources:    in.RequiredResources,
		SpecialHandling:      in.SpecialHandling,
		DeliveryAddress:      in.DeliveryAddress,
		DeliveryInstructions: in.DeliveryInstructions,
		CreatedAt:            now,
		UpdatedAt:            now,
		CreatedAtMs:          now.UnixMilli(),
	}
	r.QueueFairnessPolicy = recomputeFairnessPolicy(r.QueueFairness, now)
	r.appendStageHistory(StageStatus{
		Stage: "intake", At: now, Source: "reservations.create", Reason: "Reservation created",
		ActorUID: in.CreatedByUID, ActorRole: in.CreatedByRole,
	})

	if err := store.Create(ctx, r); err != nil {
		return Reservation{}, false, apperrors.Internal("failed to persist reservation", err)
	}

	return r, false, nil
}

func normalizeSizeProfile(in CreateInput) SizeProfile {
	shelfEquivalent := in.ShelfEquivalent
	if shelfEquivalent < 0.25 {
		shelfEquivalent = 0.25
	}
	if shelfEquivalent > 32 {
		shelfEquivalent = 32
	}

	tiers := in.Tiers
	if tiers <= 0 {
		tiers = 1 + int(math.Floor((in.HeightIn-1)/10))
		if tiers < 1 {
			tiers = 1
		}
	}

	estimated := in.EstimatedHalfShelves
	if estimated <= 0 {
		switch {
		case in.FootprintHalfShelves > 0 && tiers > 0:
			estimated = in.FootprintHalfShelves * float64(tiers)
		case shelfEquivalent > 0:
			estimated = shelfEquivalent * 2
		default:
			estimated = 1
		}
	}

	return SizeProfile{
		FootprintHalfShelves: in.FootprintHalfShelves,
		Tiers:                tiers,
		EstimatedHalfShelves: estimated,
		ShelfEquivalent:      shelfEquivalent,
	}
}

// pieceIDTail returns the last n alphanumeric characters of reservationID,
// left-padded with zeros, matching the arrival-token tail convention
// (spec.md §3.1: "MF-RES-{6id}-{ordinal}{6hash}").
func pieceIDTail(reservationID string, n int) string {
	alnum := alnumOnly(reservationID)
	tail := alnum
	if len(tail) > n {
		tail = tail[len(tail)-n:]
	}
	for len(tail) < n {
		tail = "0" + tail
	}
	return strings.ToUpper(tail)
}

func normalizePieces(reservationID string, pieces []Piece) ([]Piece, *apperrors.ServiceError) {
	seen := make(map[string]bool, len(pieces))
	out := make([]Piece, 0, len(pieces))
	idTail := pieceIDTail(reservationID, 6)
	for i, p := range pieces {
		if p.PieceCount <= 0 {
			p.PieceCount = 1
		}
		if p.PieceCount > maxPieceCount {
			return nil, apperrors.InvalidArgument(fmt.Sprintf("piece %d count exceeds %d", i, maxPieceCount))
		}
		if p.PieceID == "" {
			hashSuffix := idgen.HashPrefix(6, "reservation-piece", reservationID, fmt.Sprintf("%d", i))
			p.PieceID = fmt.Sprintf("MF-RES-%s-%d%s", idTail, i, strings.ToUpper(hashSuffix))
		}
		if seen[p.PieceID] {
			return nil, apperrors.InvalidArgument(fmt.Sprintf("duplicate piece_id %q", p.PieceID))
		}
		seen[p.PieceID] = true
		if p.PieceStatus == "" {
			p.PieceStatus = PieceAwaitingPlacement
		}
		out = append(out, p)
	}
	return out, nil
}

// UpdateStatusInput is the §4.1.B request payload.
type UpdateStatusInput struct {
	Status     *Status
	LoadStatus *LoadStatus
	Force      bool
	ActorUID   string
	ActorRole  string
	ActorStaff bool
	Reason     string
	Notes      string
}

// ApplyStatusUpdate mutates r per §4.1.B: validates the transition matrix,
// mints a new arrival token on confirmation, handles the first
// load_status=loaded side-effects, and appends one stage-history entry.
// now is injected for determinism.
func ApplyStatusUpdate(r *Reservation, in UpdateStatusInput, now time.Time) *apperrors.ServiceError {
	prevStatus := r.Status
	prevLoad := r.LoadStatus

	if in.Status != nil {
		to := normalizeStatus(string(*in.Status))
		if !IsTransitionAllowed(prevStatus, to) {
			if !(in.Force && in.ActorStaff) {
				return apperrors.InvalidStatusTransition(string(prevStatus), string(to))
			}
		}
		r.Status = to

		if to == StatusConfirmed && prevStatus != StatusConfirmed {
			issueArrivalToken(r, now)
		}
	}

	if in.LoadStatus != nil {
		r.LoadStatus = *in.LoadStatus
		if *in.LoadStatus == LoadStatusLoaded && prevLoad != LoadStatusLoaded {
			r.PickupWindow.MissedCount = 0
			if r.PickupWindow.ConfirmedStart == nil && r.PickupWindow.RequestedStart != nil {
				r.PickupWindow.ConfirmedStart = r.PickupWindow.RequestedStart
				r.PickupWindow.ConfirmedEnd = r.PickupWindow.RequestedEnd
			}
			r.appendStorageNotice(StorageNotice{At: now, Kind: "pickup_ready", Detail: "loaded, ready for pickup"})
		}
	}

	if in.Status == nil && in.LoadStatus == nil && in.Notes == "" {
		return nil
	}

	r.StaffNotes = appendTrailingNote(r.StaffNotes, in.Notes, maxStaffNotesTrailing)
	r.appendStageHistory(StageStatus{
		Stage: string(r.Status), At: now, Source: "reservations.update", Reason: in.Reason, Notes: in.Notes,
		ActorUID: in.ActorUID, ActorRole: in.ActorRole,
	})
	r.UpdatedAt = now
	return nil
}

// CheckInInput is the §4.1.C request payload; exactly one of
// ReservationID or ArrivalToken should be set by the caller, resolution
// happens at the store layer before ApplyCheckIn runs.
type CheckInInput struct {
	Note      string
	PhotoPath string
	ActorUID  string
	ActorRole string
}

// ApplyCheckIn records one arrival event (spec.md §4.1.C). Idempotent when
// already arrived and no new note/photo is supplied.
func ApplyCheckIn(r *Reservation, in CheckInInput, now time.Time) *apperrors.ServiceError {
	switch r.Status {
	case StatusConfirmed, StatusConfirmedArrived, StatusLoaded:
	case StatusCancelled:
		return apperrors.Conflict("cannot check in a cancelled reservation", "")
	default:
		return apperrors.Conflict(fmt.Sprintf("cannot check in from status %s", r.Status), "")
	}

	if r.ArrivalStatus == ArrivalArrived && in.Note == "" && in.PhotoPath == "" {
		return nil
	}

	r.ArrivalStatus = ArrivalArrived
	r.ArrivedAt = &now
	r.appendStageHistory(StageStatus{
		Stage: string(r.Status), At: now, Source: "reservations.checkIn", Reason: "arrival_check_in",
		Notes: in.Note, ActorUID: in.ActorUID, ActorRole: in.ActorRole,
	})
	r.UpdatedAt = now
	return nil
}

// ApplyRotateArrivalToken re-issues the arrival token (staff only, spec.md
// §4.1.D). Preserves an already-arrived state; otherwise resets to
// expected.
func ApplyRotateArrivalToken(r *Reservation, actorUID, actorRole string, now time.Time) *apperrors.ServiceError {
	wasArrived := r.ArrivalStatus == ArrivalArrived
	issueArrivalToken(r, now)
	if wasArrived {
		r.ArrivalStatus = ArrivalArrived
	}
	r.appendStageHistory(StageStatus{
		Stage: string(r.Status), At: now, Source: "reservations.rotateArrivalToken", Reason: "arrival_token_rotated",
		ActorUID: actorUID, ActorRole: actorRole,
	})
	r.UpdatedAt = now
	return nil
}
