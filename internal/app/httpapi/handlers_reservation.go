package httpapi

import (
	"net/http"
	"time"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/internal/app/actor"
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/internal/app/reservation"
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/apperrors"
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/idgen"
)

func resolveAndRequireScope(w http.ResponseWriter, r *http.Request, d *Deps, scope string) (*actor.Context, bool) {
	ac, err := d.Actors.Resolve(r)
	if err != nil {
		writeErr(w, requestIDFrom(r.Context()), apperrors.AsServiceError(err))
		return nil, false
	}
	if !actor.HasScopes(ac, scope) {
		writeErr(w, requestIDFrom(r.Context()), apperrors.Forbidden("missing scope "+scope))
		return nil, false
	}
	return ac, true
}

type createReservationBody struct {
	OwnerUID             string     `json:"ownerUid"`
	ClientRequestID      string     `json:"clientRequestId"`
	IntakeMode           string     `json:"intakeMode"`
	FiringType           string     `json:"firingType"`
	FootprintHalfShelves float64    `json:"footprintHalfShelves"`
	Tiers                int        `json:"tiers"`
	HeightIn             float64    `json:"heightIn"`
	EstimatedHalfShelves float64    `json:"estimatedHalfShelves"`
	ShelfEquivalent      float64    `json:"shelfEquivalent"`
	PreferredStart       *time.Time `json:"preferredStart"`
	PreferredEnd         *time.Time `json:"preferredEnd"`
	Pieces               []reservation.Piece `json:"pieces"`
	RushRequested        bool       `json:"rushRequested"`
	RequiredResources    []string   `json:"requiredResources"`
	SpecialHandling      bool       `json:"specialHandling"`
	DeliveryAddress      string     `json:"deliveryAddress"`
	DeliveryInstructions string     `json:"deliveryInstructions"`
	DropOffPhotoPath     string     `json:"dropOffPhotoPath"`
	IdempotencyKey       string     `json:"idempotencyKey"`
}

// handleReservationCreate backs reservations.create (spec.md §4.1.A).
func handleReservationCreate(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r.Context())
		ac, ok := resolveAndRequireScope(w, r, d, "reservations:write")
		if !ok {
			return
		}

		var body createReservationBody
		if err := decodeJSON(r, &body); err != nil {
			writeErr(w, requestID, apperrors.InvalidArgument("malformed request body"))
			return
		}
		if body.OwnerUID == "" {
			body.OwnerUID = ac.UID
		}
		if res := actor.Authorize(ac, body.OwnerUID, "reservations:write", "reservation", true); !res.OK {
			writeErr(w, requestID, apperrors.New(res.Code, res.Message, res.HTTPStatus))
			return
		}

		key, svcErr := resolveIdempotencyKey(body.IdempotencyKey, r.Header.Get("X-Idempotency-Key"))
		if svcErr != nil {
			writeErr(w, requestID, svcErr)
			return
		}
		_ = key // create's idempotency is handled natively via client_request_id (spec.md §4.1.A)

		now := time.Now().UTC()
		res, replay, svcErr := reservation.Create(r.Context(), d.Reservations, reservation.CreateInput{
			OwnerUID: body.OwnerUID, CreatedByUID: ac.UID, CreatedByRole: roleOf(ac),
			ClientRequestID: body.ClientRequestID,
			IntakeMode:      reservation.IntakeMode(body.IntakeMode),
			FiringType:      reservation.FiringType(body.FiringType),
			FootprintHalfShelves: body.FootprintHalfShelves, Tiers: body.Tiers, HeightIn: body.HeightIn,
			EstimatedHalfShelves: body.EstimatedHalfShelves, ShelfEquivalent: body.ShelfEquivalent,
			PreferredWindow: reservation.Window{Start: body.PreferredStart, End: body.PreferredEnd},
			Pieces:          body.Pieces,
			RushRequested:   body.RushRequested, RequiredResources: body.RequiredResources,
			SpecialHandling: body.SpecialHandling, DeliveryAddress: body.DeliveryAddress,
			DeliveryInstructions: body.DeliveryInstructions, DropOffPhotoPath: body.DropOffPhotoPath,
			Now: now,
		})
		if svcErr != nil {
			writeErr(w, requestID, svcErr)
			return
		}
		status := http.StatusCreated
		if replay {
			status = http.StatusOK
		}
		writeOK(w, requestID, status, res)
	}
}

func roleOf(ac *actor.Context) string {
	if ac.IsStaff {
		return "staff"
	}
	return "member"
}

type reservationIDBody struct {
	ReservationID string `json:"reservationId"`
}

// handleReservationGet backs reservations.get.
func handleReservationGet(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r.Context())
		ac, ok := resolveAndRequireScope(w, r, d, "reservations:read")
		if !ok {
			return
		}
		var body reservationIDBody
		if err := decodeJSON(r, &body); err != nil {
			writeErr(w, requestID, apperrors.InvalidArgument("malformed request body"))
			return
		}
		res, err := d.Reservations.Get(r.Context(), body.ReservationID)
		if err != nil {
			writeErr(w, requestID, apperrors.NotFound("reservation", body.ReservationID))
			return
		}
		if authRes := actor.Authorize(ac, res.OwnerUID, "reservations:read", "reservation", true); !authRes.OK {
			writeErr(w, requestID, apperrors.New(authRes.Code, authRes.Message, authRes.HTTPStatus))
			return
		}
		writeOK(w, requestID, http.StatusOK, res)
	}
}

type listReservationsBody struct {
	OwnerUID string `json:"ownerUid"`
	Limit    int    `json:"limit"`
}

// handleReservationList backs reservations.list (spec.md §4.1.I).
func handleReservationList(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r.Context())
		ac, ok := resolveAndRequireScope(w, r, d, "reservations:read")
		if !ok {
			return
		}
		var body listReservationsBody
		if err := decodeJSON(r, &body); err != nil {
			writeErr(w, requestID, apperrors.InvalidArgument("malformed request body"))
			return
		}
		if body.OwnerUID == "" {
			body.OwnerUID = ac.UID
		}
		if authRes := actor.Authorize(ac, body.OwnerUID, "reservations:read", "reservation", true); !authRes.OK {
			writeErr(w, requestID, apperrors.New(authRes.Code, authRes.Message, authRes.HTTPStatus))
			return
		}
		limit := body.Limit
		if limit <= 0 || limit > 1000 {
			limit = 1000
		}
		rows, err := d.Reservations.ListByOwner(r.Context(), body.OwnerUID, limit)
		if err != nil {
			writeErr(w, requestID, apperrors.Internal("failed to list reservations", err))
			return
		}
		writeOK(w, requestID, http.StatusOK, rows)
	}
}

type checkInBody struct {
	ReservationID string `json:"reservationId"`
	ArrivalToken  string `json:"arrivalToken"`
	Note          string `json:"note"`
	PhotoPath     string `json:"photoPath"`
}

// handleReservationCheckIn backs reservations.checkIn (spec.md §4.1.C).
func handleReservationCheckIn(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r.Context())
		ac, ok := resolveAndRequireScope(w, r, d, "reservations:write")
		if !ok {
			return
		}
		var body checkInBody
		if err := decodeJSON(r, &body); err != nil {
			writeErr(w, requestID, apperrors.InvalidArgument("malformed request body"))
			return
		}

		id := body.ReservationID
		if id == "" && body.ArrivalToken != "" {
			res, found, err := d.Reservations.GetByArrivalTokenLookup(r.Context(), body.ArrivalToken)
			if err != nil || !found {
				writeErr(w, requestID, apperrors.NotFound("reservation", body.ArrivalToken))
				return
			}
			id = res.ReservationID
		}
		if id == "" {
			writeErr(w, requestID, apperrors.InvalidArgument("reservationId or arrivalToken is required"))
			return
		}

		now := time.Now().UTC()
		updated, err := d.Reservations.Update(r.Context(), id, func(res *reservation.Reservation) error {
			if authRes := actor.Authorize(ac, res.OwnerUID, "reservations:write", "reservation", true); !authRes.OK {
				return apperrors.New(authRes.Code, authRes.Message, authRes.HTTPStatus)
			}
			return reservation.ApplyCheckIn(res, reservation.CheckInInput{
				Note: body.Note, PhotoPath: body.PhotoPath, ActorUID: ac.UID, ActorRole: roleOf(ac),
			}, now)
		})
		if svcErr := apperrors.AsServiceError(err); svcErr != nil {
			writeErr(w, requestID, svcErr)
			return
		}
		if err != nil {
			writeErr(w, requestID, apperrors.Internal("failed to check in reservation", err))
			return
		}
		writeOK(w, requestID, http.StatusOK, updated)
	}
}

type lookupArrivalBody struct {
	ArrivalToken string `json:"arrivalToken"`
}

// handleReservationLookupArrival backs reservations.lookupArrival (staff
// only, spec.md §4.1.D).
func handleReservationLookupArrival(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r.Context())
		ac, ok := resolveAndRequireScope(w, r, d, "reservations:read")
		if !ok {
			return
		}
		if !ac.IsStaff {
			writeErr(w, requestID, apperrors.Forbidden("staff only"))
			return
		}
		var body lookupArrivalBody
		if err := decodeJSON(r, &body); err != nil {
			writeErr(w, requestID, apperrors.InvalidArgument("malformed request body"))
			return
		}
		res, found, err := d.Reservations.GetByArrivalTokenLookup(r.Context(), body.ArrivalToken)
		if err != nil || !found {
			writeErr(w, requestID, apperrors.NotFound("reservation", body.ArrivalToken))
			return
		}
		writeOK(w, requestID, http.StatusOK, res)
	}
}

// handleReservationRotateArrivalToken backs reservations.rotateArrivalToken
// (staff only, spec.md §4.1.D).
func handleReservationRotateArrivalToken(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r.Context())
		ac, ok := resolveAndRequireScope(w, r, d, "reservations:write")
		if !ok {
			return
		}
		if !ac.IsStaff {
			writeErr(w, requestID, apperrors.Forbidden("staff only"))
			return
		}
		var body reservationIDBody
		if err := decodeJSON(r, &body); err != nil {
			writeErr(w, requestID, apperrors.InvalidArgument("malformed request body"))
			return
		}
		now := time.Now().UTC()
		updated, err := d.Reservations.Update(r.Context(), body.ReservationID, func(res *reservation.Reservation) error {
			return reservation.ApplyRotateArrivalToken(res, ac.UID, roleOf(ac), now)
		})
		if err != nil {
			writeErr(w, requestID, apperrors.Internal("failed to rotate arrival token", err))
			return
		}
		writeOK(w, requestID, http.StatusOK, updated)
	}
}

type pickupWindowBody struct {
	ReservationID  string     `json:"reservationId"`
	Action         string     `json:"action"`
	RequestedStart *time.Time `json:"requestedStart"`
	RequestedEnd   *time.Time `json:"requestedEnd"`
	ConfirmedStart *time.Time `json:"confirmedStart"`
	ConfirmedEnd   *time.Time `json:"confirmedEnd"`
	Force          bool       `json:"force"`
}

// handleReservationPickupWindow backs reservations.pickupWindow (spec.md
// §4.1.E).
func handleReservationPickupWindow(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r.Context())
		ac, ok := resolveAndRequireScope(w, r, d, "reservations:write")
		if !ok {
			return
		}
		var body pickupWindowBody
		if err := decodeJSON(r, &body); err != nil {
			writeErr(w, requestID, apperrors.InvalidArgument("malformed request body"))
			return
		}
		now := time.Now().UTC()
		var notice reservation.StorageNotice
		updated, err := d.Reservations.Update(r.Context(), body.ReservationID, func(res *reservation.Reservation) error {
			if authRes := actor.Authorize(ac, res.OwnerUID, "reservations:write", "reservation", true); !authRes.OK {
				return apperrors.New(authRes.Code, authRes.Message, authRes.HTTPStatus)
			}
			_, n, svcErr := reservation.ApplyPickupWindowAction(res, reservation.PickupWindowInput{
				Action: reservation.PickupAction(body.Action), RequestedStart: body.RequestedStart,
				RequestedEnd: body.RequestedEnd, ConfirmedStart: body.ConfirmedStart,
				ConfirmedEnd: body.ConfirmedEnd, Force: body.Force && ac.IsStaff,
			}, ac.IsStaff, now)
			notice = n
			if svcErr != nil {
				return svcErr
			}
			return nil
		})
		if svcErr := apperrors.AsServiceError(err); svcErr != nil {
			writeErr(w, requestID, svcErr)
			return
		}
		if err != nil {
			writeErr(w, requestID, apperrors.Internal("failed to apply pickup window action", err))
			return
		}
		if d.StorageAudit != nil {
			_ = d.StorageAudit.AppendStorageAudit(r.Context(), body.ReservationID, notice)
		}
		writeOK(w, requestID, http.StatusOK, updated)
	}
}

type queueFairnessBody struct {
	ReservationID string     `json:"reservationId"`
	Action        string     `json:"action"`
	Reason        string     `json:"reason"`
	BoostPoints   int        `json:"boostPoints"`
	OverrideUntil *time.Time `json:"overrideUntil"`
}

// handleReservationQueueFairness backs reservations.queueFairness (staff
// only, spec.md §4.1.F).
func handleReservationQueueFairness(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r.Context())
		ac, ok := resolveAndRequireScope(w, r, d, "reservations:write")
		if !ok {
			return
		}
		if !ac.IsStaff {
			writeErr(w, requestID, apperrors.Forbidden("staff only"))
			return
		}
		var body queueFairnessBody
		if err := decodeJSON(r, &body); err != nil {
			writeErr(w, requestID, apperrors.InvalidArgument("malformed request body"))
			return
		}
		now := time.Now().UTC()
		var evidence reservation.FairnessAuditRecord
		updated, err := d.Reservations.Update(r.Context(), body.ReservationID, func(res *reservation.Reservation) error {
			ev, svcErr := reservation.ApplyFairnessAction(res, reservation.FairnessAction(body.Action),
				body.Reason, requestID, ac.UID, roleOf(ac), body.BoostPoints, body.OverrideUntil, now)
			evidence = ev
			if svcErr != nil {
				return svcErr
			}
			return nil
		})
		if svcErr := apperrors.AsServiceError(err); svcErr != nil {
			writeErr(w, requestID, svcErr)
			return
		}
		if err != nil {
			writeErr(w, requestID, apperrors.Internal("failed to apply fairness action", err))
			return
		}
		if d.FairnessAudit != nil {
			evidenceID := idgen.Hash("reservation-fairness", body.ReservationID, body.Action+":"+requestID)
			_ = d.FairnessAudit.AppendFairnessAudit(r.Context(), evidenceID, evidence)
		}
		writeOK(w, requestID, http.StatusOK, updated)
	}
}

type updateStatusBody struct {
	ReservationID string  `json:"reservationId"`
	Status        *string `json:"status"`
	LoadStatus    *string `json:"loadStatus"`
	Force         bool    `json:"force"`
	Reason        string  `json:"reason"`
	Notes         string  `json:"notes"`
}

// handleReservationUpdateStatus backs reservations.update (spec.md §4.1.B).
func handleReservationUpdateStatus(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r.Context())
		ac, ok := resolveAndRequireScope(w, r, d, "reservations:write")
		if !ok {
			return
		}
		var body updateStatusBody
		if err := decodeJSON(r, &body); err != nil {
			writeErr(w, requestID, apperrors.InvalidArgument("malformed request body"))
			return
		}
		var status *reservation.Status
		if body.Status != nil {
			s := reservation.Status(*body.Status)
			status = &s
		}
		var loadStatus *reservation.LoadStatus
		if body.LoadStatus != nil {
			ls := reservation.LoadStatus(*body.LoadStatus)
			loadStatus = &ls
		}
		now := time.Now().UTC()
		updated, err := d.Reservations.Update(r.Context(), body.ReservationID, func(res *reservation.Reservation) error {
			if authRes := actor.Authorize(ac, res.OwnerUID, "reservations:write", "reservation", true); !authRes.OK {
				return apperrors.New(authRes.Code, authRes.Message, authRes.HTTPStatus)
			}
			return reservation.ApplyStatusUpdate(res, reservation.UpdateStatusInput{
				Status: status, LoadStatus: loadStatus, Force: body.Force && ac.IsStaff,
				ActorUID: ac.UID, ActorRole: roleOf(ac), ActorStaff: ac.IsStaff,
				Reason: body.Reason, Notes: body.Notes,
			}, now)
		})
		if svcErr := apperrors.AsServiceError(err); svcErr != nil {
			writeErr(w, requestID, svcErr)
			return
		}
		if err != nil {
			writeErr(w, requestID, apperrors.Internal("failed to update reservation", err))
			return
		}
		writeOK(w, requestID, http.StatusOK, updated)
	}
}

type assignStationBody struct {
	ReservationID     string   `json:"reservationId"`
	AssignedStationID string   `json:"assignedStationId"`
	QueueClass        string   `json:"queueClass"`
	RequiredResources []string `json:"requiredResources"`
}

// handleReservationAssignStation backs reservations.assignStation (staff
// only, spec.md §4.1.G).
func handleReservationAssignStation(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r.Context())
		ac, ok := resolveAndRequireScope(w, r, d, "reservations:write")
		if !ok {
			return
		}
		if !ac.IsStaff {
			writeErr(w, requestID, apperrors.Forbidden("staff only"))
			return
		}
		var body assignStationBody
		if err := decodeJSON(r, &body); err != nil {
			writeErr(w, requestID, apperrors.InvalidArgument("malformed request body"))
			return
		}
		updated, err := d.Reservations.Update(r.Context(), body.ReservationID, func(res *reservation.Reservation) error {
			siblings, err := d.Reservations.ListByStation(r.Context(), body.AssignedStationID)
			if err != nil {
				return apperrors.Internal("failed to list station siblings", err)
			}
			_, svcErr := reservation.AssignStation(res, reservation.AssignStationInput{
				AssignedStationID: body.AssignedStationID, QueueClass: body.QueueClass,
				RequiredResources: body.RequiredResources,
			}, siblings, d.Stations)
			if svcErr != nil {
				return svcErr
			}
			return nil
		})
		if svcErr := apperrors.AsServiceError(err); svcErr != nil {
			writeErr(w, requestID, svcErr)
			return
		}
		if err != nil {
			writeErr(w, requestID, apperrors.Internal("failed to assign station", err))
			return
		}
		writeOK(w, requestID, http.StatusOK, updated)
	}
}

type exportContinuityBody struct {
	OwnerUID  string `json:"ownerUid"`
	RequestID string `json:"requestId"`
	Limit     int    `json:"limit"`
}

// handleReservationExportContinuity backs reservations.exportContinuity
// (spec.md §4.1.I). Its AuditSource collaborator is Deps.ContinuityAudit,
// which cmd/server/main.go sets to the postgres.AuditStore.
func handleReservationExportContinuity(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r.Context())
		ac, ok := resolveAndRequireScope(w, r, d, "reservations:read")
		if !ok {
			return
		}
		var body exportContinuityBody
		if err := decodeJSON(r, &body); err != nil {
			writeErr(w, requestID, apperrors.InvalidArgument("malformed request body"))
			return
		}
		if body.OwnerUID == "" {
			body.OwnerUID = ac.UID
		}
		if authRes := actor.Authorize(ac, body.OwnerUID, "reservations:read", "reservation", true); !authRes.OK {
			writeErr(w, requestID, apperrors.New(authRes.Code, authRes.Message, authRes.HTTPStatus))
			return
		}
		exportRequestID := body.RequestID
		if exportRequestID == "" {
			id, err := idgen.RequestID()
			if err != nil {
				writeErr(w, requestID, apperrors.Internal("failed to generate export request id", err))
				return
			}
			exportRequestID = id
		}
		bundle, err := reservation.Export(r.Context(), d.Reservations, d.ContinuityAudit, body.OwnerUID, exportRequestID, body.Limit, time.Now().UTC())
		if err != nil {
			writeErr(w, requestID, apperrors.Internal("failed to export continuity bundle", err))
			return
		}
		writeOK(w, requestID, http.StatusOK, bundle)
	}
}
