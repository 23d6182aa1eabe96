package httpapi

import (
	"net/http"
	"time"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/internal/app/libraryloan"
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/apperrors"
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/idgen"
)

// requireLibraryPhase gates a route behind the configured rollout phase
// (spec.md §4.5 supplement, SPEC_FULL.md §3).
func requireLibraryPhase(d *Deps, w http.ResponseWriter, r *http.Request, minPhase string) bool {
	if libraryPhaseAllows(d.LibraryRolloutPhase, minPhase) {
		return true
	}
	writeErr(w, requestIDFrom(r.Context()), apperrors.FailedPrecondition("library rollout phase does not permit this route", ""))
	return false
}

type checkoutBody struct {
	ItemID         string `json:"itemId"`
	IdempotencyKey string `json:"idempotencyKey"`
}

// handleLibraryCheckout backs library.loans.checkout (spec.md §4.3).
func handleLibraryCheckout(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r.Context())
		ac, ok := resolveAndRequireScope(w, r, d, "library:write")
		if !ok {
			return
		}
		if !requireLibraryPhase(d, w, r, "phase_2_member_writes") {
			return
		}
		var body checkoutBody
		if err := decodeJSON(r, &body); err != nil {
			writeErr(w, requestID, apperrors.InvalidArgument("malformed request body"))
			return
		}
		key, svcErr := libraryloan.ValidateIdempotencyKey(body.IdempotencyKey, r.Header.Get("X-Idempotency-Key"))
		if svcErr != nil {
			writeErr(w, requestID, svcErr)
			return
		}

		raw, replay, svcErr := libraryloan.RunIdempotent(r.Context(), d.Ledger, "library.loans.checkout", ac.UID, key, requestID, body, "", func() (any, *apperrors.ServiceError) {
			now := time.Now().UTC()
			loanID := idgen.Hash("library-loan", ac.UID, body.ItemID, requestID)
			var loan libraryloan.Loan
			_, err := d.Library.UpdateItem(r.Context(), body.ItemID, func(item *libraryloan.Item) error {
				l, svcErr := libraryloan.Checkout(item, loanID, ac.UID, now)
				if svcErr != nil {
					return svcErr
				}
				loan = l
				return nil
			})
			if svcErr := apperrors.AsServiceError(err); svcErr != nil {
				return nil, svcErr
			}
			if err != nil {
				return nil, apperrors.Internal("failed to check out item", err)
			}
			if err := d.Library.CreateLoan(r.Context(), loan); err != nil {
				return nil, apperrors.Internal("failed to persist loan", err)
			}
			return loan, nil
		})
		if svcErr != nil {
			writeErr(w, requestID, svcErr)
			return
		}
		status := http.StatusCreated
		if replay {
			status = http.StatusOK
		}
		writeJSONRaw(w, requestID, status, raw)
	}
}

type libraryCheckInBody struct {
	LoanID         string `json:"loanId"`
	IdempotencyKey string `json:"idempotencyKey"`
}

// handleLibraryCheckIn backs library.loans.checkIn (spec.md §4.3).
func handleLibraryCheckIn(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r.Context())
		ac, ok := resolveAndRequireScope(w, r, d, "library:write")
		if !ok {
			return
		}
		if !requireLibraryPhase(d, w, r, "phase_2_member_writes") {
			return
		}
		var body libraryCheckInBody
		if err := decodeJSON(r, &body); err != nil {
			writeErr(w, requestID, apperrors.InvalidArgument("malformed request body"))
			return
		}
		key, svcErr := libraryloan.ValidateIdempotencyKey(body.IdempotencyKey, r.Header.Get("X-Idempotency-Key"))
		if svcErr != nil {
			writeErr(w, requestID, svcErr)
			return
		}

		raw, _, svcErr := libraryloan.RunIdempotent(r.Context(), d.Ledger, "library.loans.checkIn", ac.UID, key, requestID, body, "", func() (any, *apperrors.ServiceError) {
			now := time.Now().UTC()
			loan, err := d.Library.GetLoan(r.Context(), body.LoanID)
			if err != nil {
				return nil, apperrors.NotFound("libraryLoan", body.LoanID)
			}
			item, err := d.Library.GetItem(r.Context(), loan.ItemID)
			if err != nil {
				return nil, apperrors.NotFound("libraryItem", loan.ItemID)
			}
			updatedLoan, err := d.Library.UpdateLoan(r.Context(), body.LoanID, func(l *libraryloan.Loan) error {
				return libraryloan.CheckIn(l, &item, ac.UID, ac.IsStaff, now)
			})
			if svcErr := apperrors.AsServiceError(err); svcErr != nil {
				return nil, svcErr
			}
			if err != nil {
				return nil, apperrors.Internal("failed to check in loan", err)
			}
			if _, err := d.Library.UpdateItem(r.Context(), loan.ItemID, func(i *libraryloan.Item) error {
				i.AvailableCopies = item.AvailableCopies
				i.Status = item.Status
				return nil
			}); err != nil {
				return nil, apperrors.Internal("failed to release item copy", err)
			}
			return updatedLoan, nil
		})
		if svcErr != nil {
			writeErr(w, requestID, svcErr)
			return
		}
		writeJSONRaw(w, requestID, http.StatusOK, raw)
	}
}

type markLostBody struct {
	LoanID         string `json:"loanId"`
	IdempotencyKey string `json:"idempotencyKey"`
}

// handleLibraryMarkLost backs library.loans.markLost (staff only, spec.md
// §4.3).
func handleLibraryMarkLost(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r.Context())
		ac, ok := resolveAndRequireScope(w, r, d, "library:write")
		if !ok {
			return
		}
		if !ac.IsStaff {
			writeErr(w, requestID, apperrors.Forbidden("staff only"))
			return
		}
		if !requireLibraryPhase(d, w, r, "phase_3_admin_full") {
			return
		}
		var body markLostBody
		if err := decodeJSON(r, &body); err != nil {
			writeErr(w, requestID, apperrors.InvalidArgument("malformed request body"))
			return
		}
		key, svcErr := libraryloan.ValidateIdempotencyKey(body.IdempotencyKey, r.Header.Get("X-Idempotency-Key"))
		if svcErr != nil {
			writeErr(w, requestID, svcErr)
			return
		}

		raw, _, svcErr := libraryloan.RunIdempotent(r.Context(), d.Ledger, "library.loans.markLost", ac.UID, key, requestID, body, "", func() (any, *apperrors.ServiceError) {
			now := time.Now().UTC()
			updated, err := d.Library.UpdateLoan(r.Context(), body.LoanID, func(l *libraryloan.Loan) error {
				return libraryloan.MarkLost(l, now)
			})
			if svcErr := apperrors.AsServiceError(err); svcErr != nil {
				return nil, svcErr
			}
			if err != nil {
				return nil, apperrors.Internal("failed to mark loan lost", err)
			}
			return updated, nil
		})
		if svcErr != nil {
			writeErr(w, requestID, svcErr)
			return
		}
		writeJSONRaw(w, requestID, http.StatusOK, raw)
	}
}

type assessFeeBody struct {
	LoanID              string `json:"loanId"`
	ItemID              string `json:"itemId"`
	ExplicitAmountCents *int64 `json:"explicitAmountCents"`
	IdempotencyKey      string `json:"idempotencyKey"`
}

// handleLibraryAssessReplacementFee backs library.loans.assessReplacementFee
// (staff only, spec.md §4.3).
func handleLibraryAssessReplacementFee(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r.Context())
		ac, ok := resolveAndRequireScope(w, r, d, "library:write")
		if !ok {
			return
		}
		if !ac.IsStaff {
			writeErr(w, requestID, apperrors.Forbidden("staff only"))
			return
		}
		if !requireLibraryPhase(d, w, r, "phase_3_admin_full") {
			return
		}
		var body assessFeeBody
		if err := decodeJSON(r, &body); err != nil {
			writeErr(w, requestID, apperrors.InvalidArgument("malformed request body"))
			return
		}
		key, svcErr := libraryloan.ValidateIdempotencyKey(body.IdempotencyKey, r.Header.Get("X-Idempotency-Key"))
		if svcErr != nil {
			writeErr(w, requestID, svcErr)
			return
		}

		raw, replay, svcErr := libraryloan.RunIdempotent(r.Context(), d.Ledger, "library.loans.assessReplacementFee", ac.UID, key, requestID, body, "", func() (any, *apperrors.ServiceError) {
			now := time.Now().UTC()
			item, err := d.Library.GetItem(r.Context(), body.ItemID)
			if err != nil {
				return nil, apperrors.NotFound("libraryItem", body.ItemID)
			}
			var fee libraryloan.ReplacementFee
			_, err = d.Library.UpdateLoan(r.Context(), body.LoanID, func(l *libraryloan.Loan) error {
				f, svcErr := libraryloan.AssessReplacementFee(l, item, body.ExplicitAmountCents, now)
				if svcErr != nil {
					return svcErr
				}
				fee = f
				return nil
			})
			if svcErr := apperrors.AsServiceError(err); svcErr != nil {
				return nil, svcErr
			}
			if err != nil {
				return nil, apperrors.Internal("failed to assess replacement fee", err)
			}
			if err := d.Library.PutReplacementFee(r.Context(), fee); err != nil {
				return nil, apperrors.Internal("failed to persist replacement fee", err)
			}
			return fee, nil
		})
		if svcErr != nil {
			writeErr(w, requestID, svcErr)
			return
		}
		status := http.StatusCreated
		if replay {
			status = http.StatusOK
		}
		writeJSONRaw(w, requestID, status, raw)
	}
}

type listMineBody struct {
	Limit int `json:"limit"`
}

// handleLibraryListMine backs library.loans.listMine.
func handleLibraryListMine(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r.Context())
		ac, ok := resolveAndRequireScope(w, r, d, "library:read")
		if !ok {
			return
		}
		if !requireLibraryPhase(d, w, r, "phase_1_read_only") {
			return
		}
		var body listMineBody
		if err := decodeJSON(r, &body); err != nil {
			writeErr(w, requestID, apperrors.InvalidArgument("malformed request body"))
			return
		}
		limit := libraryloan.ClampListMineLimit(body.Limit)
		loans, err := d.Library.ListLoansByBorrower(r.Context(), ac.UID, limit)
		if err != nil {
			writeErr(w, requestID, apperrors.Internal("failed to list loans", err))
			return
		}
		writeOK(w, requestID, http.StatusOK, loans)
	}
}

type overrideItemStatusBody struct {
	ItemID string `json:"itemId"`
	Status string `json:"status"`
}

// handleLibraryOverrideItemStatus backs library.items.overrideStatus (staff
// only).
func handleLibraryOverrideItemStatus(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r.Context())
		ac, ok := resolveAndRequireScope(w, r, d, "library:write")
		if !ok {
			return
		}
		if !ac.IsStaff {
			writeErr(w, requestID, apperrors.Forbidden("staff only"))
			return
		}
		if !requireLibraryPhase(d, w, r, "phase_3_admin_full") {
			return
		}
		var body overrideItemStatusBody
		if err := decodeJSON(r, &body); err != nil {
			writeErr(w, requestID, apperrors.InvalidArgument("malformed request body"))
			return
		}
		updated, err := d.Library.UpdateItem(r.Context(), body.ItemID, func(i *libraryloan.Item) error {
			i.Status = libraryloan.ItemStatus(body.Status)
			return nil
		})
		if err != nil {
			writeErr(w, requestID, apperrors.Internal("failed to override item status", err))
			return
		}
		writeOK(w, requestID, http.StatusOK, updated)
	}
}
