package libraryloan

import (
	"time"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/apperrors"
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/idgen"
)

// Checkout applies spec.md §4.3's checkout business rule: item must
// exist, not be soft-deleted, be lendable, not be lost/archived/
// unavailable, and have available_copies >= 1. Mutates item and returns
// the new loan.
func Checkout(item *Item, loanID, borrowerUID string, now time.Time) (Loan, *apperrors.ServiceError) {
	if item.DeletedAt != nil {
		return Loan{}, apperrors.NotFound("libraryItem", item.ItemID)
	}
	if !lendableMediaTypes[item.MediaType] {
		return Loan{}, apperrors.FailedPrecondition("item is not a lendable media type", "")
	}
	switch item.Status {
	case ItemLost, ItemArchived, ItemUnavailable:
		return Loan{}, apperrors.Conflict("item is not available for checkout", "")
	}
	if item.AvailableCopies < 1 {
		return Loan{}, apperrors.Conflict("no available copies", "")
	}

	item.AvailableCopies--
	if item.AvailableCopies > 0 {
		item.Status = ItemAvailable
	} else {
		item.Status = ItemCheckedOut
	}

	return Loan{
		LoanID: loanID, ItemID: item.ItemID, BorrowerUID: borrowerUID,
		Status: LoanCheckedOut, LoanedAt: now, DueAt: now.Add(LoanPeriod), RenewalLimit: 1,
	}, nil
}

// CheckIn applies spec.md §4.3's check-in rule: only the borrower or
// staff may check in; terminal "returned" is idempotent; other statuses
// conflict.
func CheckIn(loan *Loan, item *Item, actorUID string, actorIsStaff bool, now time.Time) *apperrors.ServiceError {
	if loan.BorrowerUID != actorUID && !actorIsStaff {
		return apperrors.Forbidden("only the borrower or staff may check in this loan")
	}

	switch loan.Status {
	case LoanCheckedOut, LoanOverdue, LoanReturnRequested:
		loan.Status = LoanReturned
		loan.ReturnedAt = &now
		if item.AvailableCopies < item.TotalCopies {
			item.AvailableCopies++
		}
		item.Status = ItemAvailable
		return nil
	case LoanReturned:
		return nil
	default:
		return apperrors.Conflict("loan cannot be checked in from its current status", "")
	}
}

// MarkLost applies spec.md §4.3's staff-only markLost rule.
func MarkLost(loan *Loan, now time.Time) *apperrors.ServiceError {
	switch loan.Status {
	case LoanCheckedOut, LoanOverdue, LoanReturnRequested:
		loan.Status = LoanLost
		return nil
	case LoanLost:
		return nil
	case LoanReturned:
		return apperrors.Conflict("loan has already been returned", "")
	default:
		return apperrors.Conflict("loan cannot be marked lost from its current status", "")
	}
}

// AssessReplacementFee applies spec.md §4.3's staff-only fee assessment:
// the loan must be lost, and amount_cents defaults to the item's
// replacement value when no explicit amount is given. The loan carries no
// replacement value of its own, so only the item's value is consulted.
func AssessReplacementFee(loan *Loan, item Item, explicitAmountCents *int64, now time.Time) (ReplacementFee, *apperrors.ServiceError) {
	if loan.Status != LoanLost {
		return ReplacementFee{}, apperrors.FailedPrecondition("loan must be lost to assess a replacement fee", "")
	}

	amount := item.ReplacementValueCents
	if explicitAmountCents != nil {
		amount = *explicitAmountCents
	}
	if amount < 1 {
		return ReplacementFee{}, apperrors.FailedPrecondition("replacement fee amount must be at least 1 cent", "")
	}

	feeID := idgen.Hash("library-replacement-fee", loan.LoanID, item.ItemID)
	fee := ReplacementFee{FeeID: feeID, LoanID: loan.LoanID, ItemID: item.ItemID, AmountCents: amount, Status: ReplacementFeePendingCharge, CreatedAt: now}

	loan.ReplacementFeeID = feeID
	loan.ReplacementFeeStatus = ReplacementFeeAssessed
	loan.ReplacementFeeAmountCents = amount

	return fee, nil
}

const (
	defaultListMineLimit = 25
	maxListMineLimit     = 100
)

// ClampListMineLimit follows the teacher's DefaultListLimit/ClampLimit
// convention (spec.md §6.2 listMine, ordered by (borrower_uid,
// loaned_at desc)).
func ClampListMineLimit(requested int) int {
	if requested <= 0 {
		return defaultListMineLimit
	}
	if requested > maxListMineLimit {
		return maxListMineLimit
	}
	return requested
}
