// Package libraryloan implements the Library Loan Lifecycle (spec.md
// §3.7, §4.3): checkout, checkIn, markLost, assessReplacementFee, and the
// listMine read model, sharing the idempotency-ledger and
// available-copies capacity discipline.
package libraryloan

import "time"

// LoanPeriod is the fixed checkout duration (spec.md §3.7: due_at =
// loaned_at + 28 days).
const LoanPeriod = 28 * 24 * time.Hour

// ItemStatus is the library item's lifecycle state (spec.md §3.7).
type ItemStatus string

const (
	ItemAvailable  ItemStatus = "available"
	ItemCheckedOut ItemStatus = "checked_out"
	ItemOverdue    ItemStatus = "overdue"
	ItemLost       ItemStatus = "lost"
	ItemUnavailable ItemStatus = "unavailable"
	ItemArchived   ItemStatus = "archived"
)

// MediaType constrains which items are lendable (SPEC_FULL.md supplement
// grounded on the "lendable" language in spec.md §4.3).
type MediaType string

const (
	MediaBook     MediaType = "book"
	MediaPhysical MediaType = "physical"
	MediaPrint    MediaType = "print"
	MediaDigital  MediaType = "digital"
)

var lendableMediaTypes = map[MediaType]bool{MediaBook: true, MediaPhysical: true, MediaPrint: true}

// Item is a lendable library resource (spec.md §3.7).
type Item struct {
	ItemID                string
	Title                 string
	ISBN10                string
	ISBN13                string
	MediaType             MediaType
	TotalCopies           int
	AvailableCopies       int
	Status                ItemStatus
	ReplacementValueCents int64
	DeletedAt             *time.Time
}

// LoanStatus is the loan lifecycle state (spec.md §3.7).
type LoanStatus string

const (
	LoanCheckedOut      LoanStatus = "checked_out"
	LoanReturnRequested LoanStatus = "return_requested"
	LoanOverdue         LoanStatus = "overdue"
	LoanReturned        LoanStatus = "returned"
	LoanLost            LoanStatus = "lost"
	LoanUnknown         LoanStatus = "unknown"
)

// ReplacementFeeStatus tracks whether a lost-item fee has been assessed.
type ReplacementFeeStatus string

const (
	ReplacementFeeNone     ReplacementFeeStatus = ""
	ReplacementFeeAssessed ReplacementFeeStatus = "assessed"
)

// Loan is one checkout record (spec.md §3.7).
type Loan struct {
	LoanID                  string
	ItemID                  string
	BorrowerUID             string
	Status                  LoanStatus
	LoanedAt                time.Time
	DueAt                   time.Time
	ReturnedAt              *time.Time
	RenewalLimit            int
	ReplacementFeeID        string
	ReplacementFeeStatus    ReplacementFeeStatus
	ReplacementFeeAmountCents int64
}

// ReplacementFeeChargeStatus is the fee record's lifecycle state
// (SPEC_FULL.md supplement).
type ReplacementFeeChargeStatus string

const (
	ReplacementFeePendingCharge ReplacementFeeChargeStatus = "pending_charge"
)

// ReplacementFee is the libraryReplacementFees/{fee_id} record (spec.md
// §4.3).
type ReplacementFee struct {
	FeeID       string
	LoanID      string
	ItemID      string
	AmountCents int64
	Status      ReplacementFeeChargeStatus
	CreatedAt   time.Time
}
