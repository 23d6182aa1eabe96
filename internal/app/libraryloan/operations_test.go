package libraryloan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckout_DecrementsAvailableCopiesAndSetsDueDate(t *testing.T) {
	now := time.Date(2026, 2, 24, 9, 0, 0, 0, time.UTC)
	item := &Item{ItemID: "item-1", MediaType: MediaBook, Status: ItemAvailable, TotalCopies: 2, AvailableCopies: 2}

	loan, svcErr := Checkout(item, "loan-1", "u1", now)
	require.Nil(t, svcErr)
	assert.Equal(t, 1, item.AvailableCopies)
	assert.Equal(t, ItemAvailable, item.Status)
	assert.Equal(t, LoanCheckedOut, loan.Status)
	assert.Equal(t, now.Add(LoanPeriod), loan.DueAt)
}

func TestCheckout_LastCopyFlipsItemToCheckedOut(t *testing.T) {
	item := &Item{ItemID: "item-1", MediaType: MediaPhysical, Status: ItemAvailable, TotalCopies: 1, AvailableCopies: 1}
	_, svcErr := Checkout(item, "loan-1", "u1", time.Now())
	require.Nil(t, svcErr)
	assert.Equal(t, 0, item.AvailableCopies)
	assert.Equal(t, ItemCheckedOut, item.Status)
}

func TestCheckout_RejectsNonLendableMediaType(t *testing.T) {
	item := &Item{ItemID: "item-1", MediaType: MediaDigital, Status: ItemAvailable, TotalCopies: 1, AvailableCopies: 1}
	_, svcErr := Checkout(item, "loan-1", "u1", time.Now())
	require.NotNil(t, svcErr)
}

func TestCheckout_RejectsWhenNoCopiesAvailable(t *testing.T) {
	item := &Item{ItemID: "item-1", MediaType: MediaBook, Status: ItemAvailable, TotalCopies: 1, AvailableCopies: 0}
	_, svcErr := Checkout(item, "loan-1", "u1", time.Now())
	require.NotNil(t, svcErr)
}

func TestCheckout_RejectsSoftDeletedItem(t *testing.T) {
	deletedAt := time.Now()
	item := &Item{ItemID: "item-1", MediaType: MediaBook, Status: ItemAvailable, TotalCopies: 1, AvailableCopies: 1, DeletedAt: &deletedAt}
	_, svcErr := Checkout(item, "loan-1", "u1", time.Now())
	require.NotNil(t, svcErr)
}

func TestCheckIn_ByBorrowerReturnsItem(t *testing.T) {
	now := time.Date(2026, 2, 24, 9, 0, 0, 0, time.UTC)
	item := &Item{ItemID: "item-1", TotalCopies: 2, AvailableCopies: 1, Status: ItemCheckedOut}
	loan := &Loan{LoanID: "loan-1", ItemID: "item-1", BorrowerUID: "u1", Status: LoanCheckedOut}

	svcErr := CheckIn(loan, item, "u1", false, now)
	require.Nil(t, svcErr)
	assert.Equal(t, LoanReturned, loan.Status)
	assert.NotNil(t, loan.ReturnedAt)
	assert.Equal(t, 2, item.AvailableCopies)
	assert.Equal(t, ItemAvailable, item.Status)
}

func TestCheckIn_RejectsNonBorrowerNonStaff(t *testing.T) {
	item := &Item{ItemID: "item-1", TotalCopies: 1, AvailableCopies: 0, Status: ItemCheckedOut}
	loan := &Loan{LoanID: "loan-1", ItemID: "item-1", BorrowerUID: "u1", Status: LoanCheckedOut}
	svcErr := CheckIn(loan, item, "someone-else", false, time.Now())
	require.NotNil(t, svcErr)
}

func TestCheckIn_StaffCanCheckInAnyLoan(t *testing.T) {
	item := &Item{ItemID: "item-1", TotalCopies: 1, AvailableCopies: 0, Status: ItemCheckedOut}
	loan := &Loan{LoanID: "loan-1", ItemID: "item-1", BorrowerUID: "u1", Status: LoanOverdue}
	svcErr := CheckIn(loan, item, "staff-1", true, time.Now())
	require.Nil(t, svcErr)
	assert.Equal(t, LoanReturned, loan.Status)
}

func TestCheckIn_AlreadyReturnedIsIdempotent(t *testing.T) {
	item := &Item{ItemID: "item-1", TotalCopies: 1, AvailableCopies: 1, Status: ItemAvailable}
	returnedAt := time.Now()
	loan := &Loan{LoanID: "loan-1", ItemID: "item-1", BorrowerUID: "u1", Status: LoanReturned, ReturnedAt: &returnedAt}
	svcErr := CheckIn(loan, item, "u1", false, time.Now())
	require.Nil(t, svcErr)
	assert.Equal(t, 1, item.AvailableCopies)
}

func TestCheckIn_RejectsFromLostStatus(t *testing.T) {
	item := &Item{ItemID: "item-1", TotalCopies: 1, AvailableCopies: 0, Status: ItemLost}
	loan := &Loan{LoanID: "loan-1", ItemID: "item-1", BorrowerUID: "u1", Status: LoanLost}
	svcErr := CheckIn(loan, item, "u1", false, time.Now())
	require.NotNil(t, svcErr)
}

func TestMarkLost_FromCheckedOut(t *testing.T) {
	loan := &Loan{LoanID: "loan-1", Status: LoanCheckedOut}
	svcErr := MarkLost(loan, time.Now())
	require.Nil(t, svcErr)
	assert.Equal(t, LoanLost, loan.Status)
}

func TestMarkLost_RejectsAlreadyReturned(t *testing.T) {
	loan := &Loan{LoanID: "loan-1", Status: LoanReturned}
	svcErr := MarkLost(loan, time.Now())
	require.NotNil(t, svcErr)
}

func TestAssessReplacementFee_RequiresLostStatus(t *testing.T) {
	loan := &Loan{LoanID: "loan-1", Status: LoanCheckedOut}
	item := Item{ItemID: "item-1", ReplacementValueCents: 2500}
	_, svcErr := AssessReplacementFee(loan, item, nil, time.Now())
	require.NotNil(t, svcErr)
}

func TestAssessReplacementFee_DefaultsToItemReplacementValue(t *testing.T) {
	loan := &Loan{LoanID: "loan-1", Status: LoanLost}
	item := Item{ItemID: "item-1", ReplacementValueCents: 2500}
	fee, svcErr := AssessReplacementFee(loan, item, nil, time.Now())
	require.Nil(t, svcErr)
	assert.Equal(t, int64(2500), fee.AmountCents)
	assert.Equal(t, ReplacementFeeAssessed, loan.ReplacementFeeStatus)
	assert.Equal(t, loan.ReplacementFeeID, fee.FeeID)
}

func TestAssessReplacementFee_ExplicitAmountOverridesItemValue(t *testing.T) {
	loan := &Loan{LoanID: "loan-1", Status: LoanLost}
	item := Item{ItemID: "item-1", ReplacementValueCents: 2500}
	explicit := int64(4000)
	fee, svcErr := AssessReplacementFee(loan, item, &explicit, time.Now())
	require.Nil(t, svcErr)
	assert.Equal(t, int64(4000), fee.AmountCents)
}

func TestAssessReplacementFee_RejectsZeroAmount(t *testing.T) {
	loan := &Loan{LoanID: "loan-1", Status: LoanLost}
	item := Item{ItemID: "item-1", ReplacementValueCents: 0}
	zero := int64(0)
	_, svcErr := AssessReplacementFee(loan, item, &zero, time.Now())
	require.NotNil(t, svcErr)
}

func TestAssessReplacementFee_IsDeterministic(t *testing.T) {
	loan1 := &Loan{LoanID: "loan-1", Status: LoanLost}
	loan2 := &Loan{LoanID: "loan-1", Status: LoanLost}
	item := Item{ItemID: "item-1", ReplacementValueCents: 2500}
	fee1, _ := AssessReplacementFee(loan1, item, nil, time.Now())
	fee2, _ := AssessReplacementFee(loan2, item, nil, time.Now())
	assert.Equal(t, fee1.FeeID, fee2.FeeID)
}

func TestClampListMineLimit(t *testing.T) {
	assert.Equal(t, defaultListMineLimit, ClampListMineLimit(0))
	assert.Equal(t, defaultListMineLimit, ClampListMineLimit(-5))
	assert.Equal(t, maxListMineLimit, ClampListMineLimit(500))
	assert.Equal(t, 40, ClampListMineLimit(40))
}
