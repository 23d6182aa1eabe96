package postgres

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/internal/app/libraryloan"
)

func TestLibraryLoanStore_GetItem(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	item := libraryloan.Item{ItemID: "item-1", MediaType: libraryloan.MediaBook, Status: libraryloan.ItemAvailable}
	payload, _ := json.Marshal(item)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM library_items WHERE id = $1")).
		WithArgs("item-1").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payload))

	store := NewLibraryLoanStore(db)
	got, err := store.GetItem(context.Background(), "item-1")
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if got.ItemID != "item-1" {
		t.Fatalf("unexpected item: %+v", got)
	}
}

func TestLibraryLoanStore_GetItem_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM library_items WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}))

	store := NewLibraryLoanStore(db)
	_, err = store.GetItem(context.Background(), "missing")
	if err != libraryloan.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLibraryLoanStore_UpdateItem_RetriesOnSerializationFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	item := libraryloan.Item{ItemID: "item-1", Status: libraryloan.ItemAvailable, TotalCopies: 2, AvailableCopies: 2}
	payload, _ := json.Marshal(item)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM library_items WHERE id = $1 FOR UPDATE")).
		WithArgs("item-1").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payload))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE library_items SET")).
		WillReturnError(errSerializationFailure{})
	mock.ExpectRollback()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM library_items WHERE id = $1 FOR UPDATE")).
		WithArgs("item-1").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payload))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE library_items SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	store := NewLibraryLoanStore(db)
	got, err := store.UpdateItem(context.Background(), "item-1", func(i *libraryloan.Item) error {
		i.AvailableCopies--
		i.Status = libraryloan.ItemCheckedOut
		return nil
	})
	if err != nil {
		t.Fatalf("update item: %v", err)
	}
	if got.AvailableCopies != 1 {
		t.Fatalf("expected 1 available copy, got %d", got.AvailableCopies)
	}
}

func TestLibraryLoanStore_CreateLoan(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO library_loans")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewLibraryLoanStore(db)
	err = store.CreateLoan(context.Background(), libraryloan.Loan{LoanID: "loan-1", ItemID: "item-1", BorrowerUID: "u1", Status: libraryloan.LoanCheckedOut})
	if err != nil {
		t.Fatalf("create loan: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLibraryLoanStore_PutReplacementFee(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO library_replacement_fees")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewLibraryLoanStore(db)
	err = store.PutReplacementFee(context.Background(), libraryloan.ReplacementFee{FeeID: "fee-1", LoanID: "loan-1", ItemID: "item-1", AmountCents: 2500, Status: libraryloan.ReplacementFeePendingCharge})
	if err != nil {
		t.Fatalf("put replacement fee: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
