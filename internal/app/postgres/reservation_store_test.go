package postgres

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/internal/app/reservation"
)

func TestReservationStore_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	r := reservation.Reservation{ReservationID: "res-1", OwnerUID: "u1", Status: reservation.StatusRequested}
	payload, _ := json.Marshal(r)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM reservations WHERE id = $1")).
		WithArgs("res-1").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payload))

	store := NewReservationStore(db)
	got, err := store.Get(context.Background(), "res-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ReservationID != "res-1" || got.OwnerUID != "u1" {
		t.Fatalf("unexpected reservation: %+v", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestReservationStore_Get_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM reservations WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}))

	store := NewReservationStore(db)
	_, err = store.Get(context.Background(), "missing")
	if err != reservation.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReservationStore_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reservations")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewReservationStore(db)
	err = store.Create(context.Background(), reservation.Reservation{
		ReservationID: "res-1", OwnerUID: "u1", Status: reservation.StatusRequested, CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestReservationStore_Update_RetriesOnSerializationFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	r := reservation.Reservation{ReservationID: "res-1", OwnerUID: "u1", Status: reservation.StatusRequested}
	payload, _ := json.Marshal(r)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM reservations WHERE id = $1 FOR UPDATE")).
		WithArgs("res-1").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payload))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reservations SET")).
		WillReturnError(errSerializationFailure{})
	mock.ExpectRollback()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM reservations WHERE id = $1 FOR UPDATE")).
		WithArgs("res-1").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payload))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reservations SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	store := NewReservationStore(db)
	got, err := store.Update(context.Background(), "res-1", func(r *reservation.Reservation) error {
		r.Status = reservation.StatusConfirmed
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Status != reservation.StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", got.Status)
	}
}

type errSerializationFailure struct{}

func (errSerializationFailure) Error() string {
	return "pq: could not serialize access due to concurrent update (SQLSTATE 40001)"
}
