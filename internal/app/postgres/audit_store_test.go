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

func TestAuditStore_AppendStorageAudit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reservation_storage_audit")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewAuditStore(db)
	notice := reservation.StorageNotice{At: time.Now(), Kind: "escalation", Detail: "moved to overflow shelf"}
	if err := store.AppendStorageAudit(context.Background(), "res1", notice); err != nil {
		t.Fatalf("append storage audit: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAuditStore_AppendFairnessAudit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reservation_queue_fairness_audit")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewAuditStore(db)
	record := reservation.FairnessAuditRecord{
		ReservationID: "res1", Action: "rotate", RequestID: "req1",
		Reason: "no-show", ActorUID: "u1", ActorRole: "staff",
		Policy: reservation.QueueFairnessPolicy{NoShowCount: 1, PolicyVersion: "v1"},
	}
	if err := store.AppendFairnessAudit(context.Background(), "ev1", record); err != nil {
		t.Fatalf("append fairness audit: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAuditStore_ListStorageAudit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT a.payload FROM reservation_storage_audit a")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(json.RawMessage(`{"kind":"escalation"}`)))

	store := NewAuditStore(db)
	out, err := store.ListStorageAudit(context.Background(), "u1")
	if err != nil {
		t.Fatalf("list storage audit: %v", err)
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(out, &arr); err != nil || len(arr) != 1 {
		t.Fatalf("unexpected output: %s err=%v", out, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAuditStore_ListNotificationsEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM notifications")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}))

	store := NewAuditStore(db)
	out, err := store.ListNotifications(context.Background(), "u1")
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if string(out) != "[]" {
		t.Fatalf("expected empty array, got %s", out)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
