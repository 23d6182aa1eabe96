package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/internal/app/idempotency"
)

func TestIdempotencyStore_GetFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT actor_uid, operation, key, request_fingerprint, response_data")).
		WithArgs("doc1").
		WillReturnRows(sqlmock.NewRows([]string{
			"actor_uid", "operation", "key", "request_fingerprint", "response_data",
			"response_version", "request_id", "created_at", "updated_at",
		}).AddRow("u1", "library.loans.checkout", "k1", "fp1", json.RawMessage(`{"ok":true}`), 1, "req_1", now, now))

	store := NewIdempotencyStore(db)
	rec, found, err := store.Get(context.Background(), "doc1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !found || rec.Operation != "library.loans.checkout" {
		t.Fatalf("unexpected record: %+v found=%v", rec, found)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestIdempotencyStore_GetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT actor_uid, operation, key, request_fingerprint, response_data")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	store := NewIdempotencyStore(db)
	_, found, err := store.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if found {
		t.Fatal("expected not found")
	}
}

func TestIdempotencyStore_CreateIfAbsent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO idempotency_ledger")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewIdempotencyStore(db)
	rec := idempotency.Record{ActorUID: "u1", Operation: "agent.pay", Key: "k1", RequestFingerprint: "fp1", ResponseData: json.RawMessage(`{}`)}
	if err := store.CreateIfAbsent(context.Background(), "doc1", rec); err != nil {
		t.Fatalf("create if absent: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
