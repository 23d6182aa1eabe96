package postgres

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/internal/app/agentcommerce"
)

func TestAgentCommerceStore_GetQuote(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	q := agentcommerce.Quote{QuoteID: "q1", UID: "u1", Status: agentcommerce.QuoteStatusQuoted}
	payload, _ := json.Marshal(q)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM agent_quotes WHERE id = $1")).
		WithArgs("q1").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payload))

	store := NewAgentCommerceStore(db)
	got, found, err := store.GetQuote(context.Background(), "q1")
	if err != nil {
		t.Fatalf("get quote: %v", err)
	}
	if !found || got.UID != "u1" {
		t.Fatalf("unexpected quote: %+v found=%v", got, found)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAgentCommerceStore_PutQuote(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO agent_quotes")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewAgentCommerceStore(db)
	err = store.PutQuote(context.Background(), agentcommerce.Quote{QuoteID: "q1", UID: "u1", Status: agentcommerce.QuoteStatusQuoted})
	if err != nil {
		t.Fatalf("put quote: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAgentCommerceStore_UpdateAgentAccount_RetriesOnSerializationFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	a := agentcommerce.AgentAccount{AgentClientID: "agent-1", Status: agentcommerce.AgentAccountActive}
	payload, _ := json.Marshal(a)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM agent_accounts WHERE id = $1 FOR UPDATE")).
		WithArgs("agent-1").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payload))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE agent_accounts SET")).
		WillReturnError(errSerializationFailure{})
	mock.ExpectRollback()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM agent_accounts WHERE id = $1 FOR UPDATE")).
		WithArgs("agent-1").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payload))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE agent_accounts SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	store := NewAgentCommerceStore(db)
	got, err := store.UpdateAgentAccount(context.Background(), "agent-1", func(a *agentcommerce.AgentAccount) error {
		a.Status = agentcommerce.AgentAccountOnHold
		return nil
	})
	if err != nil {
		t.Fatalf("update agent account: %v", err)
	}
	if got.Status != agentcommerce.AgentAccountOnHold {
		t.Fatalf("expected on_hold, got %s", got.Status)
	}
}

func TestAgentCommerceStore_ListOrdersInRange(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	o := agentcommerce.Order{OrderID: "o1", Currency: "usd", AmountCents: 1000}
	payload, _ := json.Marshal(o)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT to_char(created_at, 'YYYY-MM-DD') AS day, payment_provider, status, payload")).
		WithArgs("2026-02-23", "2026-02-24").
		WillReturnRows(sqlmock.NewRows([]string{"day", "payment_provider", "status", "payload"}).
			AddRow("2026-02-24", "stripe", "paid", payload))

	store := NewAgentCommerceStore(db)
	rows, err := store.ListOrdersInRange(context.Background(), "2026-02-23", "2026-02-24")
	if err != nil {
		t.Fatalf("list orders in range: %v", err)
	}
	if len(rows) != 1 || rows[0].AmountCents != 1000 {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}
