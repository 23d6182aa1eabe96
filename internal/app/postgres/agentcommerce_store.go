package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/internal/app/agentcommerce"
	pgstore "github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/storage/postgres"
)

// AgentCommerceStore realizes the agentQuotes, agentReservations,
// agentOrders, and agentAccounts collections spec.md §6.4 names, each as a
// JSONB payload table over the shared BaseStore, following ReservationStore.
type AgentCommerceStore struct {
	quotes       *pgstore.BaseStore
	reservations *pgstore.BaseStore
	orders       *pgstore.BaseStore
	accounts     *pgstore.BaseStore
}

// NewAgentCommerceStore wires the four agent-commerce collections over db.
func NewAgentCommerceStore(db *sql.DB) *AgentCommerceStore {
	return &AgentCommerceStore{
		quotes:       pgstore.NewBaseStore(db, "agent_quotes"),
		reservations: pgstore.NewBaseStore(db, "agent_reservations"),
		orders:       pgstore.NewBaseStore(db, "agent_orders"),
		accounts:     pgstore.NewBaseStore(db, "agent_accounts"),
	}
}

func (s *AgentCommerceStore) GetQuote(ctx context.Context, quoteID string) (agentcommerce.Quote, bool, error) {
	query := fmt.Sprintf("SELECT payload FROM %s WHERE id = $1", s.quotes.TableName())
	var raw []byte
	err := s.quotes.QueryRowContext(ctx, query, quoteID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return agentcommerce.Quote{}, false, nil
	}
	if err != nil {
		return agentcommerce.Quote{}, false, fmt.Errorf("get quote: %w", err)
	}
	var q agentcommerce.Quote
	if err := json.Unmarshal(raw, &q); err != nil {
		return agentcommerce.Quote{}, false, fmt.Errorf("decode quote: %w", err)
	}
	return q, true, nil
}

func (s *AgentCommerceStore) PutQuote(ctx context.Context, q agentcommerce.Quote) error {
	payload, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshal quote: %w", err)
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, uid, status, created_at, payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, payload = EXCLUDED.payload`, s.quotes.TableName())
	_, err = s.quotes.ExecContext(ctx, query, q.QuoteID, q.UID, string(q.Status), q.CreatedAt, payload)
	if err != nil {
		return fmt.Errorf("upsert quote: %w", err)
	}
	return nil
}

func (s *AgentCommerceStore) GetAgentReservation(ctx context.Context, reservationID string) (agentcommerce.AgentReservation, bool, error) {
	query := fmt.Sprintf("SELECT payload FROM %s WHERE id = $1", s.reservations.TableName())
	var raw []byte
	err := s.reservations.QueryRowContext(ctx, query, reservationID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return agentcommerce.AgentReservation{}, false, nil
	}
	if err != nil {
		return agentcommerce.AgentReservation{}, false, fmt.Errorf("get agent reservation: %w", err)
	}
	var r agentcommerce.AgentReservation
	if err := json.Unmarshal(raw, &r); err != nil {
		return agentcommerce.AgentReservation{}, false, fmt.Errorf("decode agent reservation: %w", err)
	}
	return r, true, nil
}

func (s *AgentCommerceStore) PutAgentReservation(ctx context.Context, r agentcommerce.AgentReservation) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal agent reservation: %w", err)
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, quote_id, status, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, payload = EXCLUDED.payload`, s.reservations.TableName())
	_, err = s.reservations.ExecContext(ctx, query, r.ReservationID, r.QuoteID, string(r.Status), payload)
	if err != nil {
		return fmt.Errorf("upsert agent reservation: %w", err)
	}
	return nil
}

func (s *AgentCommerceStore) PutOrder(ctx context.Context, o agentcommerce.Order) error {
	payload, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, uid, payment_provider, status, created_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, payload = EXCLUDED.payload`, s.orders.TableName())
	_, err = s.orders.ExecContext(ctx, query, o.OrderID, o.UID, string(o.PaymentProvider), string(o.Status), o.CreatedAt, payload)
	if err != nil {
		return fmt.Errorf("upsert order: %w", err)
	}
	return nil
}

func (s *AgentCommerceStore) GetOrder(ctx context.Context, orderID string) (agentcommerce.Order, bool, error) {
	query := fmt.Sprintf("SELECT payload FROM %s WHERE id = $1", s.orders.TableName())
	var raw []byte
	err := s.orders.QueryRowContext(ctx, query, orderID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return agentcommerce.Order{}, false, nil
	}
	if err != nil {
		return agentcommerce.Order{}, false, fmt.Errorf("get order: %w", err)
	}
	var o agentcommerce.Order
	if err := json.Unmarshal(raw, &o); err != nil {
		return agentcommerce.Order{}, false, fmt.Errorf("decode order: %w", err)
	}
	return o, true, nil
}

func (s *AgentCommerceStore) ListOrdersByUID(ctx context.Context, uid string, limit int) ([]agentcommerce.Order, error) {
	builder := pgstore.NewSelectBuilder(s.orders.TableName()).
		Columns("payload").
		WhereEq("uid", uid).
		OrderBy("created_at", true).
		Limit(limit)
	query, args := builder.Build()
	rows, err := s.orders.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []agentcommerce.Order
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		var o agentcommerce.Order
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, fmt.Errorf("decode order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ListOrdersInRange backs revenue.summary (SPEC_FULL.md §8): it projects
// just the fields RevenueSummary reduces over, grouped server-side by day.
func (s *AgentCommerceStore) ListOrdersInRange(ctx context.Context, startDay, endDay string) ([]agentcommerce.OrderLedgerRow, error) {
	query := fmt.Sprintf(`SELECT to_char(created_at, 'YYYY-MM-DD') AS day, payment_provider, status, payload
		FROM %s WHERE created_at >= $1 AND created_at < ($2::date + interval '1 day')`, s.orders.TableName())
	rows, err := s.orders.QueryContext(ctx, query, startDay, endDay)
	if err != nil {
		return nil, fmt.Errorf("query orders in range: %w", err)
	}
	defer rows.Close()

	var out []agentcommerce.OrderLedgerRow
	for rows.Next() {
		var day, provider, status string
		var raw []byte
		if err := rows.Scan(&day, &provider, &status, &raw); err != nil {
			return nil, fmt.Errorf("scan order ledger row: %w", err)
		}
		var o agentcommerce.Order
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, fmt.Errorf("decode order ledger row: %w", err)
		}
		out = append(out, agentcommerce.OrderLedgerRow{
			Day: day, PaymentProvider: agentcommerce.PaymentProvider(provider),
			Currency: o.Currency, AmountCents: o.AmountCents, Status: agentcommerce.OrderStatus(status),
		})
	}
	return out, rows.Err()
}

func (s *AgentCommerceStore) GetAgentAccount(ctx context.Context, agentClientID string) (agentcommerce.AgentAccount, bool, error) {
	query := fmt.Sprintf("SELECT payload FROM %s WHERE id = $1", s.accounts.TableName())
	var raw []byte
	err := s.accounts.QueryRowContext(ctx, query, agentClientID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return agentcommerce.AgentAccount{}, false, nil
	}
	if err != nil {
		return agentcommerce.AgentAccount{}, false, fmt.Errorf("get agent account: %w", err)
	}
	var a agentcommerce.AgentAccount
	if err := json.Unmarshal(raw, &a); err != nil {
		return agentcommerce.AgentAccount{}, false, fmt.Errorf("decode agent account: %w", err)
	}
	return a, true, nil
}

// UpdateAgentAccount reads-validates-writes under WithTxRetry, matching
// ReservationStore.Update's optimistic-concurrency discipline.
func (s *AgentCommerceStore) UpdateAgentAccount(ctx context.Context, agentClientID string, fn func(a *agentcommerce.AgentAccount) error) (agentcommerce.AgentAccount, error) {
	var result agentcommerce.AgentAccount
	err := s.accounts.WithTxRetry(ctx, func(txCtx context.Context) error {
		query := fmt.Sprintf("SELECT payload FROM %s WHERE id = $1 FOR UPDATE", s.accounts.TableName())
		var raw []byte
		if err := s.accounts.QueryRowContext(txCtx, query, agentClientID).Scan(&raw); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("agent account %s: %w", agentClientID, sql.ErrNoRows)
			}
			return fmt.Errorf("select agent account for update: %w", err)
		}

		var current agentcommerce.AgentAccount
		if err := json.Unmarshal(raw, &current); err != nil {
			return fmt.Errorf("decode agent account: %w", err)
		}

		if err := fn(&current); err != nil {
			return err
		}

		payload, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("marshal agent account: %w", err)
		}

		update := fmt.Sprintf("UPDATE %s SET status = $2, payload = $3 WHERE id = $1", s.accounts.TableName())
		if _, err := s.accounts.ExecContext(txCtx, update, agentClientID, string(current.Status), payload); err != nil {
			return fmt.Errorf("update agent account: %w", err)
		}

		result = current
		return nil
	})
	if err != nil {
		return agentcommerce.AgentAccount{}, err
	}
	return result, nil
}
