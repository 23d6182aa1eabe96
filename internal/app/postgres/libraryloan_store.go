package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/internal/app/libraryloan"
	pgstore "github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/storage/postgres"
)

// LibraryLoanStore realizes the libraryItems, libraryLoans, and
// libraryReplacementFees collections, following ReservationStore's
// JSONB-payload-plus-indexed-columns shape.
type LibraryLoanStore struct {
	items *pgstore.BaseStore
	loans *pgstore.BaseStore
	fees  *pgstore.BaseStore
}

// NewLibraryLoanStore wires the three library-loan collections over db.
func NewLibraryLoanStore(db *sql.DB) *LibraryLoanStore {
	return &LibraryLoanStore{
		items: pgstore.NewBaseStore(db, "library_items"),
		loans: pgstore.NewBaseStore(db, "library_loans"),
		fees:  pgstore.NewBaseStore(db, "library_replacement_fees"),
	}
}

func (s *LibraryLoanStore) GetItem(ctx context.Context, itemID string) (libraryloan.Item, error) {
	query := fmt.Sprintf("SELECT payload FROM %s WHERE id = $1", s.items.TableName())
	var raw []byte
	if err := s.items.QueryRowContext(ctx, query, itemID).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return libraryloan.Item{}, libraryloan.ErrNotFound
		}
		return libraryloan.Item{}, fmt.Errorf("get library item: %w", err)
	}
	var item libraryloan.Item
	if err := json.Unmarshal(raw, &item); err != nil {
		return libraryloan.Item{}, fmt.Errorf("decode library item: %w", err)
	}
	return item, nil
}

// UpdateItem reads-validates-writes the item row under WithTxRetry, matching
// ReservationStore.Update's optimistic-concurrency discipline so concurrent
// checkouts against the same item serialize on available_copies.
func (s *LibraryLoanStore) UpdateItem(ctx context.Context, itemID string, fn func(i *libraryloan.Item) error) (libraryloan.Item, error) {
	var result libraryloan.Item
	err := s.items.WithTxRetry(ctx, func(txCtx context.Context) error {
		query := fmt.Sprintf("SELECT payload FROM %s WHERE id = $1 FOR UPDATE", s.items.TableName())
		var raw []byte
		if err := s.items.QueryRowContext(txCtx, query, itemID).Scan(&raw); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return libraryloan.ErrNotFound
			}
			return fmt.Errorf("select item for update: %w", err)
		}

		var current libraryloan.Item
		if err := json.Unmarshal(raw, &current); err != nil {
			return fmt.Errorf("decode library item: %w", err)
		}

		if err := fn(&current); err != nil {
			return err
		}

		payload, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("marshal library item: %w", err)
		}

		update := fmt.Sprintf("UPDATE %s SET status = $2, available_copies = $3, payload = $4 WHERE id = $1", s.items.TableName())
		if _, err := s.items.ExecContext(txCtx, update, itemID, string(current.Status), current.AvailableCopies, payload); err != nil {
			return fmt.Errorf("update library item: %w", err)
		}

		result = current
		return nil
	})
	if err != nil {
		return libraryloan.Item{}, err
	}
	return result, nil
}

func (s *LibraryLoanStore) GetLoan(ctx context.Context, loanID string) (libraryloan.Loan, error) {
	query := fmt.Sprintf("SELECT payload FROM %s WHERE id = $1", s.loans.TableName())
	var raw []byte
	if err := s.loans.QueryRowContext(ctx, query, loanID).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return libraryloan.Loan{}, libraryloan.ErrNotFound
		}
		return libraryloan.Loan{}, fmt.Errorf("get loan: %w", err)
	}
	var loan libraryloan.Loan
	if err := json.Unmarshal(raw, &loan); err != nil {
		return libraryloan.Loan{}, fmt.Errorf("decode loan: %w", err)
	}
	return loan, nil
}

func (s *LibraryLoanStore) CreateLoan(ctx context.Context, loan libraryloan.Loan) error {
	payload, err := json.Marshal(loan)
	if err != nil {
		return fmt.Errorf("marshal loan: %w", err)
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, item_id, borrower_uid, status, loaned_at, due_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`, s.loans.TableName())
	_, err = s.loans.ExecContext(ctx, query, loan.LoanID, loan.ItemID, loan.BorrowerUID, string(loan.Status), loan.LoanedAt, loan.DueAt, payload)
	if err != nil {
		return fmt.Errorf("insert loan: %w", err)
	}
	return nil
}

func (s *LibraryLoanStore) UpdateLoan(ctx context.Context, loanID string, fn func(l *libraryloan.Loan) error) (libraryloan.Loan, error) {
	var result libraryloan.Loan
	err := s.loans.WithTxRetry(ctx, func(txCtx context.Context) error {
		query := fmt.Sprintf("SELECT payload FROM %s WHERE id = $1 FOR UPDATE", s.loans.TableName())
		var raw []byte
		if err := s.loans.QueryRowContext(txCtx, query, loanID).Scan(&raw); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return libraryloan.ErrNotFound
			}
			return fmt.Errorf("select loan for update: %w", err)
		}

		var current libraryloan.Loan
		if err := json.Unmarshal(raw, &current); err != nil {
			return fmt.Errorf("decode loan: %w", err)
		}

		if err := fn(&current); err != nil {
			return err
		}

		payload, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("marshal loan: %w", err)
		}

		update := fmt.Sprintf("UPDATE %s SET status = $2, payload = $3 WHERE id = $1", s.loans.TableName())
		if _, err := s.loans.ExecContext(txCtx, update, loanID, string(current.Status), payload); err != nil {
			return fmt.Errorf("update loan: %w", err)
		}

		result = current
		return nil
	})
	if err != nil {
		return libraryloan.Loan{}, err
	}
	return result, nil
}

func (s *LibraryLoanStore) ListLoansByBorrower(ctx context.Context, borrowerUID string, limit int) ([]libraryloan.Loan, error) {
	builder := pgstore.NewSelectBuilder(s.loans.TableName()).
		Columns("payload").
		WhereEq("borrower_uid", borrowerUID).
		OrderBy("loaned_at", true).
		Limit(limit)
	query, args := builder.Build()
	rows, err := s.loans.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query loans: %w", err)
	}
	defer rows.Close()

	var out []libraryloan.Loan
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		var loan libraryloan.Loan
		if err := json.Unmarshal(raw, &loan); err != nil {
			return nil, fmt.Errorf("decode loan: %w", err)
		}
		out = append(out, loan)
	}
	return out, rows.Err()
}

func (s *LibraryLoanStore) PutReplacementFee(ctx context.Context, fee libraryloan.ReplacementFee) error {
	payload, err := json.Marshal(fee)
	if err != nil {
		return fmt.Errorf("marshal replacement fee: %w", err)
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, loan_id, item_id, status, created_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, payload = EXCLUDED.payload`, s.fees.TableName())
	_, err = s.fees.ExecContext(ctx, query, fee.FeeID, fee.LoanID, fee.ItemID, string(fee.Status), fee.CreatedAt, payload)
	if err != nil {
		return fmt.Errorf("upsert replacement fee: %w", err)
	}
	return nil
}
