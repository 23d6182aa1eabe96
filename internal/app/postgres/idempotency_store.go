package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/internal/app/idempotency"
	pgstore "github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/storage/postgres"
)

// IdempotencyStore realizes the idempotencyLedger collection spec.md §6.4
// names, keyed by the deterministic doc id idempotency.DocID derives.
type IdempotencyStore struct {
	*pgstore.BaseStore
}

// NewIdempotencyStore wires an IdempotencyStore over db.
func NewIdempotencyStore(db *sql.DB) *IdempotencyStore {
	return &IdempotencyStore{BaseStore: pgstore.NewBaseStore(db, "idempotency_ledger")}
}

func (s *IdempotencyStore) Get(ctx context.Context, docID string) (idempotency.Record, bool, error) {
	query := fmt.Sprintf(`SELECT actor_uid, operation, key, request_fingerprint, response_data,
		response_version, request_id, created_at, updated_at FROM %s WHERE id = $1`, s.TableName())
	var rec idempotency.Record
	err := s.QueryRowContext(ctx, query, docID).Scan(
		&rec.ActorUID, &rec.Operation, &rec.Key, &rec.RequestFingerprint, &rec.ResponseData,
		&rec.ResponseVersion, &rec.RequestID, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return idempotency.Record{}, false, nil
	}
	if err != nil {
		return idempotency.Record{}, false, fmt.Errorf("get idempotency record: %w", err)
	}
	return rec, true, nil
}

// CreateIfAbsent inserts rec iff no row exists for docID, relying on the
// primary key's ON CONFLICT DO NOTHING to make concurrent first-writers
// race safely (spec.md §5).
func (s *IdempotencyStore) CreateIfAbsent(ctx context.Context, docID string, rec idempotency.Record) error {
	query := fmt.Sprintf(`INSERT INTO %s
		(id, actor_uid, operation, key, request_fingerprint, response_data, response_version, request_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`, s.TableName())
	_, err := s.ExecContext(ctx, query,
		docID, rec.ActorUID, rec.Operation, rec.Key, rec.RequestFingerprint, rec.ResponseData,
		rec.ResponseVersion, rec.RequestID, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create idempotency record: %w", err)
	}
	return nil
}
