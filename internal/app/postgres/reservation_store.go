// Package postgres implements the document-store realization of spec.md
// §11: one JSONB payload column per collection, plus the indexed columns
// spec.md §6.4 names, built on the shared BaseStore.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/internal/app/reservation"
	pgstore "github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/storage/postgres"
)

// ReservationStore is the reservations collection: id, owner_uid,
// created_at indexed columns plus a payload JSONB column (spec.md §6.4:
// "indexes required on (owner_uid, created_at desc) on reservations").
type ReservationStore struct {
	*pgstore.BaseStore
}

// NewReservationStore wires a ReservationStore over db.
func NewReservationStore(db *sql.DB) *ReservationStore {
	return &ReservationStore{BaseStore: pgstore.NewBaseStore(db, "reservations")}
}

func (s *ReservationStore) Get(ctx context.Context, id string) (reservation.Reservation, error) {
	query := fmt.Sprintf("SELECT payload FROM %s WHERE id = $1", s.TableName())
	var raw []byte
	if err := s.QueryRowContext(ctx, query, id).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return reservation.Reservation{}, reservation.ErrNotFound
		}
		return reservation.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	return decodeReservation(raw)
}

func (s *ReservationStore) GetByClientRequestID(ctx context.Context, ownerUID, clientRequestID string) (reservation.Reservation, bool, error) {
	query := fmt.Sprintf("SELECT payload FROM %s WHERE owner_uid = $1 AND client_request_id = $2 LIMIT 1", s.TableName())
	var raw []byte
	err := s.QueryRowContext(ctx, query, ownerUID, clientRequestID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return reservation.Reservation{}, false, nil
	}
	if err != nil {
		return reservation.Reservation{}, false, fmt.Errorf("get reservation by client request id: %w", err)
	}
	r, err := decodeReservation(raw)
	if err != nil {
		return reservation.Reservation{}, false, err
	}
	return r, true, nil
}

func (s *ReservationStore) GetByArrivalTokenLookup(ctx context.Context, lookup string) (reservation.Reservation, bool, error) {
	query := fmt.Sprintf("SELECT payload FROM %s WHERE arrival_token_lookup = $1 LIMIT 1", s.TableName())
	var raw []byte
	err := s.QueryRowContext(ctx, query, lookup).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return reservation.Reservation{}, false, nil
	}
	if err != nil {
		return reservation.Reservation{}, false, fmt.Errorf("get reservation by arrival token: %w", err)
	}
	r, err := decodeReservation(raw)
	if err != nil {
		return reservation.Reservation{}, false, err
	}
	return r, true, nil
}

func (s *ReservationStore) Create(ctx context.Context, r reservation.Reservation) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal reservation: %w", err)
	}
	query := fmt.Sprintf(`INSERT INTO %s
		(id, owner_uid, client_request_id, arrival_token_lookup, assigned_station_id, status, created_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, s.TableName())
	_, err = s.ExecContext(ctx, query,
		r.ReservationID, r.OwnerUID, r.ClientRequestID, r.ArrivalTokenLookup, r.AssignedStationID, string(r.Status), r.CreatedAt, payload)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

// Update performs the read-validate-write cycle under WithTxRetry (spec.md
// §5: "transactions are expected to retry on contention").
func (s *ReservationStore) Update(ctx context.Context, id string, fn func(r *reservation.Reservation) error) (reservation.Reservation, error) {
	var result reservation.Reservation
	err := s.WithTxRetry(ctx, func(txCtx context.Context) error {
		query := fmt.Sprintf("SELECT payload FROM %s WHERE id = $1 FOR UPDATE", s.TableName())
		var raw []byte
		if err := s.QueryRowContext(txCtx, query, id).Scan(&raw); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return reservation.ErrNotFound
			}
			return fmt.Errorf("select for update: %w", err)
		}

		current, err := decodeReservation(raw)
		if err != nil {
			return err
		}

		if err := fn(&current); err != nil {
			return err
		}

		payload, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("marshal reservation: %w", err)
		}

		update := fmt.Sprintf(`UPDATE %s SET
			arrival_token_lookup = $2, assigned_station_id = $3, status = $4, payload = $5
			WHERE id = $1`, s.TableName())
		if _, err := s.ExecContext(txCtx, update, id, current.ArrivalTokenLookup, current.AssignedStationID, string(current.Status), payload); err != nil {
			return fmt.Errorf("update reservation: %w", err)
		}

		result = current
		return nil
	})
	if err != nil {
		return reservation.Reservation{}, err
	}
	return result, nil
}

func (s *ReservationStore) ListByOwner(ctx context.Context, ownerUID string, limit int) ([]reservation.Reservation, error) {
	builder := pgstore.NewSelectBuilder(s.TableName()).
		Columns("payload").
		WhereEq("owner_uid", ownerUID).
		OrderBy("created_at", true).
		Limit(limit)
	return s.queryReservations(ctx, builder)
}

func (s *ReservationStore) ListByStation(ctx context.Context, stationID string) ([]reservation.Reservation, error) {
	builder := pgstore.NewSelectBuilder(s.TableName()).
		Columns("payload").
		WhereEq("assigned_station_id", stationID)
	return s.queryReservations(ctx, builder)
}

func (s *ReservationStore) queryReservations(ctx context.Context, builder *pgstore.SelectBuilder) ([]reservation.Reservation, error) {
	query, args := builder.Build()
	rows, err := s.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reservations: %w", err)
	}
	defer rows.Close()

	var out []reservation.Reservation
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		r, err := decodeReservation(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func decodeReservation(raw []byte) (reservation.Reservation, error) {
	var r reservation.Reservation
	if err := json.Unmarshal(raw, &r); err != nil {
		return reservation.Reservation{}, fmt.Errorf("decode reservation: %w", err)
	}
	return r, nil
}
