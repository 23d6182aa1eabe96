package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/internal/app/reservation"
	pgstore "github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/storage/postgres"
)

// AuditStore realizes the reservationStorageAudit,
// reservationQueueFairnessAudit, and notifications collections spec.md
// §6.4 names, and backs both the pickup/fairness writers and the
// continuity export's AuditSource fan-out reads.
type AuditStore struct {
	storage       *pgstore.BaseStore
	fairness      *pgstore.BaseStore
	notifications *pgstore.BaseStore
}

// NewAuditStore wires the three audit-trail collections over db.
func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{
		storage:       pgstore.NewBaseStore(db, "reservation_storage_audit"),
		fairness:      pgstore.NewBaseStore(db, "reservation_queue_fairness_audit"),
		notifications: pgstore.NewBaseStore(db, "notifications"),
	}
}

type storageAuditRow struct {
	ReservationID string               `json:"reservationId"`
	At            time.Time            `json:"at"`
	Kind          string               `json:"kind"`
	Detail        string               `json:"detail"`
}

// AppendStorageAudit implements reservation.StorageAuditWriter.
func (s *AuditStore) AppendStorageAudit(ctx context.Context, reservationID string, notice reservation.StorageNotice) error {
	row := storageAuditRow{ReservationID: reservationID, At: notice.At, Kind: notice.Kind, Detail: notice.Detail}
	payload, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshal storage audit: %w", err)
	}
	query := fmt.Sprintf(`INSERT INTO %s (reservation_id, created_at, payload) VALUES ($1, $2, $3)`, s.storage.TableName())
	if _, err := s.storage.ExecContext(ctx, query, reservationID, notice.At, payload); err != nil {
		return fmt.Errorf("append storage audit: %w", err)
	}
	return nil
}

type fairnessAuditRow struct {
	ReservationID string                         `json:"reservationId"`
	Action        string                         `json:"action"`
	RequestID     string                         `json:"requestId"`
	Reason        string                         `json:"reason"`
	ActorUID      string                         `json:"actorUid"`
	ActorRole     string                         `json:"actorRole"`
	Policy        reservation.QueueFairnessPolicy `json:"policy"`
}

// AppendFairnessAudit implements reservation.FairnessAuditWriter.
func (s *AuditStore) AppendFairnessAudit(ctx context.Context, evidenceID string, record reservation.FairnessAuditRecord) error {
	row := fairnessAuditRow{
		ReservationID: record.ReservationID, Action: record.Action, RequestID: record.RequestID,
		Reason: record.Reason, ActorUID: record.ActorUID, ActorRole: record.ActorRole, Policy: record.Policy,
	}
	payload, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshal fairness audit: %w", err)
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, reservation_id, payload) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`, s.fairness.TableName())
	if _, err := s.fairness.ExecContext(ctx, query, evidenceID, record.ReservationID, payload); err != nil {
		return fmt.Errorf("append fairness audit: %w", err)
	}
	return nil
}

// ListStorageAudit implements reservation.AuditSource: all storage-audit
// rows for reservations owned by ownerUID, newest first.
func (s *AuditStore) ListStorageAudit(ctx context.Context, ownerUID string) ([]byte, error) {
	query := fmt.Sprintf(`SELECT a.payload FROM %s a
		JOIN %s r ON r.id = a.reservation_id
		WHERE r.owner_uid = $1 ORDER BY a.created_at DESC`, s.storage.TableName(), "reservations")
	return queryJSONArray(ctx, s.storage, query, ownerUID)
}

// ListFairnessAudit implements reservation.AuditSource.
func (s *AuditStore) ListFairnessAudit(ctx context.Context, ownerUID string) ([]byte, error) {
	query := fmt.Sprintf(`SELECT a.payload FROM %s a
		JOIN %s r ON r.id = a.reservation_id
		WHERE r.owner_uid = $1 ORDER BY a.id`, s.fairness.TableName(), "reservations")
	return queryJSONArray(ctx, s.fairness, query, ownerUID)
}

// ListNotifications implements reservation.AuditSource. Notifications are
// written by the delivery subsystem, out of this module's scope; this
// read side only needs to exist for the continuity export fan-out.
func (s *AuditStore) ListNotifications(ctx context.Context, ownerUID string) ([]byte, error) {
	query := fmt.Sprintf(`SELECT payload FROM %s WHERE owner_uid = $1 ORDER BY created_at DESC`, s.notifications.TableName())
	return queryJSONArray(ctx, s.notifications, query, ownerUID)
}

func queryJSONArray(ctx context.Context, base *pgstore.BaseStore, query string, args ...any) ([]byte, error) {
	rows, err := base.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit rows: %w", err)
	}
	defer rows.Close()

	out := []json.RawMessage{}
	for rows.Next() {
		var raw json.RawMessage
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		out = append(out, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit rows: %w", err)
	}
	return json.Marshal(out)
}
