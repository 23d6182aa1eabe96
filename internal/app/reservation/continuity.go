package reservation

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/idgen"
	"github.com/tidwall/gjson"
)

// ContinuitySchemaVersion is stamped on every export header (spec.md
// §4.1.I).
const ContinuitySchemaVersion = "2026-02-24.v1"

const maxContinuityRows = 1000

// AuditSource performs the best-effort fan-out reads continuity export
// layers on top of the reservation rows (spec.md §4.1.I, §9: "≥7 reads;
// each must be independently failure-tolerant"). Each method returns raw
// JSON (an array of records) for its collection.
type AuditSource interface {
	ListStorageAudit(ctx context.Context, ownerUID string) ([]byte, error)
	ListFairnessAudit(ctx context.Context, ownerUID string) ([]byte, error)
	ListNotifications(ctx context.Context, ownerUID string) ([]byte, error)
}

// ContinuityHeader is the versioned header every export carries (spec.md
// §4.1.I).
type ContinuityHeader struct {
	ArtifactID    string   `json:"artifactId"`
	OwnerUID      string   `json:"ownerUid"`
	GeneratedAt   string   `json:"generatedAt"`
	SchemaVersion string   `json:"schemaVersion"`
	Format        []string `json:"format"`
	Signature     string   `json:"signature"`
	RequestID     string   `json:"requestId"`
}

// ContinuityBundle is the full export: header, the redacted JSON payload,
// an optional CSV rendering, and non-fatal warnings from best-effort
// reads that failed.
type ContinuityBundle struct {
	Header   ContinuityHeader
	JSON     []byte
	CSV      []byte
	Warnings []string
}

// redactedReservation is the continuity-export view of a reservation with
// spec.md §4.1.I's redaction rules applied: piece photo URLs, the staff
// notes body, and arrival tokens are stripped.
type redactedReservation struct {
	ReservationID string        `json:"reservationId"`
	Status        Status        `json:"status"`
	LoadStatus    LoadStatus    `json:"loadStatus"`
	StageHistory  []StageStatus `json:"stageHistory"`
	Pieces        []Piece       `json:"pieces"`
	StorageNotice []StorageNotice `json:"storageNoticeHistory"`
	CreatedAt     time.Time     `json:"createdAt"`
}

func redact(r Reservation) redactedReservation {
	pieces := make([]Piece, len(r.Pieces))
	for i, p := range r.Pieces {
		p.PiecePhotoURL = ""
		pieces[i] = p
	}
	return redactedReservation{
		ReservationID: r.ReservationID,
		Status:        r.Status,
		LoadStatus:    r.LoadStatus,
		StageHistory:  r.StageHistory,
		Pieces:        pieces,
		StorageNotice: r.StorageNoticeHistory,
		CreatedAt:     r.CreatedAt,
	}
}

// Export builds a continuity bundle for ownerUID (spec.md §4.1.I). A limit
// within [1, 1000] is used as given; any other value becomes 1000.
func Export(ctx context.Context, store Store, sources AuditSource, ownerUID, requestID string, limit int, now time.Time) (ContinuityBundle, error) {
	if limit <= 0 || limit > maxContinuityRows {
		limit = maxContinuityRows
	}

	rows, err := store.ListByOwner(ctx, ownerUID, limit)
	if err != nil {
		return ContinuityBundle{}, err
	}

	var warnings []string

	storageAudit, err := sources.ListStorageAudit(ctx, ownerUID)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("reservationStorageAudit: %v", err))
		storageAudit = []byte("[]")
	}
	fairnessAudit, err := sources.ListFairnessAudit(ctx, ownerUID)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("reservationQueueFairnessAudit: %v", err))
		fairnessAudit = []byte("[]")
	}
	notifications, err := sources.ListNotifications(ctx, ownerUID)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("notifications: %v", err))
		notifications = []byte("[]")
	}

	redacted := make([]redactedReservation, len(rows))
	for i, r := range rows {
		redacted[i] = redact(r)
	}

	summary := map[string]any{
		"reservationCount": int64(len(redacted)),
		"storageAuditCount": gjson.ParseBytes(storageAudit).Get("#").Int(),
		"fairnessAuditCount": gjson.ParseBytes(fairnessAudit).Get("#").Int(),
		"notificationCount": gjson.ParseBytes(notifications).Get("#").Int(),
	}

	generatedAt := now.UTC().Format(time.RFC3339)
	artifactID := idgen.Hash("continuity-export", ownerUID, requestID, generatedAt)

	payload := map[string]any{
		"ownerUid":      ownerUID,
		"reservations":  redacted,
		"storageAudit":  json.RawMessage(storageAudit),
		"fairnessAudit": json.RawMessage(fairnessAudit),
		"notifications": json.RawMessage(notifications),
		"warnings":      warnings,
		"summary":       summary,
	}

	jsonBundle, err := json.Marshal(payload)
	if err != nil {
		return ContinuityBundle{}, err
	}

	signature := "mfexp_" + idgen.FNV1a32Hex(canonicalSignaturePayload(requestID, ownerUID, generatedAt, summary))

	header := ContinuityHeader{
		ArtifactID:    artifactID,
		OwnerUID:      ownerUID,
		GeneratedAt:   generatedAt,
		SchemaVersion: ContinuitySchemaVersion,
		Format:        []string{"json", "csv"},
		Signature:     signature,
		RequestID:     requestID,
	}

	csvBundle := buildCSVBundle(redacted)

	return ContinuityBundle{Header: header, JSON: jsonBundle, CSV: csvBundle, Warnings: warnings}, nil
}

func canonicalSignaturePayload(requestID, ownerUID, generatedAt string, summary map[string]any) string {
	var b strings.Builder
	b.WriteString(requestID)
	b.WriteByte(0)
	b.WriteString(ownerUID)
	b.WriteByte(0)
	b.WriteString(generatedAt)
	b.WriteByte(0)
	b.WriteString(ContinuitySchemaVersion)
	b.WriteByte(0)
	b.WriteString(strconv.FormatInt(summary["reservationCount"].(int64), 10))
	return b.String()
}

func buildCSVBundle(rows []redactedReservation) []byte {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	_ = w.Write([]string{"reservation_id", "status", "load_status", "created_at"})
	for _, r := range rows {
		_ = w.Write([]string{
			r.ReservationID, string(r.Status), string(r.LoadStatus), r.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	w.Flush()
	return []byte(sb.String())
}
