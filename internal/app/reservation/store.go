package reservation

import "context"

// ErrNotFound is returned by Store.Get when no reservation matches.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "reservation: not found" }

// Store is the persistence seam the Reservation Engine depends on (spec.md
// §3.1, §5: "all mutations ... happen inside a single document-store
// transaction that reads the current state, validates invariants, and
// writes atomically"). Postgres/JSONB implementations live under
// internal/app/postgres.
type Store interface {
	// Get loads one reservation by id, ErrNotFound if absent.
	Get(ctx context.Context, id string) (Reservation, error)

	// GetByClientRequestID looks up the deterministic create-idempotency
	// slot (spec.md §4.1.A): hash("reservation", owner_uid,
	// client_request_id) is the id, so this is just Get in most
	// implementations, exposed separately to keep the intent explicit at
	// call sites.
	GetByClientRequestID(ctx context.Context, ownerUID, clientRequestID string) (Reservation, bool, error)

	// GetByArrivalTokenLookup resolves a normalized arrival-token lookup
	// key to its owning reservation by exact match on the stored lookup key
	// (spec.md §4.1.C); there is no fallback to raw token equality.
	GetByArrivalTokenLookup(ctx context.Context, lookup string) (Reservation, bool, error)

	// Create inserts a brand new reservation row. Callers have already
	// resolved the deterministic id and idempotent-replay check.
	Create(ctx context.Context, r Reservation) error

	// Update runs a read-modify-write inside a transaction: fn receives the
	// current row (locked with SELECT ... FOR UPDATE in the Postgres
	// implementation), mutates it in place, and Update persists the result,
	// retrying on serialization failure (spec.md §5).
	Update(ctx context.Context, id string, fn func(r *Reservation) error) (Reservation, error)

	// ListByOwner returns the most recent reservations for an owner,
	// newest first, bounded by limit (spec.md §4.1.I, ≤1000).
	ListByOwner(ctx context.Context, ownerUID string, limit int) ([]Reservation, error)

	// ListByStation returns every reservation currently assigned to a
	// station, used by queue-hint recompute and capacity checks (spec.md
	// §4.1.G, §4.1.H).
	ListByStation(ctx context.Context, stationID string) ([]Reservation, error)
}

// StorageAuditWriter appends a best-effort storage-audit row (spec.md §4.1.I
// reads from reservationStorageAudit; writers live alongside pickup
// transitions). Callers discard failures; they are never fatal.
type StorageAuditWriter interface {
	AppendStorageAudit(ctx context.Context, reservationID string, notice StorageNotice) error
}

// FairnessAuditWriter appends a queue-fairness evidence row (spec.md
// §4.1.F): reservationQueueFairnessAudit/{evidence_id}.
type FairnessAuditWriter interface {
	AppendFairnessAudit(ctx context.Context, evidenceID string, record FairnessAuditRecord) error
}

// FairnessAuditRecord is the persisted evidence row for one fairness
// action (spec.md §4.1.F).
type FairnessAuditRecord struct {
	ReservationID string
	Action        string
	RequestID     string
	Reason        string
	ActorUID      string
	ActorRole     string
	Policy        QueueFairnessPolicy
}
