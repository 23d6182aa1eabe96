// Package idempotency implements the Idempotency Ledger (spec.md §3.4,
// §4.4, §9): a keyed store of (actor, operation, key) -> {fingerprint,
// response} guaranteeing at-most-once execution and faithful replay.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
)

// ErrMismatch is returned by Lookup when a stored record exists for the key
// but its fingerprint does not match the caller's (spec.md P-IDEMPOTENT).
var ErrMismatch = errors.New("idempotency key reused with a different payload")

// Record is the persisted shape of one ledger slot.
type Record struct {
	ActorUID           string
	Operation          string
	Key                string
	RequestFingerprint string
	ResponseData       json.RawMessage
	ResponseVersion    int
	RequestID          string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Store is the persistence boundary the ledger writes through; a Postgres
// implementation lives in internal/app/postgres.
type Store interface {
	// Get returns (record, true, nil) if present, (zero, false, nil) if
	// absent, or a non-nil error on read failure.
	Get(ctx context.Context, docID string) (Record, bool, error)
	// CreateIfAbsent inserts rec iff no row exists for rec's doc id, using
	// "ON CONFLICT DO NOTHING" create semantics (spec.md §5): concurrent
	// writers racing for the same key must not error.
	CreateIfAbsent(ctx context.Context, docID string, rec Record) error
}

// DocID derives the deterministic ledger document id for an
// (operation, actorUID, key) triple (spec.md §3.4, §9: sha256 over a
// canonical JSON envelope, hex-prefixed).
func DocID(operation, actorUID, key string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf(`{"op":%q,"actor":%q,"key":%q}`, operation, actorUID, key)))
	return hex.EncodeToString(sum[:])
}

// Fingerprint canonicalizes an operation intent into the comparison string
// stored alongside a ledger record. Callers pass already-normalized,
// deterministically-ordered payloads (e.g. a struct marshaled through
// json.Marshal with stable field order) so two equivalent requests produce
// byte-identical fingerprints.
func Fingerprint(operation string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(append([]byte(operation+":"), body...))
	return hex.EncodeToString(sum[:]), nil
}

// Outcome is the tri-state result of a Lookup: none, conflict, or replay.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeConflict
	OutcomeReplay
)

// Ledger is the Idempotency Ledger service.
type Ledger struct {
	store   Store
	breaker *gobreaker.CircuitBreaker
}

// New constructs a Ledger. Ledger writes are wrapped in a circuit breaker
// (spec.md §4.4: "persistence failures... must not fail the request") so a
// degrading backing store stops being hit on every call and simply forfeits
// replay protection rather than adding latency to the request path.
func New(store Store) *Ledger {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "idempotency-ledger-writer",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return &Ledger{store: store, breaker: breaker}
}

// Lookup checks the ledger for (operation, actorUID, key) against
// fingerprint and returns the outcome plus the stored record when replaying.
func (l *Ledger) Lookup(ctx context.Context, operation, actorUID, key, fingerprint string) (Outcome, Record, error) {
	docID := DocID(operation, actorUID, key)
	rec, found, err := l.store.Get(ctx, docID)
	if err != nil {
		return OutcomeNone, Record{}, err
	}
	if !found {
		return OutcomeNone, Record{}, nil
	}
	if rec.RequestFingerprint != fingerprint {
		return OutcomeConflict, rec, nil
	}
	return OutcomeReplay, rec, nil
}

// Persist writes the response for (operation, actorUID, key) after a
// successful business transaction. Failures are swallowed: the business
// write already happened and is the source of truth (spec.md §4.4); losing
// the ledger row only means a retried caller will re-execute, which every
// caller is designed to tolerate via deterministic ids or re-read-current-state.
func (l *Ledger) Persist(ctx context.Context, operation, actorUID, key, fingerprint, requestID string, response json.RawMessage) {
	docID := DocID(operation, actorUID, key)
	rec := Record{
		ActorUID:           actorUID,
		Operation:          operation,
		Key:                key,
		RequestFingerprint: fingerprint,
		ResponseData:       response,
		ResponseVersion:    1,
		RequestID:          requestID,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}
	_, _ = l.breaker.Execute(func() (any, error) {
		return nil, l.store.CreateIfAbsent(ctx, docID, rec)
	})
}

// OverlayReplay stamps idempotent_replay=true onto a JSON object under the
// given channel key (e.g. "loan", "fee", or "" for the top level), matching
// spec.md §4.4's "overlays a channel-specific idempotent_replay=true flag".
func OverlayReplay(data json.RawMessage, channel string) (json.RawMessage, error) {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	if channel == "" {
		obj["idempotentReplay"] = true
	} else {
		sub, ok := obj[channel].(map[string]any)
		if !ok {
			sub = map[string]any{}
		}
		sub["idempotentReplay"] = true
		obj[channel] = sub
	}
	return json.Marshal(obj)
}
