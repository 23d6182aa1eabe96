package idempotency

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	rows map[string]Record
}

func newMemStore() *memStore { return &memStore{rows: map[string]Record{}} }

func (m *memStore) Get(_ context.Context, docID string) (Record, bool, error) {
	rec, ok := m.rows[docID]
	return rec, ok, nil
}

func (m *memStore) CreateIfAbsent(_ context.Context, docID string, rec Record) error {
	if _, ok := m.rows[docID]; ok {
		return nil
	}
	m.rows[docID] = rec
	return nil
}

func TestLookup_NoneWhenAbsent(t *testing.T) {
	ledger := New(newMemStore())
	outcome, _, err := ledger.Lookup(context.Background(), "checkout", "u1", "k1", "fp1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNone, outcome)
}

func TestLookup_ReplayWhenFingerprintMatches(t *testing.T) {
	ledger := New(newMemStore())
	ledger.Persist(context.Background(), "checkout", "u1", "k1", "fp1", "req-1", json.RawMessage(`{"loan":{"id":"L1"}}`))

	outcome, rec, err := ledger.Lookup(context.Background(), "checkout", "u1", "k1", "fp1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeReplay, outcome)
	assert.Equal(t, "req-1", rec.RequestID)
}

func TestLookup_ConflictWhenFingerprintDiffers(t *testing.T) {
	ledger := New(newMemStore())
	ledger.Persist(context.Background(), "checkout", "u1", "k1", "fp1", "req-1", json.RawMessage(`{}`))

	outcome, _, err := ledger.Lookup(context.Background(), "checkout", "u1", "k1", "fp2")
	require.NoError(t, err)
	assert.Equal(t, OutcomeConflict, outcome)
}

func TestOverlayReplay_StampsChannel(t *testing.T) {
	out, err := OverlayReplay(json.RawMessage(`{"loan":{"id":"L1"}}`), "loan")
	require.NoError(t, err)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(out, &obj))
	loan := obj["loan"].(map[string]any)
	assert.Equal(t, true, loan["idempotentReplay"])
}

func TestDocID_Deterministic(t *testing.T) {
	a := DocID("checkout", "u1", "k1")
	b := DocID("checkout", "u1", "k1")
	c := DocID("checkout", "u1", "k2")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
