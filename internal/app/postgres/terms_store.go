package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/internal/app/agentcommerce"
	pgstore "github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/storage/postgres"
)

// TermsStore realizes the agentTermsAcceptances collection spec.md §6.4
// names, keyed by (uid, mode, token/client, version). HasAccepted has no
// context/error in its signature (agentcommerce.TermsAcceptanceStore), so
// reads go through a short-TTL in-memory cache rather than a DB round trip
// per request, following station.Registry's read-through idiom.
type TermsStore struct {
	base *pgstore.BaseStore

	mu       sync.RWMutex
	loadedAt time.Time
	ttl      time.Duration
	accepted map[string]bool
}

// NewTermsStore wires the agent_terms_acceptances table over db.
func NewTermsStore(db *sql.DB, ttl time.Duration) *TermsStore {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &TermsStore{
		base:     pgstore.NewBaseStore(db, "agent_terms_acceptances"),
		ttl:      ttl,
		accepted: map[string]bool{},
	}
}

func termsCacheKey(key agentcommerce.TermsAcceptanceKey) string {
	return fmt.Sprintf("%s|%s|%s|%s", key.UID, key.Mode, key.TokenOrClient, key.Version)
}

func (s *TermsStore) ensureFresh() {
	s.mu.RLock()
	stale := time.Since(s.loadedAt) > s.ttl
	s.mu.RUnlock()
	if !stale {
		return
	}

	rows, err := s.base.QueryContext(context.Background(),
		fmt.Sprintf("SELECT uid, mode, token_or_client, version FROM %s", s.base.TableName()))
	if err != nil {
		return
	}
	defer rows.Close()

	accepted := map[string]bool{}
	for rows.Next() {
		var k agentcommerce.TermsAcceptanceKey
		var mode string
		if err := rows.Scan(&k.UID, &mode, &k.TokenOrClient, &k.Version); err != nil {
			return
		}
		k.Mode = agentcommerce.AuthMode(mode)
		accepted[termsCacheKey(k)] = true
	}
	if err := rows.Err(); err != nil {
		return
	}

	s.mu.Lock()
	s.accepted = accepted
	s.loadedAt = time.Now()
	s.mu.Unlock()
}

// HasAccepted implements agentcommerce.TermsAcceptanceStore.
func (s *TermsStore) HasAccepted(key agentcommerce.TermsAcceptanceKey) bool {
	s.ensureFresh()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accepted[termsCacheKey(key)]
}

// RecordAcceptance implements agentcommerce.TermsAcceptanceStore, persisting
// the acceptance and warming the cache so the immediately-following request
// (e.g. a terms.accept followed by a gated route in the same flow) doesn't
// race the TTL.
func (s *TermsStore) RecordAcceptance(key agentcommerce.TermsAcceptanceKey) error {
	query := fmt.Sprintf(`INSERT INTO %s (uid, mode, token_or_client, version, accepted_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (uid, mode, token_or_client, version) DO UPDATE SET accepted_at = EXCLUDED.accepted_at`,
		s.base.TableName())
	_, err := s.base.ExecContext(context.Background(), query, key.UID, string(key.Mode), key.TokenOrClient, key.Version, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record terms acceptance: %w", err)
	}

	s.mu.Lock()
	s.accepted[termsCacheKey(key)] = true
	s.mu.Unlock()

	return nil
}
