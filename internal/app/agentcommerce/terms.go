package agentcommerce

import (
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/apperrors"
)

// TermsAcceptanceKey identifies one acceptance record (spec.md §4.2:
// "keyed by (uid, mode, token/client, version)").
type TermsAcceptanceKey struct {
	UID           string
	Mode          AuthMode
	TokenOrClient string
	Version       string
}

// TermsAcceptanceStore checks whether a key has a current acceptance on
// file and records new acceptances from agent.terms.accept.
type TermsAcceptanceStore interface {
	HasAccepted(key TermsAcceptanceKey) bool
	RecordAcceptance(key TermsAcceptanceKey) error
}

// RouteExemptFromTerms is the set of agent routes spec.md §4.2 exempts
// from the terms gate (reading the catalog and the terms document itself
// can never require having accepted it).
var RouteExemptFromTerms = map[string]bool{
	"agent.catalog":    true,
	"agent.terms.get":  true,
	"agent.terms.accept": true,
}

// RequireTerms enforces the gate for PAT and delegated-agent modes;
// session actors are exempt (spec.md §4.2: "for PAT and delegated modes,
// any non-exempt agent route requires a current acceptance record").
func RequireTerms(store TermsAcceptanceStore, route string, mode AuthMode, key TermsAcceptanceKey) *apperrors.ServiceError {
	if mode == AuthModeSession {
		return nil
	}
	if RouteExemptFromTerms[route] {
		return nil
	}
	if store.HasAccepted(key) {
		return nil
	}
	return apperrors.TermsNotAccepted(key.Version)
}
