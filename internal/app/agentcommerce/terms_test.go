package agentcommerce

import (
	"testing"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTermsStore struct{ accepted bool }

func (f fakeTermsStore) HasAccepted(key TermsAcceptanceKey) bool { return f.accepted }
func (f fakeTermsStore) RecordAcceptance(key TermsAcceptanceKey) error { return nil }

func TestRequireTerms_SessionExempt(t *testing.T) {
	svcErr := RequireTerms(fakeTermsStore{accepted: false}, "agent.order.get", AuthModeSession, TermsAcceptanceKey{})
	assert.Nil(t, svcErr)
}

func TestRequireTerms_CatalogRouteExempt(t *testing.T) {
	svcErr := RequireTerms(fakeTermsStore{accepted: false}, "agent.catalog", AuthModePersonalAccess, TermsAcceptanceKey{})
	assert.Nil(t, svcErr)
}

func TestRequireTerms_DeniesWithoutAcceptance(t *testing.T) {
	svcErr := RequireTerms(fakeTermsStore{accepted: false}, "agent.order.get", AuthModeDelegatedAgent, TermsAcceptanceKey{Version: "v3"})
	require.NotNil(t, svcErr)
	assert.Equal(t, apperrors.ReasonTermsNotAccepted, svcErr.Details["reasonCode"])
	assert.Equal(t, "v3", svcErr.Details["requiredPhase"])
}

func TestRequireTerms_AllowsWithAcceptance(t *testing.T) {
	svcErr := RequireTerms(fakeTermsStore{accepted: true}, "agent.order.get", AuthModeDelegatedAgent, TermsAcceptanceKey{})
	assert.Nil(t, svcErr)
}
