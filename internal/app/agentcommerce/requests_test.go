package agentcommerce

import (
	"testing"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriageCommission_RejectsProhibitedContent(t *testing.T) {
	req := TriageCommission("req-1", "u1", "need a working gun receiver replica")
	assert.Equal(t, CommissionRejected, req.Status)
	assert.Equal(t, "prohibited_content", req.ReasonCode)
}

func TestTriageCommission_AcceptsOrdinaryRequest(t *testing.T) {
	req := TriageCommission("req-1", "u1", "custom glazed mug set")
	assert.Equal(t, CommissionTriaged, req.Status)
	assert.Equal(t, CommissionPolicyVersion, req.PolicyVersion)
}

func TestDecideCommission_RejectsUnknownReasonCode(t *testing.T) {
	req := &CommissionRequest{Status: CommissionTriaged}
	svcErr := DecideCommission(req, true, "because_i_said_so")
	require.NotNil(t, svcErr)
}

func TestDecideCommission_AcceptsWithValidReasonCode(t *testing.T) {
	req := &CommissionRequest{Status: CommissionTriaged}
	svcErr := DecideCommission(req, true, "capacity_available")
	require.Nil(t, svcErr)
	assert.Equal(t, CommissionAccepted, req.Status)
}

func baseX1CRequest() X1CPrintRequest {
	return X1CPrintRequest{
		FileType: X1CFileSTL, MaterialProfile: X1CMaterialPLA,
		DimensionsMM: [3]float64{100, 100, 100}, Quantity: 1,
	}
}

func TestValidateX1CPrintRequest_RejectsOversizedDimensions(t *testing.T) {
	req := baseX1CRequest()
	req.DimensionsMM[0] = 300
	svcErr := ValidateX1CPrintRequest(req)
	require.NotNil(t, svcErr)
}

func TestValidateX1CPrintRequest_RejectsQuantityOutOfRange(t *testing.T) {
	req := baseX1CRequest()
	req.Quantity = 21
	svcErr := ValidateX1CPrintRequest(req)
	require.NotNil(t, svcErr)
}

func TestValidateX1CPrintRequest_RejectsWeaponLikeText(t *testing.T) {
	req := baseX1CRequest()
	req.Description = "custom silencer mount"
	svcErr := ValidateX1CPrintRequest(req)
	require.NotNil(t, svcErr)
	assert.Equal(t, apperrors.ReasonX1CProhibitedUse, svcErr.Details["reasonCode"])
}

func TestValidateX1CPrintRequest_AllowsValidRequest(t *testing.T) {
	svcErr := ValidateX1CPrintRequest(baseX1CRequest())
	assert.Nil(t, svcErr)
}
