package agentcommerce

import (
	"regexp"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/apperrors"
)

// CommissionPolicyVersion is stamped on every triaged commission request.
const CommissionPolicyVersion = "2026-02-24.v1"

// prohibitedContentPatterns implements spec.md §4.2's "prohibited-content
// regex set (weapons, counterfeit, copyright-bypass, hate/harassment)".
var prohibitedContentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(firearm|gun receiver|silencer|suppressor|grenade|explosive device)\b`),
	regexp.MustCompile(`(?i)\b(counterfeit|replica (currency|passport|id card))\b`),
	regexp.MustCompile(`(?i)\b(drm[- ]?bypass|region[- ]?lock bypass|pirated)\b`),
	regexp.MustCompile(`(?i)\b(hate speech|harass(ment)?|slur)\b`),
}

func matchesProhibitedContent(text string) bool {
	for _, pattern := range prohibitedContentPatterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// CommissionReasonCodes is the fixed set accept/reject must choose from
// (spec.md §4.2: "accepting or rejecting requires one of a fixed
// reason-code set").
var CommissionReasonCodes = map[string]bool{
	"capacity_available":  true,
	"fits_studio_scope":   true,
	"out_of_scope":        true,
	"prohibited_content":  true,
	"capacity_unavailable": true,
}

// TriageCommission screens a new commission request, auto-rejecting
// prohibited content (spec.md §4.2).
func TriageCommission(requestID, uid, description string) CommissionRequest {
	req := CommissionRequest{
		RequestID: requestID, UID: uid, Description: description, PolicyVersion: CommissionPolicyVersion,
	}
	if matchesProhibitedContent(description) {
		req.Status = CommissionRejected
		req.ReasonCode = "prohibited_content"
		return req
	}
	req.Status = CommissionTriaged
	return req
}

// DecideCommission applies a staff accept/reject decision, validating the
// reason code against the fixed set.
func DecideCommission(req *CommissionRequest, accept bool, reasonCode string) *apperrors.ServiceError {
	if !CommissionReasonCodes[reasonCode] {
		return apperrors.InvalidArgument("unknown commission reason code")
	}
	if req.Status != CommissionTriaged {
		return apperrors.Conflict("commission request already decided", "")
	}
	if accept {
		req.Status = CommissionAccepted
	} else {
		req.Status = CommissionRejected
	}
	req.ReasonCode = reasonCode
	return nil
}

const maxX1CDimensionMM = 256

var validX1CFileTypes = map[X1CFileType]bool{X1CFile3MF: true, X1CFileSTL: true, X1CFileSTEP: true}

var validX1CMaterials = map[X1CMaterialProfile]bool{
	X1CMaterialPLA: true, X1CMaterialPETG: true, X1CMaterialABS: true,
	X1CMaterialASA: true, X1CMaterialPACF: true, X1CMaterialTPU: true,
}

// ValidateX1CPrintRequest enforces spec.md §4.2's X1C constraints:
// file_type/material_profile enums, dimensions <=256mm each,
// quantity in [1,20], weapon-like text rejected as
// x1c_prohibited_use.
func ValidateX1CPrintRequest(req X1CPrintRequest) *apperrors.ServiceError {
	if !validX1CFileTypes[req.FileType] {
		return apperrors.InvalidArgument("unsupported file_type")
	}
	if !validX1CMaterials[req.MaterialProfile] {
		return apperrors.InvalidArgument("unsupported material_profile")
	}
	for _, dim := range req.DimensionsMM {
		if dim <= 0 || dim > maxX1CDimensionMM {
			return apperrors.InvalidArgument("dimensions must be within (0, 256] mm")
		}
	}
	if req.Quantity < 1 || req.Quantity > 20 {
		return apperrors.InvalidArgument("quantity must be within [1,20]")
	}
	if containsWeaponLikeText(req.Description) {
		return apperrors.Conflict("prohibited use detected", apperrors.ReasonX1CProhibitedUse)
	}
	return nil
}

var weaponLikePattern = regexp.MustCompile(`(?i)\b(firearm|gun receiver|silencer|suppressor|grenade launcher|explosive device)\b`)

func containsWeaponLikeText(text string) bool {
	return weaponLikePattern.MatchString(text)
}
