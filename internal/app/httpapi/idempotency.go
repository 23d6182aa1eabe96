package httpapi

import (
	"context"
	"encoding/json"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/internal/app/idempotency"
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/apperrors"
)

const maxIdempotencyKeyLen = 120

// resolveIdempotencyKey mirrors libraryloan.ValidateIdempotencyKey for the
// reservation and agent-commerce routes, which carry the same body-or-header
// idempotency key convention (spec.md §4.1.A, §4.2).
func resolveIdempotencyKey(bodyKey, headerKey string) (string, *apperrors.ServiceError) {
	if bodyKey != "" && headerKey != "" && bodyKey != headerKey {
		return "", apperrors.InvalidArgument("body idempotencyKey does not match x-idempotency-key header")
	}
	key := bodyKey
	if key == "" {
		key = headerKey
	}
	if len(key) > maxIdempotencyKeyLen {
		return "", apperrors.InvalidArgument("idempotency key exceeds 120 characters")
	}
	return key, nil
}

// runIdempotent wraps a mutation in the idempotency ledger (spec.md §4.4):
// a cache miss runs and persists; a fingerprint-matching replay returns the
// stored response with its replay flag overlaid; a mismatched fingerprint
// is a CONFLICT.
func runIdempotent(ctx context.Context, ledger *idempotency.Ledger, operation, actorUID, key, requestID string, payload any, channel string, run func() (any, *apperrors.ServiceError)) (json.RawMessage, bool, *apperrors.ServiceError) {
	runAndEncode := func() (json.RawMessage, *apperrors.ServiceError) {
		data, svcErr := run()
		if svcErr != nil {
			return nil, svcErr
		}
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, apperrors.Internal("failed to encode response", err)
		}
		return raw, nil
	}

	if key == "" {
		raw, svcErr := runAndEncode()
		return raw, false, svcErr
	}

	fingerprint, err := idempotency.Fingerprint(operation, payload)
	if err != nil {
		return nil, false, apperrors.Internal("failed to encode idempotency payload", err)
	}

	outcome, record, err := ledger.Lookup(ctx, operation, actorUID, key, fingerprint)
	if err != nil {
		return nil, false, apperrors.Internal("idempotency ledger lookup failed", err)
	}

	switch outcome {
	case idempotency.OutcomeConflict:
		return nil, false, apperrors.IdempotencyKeyConflict(key)
	case idempotency.OutcomeReplay:
		overlaid, err := idempotency.OverlayReplay(record.ResponseData, channel)
		if err != nil {
			return nil, false, apperrors.Internal("failed to overlay replay flag", err)
		}
		return overlaid, true, nil
	}

	raw, svcErr := runAndEncode()
	if svcErr != nil {
		return nil, false, svcErr
	}

	ledger.Persist(ctx, operation, actorUID, key, fingerprint, requestID, raw)

	return raw, false, nil
}
