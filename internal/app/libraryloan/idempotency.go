package libraryloan

import (
	"context"
	"encoding/json"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/internal/app/idempotency"
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/apperrors"
)

const maxIdempotencyKeyLen = 120

// ValidateIdempotencyKey enforces spec.md §4.3 step 1: "normalize key
// (<=120 chars, body and x-idempotency-key header must agree when both
// present)".
func ValidateIdempotencyKey(bodyKey, headerKey string) (string, *apperrors.ServiceError) {
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

// RunIdempotent executes the four-step flow from spec.md §4.3 around one
// library operation: lookup, run on miss, persist on success, overlay
// replay flag on hit. channel names the response-data field the replay
// flag nests under (e.g. "loan", "fee").
func RunIdempotent(ctx context.Context, ledger *idempotency.Ledger, operation, actorUID, key, requestID string, payload any, channel string, run func() (any, *apperrors.ServiceError)) (json.RawMessage, bool, *apperrors.ServiceError) {
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
