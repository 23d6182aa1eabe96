// Package httpapi implements the Router & Response Shaper (spec.md §4.7,
// §6.1, §6.2): gorilla/mux dispatch over a declarative route table, a
// request-id/recovery/logging/rate-guard middleware chain, and the uniform
// {ok, requestId, data|code|message|details} envelope (teacher:
// cmd/gateway/main.go's mux.NewRouter() + subrouters, internal/app/httpapi's
// route-table and writeJSON/writeError idiom).
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/apperrors"
)

// envelope is the uniform response body spec.md §4.7 mandates.
type envelope struct {
	OK        bool   `json:"ok"`
	RequestID string `json:"requestId"`
	Data      any    `json:"data,omitempty"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// writeOK sends a successful envelope.
func writeOK(w http.ResponseWriter, requestID string, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-Id", requestID)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{OK: true, RequestID: requestID, Data: data})
}

// writeErr sends a ServiceError envelope, stamping Retry-After for
// RATE_LIMITED responses (spec.md §4.6).
func writeErr(w http.ResponseWriter, requestID string, svcErr *apperrors.ServiceError) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-Id", requestID)
	if svcErr.Code == apperrors.CodeRateLimited {
		if ms, ok := svcErr.Details["retryAfterMs"].(int64); ok {
			w.Header().Set("Retry-After", msToSeconds(ms))
		}
	}
	w.WriteHeader(svcErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(envelope{
		OK: false, RequestID: requestID,
		Code: string(svcErr.Code), Message: svcErr.Message, Details: svcErr.Details,
	})
}

// writeJSONRaw sends a successful envelope wrapping a pre-marshaled data
// payload, used by routes that go through runIdempotent/RunIdempotent and
// already hold an encoded json.RawMessage response.
func writeJSONRaw(w http.ResponseWriter, requestID string, status int, data json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-Id", requestID)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{OK: true, RequestID: requestID, Data: json.RawMessage(data)})
}

func msToSeconds(ms int64) string {
	seconds := ms / 1000
	if ms%1000 != 0 {
		seconds++
	}
	if seconds < 1 {
		seconds = 1
	}
	return strconv.FormatInt(seconds, 10)
}

// decodeJSON mirrors the teacher's strict body decoder (internal/app/httpapi
// decodeJSON): unknown fields are rejected so malformed bodies surface as
// INVALID_ARGUMENT rather than being silently ignored.
func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
