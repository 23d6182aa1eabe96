package reservation

import (
	"fmt"
	"strings"
	"time"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/idgen"
)

// mintArrivalToken derives the deterministic arrival token for a
// (reservationID, version) pair (spec.md §3.3, §6.3, §9, P-TOKEN-ROUNDTRIP):
// format MF-ARR-{4}-{4}, first segment the last 4 alphanumerics of the
// reservation id left-padded with zeros, second segment
// fnv1a32("{id}:{version}") base-36 truncated/padded to 4 characters.
func mintArrivalToken(reservationID string, version int) string {
	alnum := alnumOnly(reservationID)
	tail := alnum
	if len(tail) > 4 {
		tail = tail[len(tail)-4:]
	}
	for len(tail) < 4 {
		tail = "0" + tail
	}
	tail = strings.ToUpper(tail)

	suffix := idgen.FNV1a32Base36(fmt.Sprintf("%s:%d", reservationID, version), 4)
	return fmt.Sprintf("MF-ARR-%s-%s", tail, suffix)
}

func alnumOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// tokenLookupKey normalizes a raw arrival token (or caller-entered code)
// into the canonical lookup key: uppercase alphanumeric, separators
// dropped (spec.md §3.3, §6.3).
func tokenLookupKey(raw string) string {
	return idgen.NormalizeTokenLookup(raw)
}

// arrivalTokenExpiry is max(now+36h, preferred_window.latest) (spec.md
// §4.1.B, §6.3).
func arrivalTokenExpiry(now time.Time, preferredLatest *time.Time) time.Time {
	base := now.Add(36 * time.Hour)
	if preferredLatest != nil && preferredLatest.After(base) {
		return *preferredLatest
	}
	return base
}

// issueArrivalToken mints and installs a new arrival token version on r,
// resetting arrival status to expected (spec.md §4.1.B).
func issueArrivalToken(r *Reservation, now time.Time) {
	r.ArrivalTokenVersion++
	token := mintArrivalToken(r.ReservationID, r.ArrivalTokenVersion)
	r.ArrivalToken = token
	r.ArrivalTokenLookup = tokenLookupKey(token)
	r.ArrivalTokenIssuedAt = &now
	expiry := arrivalTokenExpiry(now, r.PreferredWindow.End)
	r.ArrivalTokenExpiresAt = &expiry
	r.ArrivalStatus = ArrivalExpected
	r.ArrivedAt = nil
}
