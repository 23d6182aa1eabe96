package reservation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMintArrivalToken_Deterministic(t *testing.T) {
	a := mintArrivalToken("res-0000-abcd", 1)
	b := mintArrivalToken("res-0000-abcd", 1)
	c := mintArrivalToken("res-0000-abcd", 2)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Regexp(t, `^MF-ARR-[A-Z0-9]{4}-[A-Z0-9]{4}$`, a)
}

func TestTokenLookupKey_RoundTrips(t *testing.T) {
	token := mintArrivalToken("res-0000-abcd", 1)
	assert.Equal(t, tokenLookupKey(token), tokenLookupKey(token))
	assert.Equal(t, tokenLookupKey("mf-arr-ab12-cd34"), "MFARRAB12CD34")
}

func TestArrivalTokenExpiry_UsesLaterOfWindowOrFloor(t *testing.T) {
	now := time.Date(2026, 2, 24, 9, 0, 0, 0, time.UTC)

	noWindow := arrivalTokenExpiry(now, nil)
	assert.Equal(t, now.Add(36*time.Hour), noWindow)

	earlyWindow := now.Add(2 * time.Hour)
	withEarly := arrivalTokenExpiry(now, &earlyWindow)
	assert.Equal(t, now.Add(36*time.Hour), withEarly)

	lateWindow := now.Add(72 * time.Hour)
	withLate := arrivalTokenExpiry(now, &lateWindow)
	assert.Equal(t, lateWindow, withLate)
}

func TestIssueArrivalToken_ResetsArrivalState(t *testing.T) {
	now := time.Date(2026, 2, 24, 9, 0, 0, 0, time.UTC)
	r := &Reservation{ReservationID: "res-0000-abcd", ArrivalStatus: ArrivalArrived}
	arrivedAt := now.Add(-time.Hour)
	r.ArrivedAt = &arrivedAt

	issueArrivalToken(r, now)

	assert.Equal(t, 1, r.ArrivalTokenVersion)
	assert.NotEmpty(t, r.ArrivalToken)
	assert.Equal(t, ArrivalExpected, r.ArrivalStatus)
	assert.Nil(t, r.ArrivedAt)
	assert.NotNil(t, r.ArrivalTokenExpiresAt)
}
