package idgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHash_Deterministic(t *testing.T) {
	a := Hash("reservation", "u1", "abc")
	b := Hash("reservation", "u1", "abc")
	c := Hash("reservation", "u1", "xyz")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestHash_NamespaceSeparatesParts(t *testing.T) {
	// Without a separator byte, ("ab","c") and ("a","bc") would collide.
	a := Hash("ns", "ab", "c")
	b := Hash("ns", "a", "bc")
	assert.NotEqual(t, a, b)
}

func TestFNV1a32Base36_DiffersByVersion(t *testing.T) {
	v1 := FNV1a32Base36("RES123:1", 4)
	v2 := FNV1a32Base36("RES123:2", 4)
	assert.Len(t, v1, 4)
	assert.Len(t, v2, 4)
	assert.NotEqual(t, v1, v2)
}

func TestFNV1a32Hex_DeterministicAndLowercaseHex(t *testing.T) {
	a := FNV1a32Hex("req_1|u1|2026-02-24T00:00:00Z|1")
	b := FNV1a32Hex("req_1|u1|2026-02-24T00:00:00Z|1")
	c := FNV1a32Hex("req_2|u1|2026-02-24T00:00:00Z|1")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 8)
	assert.Regexp(t, `^[0-9a-f]{8}$`, a)
}

func TestNormalizeTokenLookup_StripsSeparators(t *testing.T) {
	assert.Equal(t, "MFARRAB12CD34", NormalizeTokenLookup("mf-arr-ab12-cd34"))
}

func TestRequestID_HasPrefix(t *testing.T) {
	id, err := RequestID()
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "req_"))
	assert.LessOrEqual(t, len(id), 128)
}
