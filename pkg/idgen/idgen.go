// Package idgen provides the deterministic id and token-hash primitives
// spec.md §9 names explicitly: a documented sha256-based hash for
// deterministic document ids, and FNV-1a 32-bit for arrival tokens.
package idgen

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"math/big"
	"strings"
)

// Hash derives a deterministic hex id from a namespace and a list of
// component strings, matching spec.md §9: "Use a documented hash (e.g.
// SHA-256 over {"op","actor","key"}...) for idempotency doc ids,
// deterministic agent reservation/order ids, and fairness evidence ids."
func Hash(namespace string, parts ...string) string {
	h := sha256.New()
	h.Write([]byte(namespace))
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// HashPrefix is Hash truncated to n hex characters, used where a shorter
// deterministic fragment is embedded into a human-facing id.
func HashPrefix(n int, namespace string, parts ...string) string {
	full := Hash(namespace, parts...)
	if n >= len(full) {
		return full
	}
	return full[:n]
}

// FNV1a32Base36 computes the 32-bit FNV-1a hash of s and renders it in
// base-36, padded/truncated to width characters (spec.md §9: "FNV-1a 32-bit
// over \"{reservation_id}:{version}\" is specified; it is not
// cryptographic — token confidentiality is not assumed, only uniqueness
// within the reservation-version space").
func FNV1a32Base36(s string, width int) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	sum := h.Sum32()
	encoded := strings.ToUpper(big.NewInt(int64(sum)).Text(36))
	if len(encoded) >= width {
		return encoded[len(encoded)-width:]
	}
	return strings.Repeat("0", width-len(encoded)) + encoded
}

// FNV1a32Hex computes the 32-bit FNV-1a hash of s and renders it as 8
// lowercase hex characters (spec.md §4.1.I: the continuity export
// signature is "mfexp_" + fnv1a32(canonical(...)).hex(8), distinct from
// the arrival token's base-36 rendering).
func FNV1a32Hex(s string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	var buf [4]byte
	sum := h.Sum32()
	buf[0] = byte(sum >> 24)
	buf[1] = byte(sum >> 16)
	buf[2] = byte(sum >> 8)
	buf[3] = byte(sum)
	return hex.EncodeToString(buf[:])
}

// RandomAlnum returns n cryptographically random uppercase base32
// characters, used for fallback piece ids and request ids where spec.md
// does not mandate determinism.
func RandomAlnum(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf)
	encoded = strings.ToUpper(encoded)
	if len(encoded) > n {
		encoded = encoded[:n]
	}
	return encoded, nil
}

// RequestID mints a "req_{base64url(12 bytes)}" value (spec.md §6.1).
func RequestID() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return fmt.Sprintf("req_%s", base64.RawURLEncoding.EncodeToString(buf)), nil
}

// NormalizeTokenLookup uppercases s and strips non-alphanumeric characters,
// the normalization spec.md §3.3/§6.3 requires for arrival-token lookups.
func NormalizeTokenLookup(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
