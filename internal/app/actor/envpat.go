package actor

import (
	"context"
	"errors"
	"os"
	"strings"
)

var errUnknownToken = errors.New("unknown personal access token")

// EnvPATLookup is a minimal PATLookup backed by a static, operator-managed
// token table loaded from the environment at process start (teacher:
// cmd/appserver/main.go's resolveAPITokens/API_TOKENS idiom). Real
// identity-provider-backed PAT issuance and revocation is out of scope
// (spec.md §1); this adapter exists so the module has a concrete,
// runnable PATLookup rather than none at all.
type EnvPATLookup struct {
	byToken map[string]patEntry
}

type patEntry struct {
	uid     string
	scopes  []string
	tokenID string
	isStaff bool
}

// LoadEnvPATLookup parses PAT entries from the PERSONAL_ACCESS_TOKENS
// environment variable: a semicolon-separated list of
// "token:uid:tokenId:staff:scope1|scope2" entries.
func LoadEnvPATLookup() *EnvPATLookup {
	l := &EnvPATLookup{byToken: map[string]patEntry{}}
	raw := strings.TrimSpace(os.Getenv("PERSONAL_ACCESS_TOKENS"))
	if raw == "" {
		return l
	}
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		fields := strings.Split(entry, ":")
		if len(fields) < 4 {
			continue
		}
		token, uid, tokenID, staffStr := fields[0], fields[1], fields[2], fields[3]
		var scopes []string
		if len(fields) >= 5 && fields[4] != "" {
			scopes = strings.Split(fields[4], "|")
		}
		l.byToken[token] = patEntry{uid: uid, scopes: scopes, tokenID: tokenID, isStaff: staffStr == "true"}
	}
	return l
}

// LookupPAT implements PATLookup.
func (l *EnvPATLookup) LookupPAT(_ context.Context, token string) (string, []string, string, bool, error) {
	entry, ok := l.byToken[token]
	if !ok {
		return "", nil, "", false, errUnknownToken
	}
	return entry.uid, entry.scopes, entry.tokenID, entry.isStaff, nil
}
