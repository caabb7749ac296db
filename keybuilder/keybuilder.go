// Package keybuilder derives deterministic, printable cache keys from a
// gateway request fingerprint.
package keybuilder

import (
	"encoding/base64"
	"strings"

	"github.com/jonwraymond/cachingpolicy/gatewayctx"
)

// separator joins key components. It is never normalized out of identity
// or destination fields, so it must not appear unescaped within them for
// keys to remain collision-free - the same assumption the source system
// makes.
const separator = ":"

// Build derives the cache key for fp. When includeQuery is true and fp
// carries a non-empty raw query string, the query is appended verbatim
// (no normalization, no re-ordering of parameters).
func Build(fp gatewayctx.RequestFingerprint, includeQuery bool) string {
	var b strings.Builder

	if fp.Identity.HasAPIKey {
		b.WriteString(fp.Identity.APIKey)
	} else {
		b.WriteString(fp.Identity.OrgID)
		b.WriteString(separator)
		b.WriteString(fp.Identity.APIID)
		b.WriteString(separator)
		b.WriteString(fp.Identity.Version)
	}

	b.WriteString(separator)
	b.WriteString(fp.Verb)
	b.WriteString(separator)
	b.WriteString(fp.Destination)

	if includeQuery && fp.RawQuery != "" {
		b.WriteString("?")
		b.WriteString(fp.RawQuery)
	}

	return b.String()
}

// ContentTypeSuffix returns the separator-prefixed, base64-encoded,
// ASCII-lowercased content type suffix appended to a key once the response
// content type is known. Lowercasing only affects ASCII letters; any
// non-ASCII byte passes through unchanged.
func ContentTypeSuffix(contentType string) string {
	lowered := asciiLower(contentType)
	return separator + base64.StdEncoding.EncodeToString([]byte(lowered))
}

// asciiLower lowercases only the ASCII range, leaving other bytes
// untouched - strings.ToLower is Unicode-aware and would do more than the
// source system's byte-oriented lowercasing.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
