package cachingpolicy

import (
	"strconv"
	"strings"
)

// Config configures one binding of the caching policy.
type Config struct {
	// TTL is the time-to-live, in seconds, for entries this policy writes.
	// Zero disables caching entirely for this binding.
	TTL int

	// IncludeQueryInKey includes the request's raw query string in the
	// cache key when true. Default false.
	IncludeQueryInKey bool
}

// ParseConfig reads a flat options map, as a policy binding would receive
// from its host configuration. Unknown keys are ignored. A malformed or
// negative "ttl" degrades to TTL=0 (disabled) rather than erroring -
// configuration errors are never fatal. "includeQueryInKey" accepts the
// literal strings "true"/"false", case-insensitively; any other value
// (including absence) is false.
func ParseConfig(options map[string]string) Config {
	var cfg Config

	if raw, ok := options["ttl"]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && n >= 0 {
			cfg.TTL = n
		}
	}

	if raw, ok := options["includeQueryInKey"]; ok {
		cfg.IncludeQueryInKey = strings.EqualFold(strings.TrimSpace(raw), "true")
	}

	return cfg
}
