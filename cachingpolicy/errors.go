package cachingpolicy

import "errors"

// Sentinel errors for the caching policy. Degradations (store write
// failures, config parse failures) never surface as returned errors: the
// tee logs store write failures through the standard log package, and
// ParseConfig falls back to defaults without logging. ErrLookupFailed is
// the only one of these the policy returns.
var (
	// ErrLookupFailed wraps a cache-store error encountered during the
	// request-phase lookup. It is fatal: the chain must not continue and no
	// upstream call may be made.
	ErrLookupFailed = errors.New("cachingpolicy: cache lookup failed")

	// ErrStoreMissing indicates no CacheStore was configured. In the
	// response phase this degrades to skip-cache and is not returned as an
	// error; it is exported so callers can recognize it if they choose to
	// construct a Policy defensively.
	ErrStoreMissing = errors.New("cachingpolicy: no cache store configured")
)
