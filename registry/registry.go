// Package registry supplies the identity a gateway resolves a request
// against - API-key-bound contracts, and org/API/version tuples - mirroring
// apiman's Api/Client/Contract beans. It is an ambient collaborator for
// cmd/gatewaysim: the caching policy itself never depends on it directly,
// only on the gatewayctx.RequestFingerprint.Identity a registry lookup
// would have already populated.
package registry

import "context"

// Contract identifies one registered client binding: either an API-key
// contract, or an org/API/version tuple for a contract-less request.
type Contract struct {
	APIKey  string
	OrgID   string
	APIID   string
	Version string
}

// Registry resolves request identity against a set of registered
// API/client contracts.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: a (nil, false, nil) result is a clean "not registered"; a
//   non-nil error means the lookup itself failed.
type Registry interface {
	// ResolveContract looks up the contract bound to apiKey.
	ResolveContract(ctx context.Context, apiKey string) (*Contract, bool, error)

	// ResolveAPI looks up the contract for a contract-less org/API/version
	// request.
	ResolveAPI(ctx context.Context, orgID, apiID, version string) (*Contract, bool, error)
}
