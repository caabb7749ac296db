// Package gatewayctx provides the per-request scaffolding a caching policy
// is assumed to run inside: an identity-carrying request fingerprint, a
// response head type, a pluggable connector-interceptor slot, and an
// explicit per-request attribute bag.
//
// Unlike the inheritance-and-context-attribute-bag style of a typical
// servlet-based policy framework, state here is a tagged record carried
// explicitly by the caller - no hidden superclass state, no values smuggled
// through context.Context.
package gatewayctx

import (
	"context"
	"sync"

	"github.com/jonwraymond/cachingpolicy/internal/headers"
)

// Identity is exactly one of an API-key-bound contract, or the
// org/api/version triple for a contract-less request.
type Identity struct {
	APIKey    string
	OrgID     string
	APIID     string
	Version   string
	HasAPIKey bool // true: APIKey is populated; false: OrgID/APIID/Version are
}

// RequestFingerprint is a read-only snapshot of an inbound request,
// sufficient to derive a cache key and negotiate content type.
type RequestFingerprint struct {
	Identity    Identity
	Verb        string
	Destination string
	RawQuery    string
	Headers     *headers.Map
}

// ResponseHead carries response metadata - status and headers - without the
// body.
type ResponseHead struct {
	Status  int
	Headers *headers.Map
}

// Chunk is one unit of body bytes flowing through a data-handler pipeline.
type Chunk struct {
	Data []byte
	Err  error
	Done bool
}

// Chain resumes the ordered pipeline of policies applied to a request or
// response. A policy that wants the pipeline to continue must call one of
// these; a policy that hits a fatal error does not call DoApply* at all.
type Chain interface {
	// DoApplyRequest resumes the request-phase chain with req unchanged.
	DoApplyRequest(ctx context.Context, req RequestFingerprint) error
	// DoApplyResponse resumes the response-phase chain with resp unchanged.
	DoApplyResponse(ctx context.Context, resp ResponseHead) error
}

// ConnectorInterceptor replaces the real upstream transport with a
// synthetic response producer.
type ConnectorInterceptor interface {
	// Intercept returns the response head synchronously and a channel that
	// yields body chunks in arrival order, terminated by a Chunk with
	// Done=true (and, on failure, a non-nil Err on the final chunk).
	Intercept(ctx context.Context) (ResponseHead, <-chan Chunk, error)
}

// Context is the per-request attribute bag a policy mutates. It is created
// once per request, passed by pointer, and discarded when that request's
// policy chain completes. It is not safe to share across concurrent
// requests, but its attribute accessors are synchronized because
// asynchronous cache-store callbacks spawned during the request phase may
// resume on a different goroutine than the one that created the Context.
type Context struct {
	mu         sync.Mutex
	attrs      map[string]any
	connector  ConnectorInterceptor
	chainError error
}

// New creates an empty per-request Context.
func New() *Context {
	return &Context{attrs: make(map[string]any)}
}

// SetAttribute stores an attribute value under name.
func (c *Context) SetAttribute(name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attrs[name] = value
}

// GetAttribute returns the attribute stored under name, or def if absent.
func (c *Context) GetAttribute(name string, def any) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.attrs[name]
	if !ok {
		return def
	}
	return v
}

// SetConnectorInterceptor installs a synthetic upstream in place of the
// real connector factory.
func (c *Context) SetConnectorInterceptor(i ConnectorInterceptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connector = i
}

// ConnectorInterceptor returns the installed interceptor, or nil if none
// was set.
func (c *Context) ConnectorInterceptor() ConnectorInterceptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connector
}

// ThrowError records a fatal chain error. Once set, it is sticky for the
// lifetime of this Context.
func (c *Context) ThrowError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chainError == nil {
		c.chainError = err
	}
}

// Err returns the error recorded by ThrowError, or nil.
func (c *Context) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chainError
}
