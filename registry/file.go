package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// fileRecord is the on-disk shape of one contract, matching the original
// LocalFileRegistry's flat JSON array of API/client beans.
type fileRecord struct {
	APIKey  string `json:"apiKey"`
	OrgID   string `json:"orgId"`
	APIID   string `json:"apiId"`
	Version string `json:"version"`
}

// FileRegistry is a Registry backed by a single JSON file: an array of
// contract records, loaded into memory and cached until the file's mtime
// changes. The zero value is not usable; construct with NewFileRegistry.
type FileRegistry struct {
	path string

	mu         sync.RWMutex
	modTime    int64
	byAPIKey   map[string]*Contract
	byAPITuple map[string]*Contract
}

func apiTupleKey(orgID, apiID, version string) string {
	return orgID + "\x00" + apiID + "\x00" + version
}

// NewFileRegistry loads path immediately and returns a ready FileRegistry.
func NewFileRegistry(path string) (*FileRegistry, error) {
	r := &FileRegistry{path: path}
	if err := r.Reload(context.Background()); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the registry file if its mtime has changed since the
// last load, replacing the in-memory map atomically. A Reload call when
// the file is unchanged is a cheap no-op (one stat call).
func (r *FileRegistry) Reload(ctx context.Context) error {
	info, err := os.Stat(r.path)
	if err != nil {
		return fmt.Errorf("registry: stat %s: %w", r.path, err)
	}

	mtime := info.ModTime().UnixNano()

	r.mu.RLock()
	unchanged := r.byAPIKey != nil && mtime == r.modTime
	r.mu.RUnlock()
	if unchanged {
		return nil
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("registry: read %s: %w", r.path, err)
	}

	var records []fileRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("registry: parse %s: %w", r.path, err)
	}

	byAPIKey := make(map[string]*Contract, len(records))
	byAPITuple := make(map[string]*Contract, len(records))
	for _, rec := range records {
		c := &Contract{APIKey: rec.APIKey, OrgID: rec.OrgID, APIID: rec.APIID, Version: rec.Version}
		if c.APIKey != "" {
			byAPIKey[c.APIKey] = c
		}
		if c.OrgID != "" && c.APIID != "" && c.Version != "" {
			byAPITuple[apiTupleKey(c.OrgID, c.APIID, c.Version)] = c
		}
	}

	r.mu.Lock()
	r.byAPIKey = byAPIKey
	r.byAPITuple = byAPITuple
	r.modTime = mtime
	r.mu.Unlock()
	return nil
}

// ResolveContract looks up the contract bound to apiKey.
func (r *FileRegistry) ResolveContract(ctx context.Context, apiKey string) (*Contract, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byAPIKey[apiKey]
	return c, ok, nil
}

// ResolveAPI looks up the contract for a contract-less org/API/version
// request.
func (r *FileRegistry) ResolveAPI(ctx context.Context, orgID, apiID, version string) (*Contract, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byAPITuple[apiTupleKey(orgID, apiID, version)]
	return c, ok, nil
}

var _ Registry = (*FileRegistry)(nil)
