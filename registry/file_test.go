package registry

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeRegistryFile(t *testing.T, records []fileRecord) string {
	t.Helper()
	data, err := json.Marshal(records)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	path := filepath.Join(t.TempDir(), "registry.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestNewFileRegistry_ResolveContractByAPIKey(t *testing.T) {
	path := writeRegistryFile(t, []fileRecord{
		{APIKey: "abc123", OrgID: "org1", APIID: "api1", Version: "1.0"},
	})

	r, err := NewFileRegistry(path)
	if err != nil {
		t.Fatalf("NewFileRegistry() error = %v", err)
	}

	c, ok, err := r.ResolveContract(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("ResolveContract() error = %v", err)
	}
	if !ok {
		t.Fatal("expected a contract for a registered api key")
	}
	if c.OrgID != "org1" || c.APIID != "api1" || c.Version != "1.0" {
		t.Errorf("contract = %+v, want org1/api1/1.0", c)
	}
}

func TestNewFileRegistry_ResolveContractMiss(t *testing.T) {
	path := writeRegistryFile(t, []fileRecord{
		{APIKey: "abc123", OrgID: "org1", APIID: "api1", Version: "1.0"},
	})

	r, err := NewFileRegistry(path)
	if err != nil {
		t.Fatalf("NewFileRegistry() error = %v", err)
	}

	_, ok, err := r.ResolveContract(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("ResolveContract() error = %v", err)
	}
	if ok {
		t.Error("expected a miss for an unregistered api key")
	}
}

func TestNewFileRegistry_ResolveAPIByTuple(t *testing.T) {
	path := writeRegistryFile(t, []fileRecord{
		{OrgID: "org1", APIID: "api1", Version: "2.0"},
	})

	r, err := NewFileRegistry(path)
	if err != nil {
		t.Fatalf("NewFileRegistry() error = %v", err)
	}

	c, ok, err := r.ResolveAPI(context.Background(), "org1", "api1", "2.0")
	if err != nil {
		t.Fatalf("ResolveAPI() error = %v", err)
	}
	if !ok {
		t.Fatal("expected a contract for a registered org/api/version tuple")
	}
	if c.OrgID != "org1" {
		t.Errorf("contract.OrgID = %q, want %q", c.OrgID, "org1")
	}
}

func TestNewFileRegistry_MissingFile(t *testing.T) {
	if _, err := NewFileRegistry(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected an error for a missing registry file")
	}
}

func TestNewFileRegistry_MalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := NewFileRegistry(path); err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}

func TestFileRegistry_ReloadPicksUpChanges(t *testing.T) {
	path := writeRegistryFile(t, []fileRecord{
		{APIKey: "abc123", OrgID: "org1", APIID: "api1", Version: "1.0"},
	})

	r, err := NewFileRegistry(path)
	if err != nil {
		t.Fatalf("NewFileRegistry() error = %v", err)
	}

	// Ensure the new mtime is observably different on filesystems with
	// coarse mtime resolution.
	time.Sleep(10 * time.Millisecond)

	data, _ := json.Marshal([]fileRecord{
		{APIKey: "def456", OrgID: "org2", APIID: "api2", Version: "2.0"},
	})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if err := r.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	if _, ok, _ := r.ResolveContract(context.Background(), "abc123"); ok {
		t.Error("expected the old api key to be gone after reload")
	}
	c, ok, err := r.ResolveContract(context.Background(), "def456")
	if err != nil {
		t.Fatalf("ResolveContract() error = %v", err)
	}
	if !ok {
		t.Fatal("expected the new api key to be present after reload")
	}
	if c.OrgID != "org2" {
		t.Errorf("contract.OrgID = %q, want %q", c.OrgID, "org2")
	}
}

func TestFileRegistry_ReloadNoopWhenUnchanged(t *testing.T) {
	path := writeRegistryFile(t, []fileRecord{
		{APIKey: "abc123", OrgID: "org1", APIID: "api1", Version: "1.0"},
	})

	r, err := NewFileRegistry(path)
	if err != nil {
		t.Fatalf("NewFileRegistry() error = %v", err)
	}

	before := r.modTime
	if err := r.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if r.modTime != before {
		t.Error("expected modTime to be unchanged after a no-op reload")
	}
}
