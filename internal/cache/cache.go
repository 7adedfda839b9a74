// Package cache implements the namespaced artifact cache with per-entry TTL.
// The default backend is an embedded SQLite database; a Postgres backend is
// available for shared deployments.
package cache

import (
	"context"
	"time"
)

// Namespaces used by the pipeline.
const (
	NSCompanyDomains    = "company_domains"
	NSCompanyProperties = "company_properties"
	NSExtracted10K      = "10k_extracted"
	NSEmbeddings        = "embeddings"
	NSFilings           = "filings"
)

// Negative results expire quickly; extracted filings are effectively
// immutable once on disk.
const (
	TTLNegative  = 7 * 24 * time.Hour
	TTLDomain    = 30 * 24 * time.Hour
	TTLExtracted = 365 * 24 * time.Hour
)

// Stats summarizes cache contents.
type Stats struct {
	Entries      int64            `json:"entries"`
	ByNamespace  map[string]int64 `json:"by_namespace"`
	ExpiredSwept int64            `json:"expired_swept,omitempty"`
}

// Store is the namespaced KV interface backing every cache-gated stage.
// Implementations must tolerate concurrent writers from many workers.
type Store interface {
	// Get returns the value for (ns, key), or (nil, false) on miss/expiry.
	Get(ctx context.Context, ns, key string) ([]byte, bool, error)

	// Set stores a value with a TTL. ttl <= 0 means no expiry.
	Set(ctx context.Context, ns, key string, value []byte, ttl time.Duration) error

	// Delete removes a single entry.
	Delete(ctx context.Context, ns, key string) error

	// ClearNamespace removes every entry in the namespace. Returns count removed.
	ClearNamespace(ctx context.Context, ns string) (int64, error)

	// Count returns the number of live entries, optionally per namespace
	// (empty ns counts everything).
	Count(ctx context.Context, ns string) (int64, error)

	// Keys lists up to limit keys in a namespace.
	Keys(ctx context.Context, ns string, limit int) ([]string, error)

	// Stats returns per-namespace entry counts.
	Stats(ctx context.Context) (*Stats, error)

	// Sweep deletes expired rows. Returns count removed.
	Sweep(ctx context.Context) (int64, error)

	Close() error
}
