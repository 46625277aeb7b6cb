// Package store persists derived valuation artifacts. The cache is
// explicit: every entry is keyed by a content hash of the inputs that
// produced it, and invalidation is a deliberate call, never a side
// effect. Postgres (pgx pool) is the primary backend with a file-based
// fallback for local runs.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SnapshotCache stores valuation snapshots (assumptions + results) so
// the dashboard can re-render without recomputing and the assistant can
// reference past runs.
type SnapshotCache struct {
	pool    *pgxpool.Pool
	fileDir string
}

// NewSnapshotCache creates a cache. With a nil pool it falls back to a
// file-based cache under dir; an empty dir defaults to .cache/snapshots.
func NewSnapshotCache(pool *pgxpool.Pool, dir string) *SnapshotCache {
	if pool == nil && dir == "" {
		dir = filepath.Join(".cache", "snapshots")
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Printf("[WARNING] Check SnapshotCache dir: %v\n", err)
		}
	}
	return &SnapshotCache{pool: pool, fileDir: dir}
}

// Snapshot is one cached valuation run.
type Snapshot struct {
	Key       string          `json:"key"`
	Scenario  string          `json:"scenario"`
	Inputs    json.RawMessage `json:"inputs"`
	Result    json.RawMessage `json:"result"`
	CreatedAt time.Time       `json:"created_at"`
}

// ContentKey derives the cache key: a hex SHA-256 over the canonical
// JSON encoding of the inputs. Identical inputs always map to the same
// entry; any change to an assumption produces a new key.
func ContentKey(inputs interface{}) (string, error) {
	encoded, err := json.Marshal(inputs)
	if err != nil {
		return "", fmt.Errorf("encode cache inputs: %w", err)
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}

// Get retrieves a snapshot by key. A miss returns (nil, nil).
func (c *SnapshotCache) Get(ctx context.Context, key string) (*Snapshot, error) {
	if c.pool != nil {
		query := `
			SELECT scenario, inputs, result, created_at
			FROM valuation_snapshots
			WHERE key = $1
			LIMIT 1
		`
		var s Snapshot
		s.Key = key
		err := c.pool.QueryRow(ctx, query, key).Scan(&s.Scenario, &s.Inputs, &s.Result, &s.CreatedAt)
		if err != nil {
			return nil, nil // miss
		}
		return &s, nil
	}

	if c.fileDir != "" {
		return c.loadFromFile(c.keyPath(key))
	}
	return nil, nil
}

// Save stores a snapshot under its content key, replacing any previous
// entry for the same key.
func (c *SnapshotCache) Save(ctx context.Context, s *Snapshot) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}

	if c.pool != nil {
		query := `
			INSERT INTO valuation_snapshots (key, scenario, inputs, result, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (key)
			DO UPDATE SET
				scenario = EXCLUDED.scenario,
				inputs = EXCLUDED.inputs,
				result = EXCLUDED.result,
				created_at = EXCLUDED.created_at
		`
		if _, err := c.pool.Exec(ctx, query, s.Key, s.Scenario, s.Inputs, s.Result, s.CreatedAt); err != nil {
			return fmt.Errorf("save snapshot to db: %w", err)
		}
	}

	if c.fileDir != "" {
		// json.Marshal keeps the RawMessage payloads byte-for-byte;
		// re-indenting them would break the round-trip guarantee.
		encoded, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		if err := os.WriteFile(c.keyPath(s.Key), encoded, 0644); err != nil {
			return fmt.Errorf("save snapshot to file: %w", err)
		}
	}
	return nil
}

// Invalidate removes the entry for a key from every backend. Missing
// entries are not an error.
func (c *SnapshotCache) Invalidate(ctx context.Context, key string) error {
	if c.pool != nil {
		if _, err := c.pool.Exec(ctx, `DELETE FROM valuation_snapshots WHERE key = $1`, key); err != nil {
			return fmt.Errorf("invalidate snapshot in db: %w", err)
		}
	}
	if c.fileDir != "" {
		if err := os.Remove(c.keyPath(key)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("invalidate snapshot file: %w", err)
		}
	}
	return nil
}

// Exists checks whether a key is cached.
func (c *SnapshotCache) Exists(ctx context.Context, key string) bool {
	if c.pool != nil {
		var one int
		if err := c.pool.QueryRow(ctx, `SELECT 1 FROM valuation_snapshots WHERE key = $1 LIMIT 1`, key).Scan(&one); err == nil {
			return true
		}
	}
	if c.fileDir != "" {
		if _, err := os.Stat(c.keyPath(key)); err == nil {
			return true
		}
	}
	return false
}

func (c *SnapshotCache) keyPath(key string) string {
	return filepath.Join(c.fileDir, key+".json")
}

func (c *SnapshotCache) loadFromFile(path string) (*Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil // miss
	}
	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return &s, nil
}
