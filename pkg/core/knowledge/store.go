package knowledge

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore implements Store with in-memory storage. It backs the
// assistant in single-process deployments; nothing in it survives a
// restart, which is fine because assets are re-indexed on startup.
type MemoryStore struct {
	mu     sync.RWMutex
	assets map[string]*Asset
	chunks map[string]*Chunk // chunkID -> Chunk
}

// NewMemoryStore creates a new in-memory knowledge store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assets: make(map[string]*Asset),
		chunks: make(map[string]*Chunk),
	}
}

// CreateAsset stores a new knowledge asset
func (s *MemoryStore) CreateAsset(asset *Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.assets[asset.ID]; exists {
		return fmt.Errorf("asset '%s' already exists", asset.ID)
	}
	s.assets[asset.ID] = asset
	for i := range asset.Chunks {
		s.chunks[asset.Chunks[i].ID] = &asset.Chunks[i]
	}
	return nil
}

// GetAsset retrieves an asset by ID
func (s *MemoryStore) GetAsset(id string) (*Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	asset, ok := s.assets[id]
	if !ok {
		return nil, fmt.Errorf("asset '%s' not found", id)
	}
	return asset, nil
}

// UpdateAsset updates an existing asset
func (s *MemoryStore) UpdateAsset(asset *Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.assets[asset.ID]; !exists {
		return fmt.Errorf("asset '%s' not found", asset.ID)
	}
	s.assets[asset.ID] = asset
	return nil
}

// DeleteAsset removes an asset and its chunks
func (s *MemoryStore) DeleteAsset(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	asset, ok := s.assets[id]
	if !ok {
		return fmt.Errorf("asset '%s' not found", id)
	}

	for _, chunk := range asset.Chunks {
		delete(s.chunks, chunk.ID)
	}

	delete(s.assets, id)
	return nil
}

// ListAssetsByTicker returns all assets tagged with a ticker
func (s *MemoryStore) ListAssetsByTicker(ticker string) ([]*Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*Asset
	for _, asset := range s.assets {
		if strings.EqualFold(asset.Ticker, ticker) {
			results = append(results, asset)
		}
	}
	return results, nil
}

// ListAssetsByType returns all assets of a specific type
func (s *MemoryStore) ListAssetsByType(assetType AssetType) ([]*Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*Asset
	for _, asset := range s.assets {
		if asset.Type == assetType {
			results = append(results, asset)
		}
	}
	return results, nil
}

// AddChunks adds chunks to an asset
func (s *MemoryStore) AddChunks(assetID string, chunks []Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	asset, ok := s.assets[assetID]
	if !ok {
		return fmt.Errorf("asset '%s' not found", assetID)
	}

	for i := range chunks {
		chunks[i].AssetID = assetID
		if chunks[i].ID == "" {
			chunks[i].ID = uuid.NewString()
		}
		asset.Chunks = append(asset.Chunks, chunks[i])
		s.chunks[chunks[i].ID] = &asset.Chunks[len(asset.Chunks)-1]
	}
	return nil
}

// GetChunks returns all chunks for an asset
func (s *MemoryStore) GetChunks(assetID string) ([]Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	asset, ok := s.assets[assetID]
	if !ok {
		return nil, fmt.Errorf("asset '%s' not found", assetID)
	}
	return asset.Chunks, nil
}

// SearchChunks performs simple case-insensitive substring search across
// all indexed chunks. Good enough for the assistant's citation needs at
// dashboard scale; a vector index would replace this, not wrap it.
func (s *MemoryStore) SearchChunks(query string, limit int) ([]Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	queryLower := strings.ToLower(query)
	var results []Chunk

	for _, chunk := range s.chunks {
		if strings.Contains(strings.ToLower(chunk.Content), queryLower) {
			results = append(results, *chunk)
			if len(results) >= limit {
				break
			}
		}
	}
	return results, nil
}
