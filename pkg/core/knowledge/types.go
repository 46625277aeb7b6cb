// Package knowledge holds the assistant's document base: price history
// files, research notes and web pages indexed as chunked assets the
// chat agent retrieves from when answering questions about a ticker.
package knowledge

import (
	"time"

	"github.com/google/uuid"
)

// AssetType defines the category of a knowledge asset
type AssetType string

const (
	AssetCSV    AssetType = "CSV"    // Price history files loaded into the dashboard
	AssetReport AssetType = "REPORT" // Research reports and analyst notes
	AssetWeb    AssetType = "WEB"    // Ingested web pages (exchange announcements etc.)
	AssetNote   AssetType = "NOTE"   // User-written notes and saved chat answers
)

// AssetStatus tracks the processing state of an asset
type AssetStatus string

const (
	StatusPending    AssetStatus = "PENDING"    // Awaiting processing
	StatusProcessing AssetStatus = "PROCESSING" // Currently being parsed
	StatusIndexed    AssetStatus = "INDEXED"    // Successfully indexed for retrieval
	StatusError      AssetStatus = "ERROR"      // Processing failed
)

// Asset represents one document in the assistant's knowledge base.
type Asset struct {
	ID     string      `json:"id"`
	Type   AssetType   `json:"type"`
	Name   string      `json:"name"`   // e.g. "PKME Q2 update.md"
	Source string      `json:"source"` // URL or local path
	Status AssetStatus `json:"status"`

	// Ticker the asset is about, when it is about one.
	Ticker string `json:"ticker,omitempty"`

	// Parsed content for retrieval
	Chunks []Chunk `json:"chunks,omitempty"`

	IsIndexed bool `json:"is_indexed"`

	UploadedAt  time.Time  `json:"uploaded_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ChunkType identifies the content type of a chunk
type ChunkType string

const (
	ChunkParagraph ChunkType = "PARAGRAPH" // Regular text
	ChunkTable     ChunkType = "TABLE"     // Tabular data rendered as markdown
	ChunkHeader    ChunkType = "HEADER"    // Section header
)

// Chunk represents a semantic unit within an asset, used for retrieval
// and citation in assistant answers.
type Chunk struct {
	ID      string    `json:"id"`
	AssetID string    `json:"asset_id"`
	Type    ChunkType `json:"type"`

	Content string `json:"content"` // Markdown text

	// Section context, e.g. "Valuation", "Risks"
	Section string `json:"section,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Store defines the interface for asset storage and retrieval
type Store interface {
	// Asset CRUD
	CreateAsset(asset *Asset) error
	GetAsset(id string) (*Asset, error)
	UpdateAsset(asset *Asset) error
	DeleteAsset(id string) error

	// Query assets
	ListAssetsByTicker(ticker string) ([]*Asset, error)
	ListAssetsByType(assetType AssetType) ([]*Asset, error)

	// Chunk operations
	AddChunks(assetID string, chunks []Chunk) error
	GetChunks(assetID string) ([]Chunk, error)

	// Search (keyword retrieval for the chat agent)
	SearchChunks(query string, limit int) ([]Chunk, error)
}

// NewAsset creates a new asset with default values
func NewAsset(name string, assetType AssetType, source string) *Asset {
	now := time.Now()
	return &Asset{
		ID:         uuid.NewString(),
		Type:       assetType,
		Name:       name,
		Source:     source,
		Status:     StatusPending,
		UploadedAt: now,
		UpdatedAt:  now,
		Metadata:   make(map[string]interface{}),
	}
}

// MarkAsProcessed updates asset status after successful processing
func (a *Asset) MarkAsProcessed() {
	now := time.Now()
	a.Status = StatusIndexed
	a.ProcessedAt = &now
	a.UpdatedAt = now
	a.IsIndexed = true
}

// MarkAsError updates asset status after processing failure
func (a *Asset) MarkAsError(errMsg string) {
	a.Status = StatusError
	a.UpdatedAt = time.Now()
	if a.Metadata == nil {
		a.Metadata = make(map[string]interface{})
	}
	a.Metadata["error"] = errMsg
}

// AddChunk appends a chunk to the asset
func (a *Asset) AddChunk(chunk Chunk) {
	chunk.AssetID = a.ID
	if chunk.ID == "" {
		chunk.ID = uuid.NewString()
	}
	chunk.CreatedAt = time.Now()
	a.Chunks = append(a.Chunks, chunk)
}
