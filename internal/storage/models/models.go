package models

import "time"

// Document is an ingested service manual registered in SQLite; its
// chunk embeddings live in the vector store.
type Document struct {
	ID             string
	Title          string
	EquipmentModel string
	DocType        string
	Summary        string
	RawContent     string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type DocumentChunk struct {
	ID          string
	DocID       string
	ChunkIndex  int
	Text        string
	EmbeddingID string
	CreatedAt   time.Time
}

// SessionRecord is the persisted summary of one diagnostic session.
// The full report is not stored; only what the history endpoint needs.
type SessionRecord struct {
	ID                  string
	EquipmentModel      string
	EquipmentSerial     string
	Trigger             string
	OverallStatus       string
	PrimaryCause        string
	Confidence          float64
	RecommendationCount int
	ElapsedMS           int64
	CreatedAt           time.Time
}
