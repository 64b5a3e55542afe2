package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/biomed-agent/backend/internal/storage/models"
	"github.com/biomed-agent/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		equipment_model TEXT NOT NULL,
		doc_type TEXT,
		summary TEXT,
		raw_content TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_documents_model ON documents(equipment_model);
	CREATE INDEX IF NOT EXISTS idx_documents_type ON documents(doc_type);

	CREATE TABLE IF NOT EXISTS document_chunks (
		id TEXT PRIMARY KEY,
		doc_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		text TEXT NOT NULL,
		embedding_id TEXT,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (doc_id) REFERENCES documents(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_doc ON document_chunks(doc_id);

	CREATE TABLE IF NOT EXISTS session_history (
		id TEXT PRIMARY KEY,
		equipment_model TEXT NOT NULL,
		equipment_serial TEXT,
		trigger_text TEXT,
		overall_status TEXT NOT NULL,
		primary_cause TEXT,
		confidence REAL,
		recommendation_count INTEGER,
		elapsed_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_model ON session_history(equipment_model);
	CREATE INDEX IF NOT EXISTS idx_sessions_created ON session_history(created_at);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertDocument(doc *models.Document) error {
	query := `
		INSERT INTO documents (id, title, equipment_model, doc_type, summary, raw_content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			summary = excluded.summary,
			raw_content = excluded.raw_content,
			updated_at = excluded.updated_at
	`

	_, err := c.db.Exec(
		query,
		doc.ID,
		doc.Title,
		doc.EquipmentModel,
		doc.DocType,
		doc.Summary,
		doc.RawContent,
		doc.CreatedAt.Unix(),
		doc.UpdatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}

	logger.Debug("Document inserted",
		zap.String("doc_id", doc.ID),
		zap.String("equipment_model", doc.EquipmentModel),
	)
	return nil
}

func (c *Client) GetDocument(id string) (*models.Document, error) {
	query := `SELECT id, title, equipment_model, doc_type, summary, raw_content, created_at, updated_at FROM documents WHERE id = ?`

	var doc models.Document
	var createdAt, updatedAt int64

	err := c.db.QueryRow(query, id).Scan(
		&doc.ID,
		&doc.Title,
		&doc.EquipmentModel,
		&doc.DocType,
		&doc.Summary,
		&doc.RawContent,
		&createdAt,
		&updatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	doc.CreatedAt = time.Unix(createdAt, 0)
	doc.UpdatedAt = time.Unix(updatedAt, 0)

	return &doc, nil
}

func (c *Client) InsertChunk(chunk *models.DocumentChunk) error {
	query := `INSERT INTO document_chunks (id, doc_id, chunk_index, text, embedding_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := c.db.Exec(
		query,
		chunk.ID,
		chunk.DocID,
		chunk.ChunkIndex,
		chunk.Text,
		chunk.EmbeddingID,
		chunk.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert chunk: %w", err)
	}

	return nil
}

func (c *Client) InsertSession(record *models.SessionRecord) error {
	query := `
		INSERT INTO session_history (id, equipment_model, equipment_serial, trigger_text, overall_status,
			primary_cause, confidence, recommendation_count, elapsed_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		record.ID,
		record.EquipmentModel,
		record.EquipmentSerial,
		record.Trigger,
		record.OverallStatus,
		record.PrimaryCause,
		record.Confidence,
		record.RecommendationCount,
		record.ElapsedMS,
		record.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert session record: %w", err)
	}

	logger.Info("Session recorded",
		zap.String("session_id", record.ID),
		zap.String("equipment_model", record.EquipmentModel),
		zap.String("status", record.OverallStatus),
	)

	return nil
}

// GetSessionHistory returns the most recent sessions, optionally filtered
// to one equipment model.
func (c *Client) GetSessionHistory(equipmentModel string, limit int) ([]models.SessionRecord, error) {
	query := `
		SELECT id, equipment_model, equipment_serial, trigger_text, overall_status,
			primary_cause, confidence, recommendation_count, elapsed_ms, created_at
		FROM session_history
	`
	args := []interface{}{}
	if equipmentModel != "" {
		query += ` WHERE equipment_model = ?`
		args = append(args, equipmentModel)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get session history: %w", err)
	}
	defer rows.Close()

	var records []models.SessionRecord
	for rows.Next() {
		var r models.SessionRecord
		var createdAt int64

		err := rows.Scan(
			&r.ID,
			&r.EquipmentModel,
			&r.EquipmentSerial,
			&r.Trigger,
			&r.OverallStatus,
			&r.PrimaryCause,
			&r.Confidence,
			&r.RecommendationCount,
			&r.ElapsedMS,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, r)
	}

	return records, rows.Err()
}
