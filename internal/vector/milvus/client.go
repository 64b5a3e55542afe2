package milvus

import (
	"context"
	"fmt"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/biomed-agent/backend/pkg/logger"
)

// Client wraps the Milvus collection holding service-manual chunk
// embeddings for evidence retrieval.
type Client struct {
	client         client.Client
	collectionName string
	vectorDim      int
}

// ManualChunk is one embedded fragment of a service manual.
type ManualChunk struct {
	ID             string
	Embedding      []float32
	Text           string
	ManualID       string
	EquipmentModel string
	DocType        string
	Title          string
	Section        string
	Timestamp      time.Time
}

type SearchResult struct {
	ChunkID        string
	Text           string
	ManualID       string
	EquipmentModel string
	DocType        string
	Title          string
	Section        string
	Score          float32
}

func NewClient(endpoint, collectionName string, vectorDim int) (*Client, error) {
	c, err := client.NewGrpcClient(
		context.Background(),
		endpoint,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	logger.Info("Milvus client initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
	)

	return &Client{
		client:         c,
		collectionName: collectionName,
		vectorDim:      vectorDim,
	}, nil
}

func (m *Client) Close() error {
	return m.client.Close()
}

func (m *Client) EnsureCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if has {
		logger.Info("Collection already exists", zap.String("collection", m.collectionName))
		return nil
	}

	schema := &entity.Schema{
		CollectionName: m.collectionName,
		Description:    "Service manual chunk embeddings",
		Fields: []*entity.Field{
			{
				Name:       "chunk_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", m.vectorDim),
				},
			},
			{
				Name:     "text",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "4096",
				},
			},
			{
				Name:     "manual_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "equipment_model",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "128",
				},
			},
			{
				Name:     "doc_type",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "title",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "512",
				},
			},
			{
				Name:     "section",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "256",
				},
			},
			{
				Name:     "timestamp",
				DataType: entity.FieldTypeInt64,
			},
		},
	}

	err = m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexIvfFlat(entity.L2, 1024)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	err = m.client.CreateIndex(ctx, m.collectionName, "embedding", idx, false)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	err = m.client.LoadCollection(ctx, m.collectionName, false)
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	logger.Info("Collection created and loaded", zap.String("collection", m.collectionName))

	return nil
}

func (m *Client) Insert(ctx context.Context, chunks []ManualChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	chunkIDs := make([]string, len(chunks))
	embeddings := make([][]float32, len(chunks))
	texts := make([]string, len(chunks))
	manualIDs := make([]string, len(chunks))
	models := make([]string, len(chunks))
	docTypes := make([]string, len(chunks))
	titles := make([]string, len(chunks))
	sections := make([]string, len(chunks))
	timestamps := make([]int64, len(chunks))

	for i, chunk := range chunks {
		chunkIDs[i] = chunk.ID
		embeddings[i] = chunk.Embedding
		texts[i] = chunk.Text
		manualIDs[i] = chunk.ManualID
		models[i] = chunk.EquipmentModel
		docTypes[i] = chunk.DocType
		titles[i] = chunk.Title
		sections[i] = chunk.Section
		timestamps[i] = chunk.Timestamp.Unix()
	}

	_, err := m.client.Insert(
		ctx,
		m.collectionName,
		"",
		entity.NewColumnVarChar("chunk_id", chunkIDs),
		entity.NewColumnFloatVector("embedding", m.vectorDim, embeddings),
		entity.NewColumnVarChar("text", texts),
		entity.NewColumnVarChar("manual_id", manualIDs),
		entity.NewColumnVarChar("equipment_model", models),
		entity.NewColumnVarChar("doc_type", docTypes),
		entity.NewColumnVarChar("title", titles),
		entity.NewColumnVarChar("section", sections),
		entity.NewColumnInt64("timestamp", timestamps),
	)

	if err != nil {
		return fmt.Errorf("failed to insert chunks: %w", err)
	}

	err = m.client.Flush(ctx, m.collectionName, false)
	if err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	logger.Info("Chunks inserted into vector store", zap.Int("count", len(chunks)))

	return nil
}

// Search runs a top-K similarity query, optionally filtered to one
// equipment model.
func (m *Client) Search(ctx context.Context, queryEmbedding []float32, topK int, equipmentModel string) ([]SearchResult, error) {
	expr := ""
	if equipmentModel != "" {
		expr = fmt.Sprintf(`equipment_model == "%s"`, equipmentModel)
	}

	sp, _ := entity.NewIndexIvfFlatSearchParam(16)

	searchResult, err := m.client.Search(
		ctx,
		m.collectionName,
		[]string{},
		expr,
		[]string{"chunk_id", "text", "manual_id", "equipment_model", "doc_type", "title", "section"},
		[]entity.Vector{entity.FloatVector(queryEmbedding)},
		"embedding",
		entity.L2,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]SearchResult, 0)
	for _, sr := range searchResult {
		for i := 0; i < sr.ResultCount; i++ {
			chunkIDCol := sr.Fields.GetColumn("chunk_id")
			textCol := sr.Fields.GetColumn("text")
			manualIDCol := sr.Fields.GetColumn("manual_id")
			modelCol := sr.Fields.GetColumn("equipment_model")
			docTypeCol := sr.Fields.GetColumn("doc_type")
			titleCol := sr.Fields.GetColumn("title")
			sectionCol := sr.Fields.GetColumn("section")

			chunkID, _ := chunkIDCol.Get(i)
			text, _ := textCol.Get(i)
			manualID, _ := manualIDCol.Get(i)
			model, _ := modelCol.Get(i)
			docType, _ := docTypeCol.Get(i)
			title, _ := titleCol.Get(i)
			section, _ := sectionCol.Get(i)

			results = append(results, SearchResult{
				ChunkID:        chunkID.(string),
				Text:           text.(string),
				ManualID:       manualID.(string),
				EquipmentModel: model.(string),
				DocType:        docType.(string),
				Title:          title.(string),
				Section:        section.(string),
				Score:          sr.Scores[i],
			})
		}
	}

	logger.Debug("Vector search completed",
		zap.Int("topK", topK),
		zap.Int("results", len(results)),
		zap.String("filter", expr),
	)

	return results, nil
}
