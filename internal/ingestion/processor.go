package ingestion

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/biomed-agent/backend/internal/llm"
	"github.com/biomed-agent/backend/internal/metrics"
	"github.com/biomed-agent/backend/internal/storage/models"
	"github.com/biomed-agent/backend/internal/storage/sqlite"
	"github.com/biomed-agent/backend/internal/vector/milvus"
	"github.com/biomed-agent/backend/pkg/logger"
	"github.com/biomed-agent/backend/pkg/utils"
)

// Processor ingests HTML service manuals: strips markup, chunks the
// text, embeds the chunks and registers everything in SQLite and the
// vector store so evidence retrieval can cite it.
type Processor struct {
	db           *sqlite.Client
	vectorDB     *milvus.Client
	llmClient    *llm.Client
	chunkSize    int
	chunkOverlap int
}

func NewProcessor(db *sqlite.Client, vectorDB *milvus.Client, llmClient *llm.Client) *Processor {
	return &Processor{
		db:           db,
		vectorDB:     vectorDB,
		llmClient:    llmClient,
		chunkSize:    1000,
		chunkOverlap: 100,
	}
}

// ProcessManual ingests one manual. The equipment model is supplied by
// the caller rather than inferred; it scopes evidence retrieval.
func (p *Processor) ProcessManual(ctx context.Context, equipmentModel, docType, htmlContent string) (string, error) {
	logger.Info("Processing service manual", zap.String("equipment_model", equipmentModel))

	cleanedText := p.cleanHTML(htmlContent)
	if cleanedText == "" {
		return "", fmt.Errorf("no content extracted from HTML")
	}

	if docType == "" {
		docType = inferDocType(cleanedText)
	}

	title := p.extractTitle(htmlContent)

	summary, err := p.llmClient.SummarizeManual(ctx, cleanedText[:min(len(cleanedText), 4000)])
	if err != nil {
		logger.Warn("Failed to summarize manual", zap.Error(err))
		summary = "Summary unavailable"
	}

	docID := utils.HashString(equipmentModel + ":" + title)
	doc := &models.Document{
		ID:             docID,
		Title:          title,
		EquipmentModel: equipmentModel,
		DocType:        docType,
		Summary:        summary,
		RawContent:     cleanedText,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	err = p.db.InsertDocument(doc)
	if err != nil {
		return "", fmt.Errorf("failed to insert document: %w", err)
	}

	chunks := p.chunkText(cleanedText)
	logger.Info("Manual chunked", zap.Int("chunks", len(chunks)))

	embeddings, err := p.llmClient.GenerateBatchEmbeddings(ctx, chunks)
	if err != nil {
		return "", fmt.Errorf("failed to generate embeddings: %w", err)
	}

	if len(embeddings) != len(chunks) {
		return "", fmt.Errorf("embedding count mismatch: got %d, expected %d", len(embeddings), len(chunks))
	}

	vectorChunks := make([]milvus.ManualChunk, 0, len(chunks))
	for i, chunkText := range chunks {
		chunkID := fmt.Sprintf("%s_chunk_%d", docID, i)
		vectorChunks = append(vectorChunks, milvus.ManualChunk{
			ID:             chunkID,
			Embedding:      embeddings[i],
			Text:           chunkText,
			ManualID:       docID,
			EquipmentModel: equipmentModel,
			DocType:        docType,
			Title:          title,
			Section:        sectionHeading(chunkText),
			Timestamp:      time.Now(),
		})

		dbChunk := &models.DocumentChunk{
			ID:          chunkID,
			DocID:       docID,
			ChunkIndex:  i,
			Text:        chunkText,
			EmbeddingID: chunkID,
			CreatedAt:   time.Now(),
		}
		if err := p.db.InsertChunk(dbChunk); err != nil {
			logger.Warn("Failed to register chunk", zap.String("chunk_id", chunkID), zap.Error(err))
		}
	}

	if len(vectorChunks) > 0 {
		err = p.vectorDB.Insert(ctx, vectorChunks)
		if err != nil {
			return "", fmt.Errorf("failed to insert into vector store: %w", err)
		}
	}

	metrics.DocumentsProcessed.Inc()

	logger.Info("Manual processed",
		zap.String("doc_id", docID),
		zap.String("equipment_model", equipmentModel),
		zap.Int("chunks", len(vectorChunks)),
	)

	return docID, nil
}

func (p *Processor) cleanHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	doc.Find("script, style, nav, footer, header, aside").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	text := doc.Find("body").Text()

	text = regexp.MustCompile(`\s+`).ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	return text
}

func (p *Processor) extractTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "Untitled"
	}

	title := doc.Find("title").First().Text()
	if title == "" {
		title = doc.Find("h1").First().Text()
	}

	if title == "" {
		title = "Untitled"
	}

	return strings.TrimSpace(title)
}

func inferDocType(text string) string {
	lower := strings.ToLower(text)

	if strings.Contains(lower, "troubleshoot") || strings.Contains(lower, "fault isolation") {
		return "troubleshooting"
	}
	if strings.Contains(lower, "calibration") {
		return "calibration"
	}
	if strings.Contains(lower, "preventive maintenance") {
		return "maintenance"
	}

	return "service_manual"
}

// sectionHeading approximates a section label from the chunk's first
// words; manuals rarely survive HTML stripping with real headings.
func sectionHeading(chunk string) string {
	words := strings.Fields(chunk)
	if len(words) > 8 {
		words = words[:8]
	}
	return strings.Join(words, " ")
}

func (p *Processor) chunkText(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	var currentChunk strings.Builder
	currentSize := 0

	for _, word := range words {
		wordLen := len(word) + 1

		if currentSize+wordLen > p.chunkSize && currentChunk.Len() > 0 {
			chunks = append(chunks, currentChunk.String())

			overlapWords := strings.Fields(currentChunk.String())
			overlapStart := max(0, len(overlapWords)-p.chunkOverlap/10)
			currentChunk.Reset()
			currentChunk.WriteString(strings.Join(overlapWords[overlapStart:], " ") + " ")
			currentSize = currentChunk.Len()
		}

		currentChunk.WriteString(word + " ")
		currentSize += wordLen
	}

	if currentChunk.Len() > 0 {
		chunks = append(chunks, currentChunk.String())
	}

	return chunks
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
