package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Benaah/amaniquery-sub002/internal/agent"
	"github.com/Benaah/amaniquery-sub002/internal/domain"
	"github.com/Benaah/amaniquery-sub002/internal/logger"
	"github.com/Benaah/amaniquery-sub002/internal/repository"
	"github.com/Benaah/amaniquery-sub002/internal/storage"
	"github.com/google/uuid"
)

// ErrUnprocessable marks input failures that can never succeed on retry.
// Entries failing this way are acknowledged rather than left for redelivery.
var ErrUnprocessable = errors.New("unprocessable document")

var (
	// ErrEmptyText indicates the payload carried no text
	ErrEmptyText = fmt.Errorf("%w: empty text", ErrUnprocessable)

	// ErrTextTooShort indicates the text is below the configured minimum
	ErrTextTooShort = fmt.Errorf("%w: text below minimum length", ErrUnprocessable)
)

// DocumentStore is the relational persistence surface the pipeline needs.
type DocumentStore interface {
	UpsertDocument(ctx context.Context, doc *domain.Document) error
	UpsertAnalysisResult(ctx context.Context, res *domain.AnalysisResult) error
}

// VectorStore is the vector persistence surface the pipeline needs.
type VectorStore interface {
	Upsert(ctx context.Context, pointID string, vector []float32, payload *repository.DocumentPayload) error
}

// Embedder computes fixed-dimension vectors from text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// Pipeline sequences pre-processing, the parallel analysis fan-out,
// high-level analysis, embedding and persistence for one document.
type Pipeline struct {
	docStore    DocumentStore
	vectorStore VectorStore
	objects     storage.ObjectStorage
	agents      *agent.Suite
	exec        *agent.Executor
	embedder    Embedder
	logger      *logger.Logger
	minTextLen  int
}

// PipelineConfig holds configuration for the pipeline
type PipelineConfig struct {
	MinTextLength int
}

// NewPipeline creates a new pipeline
func NewPipeline(
	docStore DocumentStore,
	vectorStore VectorStore,
	objects storage.ObjectStorage,
	agents *agent.Suite,
	exec *agent.Executor,
	embedder Embedder,
	log *logger.Logger,
	cfg *PipelineConfig,
) *Pipeline {
	minTextLen := cfg.MinTextLength
	if minTextLen <= 0 {
		minTextLen = 1
	}
	return &Pipeline{
		docStore:    docStore,
		vectorStore: vectorStore,
		objects:     objects,
		agents:      agents,
		exec:        exec,
		embedder:    embedder,
		logger:      log,
		minTextLen:  minTextLen,
	}
}

// log returns a logger from context if available, otherwise the default
func (p *Pipeline) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return p.logger
}

// ProcessEntry runs the full pipeline for one stream entry.
//
// A nil return or an error matching ErrUnprocessable means the entry is done
// and must be acknowledged. Any other error is a store-level fault: the entry
// stays pending and relies on redelivery or recovery.
func (p *Pipeline) ProcessEntry(ctx context.Context, entry *domain.StreamEntry) error {
	start := time.Now()

	payload, err := p.fetchPayload(ctx, entry)
	if err != nil {
		return err
	}

	text := strings.TrimSpace(payload.Text)
	if text == "" {
		return ErrEmptyText
	}
	if len([]rune(text)) < p.minTextLen {
		return ErrTextTooShort
	}

	docURL := payload.URL
	if docURL == "" {
		docURL = entry.ObjectKey
	}

	source := payload.Source
	if source == "" {
		source = entry.Source
	}

	metadata := map[string]interface{}{
		"url":      docURL,
		"source":   source,
		"entry_id": entry.ID,
	}

	// Pre-processing runs sequentially: the normalized text feeds every
	// later stage
	langResult := p.exec.Execute(ctx, p.agents.Language, text, metadata)
	if lang := langResult.String(agent.KeyLanguage); lang != "" {
		metadata[agent.KeyLanguage] = lang
	}

	slangResult := p.exec.Execute(ctx, p.agents.Slang, text, metadata)
	normalized := text
	if s := slangResult.String(agent.KeyNormalizedText); s != "" {
		normalized = s
	}

	parallelResults := p.fanOut(ctx, normalized, metadata)

	// High-level stages run sequentially: the summary feeds the embedding
	biasResult := p.exec.Execute(ctx, p.agents.Bias, normalized, metadata)
	summaryResult := p.exec.Execute(ctx, p.agents.Summary, normalized, metadata)
	qualityResult := p.exec.Execute(ctx, p.agents.Quality, normalized, metadata)

	summaryText := summaryResult.String(agent.KeySummary)

	vector := p.embed(ctx, normalized, summaryText)

	results := make([]*agent.Result, 0, 9)
	results = append(results, langResult, slangResult)
	results = append(results, parallelResults...)
	results = append(results, biasResult, summaryResult, qualityResult)

	doc := &domain.Document{
		ID:                uuid.NewSHA1(uuid.NameSpaceURL, []byte(docURL)).String(),
		URL:               docURL,
		RawContent:        payload.Text,
		NormalizedContent: normalized,
		SourceDomain:      sourceDomain(docURL, source),
		PublishedAt:       payload.PublishedAt,
		CreatedAt:         time.Now(),
	}

	if err := p.persist(ctx, doc, results, vector, langResult, summaryText); err != nil {
		return err
	}

	succeeded := 0
	for _, res := range results {
		if !res.Failed() {
			succeeded++
		}
	}

	p.log(ctx).WithFields(logger.Fields{
		logger.FieldEntryID:    entry.ID,
		logger.FieldDocumentID: doc.ID,
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
		"agents_succeeded":     succeeded,
		"agents_failed":        len(results) - succeeded,
	}).Info("Document processed")

	return nil
}

// fetchPayload pulls the raw JSON blob from the object store. Store faults
// are retryable; a payload that fails to decode never will be, so it is
// classified as unprocessable.
func (p *Pipeline) fetchPayload(ctx context.Context, entry *domain.StreamEntry) (*domain.RawPayload, error) {
	reader, err := p.objects.Download(ctx, entry.ObjectKey)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payload %s: %w", entry.ObjectKey, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload %s: %w", entry.ObjectKey, err)
	}

	var payload domain.RawPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: invalid payload JSON: %v", ErrUnprocessable, err)
	}

	return &payload, nil
}

// fanOut runs the four independent analysis agents concurrently. Each branch
// writes its outcome into its own slot; a failing branch never cancels its
// siblings.
func (p *Pipeline) fanOut(ctx context.Context, text string, metadata map[string]interface{}) []*agent.Result {
	agents := []agent.Agent{
		p.agents.Topic,
		p.agents.Entities,
		p.agents.Sentiment,
		p.agents.Emotion,
	}

	results := make([]*agent.Result, len(agents))
	var wg sync.WaitGroup
	for i, a := range agents {
		wg.Add(1)
		go func(i int, a agent.Agent) {
			defer wg.Done()
			results[i] = p.exec.Execute(ctx, a, text, metadata)
		}(i, a)
	}
	wg.Wait()

	return results
}

// embed computes the document vector from normalized text and summary.
// Embedding is not allowed to sink an otherwise-successful analysis: on
// failure a zero vector is substituted.
func (p *Pipeline) embed(ctx context.Context, normalized, summary string) []float32 {
	input := normalized
	if summary != "" {
		input = normalized + "\n\n" + summary
	}

	vector, err := p.embedder.Embed(ctx, input)
	if err != nil {
		p.log(ctx).WithError(err).Warn("Embedding failed, substituting zero vector")
		return make([]float32, p.embedder.Dimensions())
	}
	return vector
}

// persist writes the document, its successful analysis results, and the
// vector record. Relational writes go first so a vector record never exists
// without a backing document.
func (p *Pipeline) persist(ctx context.Context, doc *domain.Document, results []*agent.Result, vector []float32, langResult *agent.Result, summary string) error {
	if err := p.docStore.UpsertDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	for _, res := range results {
		if res.Failed() {
			p.log(ctx).WithFields(logger.Fields{
				logger.FieldDocumentID: doc.ID,
				logger.FieldAgentID:    res.AgentID,
			}).WithField("agent_error", res.Err).Warn("Agent failed, omitting result")
			continue
		}

		record := &domain.AnalysisResult{
			DocumentID:      doc.ID,
			AgentID:         res.AgentID,
			ResultJSON:      domain.JSONMap(res.Payload),
			ModelVersion:    res.ModelVersion,
			ExecutionTimeMs: res.ExecutionTimeMs,
			CreatedAt:       time.Now(),
		}
		if err := p.docStore.UpsertAnalysisResult(ctx, record); err != nil {
			return fmt.Errorf("failed to upsert analysis result %s: %w", res.AgentID, err)
		}
	}

	vectorPayload := &repository.DocumentPayload{
		DocumentID:   doc.ID,
		URL:          doc.URL,
		SourceDomain: doc.SourceDomain,
		Language:     langResult.String(agent.KeyLanguage),
		Summary:      summary,
	}

	if err := p.vectorStore.Upsert(ctx, doc.ID, vector, vectorPayload); err != nil {
		return fmt.Errorf("failed to upsert vector: %w", err)
	}

	return nil
}

// sourceDomain extracts the host from the document URL, falling back to the
// declared source when the URL does not parse.
func sourceDomain(rawURL, source string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		return u.Host
	}
	return source
}
