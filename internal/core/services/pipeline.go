package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/ports/driven"
	"github.com/tamil-acog/aganitha-chatbot/internal/logger"
)

// Stage names reported in StageErrors.
const (
	StageExtract = "extract"
	StageChunk   = "chunk"
	StageEmbed   = "embed"
	StageIndex   = "index"
)

// Retry timing for embedding and index calls.
const (
	DefaultRetryInitial = 500 * time.Millisecond
	DefaultRetryMax     = 10 * time.Second
)

// Pipeline runs one ingestion pass over the configured sources.
type Pipeline struct {
	run      domain.RunConfig
	sources  []driven.Extractor
	chunker  driven.PostProcessorPipeline
	embedder driven.EmbeddingService
	builder  driven.IndexBuilder

	newBackOff func() backoff.BackOff
	now        func() time.Time
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithBackOff replaces the retry schedule. MaxRetries still applies.
func WithBackOff(fn func() backoff.BackOff) PipelineOption {
	return func(p *Pipeline) { p.newBackOff = fn }
}

// WithClock sets the time source for report timestamps.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline creates a pipeline. Sources run in the order given.
func NewPipeline(
	cfg domain.PipelineConfig,
	sources []driven.Extractor,
	chunker driven.PostProcessorPipeline,
	embedder driven.EmbeddingService,
	builder driven.IndexBuilder,
	opts ...PipelineOption,
) (*Pipeline, error) {
	switch {
	case chunker == nil:
		return nil, domain.ConfigError("pipeline: chunker is required")
	case embedder == nil:
		return nil, domain.ConfigError("pipeline: embedder is required")
	case builder == nil:
		return nil, domain.ConfigError("pipeline: index builder is required")
	}

	run := cfg.Pipeline
	if run.EmbedBatchSize <= 0 {
		run.EmbedBatchSize = domain.DefaultEmbedBatchSize
	}
	switch {
	case run.MaxRetries == 0:
		run.MaxRetries = domain.DefaultMaxRetries
	case run.MaxRetries < 0:
		run.MaxRetries = 0
	}

	p := &Pipeline{
		run:      run,
		sources:  sources,
		chunker:  chunker,
		embedder: embedder,
		builder:  builder,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = DefaultRetryInitial
			b.MaxInterval = DefaultRetryMax
			b.MaxElapsedTime = 0
			return b
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// extraction is the outcome of one extractor.
type extraction struct {
	report domain.SourceReport
	docs   []domain.Document
	err    error
}

// Run executes extract, chunk, embed and index. The report is returned
// even on failure and reflects the work done so far.
func (p *Pipeline) Run(ctx context.Context) (*domain.RunReport, error) {
	report := &domain.RunReport{StartedAt: p.now(), IndexState: p.builder.State()}
	defer func() {
		report.FinishedAt = p.now()
		report.IndexState = p.builder.State()
	}()

	logger.Section("Extract")
	docs, err := p.extract(ctx, report)
	if err != nil {
		return report, err
	}
	report.Documents = len(docs)

	logger.Section("Chunk")
	chunks, err := p.chunker.ProcessAll(ctx, docs)
	if err != nil {
		return report, domain.NewStageError(StageChunk, "", domain.ErrInvalidInput, err)
	}
	report.Chunks = len(chunks)
	logger.Info("%d documents split into %d chunks", len(docs), len(chunks))

	logger.Section("Embed and index")
	if err := p.index(ctx, chunks); err != nil {
		return report, err
	}

	logger.Info("index %s with %d chunks", p.builder.State(), p.builder.Len())
	return report, nil
}

func (p *Pipeline) extract(ctx context.Context, report *domain.RunReport) ([]domain.Document, error) {
	var results []extraction
	var err error
	if p.run.Concurrent {
		results, err = p.extractConcurrent(ctx)
	} else {
		results, err = p.extractSequential(ctx)
	}

	var docs []domain.Document
	for _, r := range results {
		report.Sources = append(report.Sources, r.report)
		docs = append(docs, r.docs...)
	}
	return docs, err
}

func (p *Pipeline) extractSequential(ctx context.Context) ([]extraction, error) {
	results := make([]extraction, 0, len(p.sources))
	for _, src := range p.sources {
		r := p.runExtractor(ctx, src)
		results = append(results, r)
		if r.err != nil {
			return results, r.err
		}
	}
	return results, nil
}

// extractConcurrent runs every extractor at once and merges the results
// in source order. The first fatal error cancels the others.
func (p *Pipeline) extractConcurrent(ctx context.Context) ([]extraction, error) {
	for _, src := range p.sources {
		prep, ok := src.(driven.Preparer)
		if !ok {
			continue
		}
		if err := prep.Prepare(ctx); err != nil {
			return nil, domain.NewStageError(StageExtract, src.Name(), kindOf(err), err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]extraction, len(p.sources))
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for i, src := range p.sources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = p.runExtractor(ctx, src)
			if results[i].err != nil {
				once.Do(func() {
					firstErr = results[i].err
					cancel()
				})
			}
		}()
	}
	wg.Wait()

	return results, firstErr
}

// runExtractor runs one extractor. Only configuration, authentication and
// cancellation errors are returned; anything else is recorded as a
// failure of the whole source and the run continues.
func (p *Pipeline) runExtractor(ctx context.Context, src driven.Extractor) extraction {
	name := src.Name()
	start := p.now()
	logger.Info("extracting %s", name)

	docs, err := src.Extract(ctx)
	r := extraction{
		docs: docs,
		report: domain.SourceReport{
			Name:      name,
			Documents: len(docs),
			Failures:  src.Failures(),
		},
	}
	r.report.Duration = p.now().Sub(start)

	if err != nil {
		if fatal(ctx, err) {
			r.err = domain.NewStageError(StageExtract, name, kindOf(err), err)
			return r
		}
		logger.Warn("%s: %v", name, err)
		r.report.Failures = append(r.report.Failures, domain.Failure{Stage: name, Item: name, Err: err})
	}

	logger.Info("%s: %d documents, %d skipped", name, len(docs), len(r.report.Failures))
	return r
}

// index embeds chunks in batches and feeds them to the builder, then
// builds and persists. Embedding, Build and Persist are retried; Add is
// not, since a failed Add may have partially applied.
func (p *Pipeline) index(ctx context.Context, chunks []domain.Chunk) error {
	size := p.run.EmbedBatchSize
	for start := 0; start < len(chunks); start += size {
		end := min(start+size, len(chunks))
		batch := chunks[start:end]
		item := fmt.Sprintf("chunks %d-%d", start, end-1)

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		var vectors [][]float32
		err := p.retry(ctx, "embed "+item, func() error {
			var err error
			vectors, err = p.embedder.EmbedBatch(ctx, texts)
			return err
		})
		if err != nil {
			return domain.NewStageError(StageEmbed, item, domain.ErrEmbeddingBackend, err)
		}
		if len(vectors) != len(batch) {
			return domain.NewStageError(StageEmbed, item, domain.ErrEmbeddingBackend,
				fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(batch)))
		}

		if err := p.builder.Add(ctx, batch, vectors); err != nil {
			return domain.NewStageError(StageIndex, item, kindOf(err), err)
		}
		logger.Debug("indexed %s", item)
	}

	if err := p.retry(ctx, "build index", func() error { return p.builder.Build(ctx) }); err != nil {
		return domain.NewStageError(StageIndex, "build", kindOf(err), err)
	}
	if err := p.retry(ctx, "persist index", func() error { return p.builder.Persist(ctx) }); err != nil {
		return domain.NewStageError(StageIndex, "persist", kindOf(err), err)
	}
	return nil
}

// retry runs op with exponential backoff up to MaxRetries extra attempts.
// Errors that cannot succeed on retry stop immediately.
func (p *Pipeline) retry(ctx context.Context, what string, op func() error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(p.newBackOff(), uint64(p.run.MaxRetries)), ctx)

	return backoff.RetryNotify(func() error {
		err := op()
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, wait time.Duration) {
		logger.Warn("%s failed, retrying in %s: %v", what, wait, err)
	})
}

// fatal reports whether an extractor error must abort the run.
func fatal(ctx context.Context, err error) bool {
	return errors.Is(err, domain.ErrConfiguration) ||
		errors.Is(err, domain.ErrAuthentication) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		ctx.Err() != nil
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, domain.ErrConfiguration),
		errors.Is(err, domain.ErrAuthentication),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	default:
		return true
	}
}

// kindOf maps err onto the taxonomy sentinel it wraps.
func kindOf(err error) error {
	for _, kind := range []error{
		domain.ErrConfiguration,
		domain.ErrAuthentication,
		domain.ErrSourceFetch,
		domain.ErrEmbeddingBackend,
		domain.ErrIndexBackend,
		domain.ErrInvalidState,
		domain.ErrInvalidInput,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
