// Package pipeline turns indexed report documents into analyzed ones: it
// decides what needs work, runs extraction and LLM analysis per document, and
// checkpoints results in batches.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/joseph-ayodele/reports-catalog/internal/common"
	"github.com/joseph-ayodele/reports-catalog/internal/core/assess"
	"github.com/joseph-ayodele/reports-catalog/internal/core/chunk"
	"github.com/joseph-ayodele/reports-catalog/internal/core/llm"
	"github.com/joseph-ayodele/reports-catalog/internal/core/merge"
	"github.com/joseph-ayodele/reports-catalog/internal/core/pdftext"
	"github.com/joseph-ayodele/reports-catalog/internal/entity"
	"github.com/joseph-ayodele/reports-catalog/internal/utils"
)

type ProcessorConfig struct {
	ChunkSize      int           // max runes per chunk; default chunk.DefaultMaxChars
	InterCallDelay time.Duration // pause between chunk calls of one document
	Tuning         Tuning

	// Sleep overrides the inter-call pause, for tests.
	Sleep func(context.Context, time.Duration) error
}

// Processor analyzes one document: extract, chunk, assess, analyze each
// chunk in order, merge, and attach data quality.
type Processor struct {
	extractor pdftext.TextExtractor
	analyzer  llm.ChunkAnalyzer
	assessor  *assess.Assessor
	merger    *merge.Merger
	cfg       ProcessorConfig
	logger    *slog.Logger
}

func NewProcessor(extractor pdftext.TextExtractor, analyzer llm.ChunkAnalyzer, cfg ProcessorConfig, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = chunk.DefaultMaxChars
	}
	if cfg.Sleep == nil {
		cfg.Sleep = utils.Sleep
	}
	if cfg.Tuning == (Tuning{}) {
		cfg.Tuning = DefaultTuning()
	}
	return &Processor{
		extractor: extractor,
		analyzer:  analyzer,
		assessor:  assess.NewAssessor(cfg.Tuning.Assess),
		merger:    merge.NewMerger(cfg.Tuning.Merge),
		cfg:       cfg,
		logger:    logger,
	}
}

// Analyze produces the analysis for doc from the PDF at absPath.
func (p *Processor) Analyze(ctx context.Context, doc *entity.Document, absPath string) (entity.Analysis, error) {
	start := time.Now()
	log := common.LoggerFrom(ctx, p.logger).With("doc_id", doc.ID, "title", doc.Title)

	res, err := p.extractor.Extract(ctx, absPath)
	if err != nil {
		return entity.Analysis{}, err
	}
	chunks := chunk.Split(res.Text, p.cfg.ChunkSize)
	ch := p.assessor.Assess(res.Text, res.Pages)
	log.Info("pipeline.document.extracted",
		"pages", res.Pages,
		"chars", len(res.Text),
		"chunks", len(chunks),
		"text_quality", ch.TextQuality,
		"data_intensity", ch.DataIntensity,
		"approach", ch.Approach,
	)

	parts := make([]entity.Analysis, 0, len(chunks))
	for i, text := range chunks {
		if i > 0 {
			if err := p.cfg.Sleep(ctx, p.cfg.InterCallDelay); err != nil {
				return entity.Analysis{}, err
			}
		}
		a, err := p.analyzer.AnalyzeChunk(ctx, llm.ChunkRequest{
			Text:            text,
			Title:           doc.Title,
			Category:        doc.Category,
			Source:          doc.Metadata.Source,
			Year:            doc.Metadata.Year,
			ChunkIndex:      i,
			ChunkCount:      len(chunks),
			Characteristics: ch,
		})
		if err != nil {
			return entity.Analysis{}, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		parts = append(parts, a)
	}

	merged, err := p.merger.Merge(parts)
	if err != nil {
		return entity.Analysis{}, err
	}
	if merged.PageCount == 0 {
		merged.PageCount = res.Pages
	}
	merged.DataQuality = entity.DataQuality{
		TextExtractionQuality: ch.TextQuality,
		DataCompleteness:      math.Min(1, float64(len(merged.Metrics))/20+0.5),
		Confidence:            merged.Confidence,
		ProcessingNotes: []string{
			fmt.Sprintf("Processed %d chunk(s)", len(chunks)),
			"Text quality: " + ch.TextQuality,
			"Approach: " + ch.Approach,
			"Extraction: " + res.Method,
		},
	}
	log.Info("pipeline.document.analyzed",
		"report_type", merged.ReportType,
		"confidence", merged.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return merged, nil
}
