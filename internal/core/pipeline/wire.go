package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/reports-catalog/internal/common"
	"github.com/joseph-ayodele/reports-catalog/internal/core/llm"
	"github.com/joseph-ayodele/reports-catalog/internal/core/llm/openai"
	"github.com/joseph-ayodele/reports-catalog/internal/core/pdftext"
)

// NewFromConfig wires extractor, OpenAI-backed analyzer, processor and
// orchestrator from the loaded configuration. It fails when the LLM
// settings are incomplete.
func NewFromConfig(cfg *common.Config, store Store, logger *slog.Logger) (*Orchestrator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.ValidateLLM(); err != nil {
		return nil, err
	}
	tuning, err := LoadTuning(cfg.Pipeline.TuningFile)
	if err != nil {
		return nil, err
	}

	extractor := pdftext.NewExtractor(pdftext.Config{
		Pdftotext:      cfg.PDF.Pdftotext,
		EnableFallback: cfg.PDF.EnableFallback,
		ValidatePDF:    cfg.PDF.ValidatePDF,
		MaxPages:       cfg.PDF.MaxPages,
		CommandTimeout: cfg.PDF.CommandTimeout,
	}, logger)

	chat := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	}, logger)
	analyzer, err := llm.NewClient(chat, llm.Config{
		MaxAttempts: cfg.LLM.MaxAttempts,
		BaseDelay:   cfg.LLM.RetryBaseDelay,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("llm client: %w", err)
	}
	logger.Info("pipeline.llm.ready", "model", chat.Model())

	proc := NewProcessor(extractor, analyzer, ProcessorConfig{
		ChunkSize:      cfg.Pipeline.ChunkSize,
		InterCallDelay: cfg.Pipeline.InterCallDelay,
		Tuning:         tuning,
	}, logger)

	return NewOrchestrator(store, proc, Config{
		ReportsRoot:   cfg.Store.ReportsRoot,
		BatchSize:     cfg.Pipeline.BatchSize,
		Workers:       cfg.Pipeline.Workers,
		DocumentDelay: cfg.Pipeline.DocumentDelay,
		Version:       cfg.Pipeline.ProcessingVersion,
	}, logger), nil
}
