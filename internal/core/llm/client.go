package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/reports-catalog/internal/common"
	"github.com/joseph-ayodele/reports-catalog/internal/entity"
	"github.com/joseph-ayodele/reports-catalog/internal/utils"
)

// Config for the analysis client.
type Config struct {
	MaxAttempts int               // default 3
	BaseDelay   time.Duration     // default 2s; wait after attempt n is Backoff(BaseDelay, n)
	Backoff     utils.BackoffFunc // default linear

	// Sleep overrides the retry wait, for tests.
	Sleep func(context.Context, time.Duration) error
}

// Client turns one text chunk into a validated Analysis using an injected ChatCompleter.
type Client struct {
	chat   ChatCompleter
	cfg    Config
	schema *jsonschema.Schema
	logger *slog.Logger
}

func NewClient(chat ChatCompleter, cfg Config, logger *slog.Logger) (*Client, error) {
	if chat == nil {
		return nil, errors.New("llm: chat completer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 2 * time.Second
	}
	if cfg.Backoff == nil {
		cfg.Backoff = utils.LinearBackoff
	}
	schema, err := CompileSchema(BuildAnalysisJSONSchema())
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	return &Client{chat: chat, cfg: cfg, schema: schema, logger: logger}, nil
}

// AnalyzeChunk sends the chunk prompt and parses the reply, retrying any
// failure (transport or parse) with increasing delay. After the last attempt
// it returns an *common.AnalysisError wrapping the final cause.
func (c *Client) AnalyzeChunk(ctx context.Context, req ChunkRequest) (entity.Analysis, error) {
	rid := uuid.New().String()
	start := time.Now()
	log := common.LoggerFrom(ctx, c.logger).With("req_id", rid, "title", req.Title, "chunk", req.ChunkIndex+1, "chunks", req.ChunkCount)
	prompt := BuildPrompt(req)

	log.Info("llm.analyze.start", "text_len", len(req.Text), "prompt_len", len(prompt))

	var out entity.Analysis
	attempts, err := utils.Retry(ctx, utils.RetryPolicy{
		MaxAttempts: c.cfg.MaxAttempts,
		BaseDelay:   c.cfg.BaseDelay,
		Backoff:     c.cfg.Backoff,
		Sleep:       c.cfg.Sleep,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			log.Warn("llm.analyze.retry", "attempt", attempt, "delay_ms", delay.Milliseconds(), "error", err)
		},
	}, func(ctx context.Context, attempt int) error {
		reply, err := c.chat.Complete(ctx, prompt)
		if err != nil {
			return fmt.Errorf("completion: %w", err)
		}
		a, err := c.parse(reply, log)
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		log.Error("llm.analyze.failed", "attempts", attempts, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return entity.Analysis{}, &common.AnalysisError{Attempts: attempts, Err: err}
	}

	log.Info("llm.analyze.ok",
		"attempts", attempts,
		"report_type", out.ReportType,
		"sentiment", out.Sentiment,
		"confidence", out.Confidence,
		"findings", len(out.KeyFindings),
		"metrics", len(out.Metrics),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// parse extracts, sanitizes, validates and decodes one reply. Every failure is a ParseError.
func (c *Client) parse(reply string, log *slog.Logger) (entity.Analysis, error) {
	obj, ok := ExtractJSONObject(reply)
	if !ok {
		return entity.Analysis{}, &common.ParseError{Reason: "no JSON object in response", Raw: utils.Truncate(reply, 500)}
	}
	cleaned, _, err := NormalizeAndSanitizeJSON([]byte(obj), log)
	if err != nil {
		return entity.Analysis{}, &common.ParseError{Reason: "invalid JSON", Raw: utils.Truncate(obj, 500), Err: err}
	}
	if err := ValidateJSON(c.schema, cleaned); err != nil {
		log.Warn("llm.analyze.schema_validation_failed", "error", err)
		return entity.Analysis{}, &common.ParseError{Reason: "schema validation failed", Raw: utils.Truncate(string(cleaned), 500), Err: err}
	}
	var a entity.Analysis
	if err := json.Unmarshal(cleaned, &a); err != nil {
		return entity.Analysis{}, &common.ParseError{Reason: "decode analysis", Err: err}
	}
	return a, nil
}
