// Package pdftext pulls plain text out of report PDFs.
package pdftext

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/joseph-ayodele/reports-catalog/internal/common"
)

const (
	MethodNative    = "pdf-native"
	MethodPdftotext = "pdftotext"
)

var ErrNoText = errors.New("no extractable text")

type Config struct {
	Pdftotext      string        // binary name or absolute path; if empty -> "pdftotext"
	EnableFallback bool          // shell out to pdftotext when native extraction finds nothing
	ValidatePDF    bool          // reject files pdfcpu cannot parse
	MaxPages       int           // 0 = no limit
	CommandTimeout time.Duration // per pdftotext invocation
}

type Result struct {
	Text     string
	Pages    int
	Method   string
	Warnings []string
	Duration time.Duration
}

// TextExtractor is what the pipeline depends on.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (Result, error)
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger

	native    func(path string, maxPages int) (string, int, error)
	pageCount func(path string) (int, error)
}

var _ TextExtractor = (*Extractor)(nil)

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 2 * time.Minute
	}
	return &Extractor{
		cfg:       cfg,
		runner:    execRunner{},
		logger:    logger,
		native:    nativeText,
		pageCount: api.PageCountFile,
	}
}

// WithRunner swaps the command runner used for the pdftotext fallback.
func (e *Extractor) WithRunner(r Runner) *Extractor {
	e.runner = r
	return e
}

// Extract returns the normalized text of the PDF at path. Every failure is a
// *common.ExtractionError.
func (e *Extractor) Extract(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	log := common.LoggerFrom(ctx, e.logger).With("path", path)
	log.Debug("pdftext.extract.start")

	res, err := e.extract(ctx, path, log)
	res.Duration = time.Since(start)
	if err != nil {
		log.Error("pdftext.extract.failed", "error", err, "elapsed_ms", res.Duration.Milliseconds())
		return res, &common.ExtractionError{Path: path, Err: err}
	}
	log.Info("pdftext.extract.ok",
		"method", res.Method,
		"pages", res.Pages,
		"chars", len(res.Text),
		"warnings", len(res.Warnings),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (e *Extractor) extract(ctx context.Context, path string, log *slog.Logger) (Result, error) {
	var res Result

	fi, err := os.Stat(path)
	if err != nil {
		return res, err
	}
	if fi.IsDir() {
		return res, fmt.Errorf("%s is a directory", path)
	}

	pages, err := e.pageCount(path)
	switch {
	case err != nil && e.cfg.ValidatePDF:
		return res, fmt.Errorf("invalid pdf: %w", err)
	case err != nil:
		res.Warnings = append(res.Warnings, "page count unavailable: "+err.Error())
	default:
		res.Pages = pages
	}

	text, nativePages, err := e.native(path, e.cfg.MaxPages)
	if err != nil {
		log.Warn("pdftext.native.failed", "error", err)
		res.Warnings = append(res.Warnings, "native extraction: "+err.Error())
	}
	text = Normalize(text)
	if text != "" {
		res.Text, res.Method = text, MethodNative
		if res.Pages == 0 {
			res.Pages = nativePages
		}
		return res, nil
	}

	if !e.cfg.EnableFallback {
		return res, ErrNoText
	}

	log.Info("pdftext.fallback", "cmd", e.cfg.Pdftotext)
	text, cmdPages, warns, err := e.pdfToText(ctx, path)
	res.Warnings = append(res.Warnings, warns...)
	if err != nil {
		return res, fmt.Errorf("pdftotext: %w", err)
	}
	text = Normalize(text)
	if text == "" {
		return res, ErrNoText
	}
	res.Text, res.Method = text, MethodPdftotext
	if res.Pages == 0 {
		res.Pages = cmdPages
	}
	return res, nil
}

func (e *Extractor) pdfToText(ctx context.Context, path string) (string, int, []string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.CommandTimeout)
	defer cancel()

	// pdftotext -layout -enc UTF-8 -eol unix [-l N] <path> -
	args := []string{"-layout", "-enc", "UTF-8", "-eol", "unix"}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	args = append(args, path, "-")

	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, e.logger, args...)
	if err != nil {
		var warns []string
		if s := strings.TrimSpace(string(errb)); s != "" {
			warns = append(warns, s)
		}
		return "", 0, warns, err
	}
	text := string(out)
	// pdftotext terminates every page with a form feed
	pages := strings.Count(text, "\f")
	if pages == 0 && strings.TrimSpace(text) != "" {
		pages = 1
	}
	return text, pages, nil, nil
}

// nativeText reads the text layer page by page. The parser panics on some
// malformed inputs, so a panic is reported as an error.
func nativeText(path string, maxPages int) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	pages = r.NumPage()
	limit := pages
	if maxPages > 0 && maxPages < limit {
		limit = maxPages
	}

	var b strings.Builder
	for i := 1; i <= limit; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		s, perr := p.GetPlainText(nil)
		if perr != nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(s)
	}
	return b.String(), pages, nil
}
