package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/reports-catalog/constants"
	"github.com/joseph-ayodele/reports-catalog/internal/common"
	"github.com/joseph-ayodele/reports-catalog/internal/entity"
	"github.com/joseph-ayodele/reports-catalog/internal/ingest"
	"github.com/joseph-ayodele/reports-catalog/internal/repository"
	"github.com/joseph-ayodele/reports-catalog/internal/utils"
)

// Store is the persistence the orchestrator needs.
type Store interface {
	repository.DocumentStore
	repository.RecordStore
}

// Analyzer is satisfied by *Processor.
type Analyzer interface {
	Analyze(ctx context.Context, doc *entity.Document, absPath string) (entity.Analysis, error)
}

type Config struct {
	ReportsRoot   string        // document file paths are relative to it
	BatchSize     int           // documents per checkpoint; default 10
	Workers       int           // concurrent documents within a batch; default 1
	DocumentDelay time.Duration // pause between documents when Workers == 1
	Version       string        // processing version; default constants.ProcessingVersion

	Now   func() time.Time
	Sleep func(context.Context, time.Duration) error
}

type Orchestrator struct {
	store    Store
	analyzer Analyzer
	cfg      Config
	logger   *slog.Logger

	claimMu sync.Mutex
	claims  map[string]entity.Document // state before Claim, by document id
}

func NewOrchestrator(store Store, analyzer Analyzer, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Version == "" {
		cfg.Version = constants.ProcessingVersion
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Sleep == nil {
		cfg.Sleep = utils.Sleep
	}
	return &Orchestrator{
		store:    store,
		analyzer: analyzer,
		cfg:      cfg,
		logger:   logger,
		claims:   make(map[string]entity.Document),
	}
}

type RunOptions struct {
	DryRun bool
}

type Failure struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Error string `json:"error"`
}

type Planned struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	FilePath string `json:"filePath"`
}

type Summary struct {
	RunID     string        `json:"runId"`
	DryRun    bool          `json:"dryRun"`
	Selected  int           `json:"selected"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Failures  []Failure     `json:"failures,omitempty"`
	Planned   []Planned     `json:"planned,omitempty"`
	Duration  time.Duration `json:"duration"`
}

type outcome int

const (
	outcomeSucceeded outcome = iota
	outcomeFailed
	outcomeSkipped
)

// Run processes the selected documents in batches, checkpointing after each.
// Per-document failures are recorded and never abort the run; a failed
// checkpoint or record write returns a *common.PersistenceError.
func (o *Orchestrator) Run(ctx context.Context, sel Selection, opts RunOptions) (Summary, error) {
	start := time.Now()
	sum := Summary{RunID: uuid.NewString(), DryRun: opts.DryRun}
	ctx = common.WithRunID(ctx, sum.RunID)
	log := common.LoggerFrom(ctx, o.logger)

	docs, err := o.store.List(ctx)
	if err != nil {
		return sum, common.NewPersistenceError("load documents", err)
	}
	selected := sel.Apply(docs)
	sum.Selected = len(selected)
	log.Info("pipeline.run.start",
		"documents", len(docs),
		"selected", len(selected),
		"batch_size", o.cfg.BatchSize,
		"workers", o.cfg.Workers,
		"force", sel.Force,
		"dry_run", opts.DryRun,
	)

	if opts.DryRun {
		for _, d := range selected {
			skip, err := o.unchanged(ctx, d, sel.Force)
			if err != nil {
				sum.Duration = time.Since(start)
				return sum, err
			}
			if skip {
				sum.Skipped++
				continue
			}
			sum.Planned = append(sum.Planned, Planned{ID: d.ID, Title: d.Title, FilePath: d.FilePath})
		}
		sum.Duration = time.Since(start)
		return sum, nil
	}

	var mu sync.Mutex
	var touched []*entity.Document
	record := func(d *entity.Document, oc outcome, cause error) {
		mu.Lock()
		defer mu.Unlock()
		if oc != outcomeSkipped {
			touched = append(touched, d)
		}
		switch oc {
		case outcomeSucceeded:
			sum.Succeeded++
		case outcomeSkipped:
			sum.Skipped++
		case outcomeFailed:
			sum.Failed++
			sum.Failures = append(sum.Failures, Failure{ID: d.ID, Title: d.Title, Error: cause.Error()})
		}
	}

	for b := 0; b < len(selected); b += o.cfg.BatchSize {
		end := min(b+o.cfg.BatchSize, len(selected))
		batch := selected[b:end]
		log.Info("pipeline.batch.start", "from", b, "to", end)

		mu.Lock()
		touched = touched[:0]
		mu.Unlock()
		runErr := o.runBatch(ctx, batch, b > 0, sel.Force, record)

		// checkpoint what the batch produced even when the run is stopping;
		// skipped and unreached documents are left as stored
		mu.Lock()
		changed := append([]*entity.Document(nil), touched...)
		mu.Unlock()
		if err := o.store.SaveAll(ctx, changed); err != nil {
			log.Error("pipeline.checkpoint.failed", "error", err)
			sum.Duration = time.Since(start)
			return sum, common.NewPersistenceError("checkpoint", err)
		}
		log.Info("pipeline.batch.checkpoint", "from", b, "to", end,
			"succeeded", sum.Succeeded, "failed", sum.Failed, "skipped", sum.Skipped)

		if runErr != nil {
			sum.Duration = time.Since(start)
			log.Error("pipeline.run.aborted", "error", runErr)
			return sum, runErr
		}
	}

	sum.Duration = time.Since(start)
	log.Info("pipeline.run.done",
		"selected", sum.Selected,
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
		"skipped", sum.Skipped,
		"elapsed_ms", sum.Duration.Milliseconds(),
	)
	return sum, nil
}

func (o *Orchestrator) runBatch(ctx context.Context, batch []*entity.Document, delayFirst, force bool, record func(*entity.Document, outcome, error)) error {
	if o.cfg.Workers == 1 {
		for i, d := range batch {
			if i > 0 || delayFirst {
				if err := o.cfg.Sleep(ctx, o.cfg.DocumentDelay); err != nil {
					return err
				}
			}
			oc, cause, err := o.processOne(ctx, d, force)
			if err != nil {
				return err
			}
			record(d, oc, cause)
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)
	for _, d := range batch {
		g.Go(func() error {
			oc, cause, err := o.processOne(gctx, d, force)
			if err != nil {
				return err
			}
			record(d, oc, cause)
			return nil
		})
	}
	return g.Wait()
}

// processOne mutates doc in place. The returned error is non-nil only when
// the run must stop: a record write failed or ctx was cancelled.
func (o *Orchestrator) processOne(ctx context.Context, doc *entity.Document, force bool) (outcome, error, error) {
	log := common.LoggerFrom(ctx, o.logger).With("doc_id", doc.ID, "path", doc.FilePath)
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	absPath := filepath.Join(o.cfg.ReportsRoot, filepath.FromSlash(doc.FilePath))

	hash, err := ingest.HashFile(absPath)
	if err != nil {
		cause := &common.ExtractionError{Path: absPath, Err: err}
		return o.fail(ctx, log, doc, "", cause)
	}

	if !force && doc.ProcessingStatus == constants.StatusCompleted {
		skip, err := o.unchangedHash(ctx, doc, hash)
		if err != nil {
			return 0, nil, err
		}
		if skip {
			log.Info("pipeline.document.skipped", "reason", "unchanged")
			return outcomeSkipped, nil, nil
		}
	}

	orig := doc.Clone()
	doc.MarkProcessing()
	log.Info("pipeline.document.start")

	analysis, err := o.analyzer.Analyze(ctx, doc, absPath)
	if err != nil {
		if ctx.Err() != nil {
			*doc = orig
			return 0, nil, ctx.Err()
		}
		return o.fail(ctx, log, doc, hash, err)
	}

	now := o.cfg.Now()
	doc.MarkCompleted(analysis, now)
	rec := entity.ProcessingRecord{
		DocumentID:        doc.ID,
		FilePath:          doc.FilePath,
		FileHash:          hash,
		ProcessedAt:       now.UTC(),
		ProcessingVersion: o.cfg.Version,
		Status:            constants.RecordCompleted,
	}
	if err := o.store.UpsertRecord(ctx, rec); err != nil {
		return 0, nil, common.NewPersistenceError("write processing record", err)
	}
	log.Info("pipeline.document.completed", "report_type", analysis.ReportType, "confidence", analysis.Confidence)
	return outcomeSucceeded, nil, nil
}

// unchanged reports whether doc would be skipped: it is completed and its
// record matches the file on disk and the current version. A missing file is
// never unchanged.
func (o *Orchestrator) unchanged(ctx context.Context, doc *entity.Document, force bool) (bool, error) {
	if force || doc.ProcessingStatus != constants.StatusCompleted {
		return false, nil
	}
	hash, err := ingest.HashFile(filepath.Join(o.cfg.ReportsRoot, filepath.FromSlash(doc.FilePath)))
	if err != nil {
		return false, nil
	}
	return o.unchangedHash(ctx, doc, hash)
}

func (o *Orchestrator) unchangedHash(ctx context.Context, doc *entity.Document, hash string) (bool, error) {
	rec, err := o.store.LatestRecord(ctx, doc.FilePath)
	if err != nil {
		return false, common.NewPersistenceError("read processing record", err)
	}
	return !NeedsProcessing(rec, hash, o.cfg.Version), nil
}

func (o *Orchestrator) fail(ctx context.Context, log *slog.Logger, doc *entity.Document, hash string, cause error) (outcome, error, error) {
	doc.MarkFailed()
	rec := entity.ProcessingRecord{
		DocumentID:        doc.ID,
		FilePath:          doc.FilePath,
		FileHash:          hash,
		ProcessedAt:       o.cfg.Now().UTC(),
		ProcessingVersion: o.cfg.Version,
		Status:            constants.RecordFailed,
		Error:             cause.Error(),
	}
	if err := o.store.UpsertRecord(ctx, rec); err != nil {
		return 0, nil, common.NewPersistenceError("write processing record", err)
	}
	log.Warn("pipeline.document.failed", "error", cause)
	return outcomeFailed, cause, nil
}

// Claim marks one document as processing and saves it, so a concurrent
// claim of the same document gets a conflict.
func (o *Orchestrator) Claim(ctx context.Context, id string) (*entity.Document, error) {
	o.claimMu.Lock()
	defer o.claimMu.Unlock()

	doc, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.ProcessingStatus == constants.StatusProcessing {
		return nil, common.Conflictf("document %s is already processing", id)
	}
	prior := doc.Clone()
	doc.MarkProcessing()
	if err := o.store.Save(ctx, doc); err != nil {
		return nil, common.NewPersistenceError("claim document", err)
	}
	o.claims[id] = prior
	return doc, nil
}

// takeClaim returns and forgets the state saved by Claim. Without one
// (e.g. after a restart) the document falls back to pending.
func (o *Orchestrator) takeClaim(doc *entity.Document) entity.Document {
	prior, ok := o.claims[doc.ID]
	delete(o.claims, doc.ID)
	if ok {
		return prior
	}
	out := doc.Clone()
	out.ProcessingStatus = constants.StatusPending
	return out
}

// Release undoes a Claim whose job never reached the queue. The document
// returns to the state it had before the claim, analysis included.
func (o *Orchestrator) Release(ctx context.Context, id string) error {
	o.claimMu.Lock()
	defer o.claimMu.Unlock()

	doc, err := o.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if doc.ProcessingStatus != constants.StatusProcessing {
		delete(o.claims, id)
		return nil
	}
	prior := o.takeClaim(doc)
	if err := o.store.Save(ctx, &prior); err != nil {
		return common.NewPersistenceError("release document", err)
	}
	return nil
}

// ProcessClaimed analyzes a document previously returned by Claim and saves
// the outcome. The reprocessing decision is bypassed.
func (o *Orchestrator) ProcessClaimed(ctx context.Context, id string) error {
	doc, err := o.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if doc.ProcessingStatus != constants.StatusProcessing {
		return common.Conflictf("document %s was not claimed", id)
	}
	o.claimMu.Lock()
	*doc = o.takeClaim(doc)
	o.claimMu.Unlock()

	oc, cause, err := o.processOne(ctx, doc, true)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// processOne restored the pre-claim state; persist it so the
			// document does not stay processing
			if serr := o.store.Save(context.WithoutCancel(ctx), doc); serr != nil {
				o.logger.Error("pipeline.document.save_failed", "doc_id", id, "error", serr)
			}
		}
		return err
	}
	if err := o.store.Save(ctx, doc); err != nil {
		return common.NewPersistenceError("save document", err)
	}
	if oc == outcomeFailed {
		return fmt.Errorf("process %s: %w", id, cause)
	}
	return nil
}
