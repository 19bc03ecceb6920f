package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/reports-catalog/constants"
	"github.com/joseph-ayodele/reports-catalog/internal/common"
	"github.com/joseph-ayodele/reports-catalog/internal/core/llm"
	"github.com/joseph-ayodele/reports-catalog/internal/core/pdftext"
	"github.com/joseph-ayodele/reports-catalog/internal/entity"
	"github.com/joseph-ayodele/reports-catalog/internal/ingest"
	"github.com/joseph-ayodele/reports-catalog/internal/repository"
)

type fakeExtractor struct {
	text  string
	pages int
}

func (f fakeExtractor) Extract(_ context.Context, path string) (pdftext.Result, error) {
	return pdftext.Result{Text: f.text, Pages: f.pages, Method: pdftext.MethodNative}, nil
}

type fakeAnalyzer struct {
	mu    sync.Mutex
	calls []llm.ChunkRequest
	err   error
}

func (f *fakeAnalyzer) AnalyzeChunk(_ context.Context, req llm.ChunkRequest) (entity.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.err != nil {
		return entity.Analysis{}, f.err
	}
	return entity.Analysis{
		Summary:    "summary of " + req.Title,
		Topics:     []string{"mobile", "revenue"},
		ReportType: "Market Research Report",
		Sentiment:  "neutral",
		Confidence: 0.8,
		Metrics:    []entity.Metric{{Value: "12%", Context: "growth", Unit: "percent"}},
	}, nil
}

func (f *fakeAnalyzer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func noSleep(context.Context, time.Duration) error { return nil }

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newDoc(name string) *entity.Document {
	return &entity.Document{
		ID:               entity.DocumentID(name),
		Title:            strings.TrimSuffix(name, ".pdf"),
		FileName:         name,
		FilePath:         name,
		Category:         "Market Research",
		UploadDate:       fixedNow.Add(-time.Hour),
		ProcessingStatus: constants.StatusPending,
		Metadata:         entity.Metadata{Tags: []string{}},
	}
}

type harness struct {
	root     string
	store    *repository.JSONStore
	analyzer *fakeAnalyzer
	orch     *Orchestrator
}

func newHarness(t *testing.T, text string, files []string, docs ...*entity.Document) *harness {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(root, f), []byte("%PDF-1.4 "+f), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	store, err := repository.NewJSONStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}
	if len(docs) > 0 {
		if err := store.SaveAll(context.Background(), docs); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	an := &fakeAnalyzer{}
	proc := NewProcessor(fakeExtractor{text: text, pages: 4}, an, ProcessorConfig{Sleep: noSleep}, nil)
	orch := NewOrchestrator(store, proc, Config{
		ReportsRoot: root,
		BatchSize:   2,
		Now:         func() time.Time { return fixedNow },
		Sleep:       noSleep,
	}, nil)
	return &harness{root: root, store: store, analyzer: an, orch: orch}
}

func TestRun_MissingFileFailsOnlyThatDocument(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "Revenue grew 12% in 2024.",
		[]string{"doc1.pdf", "doc3.pdf"},
		newDoc("doc1.pdf"), newDoc("doc2.pdf"), newDoc("doc3.pdf"))

	sum, err := h.orch.Run(ctx, Selection{}, RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Selected != 3 || sum.Succeeded != 2 || sum.Failed != 1 || sum.Skipped != 0 {
		t.Fatalf("summary = %+v", sum)
	}
	if len(sum.Failures) != 1 || sum.Failures[0].ID != entity.DocumentID("doc2.pdf") {
		t.Fatalf("failures = %+v", sum.Failures)
	}
	if sum.RunID == "" {
		t.Error("run id not set")
	}

	docs, err := h.store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 3 {
		t.Fatalf("persisted %d documents, want 3", len(docs))
	}
	got := map[string]constants.ProcessingStatus{}
	for _, d := range docs {
		got[d.FileName] = d.ProcessingStatus
		if d.ProcessingStatus == constants.StatusCompleted {
			if d.Analysis == nil || d.ProcessedDate == nil {
				t.Errorf("%s completed without analysis", d.FileName)
				continue
			}
			if d.Analysis.PageCount != 4 {
				t.Errorf("%s pageCount = %d, want 4", d.FileName, d.Analysis.PageCount)
			}
			if d.Analysis.DataQuality.ProcessingNotes[0] != "Processed 1 chunk(s)" {
				t.Errorf("notes = %v", d.Analysis.DataQuality.ProcessingNotes)
			}
		}
	}
	want := map[string]constants.ProcessingStatus{
		"doc1.pdf": constants.StatusCompleted,
		"doc2.pdf": constants.StatusFailed,
		"doc3.pdf": constants.StatusCompleted,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("statuses (-want +got):\n%s", diff)
	}

	rec, err := h.store.LatestRecord(ctx, "doc2.pdf")
	if err != nil || rec == nil {
		t.Fatalf("record for doc2: %v %v", rec, err)
	}
	if rec.Status != constants.RecordFailed || rec.Error == "" {
		t.Errorf("doc2 record = %+v", rec)
	}
}

func TestRun_LongDocumentIsAnalyzedPerChunk(t *testing.T) {
	text := strings.Repeat(strings.Repeat("x", 99)+"\n\n", 2500)
	h := newHarness(t, text, []string{"big.pdf"}, newDoc("big.pdf"))

	sum, err := h.orch.Run(context.Background(), Selection{}, RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Succeeded != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	if n := h.analyzer.count(); n != 3 {
		t.Fatalf("chunk calls = %d, want 3", n)
	}
	for i, c := range h.analyzer.calls {
		if c.ChunkIndex != i || c.ChunkCount != 3 {
			t.Errorf("call %d: index=%d count=%d", i, c.ChunkIndex, c.ChunkCount)
		}
	}
}

func TestRun_UnchangedCompletedDocumentIsSkipped(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "Some text.", []string{"a.pdf"}, newDoc("a.pdf"))
	if _, err := h.orch.Run(ctx, Selection{}, RunOptions{}); err != nil {
		t.Fatal(err)
	}

	sum, err := h.orch.Run(ctx, Selection{}, RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if sum.Selected != 1 || sum.Skipped != 1 || h.analyzer.count() != 1 {
		t.Fatalf("second run summary = %+v, calls = %d", sum, h.analyzer.count())
	}

	plan, err := h.orch.Run(ctx, Selection{}, RunOptions{DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Planned) != 0 || plan.Skipped != 1 {
		t.Fatalf("dry run summary = %+v", plan)
	}

	sum, err = h.orch.Run(ctx, Selection{Force: true}, RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if sum.Succeeded != 1 || h.analyzer.count() != 2 {
		t.Fatalf("forced run summary = %+v, calls = %d", sum, h.analyzer.count())
	}
}

func TestRun_ChangedCompletedDocumentIsReprocessed(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "Some text.", []string{"a.pdf"}, newDoc("a.pdf"))
	if _, err := h.orch.Run(ctx, Selection{}, RunOptions{}); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(h.root, "a.pdf"), []byte("%PDF-1.4 revised"), 0o644); err != nil {
		t.Fatal(err)
	}
	sum, err := h.orch.Run(ctx, Selection{}, RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if sum.Succeeded != 1 || sum.Skipped != 0 || h.analyzer.count() != 2 {
		t.Fatalf("run after file change = %+v, calls = %d", sum, h.analyzer.count())
	}

	cfg := h.orch.cfg
	cfg.Version = "9.9.9"
	bumped := NewOrchestrator(h.store, h.orch.analyzer, cfg, nil)
	sum, err = bumped.Run(ctx, Selection{}, RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if sum.Succeeded != 1 || h.analyzer.count() != 3 {
		t.Fatalf("run after version bump = %+v, calls = %d", sum, h.analyzer.count())
	}
	rec, err := h.store.LatestRecord(ctx, "a.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil || rec.ProcessingVersion != "9.9.9" {
		t.Errorf("record = %+v", rec)
	}
}

func TestRun_InvalidStoredRowDoesNotBlockCheckpoint(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	for _, f := range []string{"legacy.pdf", "new.pdf"} {
		if err := os.WriteFile(filepath.Join(root, f), []byte("%PDF-1.4 "+f), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// completed without a processed date, as found in older collections
	legacy := newDoc("legacy.pdf")
	legacy.ProcessingStatus = constants.StatusCompleted
	legacy.Analysis = &entity.Analysis{Summary: "old", ReportType: "Market Research Report"}

	dir := t.TempDir()
	raw, err := json.Marshal([]*entity.Document{legacy, newDoc("new.pdf")})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "documents.json"), raw, 0o644); err != nil {
		t.Fatal(err)
	}
	store, err := repository.NewJSONStore(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	hash, err := ingest.HashFile(filepath.Join(root, "legacy.pdf"))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertRecord(ctx, entity.ProcessingRecord{
		DocumentID: legacy.ID, FilePath: legacy.FilePath, FileHash: hash,
		ProcessedAt: fixedNow, ProcessingVersion: constants.ProcessingVersion, Status: constants.RecordCompleted,
	}); err != nil {
		t.Fatal(err)
	}

	proc := NewProcessor(fakeExtractor{text: "text", pages: 1}, &fakeAnalyzer{}, ProcessorConfig{Sleep: noSleep}, nil)
	orch := NewOrchestrator(store, proc, Config{ReportsRoot: root, Now: func() time.Time { return fixedNow }, Sleep: noSleep}, nil)
	sum, err := orch.Run(ctx, Selection{}, RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Succeeded != 1 || sum.Skipped != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	got, err := store.Get(ctx, entity.DocumentID("new.pdf"))
	if err != nil {
		t.Fatal(err)
	}
	if got.ProcessingStatus != constants.StatusCompleted {
		t.Errorf("new.pdf status = %s", got.ProcessingStatus)
	}
}

func TestRun_DryRunTouchesNothing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "text", []string{"a.pdf", "b.pdf"}, newDoc("a.pdf"), newDoc("b.pdf"))

	sum, err := h.orch.Run(ctx, Selection{}, RunOptions{DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(sum.Planned) != 2 || sum.Succeeded != 0 || h.analyzer.count() != 0 {
		t.Fatalf("dry run summary = %+v", sum)
	}
	recs, err := h.store.ListRecords(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 0 {
		t.Fatalf("dry run wrote %d records", len(recs))
	}
}

func TestRun_AnalysisErrorMarksDocumentFailed(t *testing.T) {
	h := newHarness(t, "text", []string{"a.pdf"}, newDoc("a.pdf"))
	h.analyzer.err = &common.AnalysisError{Attempts: 3, Err: errors.New("bad json")}

	sum, err := h.orch.Run(context.Background(), Selection{}, RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if sum.Failed != 1 || !strings.Contains(sum.Failures[0].Error, "after 3 attempts") {
		t.Fatalf("summary = %+v", sum)
	}
	doc, err := h.store.Get(context.Background(), entity.DocumentID("a.pdf"))
	if err != nil {
		t.Fatal(err)
	}
	if doc.ProcessingStatus != constants.StatusFailed || doc.Analysis != nil {
		t.Errorf("doc = %+v", doc)
	}
}

type failingCheckpoint struct {
	*repository.JSONStore
}

func (failingCheckpoint) SaveAll(context.Context, []*entity.Document) error {
	return errors.New("disk full")
}

func TestRun_CheckpointFailureAborts(t *testing.T) {
	h := newHarness(t, "text", []string{"a.pdf", "b.pdf", "c.pdf"},
		newDoc("a.pdf"), newDoc("b.pdf"), newDoc("c.pdf"))
	orch := NewOrchestrator(failingCheckpoint{h.store}, h.orch.analyzer, h.orch.cfg, nil)

	sum, err := orch.Run(context.Background(), Selection{}, RunOptions{})
	var pe *common.PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want PersistenceError", err)
	}
	// first batch of 2 ran, the third document never started
	if sum.Succeeded != 2 || h.analyzer.count() != 2 {
		t.Fatalf("summary = %+v, calls = %d", sum, h.analyzer.count())
	}
}

func TestRun_ParallelWorkers(t *testing.T) {
	names := []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf", "e.pdf"}
	var docs []*entity.Document
	for _, n := range names {
		docs = append(docs, newDoc(n))
	}
	h := newHarness(t, "text", names, docs...)
	cfg := h.orch.cfg
	cfg.Workers = 3
	orch := NewOrchestrator(h.store, h.orch.analyzer, cfg, nil)

	sum, err := orch.Run(context.Background(), Selection{}, RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if sum.Succeeded != 5 {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestClaimAndProcess(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "text", []string{"a.pdf"}, newDoc("a.pdf"))
	id := entity.DocumentID("a.pdf")

	if _, err := h.orch.Claim(ctx, id); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if _, err := h.orch.Claim(ctx, id); !errors.Is(err, common.ErrConflict) {
		t.Fatalf("second Claim err = %v, want conflict", err)
	}
	if err := h.orch.ProcessClaimed(ctx, id); err != nil {
		t.Fatalf("ProcessClaimed: %v", err)
	}
	doc, err := h.store.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if doc.ProcessingStatus != constants.StatusCompleted {
		t.Errorf("status = %s", doc.ProcessingStatus)
	}
	if _, err := h.orch.Claim(ctx, "missing"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Claim(missing) err = %v", err)
	}
}

func TestReleaseReturnsClaimToPending(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "text", []string{"a.pdf"}, newDoc("a.pdf"))
	id := entity.DocumentID("a.pdf")

	if _, err := h.orch.Claim(ctx, id); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := h.orch.Release(ctx, id); err != nil {
		t.Fatalf("Release: %v", err)
	}
	doc, err := h.store.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if doc.ProcessingStatus != constants.StatusPending {
		t.Errorf("status = %s, want pending", doc.ProcessingStatus)
	}
	if _, err := h.orch.Claim(ctx, id); err != nil {
		t.Errorf("Claim after Release: %v", err)
	}
}

func TestReleaseKeepsCompletedAnalysis(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "text", []string{"a.pdf"}, newDoc("a.pdf"))
	id := entity.DocumentID("a.pdf")
	if _, err := h.orch.Run(ctx, Selection{}, RunOptions{}); err != nil {
		t.Fatal(err)
	}
	before, err := h.store.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := h.orch.Claim(ctx, id); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := h.orch.Release(ctx, id); err != nil {
		t.Fatalf("Release: %v", err)
	}
	after, err := h.store.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("document after Release (-want +got):\n%s", diff)
	}
}

func TestProcessClaimedCancelledRestoresPriorState(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "text", []string{"a.pdf"}, newDoc("a.pdf"))
	id := entity.DocumentID("a.pdf")
	if _, err := h.orch.Run(ctx, Selection{}, RunOptions{}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.orch.Claim(ctx, id); err != nil {
		t.Fatalf("Claim: %v", err)
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if err := h.orch.ProcessClaimed(cctx, id); !errors.Is(err, context.Canceled) {
		t.Fatalf("ProcessClaimed err = %v, want context.Canceled", err)
	}
	doc, err := h.store.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if doc.ProcessingStatus != constants.StatusCompleted || doc.Analysis == nil {
		t.Errorf("status = %s, analysis = %v", doc.ProcessingStatus, doc.Analysis)
	}
	if h.analyzer.count() != 1 {
		t.Errorf("calls = %d, want 1", h.analyzer.count())
	}
}

func TestNeedsProcessing(t *testing.T) {
	done := &entity.ProcessingRecord{FileHash: "h1", ProcessingVersion: "2.0.0", Status: constants.RecordCompleted}
	failed := *done
	failed.Status = constants.RecordFailed

	tests := []struct {
		name string
		rec  *entity.ProcessingRecord
		hash string
		ver  string
		want bool
	}{
		{"no record", nil, "h1", "2.0.0", true},
		{"unchanged", done, "h1", "2.0.0", false},
		{"content changed", done, "h2", "2.0.0", true},
		{"version bumped", done, "h1", "2.1.0", true},
		{"last attempt failed", &failed, "h1", "2.0.0", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NeedsProcessing(tt.rec, tt.hash, tt.ver); got != tt.want {
				t.Errorf("NeedsProcessing = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectionApply(t *testing.T) {
	mk := func(name string, st constants.ProcessingStatus, reportType string) *entity.Document {
		d := newDoc(name)
		d.ProcessingStatus = st
		if st == constants.StatusCompleted {
			d.Analysis = &entity.Analysis{ReportType: reportType}
			d.ProcessedDate = &fixedNow
		}
		return d
	}
	docs := []*entity.Document{
		mk("a.pdf", constants.StatusPending, ""),
		mk("b.pdf", constants.StatusCompleted, "Practical Guide"),
		mk("c.pdf", constants.StatusFailed, ""),
		mk("d.pdf", constants.StatusPending, ""),
		mk("e.pdf", constants.StatusCompleted, "Market Research Report"),
	}
	names := func(ds []*entity.Document) []string {
		out := []string{}
		for _, d := range ds {
			out = append(out, d.FileName)
		}
		return out
	}

	tests := []struct {
		name string
		sel  Selection
		want []string
	}{
		{"default statuses", Selection{}, []string{"e.pdf", "a.pdf", "b.pdf", "c.pdf", "d.pdf"}},
		{"range", Selection{From: 1, To: 3}, []string{"b.pdf", "c.pdf"}},
		{"pending only", Selection{Statuses: []constants.ProcessingStatus{constants.StatusPending}}, []string{"a.pdf", "d.pdf"}},
		{"range past end", Selection{From: 9}, []string{}},
		{"files", Selection{Files: []string{"d.pdf"}}, []string{"d.pdf"}},
		{"explicit status", Selection{Statuses: []constants.ProcessingStatus{constants.StatusCompleted}}, []string{"e.pdf", "b.pdf"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, names(tt.sel.Apply(docs))); diff != "" {
				t.Errorf("Apply (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSelectionSampleIsDeterministic(t *testing.T) {
	var docs []*entity.Document
	for _, n := range []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf", "e.pdf", "f.pdf"} {
		docs = append(docs, newDoc(n))
	}
	sel := Selection{Sample: 3, Seed: 42}
	first := sel.Apply(docs)
	second := sel.Apply(docs)
	if len(first) != 3 {
		t.Fatalf("sampled %d, want 3", len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("same seed gave different samples")
		}
	}
}

func TestLoadTuning(t *testing.T) {
	t.Run("empty path gives defaults", func(t *testing.T) {
		got, err := LoadTuning("")
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(DefaultTuning(), got); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})
	t.Run("partial override", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tuning.yaml")
		body := "assess:\n  goodCharsPerPage: 700\nmerge:\n  maxTopics: 3\n"
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		got, err := LoadTuning(path)
		if err != nil {
			t.Fatal(err)
		}
		want := DefaultTuning()
		want.Assess.GoodCharsPerPage = 700
		want.Merge.MaxTopics = 3
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})
	t.Run("negative decay rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tuning.yaml")
		if err := os.WriteFile(path, []byte("merge:\n  confidenceDecay: -1\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadTuning(path); !errors.Is(err, common.ErrInvalidInput) {
			t.Fatalf("err = %v, want invalid input", err)
		}
	})
}
