package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/reports-catalog/constants"
	"github.com/joseph-ayodele/reports-catalog/internal/entity"
	"github.com/joseph-ayodele/reports-catalog/internal/repository"
)

func TestParseFilename(t *testing.T) {
	tests := []struct {
		name string
		want FileMeta
	}{
		{
			"Drake Star - Global Gaming Report (Q1 2025).pdf",
			FileMeta{Source: "Drake Star", Title: "Global Gaming Report", Year: 2025, Quarter: "Q1"},
		},
		{
			"Newzoo - Global Games Market Report (2022).pdf",
			FileMeta{Source: "Newzoo", Title: "Global Games Market Report", Year: 2022},
		},
		{
			"DappRadar & BGA - State of blockchain gaming (q3 2023).pdf",
			FileMeta{Source: "DappRadar & BGA", Title: "State of blockchain gaming", Year: 2023, Quarter: "Q3"},
		},
		{
			"InvestGame - Gaming Deals - Overview (H2 2024).PDF",
			FileMeta{Source: "InvestGame", Title: "Gaming Deals - Overview", Year: 2024, Quarter: "H2"},
		},
		{
			"Sensor Tower - Mobile Snapshot March 2024.pdf",
			FileMeta{Source: "Sensor Tower", Title: "Mobile Snapshot March 2024", Year: 2024},
		},
		{
			"Untitled Deck.pdf",
			FileMeta{Title: "Untitled Deck"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ParseFilename(tt.name)); diff != "" {
				t.Errorf("ParseFilename (-want +got):\n%s", diff)
			}
		})
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newIndexer(t *testing.T) (*Indexer, repository.DocumentStore, string) {
	t.Helper()
	root := t.TempDir()
	store, err := repository.NewJSONStore(filepath.Join(t.TempDir(), "data"), nil)
	if err != nil {
		t.Fatal(err)
	}
	ix := NewIndexer(store, nil)
	ix.now = func() time.Time { return time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC) }

	writeFile(t, filepath.Join(root, "Mobile", "Sensor Tower - State of Mobile (2024).pdf"), "a")
	writeFile(t, filepath.Join(root, "Esports", "2023", "Esports Charts - Yearly Review (Q4 2023).pdf"), "bb")
	writeFile(t, filepath.Join(root, "Esports", ".hidden", "skip.pdf"), "x")
	writeFile(t, filepath.Join(root, "Mobile", "notes.txt"), "x")
	writeFile(t, filepath.Join(root, "Unsorted", "stray.pdf"), "x")
	return ix, store, root
}

func TestIndex_NewThenSkip(t *testing.T) {
	ix, store, root := newIndexer(t)
	ctx := context.Background()

	stats, err := ix.Index(ctx, root, Options{})
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if diff := cmp.Diff(Stats{Total: 2, New: 2}, stats); diff != "" {
		t.Errorf("first run stats (-want +got):\n%s", diff)
	}

	rel := "Esports/2023/Esports Charts - Yearly Review (Q4 2023).pdf"
	doc, err := store.Get(ctx, entity.DocumentID(rel))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := entity.Metadata{Source: "Esports Charts", Year: 2023, Quarter: "Q4", Tags: []string{"Esports"}}
	if diff := cmp.Diff(want, doc.Metadata); diff != "" {
		t.Errorf("metadata (-want +got):\n%s", diff)
	}
	if doc.FilePath != rel || doc.FileSize != 2 || doc.ProcessingStatus != constants.StatusPending {
		t.Errorf("unexpected document: %+v", doc)
	}

	stats, err = ix.Index(ctx, root, Options{})
	if err != nil {
		t.Fatalf("second Index: %v", err)
	}
	if diff := cmp.Diff(Stats{Total: 2, Skipped: 2}, stats); diff != "" {
		t.Errorf("second run stats (-want +got):\n%s", diff)
	}
}

func TestIndex_ForcePreservesIdentityAndAnalysis(t *testing.T) {
	ix, store, root := newIndexer(t)
	ctx := context.Background()
	if _, err := ix.Index(ctx, root, Options{}); err != nil {
		t.Fatal(err)
	}

	rel := "Mobile/Sensor Tower - State of Mobile (2024).pdf"
	doc, _ := store.Get(ctx, entity.DocumentID(rel))
	processed := time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)
	doc.MarkCompleted(entity.Analysis{Summary: "ok"}, processed)
	if err := store.Save(ctx, doc); err != nil {
		t.Fatal(err)
	}

	writeFile(t, filepath.Join(root, rel), "grown content")
	ix.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	stats, err := ix.Index(ctx, root, Options{Force: true})
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if stats.Updated != 2 || stats.New != 0 {
		t.Errorf("stats = %+v", stats)
	}

	got, _ := store.Get(ctx, doc.ID)
	if got.FileSize != int64(len("grown content")) {
		t.Errorf("file size not refreshed: %d", got.FileSize)
	}
	if !got.UploadDate.Equal(doc.UploadDate) || got.ProcessingStatus != constants.StatusCompleted || got.Analysis == nil {
		t.Errorf("force must keep upload date, status and analysis: %+v", got)
	}
}

func TestIndex_DryRunWritesNothing(t *testing.T) {
	ix, store, root := newIndexer(t)
	stats, err := ix.Index(context.Background(), root, Options{DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if stats.New != 2 {
		t.Errorf("stats = %+v", stats)
	}
	docs, _ := store.List(context.Background())
	if len(docs) != 0 {
		t.Errorf("dry run saved %d documents", len(docs))
	}
}

func TestIndexPaths(t *testing.T) {
	ix, store, root := newIndexer(t)
	paths := []string{
		filepath.Join(root, "Mobile", "Sensor Tower - State of Mobile (2024).pdf"),
		filepath.Join(root, "Unsorted", "stray.pdf"),
		filepath.Join(root, "Mobile", "notes.txt"),
	}
	stats, err := ix.IndexPaths(context.Background(), root, paths)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Stats{Total: 1, New: 1}, stats); diff != "" {
		t.Errorf("stats (-want +got):\n%s", diff)
	}
	docs, _ := store.List(context.Background())
	if len(docs) != 1 || docs[0].Category != string(constants.Mobile) {
		t.Errorf("docs = %+v", docs)
	}
}

func TestHashFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "a.pdf")
	writeFile(t, p, "abc")
	got, err := HashFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"; got != want {
		t.Errorf("HashFile = %s", got)
	}
	if _, err := HashFile(filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Error("expected error for missing file")
	}
}
