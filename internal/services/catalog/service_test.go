package catalog

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/reports-catalog/constants"
	"github.com/joseph-ayodele/reports-catalog/internal/common"
	"github.com/joseph-ayodele/reports-catalog/internal/entity"
	"github.com/joseph-ayodele/reports-catalog/internal/repository"
)

var base = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func doc(id, title, category string, day int, meta entity.Metadata) *entity.Document {
	if meta.Tags == nil {
		meta.Tags = []string{category}
	}
	return &entity.Document{
		ID:               id,
		Title:            title,
		FileName:         id + ".pdf",
		FilePath:         category + "/" + id + ".pdf",
		Category:         category,
		UploadDate:       base.AddDate(0, 0, day),
		ProcessingStatus: constants.StatusPending,
		Metadata:         meta,
	}
}

func completed(d *entity.Document, reportType, summary string) *entity.Document {
	t := base
	d.ProcessingStatus = constants.StatusCompleted
	d.ProcessedDate = &t
	d.Analysis = &entity.Analysis{ReportType: reportType, Summary: summary}
	return d
}

func newService(t *testing.T) *Service {
	t.Helper()
	store, err := repository.NewJSONStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	docs := []*entity.Document{
		completed(doc("a", "Mobile Gaming Outlook", "Mobile", 1, entity.Metadata{Source: "Newzoo", Year: 2024, Quarter: "Q1", Region: "Global"}),
			"Market Research Report", "Revenue from casual titles"),
		doc("b", "Esports Audience", "Esports", 3, entity.Metadata{Source: "Niko", Year: 2023, Region: "Asia", Tags: []string{"Esports", "audience"}}),
		doc("c", "cloud streaming primer", "Cloud Gaming", 2, entity.Metadata{Year: 2024, Description: "latency study"}),
	}
	if err := store.SaveAll(context.Background(), docs); err != nil {
		t.Fatal(err)
	}
	s := NewService(store, nil)
	s.now = func() time.Time { return base.AddDate(0, 1, 0) }
	return s
}

func ids(docs []*entity.Document) []string {
	out := []string{}
	for _, d := range docs {
		out = append(out, d.ID)
	}
	return out
}

func TestQuery(t *testing.T) {
	s := newService(t)
	tests := []struct {
		name string
		q    Query
		want []string
	}{
		{"default date desc", Query{}, []string{"b", "c", "a"}},
		{"date asc", Query{SortOrder: Asc}, []string{"a", "c", "b"}},
		{"title asc ignores case", Query{SortBy: SortTitle, SortOrder: Asc}, []string{"c", "b", "a"}},
		{"relevance puts analyzed first", Query{SortBy: SortRelevance}, []string{"a", "b", "c"}},
		{"year", Query{Year: 2024}, []string{"c", "a"}},
		{"all tags must match", Query{Tags: []string{"Esports", "audience"}}, []string{"b"}},
		{"missing tag", Query{Tags: []string{"Esports", "nope"}}, []string{}},
		{"search summary", Query{Search: "CASUAL"}, []string{"a"}},
		{"search description", Query{Search: "latency"}, []string{"c"}},
		{"report type", Query{ReportType: "Market Research Report"}, []string{"a"}},
		{"status", Query{Status: constants.StatusPending}, []string{"b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Query(context.Background(), tt.q)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, ids(got)); diff != "" {
				t.Errorf("Query (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseQuery(t *testing.T) {
	q, err := ParseQuery(url.Values{
		"year":      {"2024"},
		"tags":      {"Mobile, casual,"},
		"sortBy":    {"title"},
		"sortOrder": {"asc"},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := Query{Year: 2024, Tags: []string{"Mobile", "casual"}, SortBy: SortTitle, SortOrder: Asc}
	if diff := cmp.Diff(want, q); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	for _, bad := range []url.Values{
		{"year": {"twenty"}},
		{"sortBy": {"size"}},
		{"quarter": {"Q5"}},
		{"status": {"done"}},
	} {
		if _, err := ParseQuery(bad); err == nil {
			t.Errorf("ParseQuery(%v) succeeded", bad)
		}
	}
}

func TestCreateUpdateDelete(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	created, err := s.Create(ctx, &entity.Document{
		ID: "d", Title: "New", FileName: "d.pdf", FilePath: "HR/d.pdf", Category: "hr",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Category != "HR" || created.ProcessingStatus != constants.StatusPending || created.UploadDate.IsZero() {
		t.Errorf("created = %+v", created)
	}

	if _, err := s.Create(ctx, &entity.Document{ID: "d", Title: "x", FileName: "x", FilePath: "x", Category: "HR"}); !errors.Is(err, common.ErrConflict) {
		t.Errorf("duplicate create err = %v", err)
	}
	if _, err := s.Create(ctx, &entity.Document{ID: "e"}); !errors.Is(err, common.ErrValidation) {
		t.Errorf("incomplete create err = %v", err)
	}

	title := "Renamed"
	year := 2022
	updated, err := s.Update(ctx, "d", Patch{Title: &title, Metadata: &MetadataPatch{Year: &year}})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "Renamed" || updated.Metadata.Year != 2022 || updated.FileName != "d.pdf" {
		t.Errorf("updated = %+v", updated)
	}

	st := constants.StatusCompleted
	if _, err := s.Update(ctx, "d", Patch{ProcessingStatus: &st}); !errors.Is(err, common.ErrValidation) {
		t.Errorf("completed without analysis err = %v", err)
	}
	if _, err := s.Update(ctx, "zzz", Patch{Title: &title}); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("update missing err = %v", err)
	}

	if err := s.Delete(ctx, "d"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "d"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("get after delete err = %v", err)
	}
}

func TestFacetsAndStats(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	f, err := s.Facets(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	want := Facets{
		Categories: []CategoryCount{{"Cloud Gaming", 1}, {"Esports", 1}, {"Mobile", 1}},
		Years:      []int{2024, 2023},
		Quarters:   []string{"Q1"},
		Regions:    []string{"Asia", "Global"},
		Tags:       []TagCount{{"Cloud Gaming", 1}, {"Esports", 1}},
	}
	if diff := cmp.Diff(want, f); diff != "" {
		t.Errorf("Facets (-want +got):\n%s", diff)
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Total != 3 || st.Analyzed != 1 || st.ByStatus[constants.StatusPending] != 2 || st.ByStatus[constants.StatusFailed] != 0 {
		t.Errorf("Stats = %+v", st)
	}
}
