// Package catalog answers browse and edit requests over the document collection.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/joseph-ayodele/reports-catalog/constants"
	"github.com/joseph-ayodele/reports-catalog/internal/common"
	"github.com/joseph-ayodele/reports-catalog/internal/entity"
	"github.com/joseph-ayodele/reports-catalog/internal/repository"
)

// Service handles catalog reads and manual edits.
type Service struct {
	store  repository.DocumentStore
	logger *slog.Logger
	now    func() time.Time
}

func NewService(store repository.DocumentStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// Query returns the documents matching q in the requested order.
func (s *Service) Query(ctx context.Context, q Query) ([]*entity.Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	docs, err := s.store.List(ctx)
	if err != nil {
		return nil, common.WrapError(err, "list documents")
	}
	out := make([]*entity.Document, 0, len(docs))
	for _, d := range docs {
		if q.Matches(d) {
			out = append(out, d)
		}
	}
	sortDocuments(out, q.SortBy, q.SortOrder)
	s.logger.Debug("catalog.query", "matched", len(out), "total", len(docs))
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*entity.Document, error) {
	if strings.TrimSpace(id) == "" {
		return nil, common.InvalidInputf("id is required")
	}
	return s.store.Get(ctx, id)
}

// Create adds a manually registered document. Missing status defaults to
// pending and a missing upload date to now.
func (s *Service) Create(ctx context.Context, doc *entity.Document) (*entity.Document, error) {
	if doc == nil {
		return nil, common.InvalidInputf("document is required")
	}
	v := common.NewValidator()
	v.Field("id", doc.ID, common.Required)
	v.Field("title", doc.Title, common.Required, common.MaxLength(500))
	v.Field("fileName", doc.FileName, common.Required)
	v.Field("filePath", doc.FilePath, common.Required)
	v.Field("category", doc.Category, common.Required)
	v.Field("metadata.quarter", doc.Metadata.Quarter, common.PeriodLabel)
	v.Field("metadata.year", doc.Metadata.Year, common.YearRange(1990, 2100))
	if err := v.Err(); err != nil {
		return nil, err
	}

	if _, err := s.store.Get(ctx, doc.ID); err == nil {
		return nil, common.Conflictf("document %s already exists", doc.ID)
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	out := doc.Clone()
	if c, ok := constants.Canonicalize(out.Category); ok {
		out.Category = string(c)
	}
	if out.ProcessingStatus == "" {
		out.ProcessingStatus = constants.StatusPending
	}
	if out.UploadDate.IsZero() {
		out.UploadDate = s.now().UTC()
	}
	if out.Metadata.Tags == nil {
		out.Metadata.Tags = []string{}
	}
	if err := s.store.Save(ctx, &out); err != nil {
		return nil, err
	}
	s.logger.Info("catalog.document.created", "doc_id", out.ID, "category", out.Category)
	return &out, nil
}

// Patch carries the fields of a partial update. Nil fields keep their value.
type Patch struct {
	Title            *string                     `json:"title"`
	FileName         *string                     `json:"fileName"`
	FilePath         *string                     `json:"filePath"`
	FileSize         *int64                      `json:"fileSize"`
	Category         *string                     `json:"category"`
	UploadDate       *time.Time                  `json:"uploadDate"`
	ProcessedDate    *time.Time                  `json:"processedDate"`
	ProcessingStatus *constants.ProcessingStatus `json:"processingStatus"`
	Metadata         *MetadataPatch              `json:"metadata"`
	Analysis         *entity.Analysis            `json:"aiAnalysis"`
}

type MetadataPatch struct {
	Source      *string  `json:"source"`
	Year        *int     `json:"year"`
	Quarter     *string  `json:"quarter"`
	Region      *string  `json:"region"`
	Tags        []string `json:"tags"`
	Description *string  `json:"description"`
}

// Update applies p to the stored document. The result must still satisfy
// the document invariants, so status changes come with their analysis.
func (s *Service) Update(ctx context.Context, id string, p Patch) (*entity.Document, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	d := cur.Clone()
	setString(&d.Title, p.Title)
	setString(&d.FileName, p.FileName)
	setString(&d.FilePath, p.FilePath)
	setString(&d.Category, p.Category)
	if p.FileSize != nil {
		d.FileSize = *p.FileSize
	}
	if p.UploadDate != nil {
		d.UploadDate = p.UploadDate.UTC()
	}
	if p.ProcessedDate != nil {
		t := p.ProcessedDate.UTC()
		d.ProcessedDate = &t
	}
	if p.ProcessingStatus != nil {
		d.ProcessingStatus = *p.ProcessingStatus
	}
	if p.Analysis != nil {
		a := p.Analysis.Clone()
		d.Analysis = &a
	}
	if m := p.Metadata; m != nil {
		setString(&d.Metadata.Source, m.Source)
		setString(&d.Metadata.Quarter, m.Quarter)
		setString(&d.Metadata.Region, m.Region)
		setString(&d.Metadata.Description, m.Description)
		if m.Year != nil {
			d.Metadata.Year = *m.Year
		}
		if m.Tags != nil {
			d.Metadata.Tags = append([]string{}, m.Tags...)
		}
	}
	if d.ProcessingStatus != constants.StatusCompleted {
		d.ProcessedDate = nil
		d.Analysis = nil
	}

	v := common.NewValidator()
	v.Field("title", d.Title, common.Required, common.MaxLength(500))
	v.Field("metadata.quarter", d.Metadata.Quarter, common.PeriodLabel)
	v.Field("metadata.year", d.Metadata.Year, common.YearRange(1990, 2100))
	if err := v.Err(); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, &d); err != nil {
		return nil, err
	}
	s.logger.Info("catalog.document.updated", "doc_id", id)
	return &d, nil
}

// Delete removes the catalog entry. The PDF on disk is left alone.
func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return common.InvalidInputf("id is required")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("catalog.document.deleted", "doc_id", id)
	return nil
}

type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Categories lists the categories in use, alphabetically, with counts.
func (s *Service) Categories(ctx context.Context) ([]CategoryCount, error) {
	docs, err := s.store.List(ctx)
	if err != nil {
		return nil, common.WrapError(err, "list documents")
	}
	return countCategories(docs), nil
}

func countCategories(docs []*entity.Document) []CategoryCount {
	counts := map[string]int{}
	for _, d := range docs {
		if d.Category != "" {
			counts[d.Category]++
		}
	}
	out := make([]CategoryCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, CategoryCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

type Facets struct {
	Categories []CategoryCount `json:"categories"`
	Years      []int           `json:"years"`
	Quarters   []string        `json:"quarters"`
	Regions    []string        `json:"regions"`
	Tags       []TagCount      `json:"tags"`
}

// DefaultTopTags caps Facets.Tags when the caller passes 0.
const DefaultTopTags = 20

// Facets returns the filter values present in the collection.
func (s *Service) Facets(ctx context.Context, topTags int) (Facets, error) {
	docs, err := s.store.List(ctx)
	if err != nil {
		return Facets{}, common.WrapError(err, "list documents")
	}
	if topTags <= 0 {
		topTags = DefaultTopTags
	}

	years := map[int]bool{}
	quarters := map[string]bool{}
	regions := map[string]bool{}
	tags := map[string]int{}
	for _, d := range docs {
		if d.Metadata.Year != 0 {
			years[d.Metadata.Year] = true
		}
		if d.Metadata.Quarter != "" {
			quarters[d.Metadata.Quarter] = true
		}
		if d.Metadata.Region != "" {
			regions[d.Metadata.Region] = true
		}
		for _, t := range d.Metadata.Tags {
			tags[t]++
		}
	}

	f := Facets{
		Categories: countCategories(docs),
		Years:      make([]int, 0, len(years)),
		Quarters:   sortedKeys(quarters),
		Regions:    sortedKeys(regions),
		Tags:       make([]TagCount, 0, len(tags)),
	}
	for y := range years {
		f.Years = append(f.Years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(f.Years)))
	for t, n := range tags {
		f.Tags = append(f.Tags, TagCount{Tag: t, Count: n})
	}
	sort.Slice(f.Tags, func(i, j int) bool {
		if f.Tags[i].Count != f.Tags[j].Count {
			return f.Tags[i].Count > f.Tags[j].Count
		}
		return f.Tags[i].Tag < f.Tags[j].Tag
	})
	if len(f.Tags) > topTags {
		f.Tags = f.Tags[:topTags]
	}
	return f, nil
}

type Stats struct {
	Total      int                                `json:"total"`
	ByStatus   map[constants.ProcessingStatus]int `json:"byStatus"`
	ByCategory map[string]int                     `json:"byCategory"`
	Analyzed   int                                `json:"analyzed"`
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	docs, err := s.store.List(ctx)
	if err != nil {
		return Stats{}, common.WrapError(err, "list documents")
	}
	return ComputeStats(docs), nil
}

// ComputeStats counts documents by status and category.
func ComputeStats(docs []*entity.Document) Stats {
	st := Stats{
		Total:      len(docs),
		ByStatus:   map[constants.ProcessingStatus]int{},
		ByCategory: map[string]int{},
	}
	for _, s := range []constants.ProcessingStatus{
		constants.StatusPending, constants.StatusProcessing, constants.StatusCompleted, constants.StatusFailed,
	} {
		st.ByStatus[s] = 0
	}
	for _, d := range docs {
		st.ByStatus[d.ProcessingStatus]++
		st.ByCategory[d.Category]++
		if d.Analysis != nil {
			st.Analyzed++
		}
	}
	return st
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
