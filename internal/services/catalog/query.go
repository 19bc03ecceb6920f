package catalog

import (
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/reports-catalog/constants"
	"github.com/joseph-ayodele/reports-catalog/internal/common"
	"github.com/joseph-ayodele/reports-catalog/internal/entity"
)

type SortBy string

const (
	SortDate      SortBy = "date"
	SortTitle     SortBy = "title"
	SortRelevance SortBy = "relevance"
)

type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Query filters the catalog. Zero-valued fields do not filter.
type Query struct {
	Category   string
	Year       int
	Quarter    string
	Region     string
	Tags       []string // every tag must be present
	ReportType string
	Status     constants.ProcessingStatus
	Search     string // case-insensitive substring

	SortBy    SortBy    // default date
	SortOrder SortOrder // default desc
}

// ParseQuery reads the documents endpoint's query string.
func ParseQuery(v url.Values) (Query, error) {
	q := Query{
		Category:   v.Get("category"),
		Quarter:    v.Get("quarter"),
		Region:     v.Get("region"),
		ReportType: v.Get("reportType"),
		Status:     constants.ProcessingStatus(v.Get("status")),
		Search:     v.Get("searchQuery"),
		SortBy:     SortBy(v.Get("sortBy")),
		SortOrder:  SortOrder(v.Get("sortOrder")),
	}
	if y := v.Get("year"); y != "" {
		n, err := strconv.Atoi(y)
		if err != nil {
			return Query{}, common.InvalidInputf("year must be a number, got %q", y)
		}
		q.Year = n
	}
	for _, t := range strings.Split(v.Get("tags"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			q.Tags = append(q.Tags, t)
		}
	}
	return q, q.Validate()
}

func (q Query) Validate() error {
	v := common.NewValidator()
	v.Field("sortBy", string(q.SortBy), common.OneOf(string(SortDate), string(SortTitle), string(SortRelevance)))
	v.Field("sortOrder", string(q.SortOrder), common.OneOf(string(Asc), string(Desc)))
	v.Field("quarter", q.Quarter, common.PeriodLabel)
	if q.Status != "" && !q.Status.Valid() {
		return common.InvalidInputf("unknown status %q", q.Status)
	}
	return v.Err()
}

// Matches reports whether d passes every filter in q.
func (q Query) Matches(d *entity.Document) bool {
	switch {
	case q.Category != "" && d.Category != q.Category:
		return false
	case q.Year != 0 && d.Metadata.Year != q.Year:
		return false
	case q.Quarter != "" && d.Metadata.Quarter != q.Quarter:
		return false
	case q.Region != "" && d.Metadata.Region != q.Region:
		return false
	case q.Status != "" && d.ProcessingStatus != q.Status:
		return false
	}
	if q.ReportType != "" && (d.Analysis == nil || d.Analysis.ReportType != q.ReportType) {
		return false
	}
	for _, t := range q.Tags {
		if !slices.Contains(d.Metadata.Tags, t) {
			return false
		}
	}
	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		parts := []string{d.Title, d.Metadata.Description, strings.Join(d.Metadata.Tags, " "), d.Category}
		if d.Analysis != nil {
			parts = append(parts, d.Analysis.Summary)
		}
		if !strings.Contains(strings.ToLower(strings.Join(parts, " ")), needle) {
			return false
		}
	}
	return true
}

func sortDocuments(docs []*entity.Document, by SortBy, order SortOrder) {
	if by == "" {
		by = SortDate
	}
	compare := func(a, b *entity.Document) int {
		switch by {
		case SortTitle:
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		case SortRelevance:
			return analyzed(a) - analyzed(b)
		default:
			return a.UploadDate.Compare(b.UploadDate)
		}
	}
	sort.SliceStable(docs, func(i, j int) bool {
		c := compare(docs[i], docs[j])
		if order == Asc {
			return c < 0
		}
		return c > 0
	})
}

func analyzed(d *entity.Document) int {
	if d.Analysis != nil {
		return 1
	}
	return 0
}
