package export

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/reports-catalog/constants"
	"github.com/joseph-ayodele/reports-catalog/internal/entity"
	"github.com/joseph-ayodele/reports-catalog/internal/repository"
	"github.com/joseph-ayodele/reports-catalog/internal/utils"
)

// Service renders the catalog as an XLSX workbook or a Markdown index.
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

const sheet = "Reports"

var xlsxHeaders = []string{
	"Title",
	"Category",
	"Source",
	"Year",
	"Quarter",
	"Status",
	"Report Type",
	"Sentiment",
	"Confidence",
	"Summary",
	"File Path",
}

// ExportXLSX returns one row per document, ordered by category then title.
func (s *Service) ExportXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()
	docs, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	sortByCategoryTitle(docs)

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	for i, h := range xlsxHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, d := range docs {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, d.Title)
		write(2, d.Category)
		write(3, d.Metadata.Source)
		if d.Metadata.Year != 0 {
			write(4, d.Metadata.Year)
		}
		write(5, d.Metadata.Quarter)
		write(6, string(d.ProcessingStatus))
		if a := d.Analysis; a != nil {
			write(7, a.ReportType)
			write(8, a.Sentiment)
			write(9, a.Confidence)
			write(10, utils.Truncate(a.Summary, 500))
		}
		write(11, d.FilePath)
	}

	_ = f.SetColWidth(sheet, "A", "A", 48) // title
	_ = f.SetColWidth(sheet, "B", "C", 22)
	_ = f.SetColWidth(sheet, "D", "F", 11)
	_ = f.SetColWidth(sheet, "G", "H", 24)
	_ = f.SetColWidth(sheet, "J", "J", 80) // summary
	_ = f.SetColWidth(sheet, "K", "K", 60) // path
	_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"rows", len(docs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// ExportMarkdown returns a catalog index: statistics, a table of contents
// per category and one table per category, newest year first.
func (s *Service) ExportMarkdown(ctx context.Context) ([]byte, error) {
	docs, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	byCat := map[string][]*entity.Document{}
	var totalBytes int64
	analyzed := 0
	for _, d := range docs {
		byCat[d.Category] = append(byCat[d.Category], d)
		totalBytes += d.FileSize
		if d.ProcessingStatus == constants.StatusCompleted {
			analyzed++
		}
	}
	cats := make([]string, 0, len(byCat))
	for c := range byCat {
		cats = append(cats, c)
	}
	sort.Strings(cats)

	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line("# Game Industry Reports Catalog")
	line("")
	line("*Last updated: %s*", s.now().UTC().Format("2006-01-02 15:04:05"))
	line("")
	line("## Statistics")
	line("")
	line("- **Total Reports**: %d", len(docs))
	line("- **Analyzed**: %d (%s)", analyzed, percent(analyzed, len(docs)))
	line("- **Total Size**: %.2f MB", mb(totalBytes))
	line("- **Categories**: %d", len(cats))
	line("")
	line("## Table of Contents")
	line("")
	for _, c := range cats {
		line("- [%s](#%s) (%d reports)", c, anchor(c), len(byCat[c]))
	}
	line("")
	line("---")
	line("")

	for _, c := range cats {
		reports := byCat[c]
		sort.SliceStable(reports, func(i, j int) bool {
			x, y := reports[i].Metadata, reports[j].Metadata
			if x.Year != y.Year {
				return x.Year > y.Year
			}
			return x.Source > y.Source
		})

		line("## %s", c)
		line("")
		line("*%d reports*", len(reports))
		line("")
		line("| Source | Title | Year | Type | Size | Link |")
		line("|--------|-------|------|------|------|------|")
		for _, d := range reports {
			source := d.Metadata.Source
			if source == "" {
				source = "Unknown"
			}
			year := "Unknown"
			if d.Metadata.Year != 0 {
				year = strconv.Itoa(d.Metadata.Year)
			}
			reportType := "—"
			if d.Analysis != nil && d.Analysis.ReportType != "" {
				reportType = d.Analysis.ReportType
			}
			line("| %s | %s | %s | %s | %.1f MB | [PDF](%s) |",
				cell(source), cell(d.Title), year, cell(reportType), mb(d.FileSize), linkPath(d.FilePath))
		}
		line("")
	}

	line("---")
	line("")
	line("*Generated by catalog-export*")

	s.logger.Info("export.markdown.ok", "documents", len(docs), "categories", len(cats))
	return []byte(b.String()), nil
}

func sortByCategoryTitle(docs []*entity.Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].Category != docs[j].Category {
			return docs[i].Category < docs[j].Category
		}
		return strings.ToLower(docs[i].Title) < strings.ToLower(docs[j].Title)
	})
}

func anchor(category string) string {
	r := strings.NewReplacer(" ", "-", "/", "-", "&", "")
	return strings.ToLower(r.Replace(category))
}

// cell escapes pipes so table rows keep their shape.
func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func linkPath(p string) string {
	return strings.ReplaceAll(p, " ", "%20")
}

func mb(n int64) float64 {
	return float64(n) / (1024 * 1024)
}

func percent(n, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(n)/float64(total)*100)
}
