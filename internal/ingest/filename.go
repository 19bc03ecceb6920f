package ingest

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// FileMeta is what a report file name tells us about the report.
type FileMeta struct {
	Source  string
	Title   string
	Year    int
	Quarter string
}

var (
	reTrailingParens = regexp.MustCompile(`\(([^)]+)\)$`)
	reStripParens    = regexp.MustCompile(`\s*\([^)]+\)$`)
	reYear           = regexp.MustCompile(`\b(20\d{2})\b`)
	rePeriod         = regexp.MustCompile(`(?i)\b(Q[1-4]|H[1-2])\b`)
	reMonthYear      = regexp.MustCompile(`(?i)\b(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+(20\d{2})\b`)
)

// ParseFilename reads names shaped like
//
//	"Drake Star - Global Gaming Report (Q1 2025).pdf"
//	"Newzoo - Global Games Market Report (2022).pdf"
//
// Source is the text before the first " - ". Year and period come from the
// trailing parenthetical; a "Month YYYY" anywhere in the name is the year
// fallback.
func ParseFilename(name string) FileMeta {
	base := strings.TrimSpace(strings.TrimSuffix(name, filepath.Ext(name)))
	var meta FileMeta

	if m := reTrailingParens.FindStringSubmatch(base); m != nil {
		inner := m[1]
		if p := rePeriod.FindString(inner); p != "" {
			meta.Quarter = strings.ToUpper(p)
		}
		if y := reYear.FindStringSubmatch(inner); y != nil {
			meta.Year, _ = strconv.Atoi(y[1])
		}
	}
	if meta.Year == 0 {
		if y := reMonthYear.FindStringSubmatch(base); y != nil {
			meta.Year, _ = strconv.Atoi(y[1])
		}
	}

	rest := base
	if src, title, ok := strings.Cut(base, " - "); ok {
		meta.Source = strings.TrimSpace(src)
		rest = title
	}
	meta.Title = strings.TrimSpace(reStripParens.ReplaceAllString(rest, ""))
	if meta.Title == "" {
		meta.Title = name
	}
	return meta
}
