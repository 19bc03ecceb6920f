// Package assess derives heuristic quality signals from extracted report text.
package assess

import (
	"regexp"
	"unicode/utf8"
)

// Text quality tiers, best first.
const (
	QualityExcellent = "excellent"
	QualityGood      = "good"
	QualityFair      = "fair"
	QualityPoor      = "poor"
)

// Data intensity tiers, densest first.
const (
	IntensityVeryHigh = "very_high"
	IntensityHigh     = "high"
	IntensityMedium   = "medium"
	IntensityLow      = "low"
)

// Processing approach labels recorded in data-quality notes.
const (
	ApproachOCR        = "OCR + Chart-to-data extraction"
	ApproachStructured = "Structured data extraction + Metric normalization"
	ApproachSemantic   = "Deep semantic analysis + Key point extraction"
	ApproachStandard   = "Standard text analysis"
)

var (
	reNumericUnit  = regexp.MustCompile(`(?i)\d+[\d,.]*\s*(?:%|billion|million|thousand|\$|users|players)`)
	reFinancial    = regexp.MustCompile(`\$[\d,.]+[BM]|[\d,.]+%|[\d,.]+[Mm]illion`)
	reForwardTerms = regexp.MustCompile(`(?i)trend|forecast|prediction|outlook`)
)

// Thresholds are strict lower bounds: a value must exceed a bound to reach its tier.
type Thresholds struct {
	ExcellentCharsPerPage int `yaml:"excellentCharsPerPage"`
	GoodCharsPerPage      int `yaml:"goodCharsPerPage"`
	FairCharsPerPage      int `yaml:"fairCharsPerPage"`

	VeryHighMetrics int `yaml:"veryHighMetrics"`
	HighMetrics     int `yaml:"highMetrics"`
	MediumMetrics   int `yaml:"mediumMetrics"`

	StructuredFinancialMatches int `yaml:"structuredFinancialMatches"`
	SemanticTermMatches        int `yaml:"semanticTermMatches"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		ExcellentCharsPerPage:      1500,
		GoodCharsPerPage:           800,
		FairCharsPerPage:           300,
		VeryHighMetrics:            100,
		HighMetrics:                50,
		MediumMetrics:              20,
		StructuredFinancialMatches: 50,
		SemanticTermMatches:        20,
	}
}

type Characteristics struct {
	TextQuality   string
	DataIntensity string
	Approach      string
	CharsPerPage  int
	MetricMatches int
}

type Assessor struct {
	th Thresholds
}

func NewAssessor(th Thresholds) *Assessor {
	return &Assessor{th: th}
}

// Assess is deterministic in (text, pageCount). pageCount below 1 counts as 1.
func (a *Assessor) Assess(text string, pageCount int) Characteristics {
	if pageCount < 1 {
		pageCount = 1
	}
	perPage := utf8.RuneCountInString(text) / pageCount
	metrics := len(reNumericUnit.FindAllStringIndex(text, -1))

	c := Characteristics{
		TextQuality:   a.textQuality(perPage),
		DataIntensity: a.dataIntensity(metrics),
		CharsPerPage:  perPage,
		MetricMatches: metrics,
	}
	c.Approach = a.approach(text, c.TextQuality)
	return c
}

func (a *Assessor) textQuality(perPage int) string {
	switch {
	case perPage > a.th.ExcellentCharsPerPage:
		return QualityExcellent
	case perPage > a.th.GoodCharsPerPage:
		return QualityGood
	case perPage > a.th.FairCharsPerPage:
		return QualityFair
	default:
		return QualityPoor
	}
}

func (a *Assessor) dataIntensity(matches int) string {
	switch {
	case matches > a.th.VeryHighMetrics:
		return IntensityVeryHigh
	case matches > a.th.HighMetrics:
		return IntensityHigh
	case matches > a.th.MediumMetrics:
		return IntensityMedium
	default:
		return IntensityLow
	}
}

func (a *Assessor) approach(text, quality string) string {
	if quality == QualityPoor {
		return ApproachOCR
	}
	if len(reFinancial.FindAllStringIndex(text, -1)) > a.th.StructuredFinancialMatches {
		return ApproachStructured
	}
	if len(reForwardTerms.FindAllStringIndex(text, -1)) > a.th.SemanticTermMatches {
		return ApproachSemantic
	}
	return ApproachStandard
}

// IntensityRank orders intensity tiers, low = 0.
func IntensityRank(tier string) int {
	switch tier {
	case IntensityVeryHigh:
		return 3
	case IntensityHigh:
		return 2
	case IntensityMedium:
		return 1
	default:
		return 0
	}
}
