package merge

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/reports-catalog/internal/entity"
)

func sample() entity.Analysis {
	return entity.Analysis{
		Summary:     "Mobile spending rose.",
		KeyInsights: []string{"Asia leads", "Hybrid-casual grows"},
		KeyFindings: []string{"Revenue +8%", "Downloads flat"},
		Topics:      []string{"mobile", "monetization"},
		Entities: entity.Entities{
			Companies: []string{"Tencent", "Supercell"},
			Platforms: []string{"iOS", "Android"},
		},
		Metrics:             []entity.Metric{{Value: "8", Context: "revenue growth", Unit: "%"}},
		ReportType:          "Market Research Report",
		ContentFocus:        []string{"Market & Industry Analysis"},
		GeographicScope:     "Global",
		TemporalNature:      []string{"Current State"},
		DataCharacteristics: "Heavily Quantitative",
		Sentiment:           "positive",
		Confidence:          0.9,
		PageCount:           40,
	}
}

func TestMerge_SingleIsIdentity(t *testing.T) {
	m := NewMerger(DefaultLimits())
	a := sample()

	got, err := m.Merge([]entity.Analysis{a})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if diff := cmp.Diff(a, got); diff != "" {
		t.Errorf("single merge changed input (-want +got):\n%s", diff)
	}
}

func TestMerge_EmptyIsError(t *testing.T) {
	if _, err := NewMerger(DefaultLimits()).Merge(nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestMerge_DuplicateInputKeepsListFields(t *testing.T) {
	m := NewMerger(DefaultLimits())
	a := sample()

	got, err := m.Merge([]entity.Analysis{a, a})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	for name, pair := range map[string][2][]string{
		"keyInsights":  {a.KeyInsights, got.KeyInsights},
		"keyFindings":  {a.KeyFindings, got.KeyFindings},
		"topics":       {a.Topics, got.Topics},
		"companies":    {a.Entities.Companies, got.Entities.Companies},
		"platforms":    {a.Entities.Platforms, got.Entities.Platforms},
		"contentFocus": {a.ContentFocus, got.ContentFocus},
	} {
		if diff := cmp.Diff(pair[0], pair[1]); diff != "" {
			t.Errorf("%s (-want +got):\n%s", name, diff)
		}
	}
	if diff := cmp.Diff(a.Metrics, got.Metrics); diff != "" {
		t.Errorf("metrics (-want +got):\n%s", diff)
	}
	if got.Summary != a.Summary || got.ReportType != a.ReportType || got.Sentiment != a.Sentiment {
		t.Errorf("scalars changed: %+v", got)
	}
}

func TestMerge_RanksByFrequencyThenFirstSeen(t *testing.T) {
	m := NewMerger(DefaultLimits())
	parts := []entity.Analysis{
		{Summary: "first", Topics: []string{"a", "b"}, Sentiment: "neutral", ReportType: "Trend Analysis"},
		{Summary: "second", Topics: []string{"c", "b"}, Sentiment: "positive", ReportType: "Financial Report"},
		{Summary: "third", Topics: []string{"c", "d"}, Sentiment: "positive", ReportType: "Trend Analysis"},
	}

	got, err := m.Merge(parts)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if got.Summary != "first" {
		t.Errorf("Summary = %q, want first chunk's", got.Summary)
	}
	if diff := cmp.Diff([]string{"b", "c", "a", "d"}, got.Topics); diff != "" {
		t.Errorf("Topics (-want +got):\n%s", diff)
	}
	if got.Sentiment != "positive" {
		t.Errorf("Sentiment = %q, want majority positive", got.Sentiment)
	}
	if got.ReportType != "Trend Analysis" {
		t.Errorf("ReportType = %q", got.ReportType)
	}
}

func TestMerge_TieGoesToFirstSeen(t *testing.T) {
	got := majority([]string{"", "negative", "positive", "positive", "negative"})
	if got != "negative" {
		t.Errorf("majority = %q, want negative", got)
	}
}

func TestMerge_CapsAndNoDuplicates(t *testing.T) {
	limits := DefaultLimits()
	m := NewMerger(limits)

	var parts []entity.Analysis
	for c := 0; c < 4; c++ {
		a := entity.Analysis{Summary: "s"}
		for i := 0; i < 15; i++ {
			a.KeyFindings = append(a.KeyFindings, fmt.Sprintf("finding %d", i+c*3))
			a.Entities.Companies = append(a.Entities.Companies, fmt.Sprintf("company %d", i+c*5))
		}
		parts = append(parts, a)
	}

	got, err := m.Merge(parts)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(got.KeyFindings) > limits.MaxFindings {
		t.Errorf("findings = %d, cap %d", len(got.KeyFindings), limits.MaxFindings)
	}
	if len(got.Entities.Companies) > limits.MaxEntities {
		t.Errorf("companies = %d, cap %d", len(got.Entities.Companies), limits.MaxEntities)
	}
	seen := map[string]bool{}
	for _, c := range got.Entities.Companies {
		if seen[c] {
			t.Errorf("duplicate company %q", c)
		}
		seen[c] = true
	}
}

func TestMerge_ConfidenceDecreasesWithChunkCount(t *testing.T) {
	m := NewMerger(DefaultLimits())
	a := sample()

	prev := a.Confidence
	for n := 2; n <= 6; n++ {
		parts := make([]entity.Analysis, n)
		for i := range parts {
			parts[i] = a
		}
		got, err := m.Merge(parts)
		if err != nil {
			t.Fatalf("Merge: %v", err)
		}
		if got.Confidence >= prev {
			t.Errorf("n=%d confidence %v not below %v", n, got.Confidence, prev)
		}
		prev = got.Confidence
	}
}
