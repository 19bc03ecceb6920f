// Package merge folds per-chunk analyses of one document into a single result.
package merge

import (
	"errors"
	"sort"

	"github.com/joseph-ayodele/reports-catalog/internal/entity"
)

// Limits caps merged list sizes and sets the multi-chunk confidence decay.
type Limits struct {
	MaxInsights     int     `yaml:"maxInsights"`
	MaxFindings     int     `yaml:"maxFindings"`
	MaxTopics       int     `yaml:"maxTopics"`
	MaxEntities     int     `yaml:"maxEntities"`
	MaxLabels       int     `yaml:"maxLabels"`
	MaxMetrics      int     `yaml:"maxMetrics"`
	ConfidenceDecay float64 `yaml:"confidenceDecay"`
}

func DefaultLimits() Limits {
	return Limits{
		MaxInsights:     10,
		MaxFindings:     10,
		MaxTopics:       15,
		MaxEntities:     20,
		MaxLabels:       5,
		MaxMetrics:      50,
		ConfidenceDecay: 0.05,
	}
}

var ErrNoAnalyses = errors.New("merge: no analyses to merge")

type Merger struct {
	limits Limits
}

func NewMerger(limits Limits) *Merger {
	return &Merger{limits: limits}
}

// Merge combines chunk analyses given in document order.
//
// A single analysis comes back unchanged. Otherwise the first summary wins,
// list fields are unioned (most frequent first, then first seen) and capped,
// categorical scalars go to majority vote with ties to the first seen value,
// and confidence is the mean scaled down by chunk count.
func (m *Merger) Merge(parts []entity.Analysis) (entity.Analysis, error) {
	switch len(parts) {
	case 0:
		return entity.Analysis{}, ErrNoAnalyses
	case 1:
		return parts[0], nil
	}

	l := m.limits
	out := entity.Analysis{
		Summary: parts[0].Summary,
	}

	pick := func(f func(entity.Analysis) []string, limit int) []string {
		lists := make([][]string, len(parts))
		for i, p := range parts {
			lists[i] = f(p)
		}
		return rankedUnion(lists, limit)
	}
	out.KeyInsights = pick(func(a entity.Analysis) []string { return a.KeyInsights }, l.MaxInsights)
	out.KeyFindings = pick(func(a entity.Analysis) []string { return a.KeyFindings }, l.MaxFindings)
	out.Topics = pick(func(a entity.Analysis) []string { return a.Topics }, l.MaxTopics)
	out.ContentFocus = pick(func(a entity.Analysis) []string { return a.ContentFocus }, l.MaxLabels)
	out.TemporalNature = pick(func(a entity.Analysis) []string { return a.TemporalNature }, l.MaxLabels)
	out.TargetAudience = pick(func(a entity.Analysis) []string { return a.TargetAudience }, l.MaxLabels)
	out.Entities = entity.Entities{
		Companies:      pick(func(a entity.Analysis) []string { return a.Entities.Companies }, l.MaxEntities),
		Games:          pick(func(a entity.Analysis) []string { return a.Entities.Games }, l.MaxEntities),
		Technologies:   pick(func(a entity.Analysis) []string { return a.Entities.Technologies }, l.MaxEntities),
		Regions:        pick(func(a entity.Analysis) []string { return a.Entities.Regions }, l.MaxEntities),
		Genres:         pick(func(a entity.Analysis) []string { return a.Entities.Genres }, l.MaxEntities),
		Platforms:      pick(func(a entity.Analysis) []string { return a.Entities.Platforms }, l.MaxEntities),
		BusinessModels: pick(func(a entity.Analysis) []string { return a.Entities.BusinessModels }, l.MaxEntities),
	}
	out.Metrics = mergeMetrics(parts, l.MaxMetrics)

	vote := func(f func(entity.Analysis) string) string {
		values := make([]string, len(parts))
		for i, p := range parts {
			values[i] = f(p)
		}
		return majority(values)
	}
	out.Sentiment = vote(func(a entity.Analysis) string { return a.Sentiment })
	out.ReportType = vote(func(a entity.Analysis) string { return a.ReportType })
	out.GeographicScope = vote(func(a entity.Analysis) string { return a.GeographicScope })
	out.DataCharacteristics = vote(func(a entity.Analysis) string { return a.DataCharacteristics })

	var confSum float64
	for _, p := range parts {
		confSum += p.Confidence
		if out.Methodology == "" {
			out.Methodology = p.Methodology
		}
		if p.PageCount > out.PageCount {
			out.PageCount = p.PageCount
		}
	}
	out.Confidence = DecayedConfidence(confSum/float64(len(parts)), len(parts), l.ConfidenceDecay)
	return out, nil
}

// DecayedConfidence scales mean by 1/(1+decay*(n-1)); strictly decreasing in n for decay > 0.
func DecayedConfidence(mean float64, n int, decay float64) float64 {
	if n < 1 {
		n = 1
	}
	c := mean / (1 + decay*float64(n-1))
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// rankedUnion dedupes by exact string, orders by frequency desc then first
// appearance, and truncates to limit (limit <= 0 means no cap).
func rankedUnion(lists [][]string, limit int) []string {
	type entry struct {
		value string
		count int
		first int
	}
	idx := map[string]*entry{}
	var order []*entry
	for _, list := range lists {
		for _, v := range list {
			if v == "" {
				continue
			}
			if e, ok := idx[v]; ok {
				e.count++
				continue
			}
			e := &entry{value: v, count: 1, first: len(order)}
			idx[v] = e
			order = append(order, e)
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].count != order[j].count {
			return order[i].count > order[j].count
		}
		return order[i].first < order[j].first
	})
	if limit > 0 && len(order) > limit {
		order = order[:limit]
	}
	out := make([]string, len(order))
	for i, e := range order {
		out[i] = e.value
	}
	return out
}

// majority returns the most common non-empty value; ties go to the first seen.
func majority(values []string) string {
	counts := map[string]int{}
	best, bestCount := "", 0
	for _, v := range values {
		if v == "" {
			continue
		}
		counts[v]++
	}
	for _, v := range values {
		if v == "" {
			continue
		}
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best
}

func mergeMetrics(parts []entity.Analysis, limit int) []entity.Metric {
	type key struct{ value, context, unit string }
	seen := map[key]bool{}
	out := []entity.Metric{}
	for _, p := range parts {
		for _, mt := range p.Metrics {
			k := key{mt.Value, mt.Context, mt.Unit}
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, mt)
			if limit > 0 && len(out) == limit {
				return out
			}
		}
	}
	return out
}
