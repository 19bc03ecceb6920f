package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/reports-catalog/constants"
)

var topLevelKeys = map[string]struct{}{
	"summary": {}, "keyInsights": {}, "keyFindings": {}, "topics": {},
	"extractedEntities": {}, "extractedMetrics": {},
	"reportType": {}, "contentFocus": {}, "geographicScope": {}, "temporalNature": {},
	"dataCharacteristics": {}, "targetAudience": {}, "methodology": {},
	"sentiment": {}, "confidence": {}, "pageCount": {},
}

// NormalizeAndSanitizeJSON brings a model reply into the analysis schema's shape:
//   - renames known synonyms (keyPoints -> keyInsights, entities -> extractedEntities)
//   - drops nulls and unknown keys
//   - coerces lists, confidence and metric values
//   - snaps taxonomy labels to their canonical spelling, dropping unknown ones
//
// It returns the cleaned JSON and a list of what was changed, for logging.
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	changed := make([]string, 0, 8)
	rename := func(from, to string) {
		if v, ok := m[from]; ok {
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
			changed = append(changed, from+"->"+to)
		}
	}
	rename("keyPoints", "keyInsights")
	rename("key_insights", "keyInsights")
	rename("key_findings", "keyFindings")
	rename("entities", "extractedEntities")
	rename("metrics", "extractedMetrics")
	rename("report_type", "reportType")
	rename("content_focus", "contentFocus")
	rename("geographic_scope", "geographicScope")
	rename("temporal_nature", "temporalNature")
	rename("data_characteristics", "dataCharacteristics")
	rename("target_audience", "targetAudience")

	for k, v := range m {
		if _, ok := topLevelKeys[k]; !ok {
			delete(m, k)
			changed = append(changed, k+"(unknown)")
			continue
		}
		if v == nil {
			delete(m, k)
			changed = append(changed, k+"(null)")
		}
	}

	if s, ok := m["summary"].(string); ok {
		m["summary"] = strings.TrimSpace(s)
	}
	if s, ok := m["methodology"].(string); ok {
		m["methodology"] = strings.TrimSpace(s)
	}

	for _, k := range []string{"keyInsights", "keyFindings", "topics"} {
		m[k] = coerceStringList(m[k])
	}
	m["extractedEntities"] = sanitizeEntities(m["extractedEntities"], &changed)
	m["extractedMetrics"] = sanitizeMetrics(m["extractedMetrics"], &changed)

	snapScalar := func(key string, allowed []string) {
		v, ok := m[key]
		if !ok {
			return
		}
		s, _ := v.(string)
		if label, ok := canonicalLabel(s, allowed); ok {
			m[key] = label
			return
		}
		delete(m, key)
		changed = append(changed, fmt.Sprintf("%s(%v)", key, v))
	}
	snapList := func(key string, allowed []string) {
		var out []string
		for _, s := range coerceStringList(m[key]) {
			if label, ok := canonicalLabel(s, allowed); ok {
				out = append(out, label)
			} else {
				changed = append(changed, key+"("+s+")")
			}
		}
		if out == nil {
			out = []string{}
		}
		m[key] = out
	}
	snapScalar("reportType", constants.ReportTypes)
	snapScalar("geographicScope", constants.GeographicScopes)
	snapScalar("dataCharacteristics", constants.DataCharacteristics)
	snapList("contentFocus", constants.ContentFocusAreas)
	snapList("temporalNature", constants.TemporalNatures)
	snapList("targetAudience", constants.TargetAudiences)

	if s, ok := m["sentiment"].(string); ok {
		m["sentiment"] = strings.ToLower(strings.TrimSpace(s))
	}

	if v, ok := m["confidence"]; ok {
		if f, ok := toFloat(v); ok {
			if f > 1 && f <= 100 {
				f = f / 100
			}
			m["confidence"] = math.Max(0, math.Min(1, f))
		}
	}
	if v, ok := m["pageCount"]; ok {
		if f, ok := toFloat(v); ok && f >= 0 {
			m["pageCount"] = int(f)
		} else {
			delete(m, "pageCount")
			changed = append(changed, "pageCount(type)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, changed, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(changed) > 0 {
		logger.Debug("llm.sanitize.changed", "changes", changed)
	}
	return out, changed, nil
}

func coerceStringList(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

func sanitizeEntities(v any, changed *[]string) map[string]any {
	out := make(map[string]any, len(EntityKeys))
	src, ok := v.(map[string]any)
	if !ok && v != nil {
		*changed = append(*changed, "extractedEntities(type)")
	}
	for _, k := range EntityKeys {
		out[k] = coerceStringList(src[k])
	}
	if src != nil {
		if bm, ok := src["business_models"]; ok && len(out["businessModels"].([]string)) == 0 {
			out["businessModels"] = coerceStringList(bm)
		}
	}
	return out
}

func sanitizeMetrics(v any, changed *[]string) []any {
	out := []any{}
	items, _ := v.([]any)
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			*changed = append(*changed, "extractedMetrics(item)")
			continue
		}
		metric := map[string]any{}
		for _, k := range []string{"value", "context", "unit", "timeframe", "region"} {
			switch t := obj[k].(type) {
			case string:
				if s := strings.TrimSpace(t); s != "" {
					metric[k] = s
				}
			case float64:
				metric[k] = strconv.FormatFloat(t, 'f', -1, 64)
			}
		}
		if metric["value"] == nil || metric["context"] == nil {
			*changed = append(*changed, "extractedMetrics(incomplete)")
			continue
		}
		if metric["unit"] == nil {
			metric["unit"] = ""
		}
		out = append(out, metric)
	}
	return out
}

func canonicalLabel(s string, allowed []string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, a := range allowed {
		if strings.EqualFold(a, s) {
			return a, true
		}
	}
	return "", false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(t), "%"), 64)
		return f, err == nil
	}
	return 0, false
}
