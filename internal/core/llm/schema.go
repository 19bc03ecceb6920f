package llm

import "github.com/joseph-ayodele/reports-catalog/constants"

// EntityKeys are the extractedEntities categories, in prompt order.
var EntityKeys = []string{"companies", "games", "technologies", "regions", "genres", "platforms", "businessModels"}

// BuildAnalysisJSONSchema returns the JSON-Schema every model reply must satisfy
// after sanitizing. Taxonomy fields are constrained to the fixed label sets.
func BuildAnalysisJSONSchema() map[string]any {
	entityProps := map[string]any{}
	for _, k := range EntityKeys {
		entityProps[k] = stringList()
	}

	props := map[string]any{
		"summary":     map[string]any{"type": "string", "minLength": 1},
		"keyInsights": stringList(),
		"keyFindings": stringList(),
		"topics":      stringList(),
		"extractedEntities": map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties":           entityProps,
			"required":             EntityKeys,
		},
		"extractedMetrics": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"value":     map[string]any{"type": "string", "minLength": 1},
					"context":   map[string]any{"type": "string", "minLength": 1},
					"unit":      map[string]any{"type": "string"},
					"timeframe": map[string]any{"type": "string"},
					"region":    map[string]any{"type": "string"},
				},
				"required": []string{"value", "context", "unit"},
			},
		},
		"reportType":          enumString(constants.ReportTypes),
		"contentFocus":        enumList(constants.ContentFocusAreas),
		"geographicScope":     enumString(constants.GeographicScopes),
		"temporalNature":      enumList(constants.TemporalNatures),
		"dataCharacteristics": enumString(constants.DataCharacteristics),
		"targetAudience":      enumList(constants.TargetAudiences),
		"methodology":         map[string]any{"type": "string"},
		"sentiment": map[string]any{
			"type": "string",
			"enum": []string{constants.SentimentPositive, constants.SentimentNeutral, constants.SentimentNegative},
		},
		"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
		"pageCount":  map[string]any{"type": "integer", "minimum": 0},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             []string{"summary", "keyInsights", "topics", "extractedEntities", "sentiment", "confidence"},
	}
}

func stringList() map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
}

func enumString(values []string) map[string]any {
	return map[string]any{"type": "string", "enum": values}
}

func enumList(values []string) map[string]any {
	return map[string]any{"type": "array", "items": enumString(values)}
}
