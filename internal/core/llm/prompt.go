package llm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/reports-catalog/constants"
)

const responseShape = `{
  "summary": "2-3 sentence executive summary",
  "keyInsights": ["insight", "..."],
  "keyFindings": ["specific finding with numbers where available", "..."],
  "topics": ["topic", "..."],
  "extractedEntities": {
    "companies": [], "games": [], "technologies": [], "regions": [],
    "genres": [], "platforms": [], "businessModels": []
  },
  "extractedMetrics": [
    {"value": "2.5", "context": "global mobile revenue", "unit": "USD billion", "timeframe": "2024", "region": "Global"}
  ],
  "reportType": "one report type",
  "contentFocus": ["one or more content focus areas"],
  "geographicScope": "one geographic scope",
  "temporalNature": ["one or more temporal labels"],
  "dataCharacteristics": "one data characteristic",
  "targetAudience": ["one or more audiences"],
  "methodology": "how the data was gathered, if stated",
  "sentiment": "positive | neutral | negative",
  "confidence": 0.0
}`

// BuildPrompt renders the single chat prompt for one chunk.
func BuildPrompt(req ChunkRequest) string {
	var b strings.Builder

	b.WriteString("You are an analyst cataloguing gaming-industry research reports. ")
	b.WriteString("Read the report excerpt below and classify it against the taxonomy. ")
	b.WriteString("Return ONLY one JSON object with exactly the shape shown. Never output null; use empty arrays or omit optional fields.\n\n")

	b.WriteString("DOCUMENT\n")
	fmt.Fprintf(&b, "Title: %s\n", req.Title)
	fmt.Fprintf(&b, "Category: %s\n", req.Category)
	fmt.Fprintf(&b, "Source: %s\n", orUnknown(req.Source))
	year := "Unknown"
	if req.Year > 0 {
		year = strconv.Itoa(req.Year)
	}
	fmt.Fprintf(&b, "Year: %s\n", year)
	if req.ChunkCount > 1 {
		fmt.Fprintf(&b, "Excerpt: part %d of %d\n", req.ChunkIndex+1, req.ChunkCount)
	}
	fmt.Fprintf(&b, "Text quality: %s\n", orUnknown(req.Characteristics.TextQuality))
	fmt.Fprintf(&b, "Data intensity: %s\n\n", orUnknown(req.Characteristics.DataIntensity))

	b.WriteString("TAXONOMY (use these labels verbatim)\n")
	writeLabels(&b, "Report types", constants.ReportTypes)
	writeLabels(&b, "Content focus", constants.ContentFocusAreas)
	writeLabels(&b, "Geographic scope", constants.GeographicScopes)
	writeLabels(&b, "Temporal nature", constants.TemporalNatures)
	writeLabels(&b, "Data characteristics", constants.DataCharacteristics)
	writeLabels(&b, "Target audience", constants.TargetAudiences)

	b.WriteString("\nRULES\n")
	b.WriteString("- keyFindings: up to 10, concrete and quantitative when the text allows.\n")
	b.WriteString("- extractedMetrics: only numbers stated in the text; value without the unit.\n")
	b.WriteString("- confidence: 0..1, how well the excerpt supports your classification.\n\n")

	b.WriteString("JSON SHAPE\n")
	b.WriteString(responseShape)
	b.WriteString("\n\nREPORT TEXT\n")
	b.WriteString(req.Text)
	return b.String()
}

func writeLabels(b *strings.Builder, name string, labels []string) {
	b.WriteString("- ")
	b.WriteString(name)
	b.WriteString(": ")
	b.WriteString(strings.Join(labels, "; "))
	b.WriteByte('\n')
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}
