package entity

// Analysis is the model-derived result owned by a Document.
type Analysis struct {
	Summary             string      `json:"summary"`
	KeyInsights         []string    `json:"keyInsights"`
	KeyFindings         []string    `json:"keyFindings"`
	Topics              []string    `json:"topics"`
	Entities            Entities    `json:"extractedEntities"`
	Metrics             []Metric    `json:"extractedMetrics"`
	ReportType          string      `json:"reportType"`
	ContentFocus        []string    `json:"contentFocus"`
	GeographicScope     string      `json:"geographicScope"`
	TemporalNature      []string    `json:"temporalNature"`
	DataCharacteristics string      `json:"dataCharacteristics"`
	TargetAudience      []string    `json:"targetAudience"`
	Methodology         string      `json:"methodology,omitempty"`
	Sentiment           string      `json:"sentiment"`
	Confidence          float64     `json:"confidence"`
	PageCount           int         `json:"pageCount"`
	DataQuality         DataQuality `json:"dataQuality"`
}

type Entities struct {
	Companies      []string `json:"companies"`
	Games          []string `json:"games"`
	Technologies   []string `json:"technologies"`
	Regions        []string `json:"regions"`
	Genres         []string `json:"genres"`
	Platforms      []string `json:"platforms"`
	BusinessModels []string `json:"businessModels"`
}

type Metric struct {
	Value     string `json:"value"`
	Context   string `json:"context"`
	Unit      string `json:"unit"`
	Timeframe string `json:"timeframe,omitempty"`
	Region    string `json:"region,omitempty"`
}

type DataQuality struct {
	TextExtractionQuality string   `json:"textExtractionQuality"`
	DataCompleteness      float64  `json:"dataCompleteness"`
	Confidence            float64  `json:"confidence"`
	ProcessingNotes       []string `json:"processingNotes"`
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s...)
}

// Clone returns a deep copy of the analysis.
func (a Analysis) Clone() Analysis {
	out := a
	out.KeyInsights = cloneStrings(a.KeyInsights)
	out.KeyFindings = cloneStrings(a.KeyFindings)
	out.Topics = cloneStrings(a.Topics)
	out.ContentFocus = cloneStrings(a.ContentFocus)
	out.TemporalNature = cloneStrings(a.TemporalNature)
	out.TargetAudience = cloneStrings(a.TargetAudience)
	out.Entities = Entities{
		Companies:      cloneStrings(a.Entities.Companies),
		Games:          cloneStrings(a.Entities.Games),
		Technologies:   cloneStrings(a.Entities.Technologies),
		Regions:        cloneStrings(a.Entities.Regions),
		Genres:         cloneStrings(a.Entities.Genres),
		Platforms:      cloneStrings(a.Entities.Platforms),
		BusinessModels: cloneStrings(a.Entities.BusinessModels),
	}
	if a.Metrics != nil {
		out.Metrics = append([]Metric{}, a.Metrics...)
	}
	out.DataQuality.ProcessingNotes = cloneStrings(a.DataQuality.ProcessingNotes)
	return out
}
