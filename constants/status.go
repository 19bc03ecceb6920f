package constants

// ProcessingStatus is the lifecycle state of a catalog document.
type ProcessingStatus string

// Stable values (stored as-is in documents.json and the documents table).
const (
	StatusPending    ProcessingStatus = "pending"    // indexed, not analyzed yet
	StatusProcessing ProcessingStatus = "processing" // picked up by a run
	StatusCompleted  ProcessingStatus = "completed"  // analysis attached
	StatusFailed     ProcessingStatus = "failed"     // terminal failure, see processing record
)

func (s ProcessingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// RecordStatus is the outcome stored on a processing record.
type RecordStatus string

const (
	RecordCompleted RecordStatus = "completed"
	RecordFailed    RecordStatus = "failed"
)

// ProcessingVersion tags records so a change in analysis logic forces reprocessing.
const ProcessingVersion = "2.0.0"

// Sentiment values accepted from the model.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)
