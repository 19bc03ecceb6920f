package entity

import (
	"time"

	"github.com/joseph-ayodele/reports-catalog/constants"
)

// ProcessingRecord is the audit entry for the last analysis attempt of a file.
type ProcessingRecord struct {
	DocumentID        string                 `json:"documentId"`
	FilePath          string                 `json:"filePath"`
	FileHash          string                 `json:"fileHash"`
	ProcessedAt       time.Time              `json:"processedAt"`
	ProcessingVersion string                 `json:"processingVersion"`
	Status            constants.RecordStatus `json:"status"`
	Error             string                 `json:"error,omitempty"`
}
