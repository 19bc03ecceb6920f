package pipeline

import (
	"github.com/joseph-ayodele/reports-catalog/constants"
	"github.com/joseph-ayodele/reports-catalog/internal/entity"
)

// NeedsProcessing reports whether a file must be (re)analyzed given its last
// processing record. Only a completed record for the same content hash and
// processing version lets the file be skipped.
func NeedsProcessing(rec *entity.ProcessingRecord, currentHash, version string) bool {
	switch {
	case rec == nil:
		return true
	case rec.Status != constants.RecordCompleted:
		return true
	case rec.FileHash != currentHash:
		return true
	default:
		return rec.ProcessingVersion != version
	}
}
