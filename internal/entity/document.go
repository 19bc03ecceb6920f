package entity

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/reports-catalog/constants"
)

// Document is one catalog entry for a source PDF.
type Document struct {
	ID               string                     `json:"id"`
	Title            string                     `json:"title"`
	FileName         string                     `json:"fileName"`
	FilePath         string                     `json:"filePath"`
	FileSize         int64                      `json:"fileSize"`
	Category         string                     `json:"category"`
	UploadDate       time.Time                  `json:"uploadDate"`
	ProcessedDate    *time.Time                 `json:"processedDate,omitempty"`
	ProcessingStatus constants.ProcessingStatus `json:"processingStatus"`
	Metadata         Metadata                   `json:"metadata"`
	Analysis         *Analysis                  `json:"aiAnalysis,omitempty"`
}

// Metadata is parsed from the file name and folder.
type Metadata struct {
	Source      string   `json:"source,omitempty"`
	Year        int      `json:"year,omitempty"`
	Quarter     string   `json:"quarter,omitempty"`
	Region      string   `json:"region,omitempty"`
	Tags        []string `json:"tags"`
	Description string   `json:"description,omitempty"`
}

var ErrStatusInvariant = errors.New("processedDate and aiAnalysis must be set iff status is completed")

// DocumentID derives the stable id from the path relative to the reports root.
func DocumentID(relPath string) string {
	sum := md5.Sum([]byte(filepath.ToSlash(relPath)))
	return hex.EncodeToString(sum[:])[:16]
}

// Validate checks required fields and the completed-status invariant.
func (d *Document) Validate() error {
	if d.ID == "" || d.Title == "" || d.FileName == "" || d.FilePath == "" || d.Category == "" {
		return fmt.Errorf("document %q: missing required fields (id, title, fileName, filePath, category)", d.ID)
	}
	if !d.ProcessingStatus.Valid() {
		return fmt.Errorf("document %s: unknown processing status %q", d.ID, d.ProcessingStatus)
	}
	completed := d.ProcessingStatus == constants.StatusCompleted
	if completed != (d.ProcessedDate != nil) || completed != (d.Analysis != nil) {
		return fmt.Errorf("document %s (%s): %w", d.ID, d.ProcessingStatus, ErrStatusInvariant)
	}
	return nil
}

// MarkProcessing moves the document into the processing state.
func (d *Document) MarkProcessing() {
	d.ProcessingStatus = constants.StatusProcessing
	d.ProcessedDate = nil
	d.Analysis = nil
}

// MarkCompleted attaches a fresh analysis. The previous one is replaced, never merged.
func (d *Document) MarkCompleted(a Analysis, at time.Time) {
	t := at.UTC()
	d.ProcessingStatus = constants.StatusCompleted
	d.ProcessedDate = &t
	d.Analysis = &a
}

// MarkFailed clears analysis so a failed document never carries stale results.
func (d *Document) MarkFailed() {
	d.ProcessingStatus = constants.StatusFailed
	d.ProcessedDate = nil
	d.Analysis = nil
}

// Clone returns a deep copy; slices and pointers are not shared.
func (d Document) Clone() Document {
	out := d
	out.Metadata.Tags = append([]string(nil), d.Metadata.Tags...)
	if d.ProcessedDate != nil {
		t := *d.ProcessedDate
		out.ProcessedDate = &t
	}
	if d.Analysis != nil {
		a := d.Analysis.Clone()
		out.Analysis = &a
	}
	return out
}
