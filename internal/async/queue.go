// Package async runs single-document analysis in the background for the API.
package async

import (
	"context"
	"time"
)

// Job asks for one claimed document to be analyzed.
type Job struct {
	DocumentID  string
	SubmittedAt time.Time
	RequestID   string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
