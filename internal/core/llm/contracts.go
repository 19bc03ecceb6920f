package llm

import (
	"context"

	"github.com/joseph-ayodele/reports-catalog/internal/core/assess"
	"github.com/joseph-ayodele/reports-catalog/internal/entity"
)

// ChatCompleter sends one prompt and returns the model's raw text reply.
// Providers (openai, test fakes) implement it.
type ChatCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ChunkRequest is everything the prompt needs for one slice of a document.
type ChunkRequest struct {
	Text       string
	Title      string
	Category   string
	Source     string
	Year       int
	ChunkIndex int // 0-based
	ChunkCount int

	Characteristics assess.Characteristics
}

// ChunkAnalyzer is the interface the pipeline depends on.
type ChunkAnalyzer interface {
	AnalyzeChunk(ctx context.Context, req ChunkRequest) (entity.Analysis, error)
}
