package pipeline

import (
	"math/rand"
	"sort"

	"github.com/joseph-ayodele/reports-catalog/constants"
	"github.com/joseph-ayodele/reports-catalog/internal/entity"
)

// Selection picks which documents a run processes. Steps apply in order:
// index range, status filter, explicit files, priority ordering, sampling.
type Selection struct {
	From int // 0-based, inclusive
	To   int // exclusive; 0 means the end of the collection

	Statuses []constants.ProcessingStatus // default pending, failed and completed
	All      bool                         // ignore the status filter
	Files    []string                     // match filePath or fileName; empty = no filter

	Sample int   // keep a random N; 0 = keep everything
	Seed   int64 // seed for Sample

	Force bool // skip the reprocessing decision
}

// Completed documents are selected by default so a changed file or a new
// processing version is picked up; unchanged ones are skipped per document.
// Processing is left out: those are claimed by another runner.
func defaultStatuses() []constants.ProcessingStatus {
	return []constants.ProcessingStatus{constants.StatusPending, constants.StatusFailed, constants.StatusCompleted}
}

// Apply returns the selected documents in processing order. The input slice
// is not modified.
func (s Selection) Apply(docs []*entity.Document) []*entity.Document {
	from, to := s.From, s.To
	if from < 0 {
		from = 0
	}
	if to <= 0 || to > len(docs) {
		to = len(docs)
	}
	if from >= to {
		return nil
	}
	window := docs[from:to]

	statuses := s.Statuses
	if len(statuses) == 0 {
		statuses = defaultStatuses()
	}
	allowed := make(map[constants.ProcessingStatus]bool, len(statuses))
	for _, st := range statuses {
		allowed[st] = true
	}
	files := make(map[string]bool, len(s.Files))
	for _, f := range s.Files {
		files[f] = true
	}

	out := make([]*entity.Document, 0, len(window))
	for _, d := range window {
		if !s.All && !allowed[d.ProcessingStatus] {
			continue
		}
		if len(files) > 0 && !files[d.FilePath] && !files[d.FileName] {
			continue
		}
		out = append(out, d)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return priority(out[i]) < priority(out[j])
	})

	if s.Sample > 0 && s.Sample < len(out) {
		rng := rand.New(rand.NewSource(s.Seed))
		picked := rng.Perm(len(out))[:s.Sample]
		sort.Ints(picked)
		sampled := make([]*entity.Document, len(picked))
		for i, idx := range picked {
			sampled[i] = out[idx]
		}
		out = sampled
	}
	return out
}

func priority(d *entity.Document) int {
	if d.Analysis == nil {
		return constants.ReportTypePriority("")
	}
	return constants.ReportTypePriority(d.Analysis.ReportType)
}
