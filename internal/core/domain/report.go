package domain

import "time"

// SourceReport summarises one extractor's run.
type SourceReport struct {
	Name      string
	Documents int
	Failures  []Failure
	Duration  time.Duration
}

// RunReport summarises a full pipeline run.
type RunReport struct {
	Sources    []SourceReport
	Documents  int
	Chunks     int
	IndexState IndexState
	StartedAt  time.Time
	FinishedAt time.Time
}

// FailureCount returns the number of skipped items across all sources.
func (r *RunReport) FailureCount() int {
	n := 0
	for _, s := range r.Sources {
		n += len(s.Failures)
	}
	return n
}
