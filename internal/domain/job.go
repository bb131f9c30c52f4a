package domain

import "time"

type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Segment is one bounded unit of source text submitted to the translation
// backend as a single request. Context carries trailing material from prior
// segments so continuity survives the segment boundary.
type Segment struct {
	Index   int    `json:"index"`
	Text    string `json:"text"`
	Context string `json:"context,omitempty"`
}

// Job is the stateful unit of work tracking one document translation from
// submission to result. Mutated only by the coordinator that owns it.
type Job struct {
	ID             string
	Filename       string
	Instructions   string
	SourceLang     string
	TargetLang     string
	Segments       []Segment
	Results        map[int]string
	Status         JobStatus
	CompletedCount int
	TotalCount     int
	Result         string
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ProgressPercent is floor(completed/total*100).
func (j *Job) ProgressPercent() int {
	if j.TotalCount <= 0 {
		return 0
	}
	percent := j.CompletedCount * 100 / j.TotalCount
	if percent > 100 {
		percent = 100
	}
	return percent
}
