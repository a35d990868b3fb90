package pipeline

import (
	"fmt"
	"time"

	"clipscribe/domain/source"

	"github.com/google/uuid"
)

// Stage is a state in the Job lifecycle
type Stage string

const (
	StageCreated     Stage = "created"
	StageValidated   Stage = "validated"
	StageFetched     Stage = "fetched"
	StageExtracted   Stage = "extracted"
	StageTranscribed Stage = "transcribed"
	StageDone        Stage = "done"
	StageFailed      Stage = "failed"
)

// IsTerminal reports whether no further transition is allowed
func (s Stage) IsTerminal() bool {
	return s == StageDone || s == StageFailed
}

// DefaultFailureKind is the kind used for unclassified errors raised while
// working towards the stage after s
func (s Stage) DefaultFailureKind() Kind {
	switch s {
	case StageCreated:
		return KindInvalidInput
	case StageValidated:
		return KindDownloadFailed
	case StageFetched:
		return KindExtractionFailed
	case StageExtracted:
		return KindTranscriptionFailed
	default:
		return KindInternalFailure
	}
}

// Job is one transcription request. It is owned by a single run and never shared.
type Job struct {
	ID        string
	URL       string
	Platform  source.Platform
	Translate bool
	Stage     Stage
	StartedAt time.Time
	Failure   *Error
}

// NewJob creates a Job in the created stage with a fresh random ID
func NewJob(url string, translate bool) *Job {
	return &Job{
		ID:        uuid.NewString(),
		URL:       url,
		Translate: translate,
		Stage:     StageCreated,
		StartedAt: time.Now(),
	}
}

// Advance moves the Job forward along the happy path
func (j *Job) Advance(to Stage) error {
	if !isValidTransition(j.Stage, to) {
		return fmt.Errorf("invalid job transition: %s -> %s", j.Stage, to)
	}
	j.Stage = to
	return nil
}

// Fail moves the Job to the failed stage and records the classified error.
// It returns the classified error for convenience.
func (j *Job) Fail(err error) *Error {
	classified := Classify(j.Stage, err)
	if j.Stage.IsTerminal() {
		return classified
	}
	j.Failure = classified
	j.Stage = StageFailed
	return classified
}

// Elapsed returns the time since the Job started
func (j *Job) Elapsed() time.Duration {
	return time.Since(j.StartedAt)
}

func isValidTransition(from, to Stage) bool {
	switch from {
	case StageCreated:
		return to == StageValidated
	case StageValidated:
		return to == StageFetched
	case StageFetched:
		return to == StageExtracted
	case StageExtracted:
		return to == StageTranscribed
	case StageTranscribed:
		return to == StageDone
	default:
		return false
	}
}
