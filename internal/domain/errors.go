package domain

import (
	"errors"
	"fmt"
)

var (
	ErrJobActive        = errors.New("a job is already running")
	ErrNoArticles       = errors.New("no articles available")
	ErrEmptyContent     = errors.New("content is empty")
	ErrPosterNotFound   = errors.New("poster file does not exist")
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrInvalidDate      = errors.New("invalid date")
	ErrNoConfigUpdates  = errors.New("no configuration updates")
)

// StageError wraps a collaborator failure with the pipeline stage it happened in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError returns nil when err is nil.
func NewStageError(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}
