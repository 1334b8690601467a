// Package services defines the business logic of the diary backend: the
// enrichment pipeline (requirement, topic and completeness resolution under
// one transaction) and the boundary services used by the HTTP layer.
//
// This file centralizes service-level error values so that they can be
// returned consistently by service methods and mapped to HTTP results by the
// handler layer.
package services

import (
	"errors"
	"fmt"
)

// User-facing errors.
var (
	// ErrUserNotFound indicates that no user is registered for the given id.
	ErrUserNotFound = errors.New("user not found")

	// ErrMessageNotFound indicates that the requested message does not exist.
	ErrMessageNotFound = errors.New("message not found")

	// ErrEmptyText is returned when an inbound message has no text.
	ErrEmptyText = errors.New("text is empty")

	// ErrTooLong is returned when an inbound message exceeds the configured
	// rune limit.
	ErrTooLong = errors.New("text too long")

	// ErrInvalidTelegramID is returned for non-positive chat-platform ids.
	ErrInvalidTelegramID = errors.New("telegram id must be positive")

	// ErrRequirementNotFound indicates an unknown requirement id.
	ErrRequirementNotFound = errors.New("requirement not found")

	// ErrUnknownField is returned when a requirement names a field that is
	// not part of the attribute set.
	ErrUnknownField = errors.New("unknown attribute field")
)

// ErrPromptNotFound is returned when the topic prompt template is missing.
var ErrPromptNotFound = errors.New("prompt not found")

// Pipeline stages reported in StageError.
const (
	StageUser        = "user"
	StageMessage     = "message"
	StageExtract     = "extract"
	StageEntity      = "entity"
	StageRequirement = "requirement"
	StageTopic       = "topic"
	StageComplete    = "completeness"
	StageCommit      = "commit"
	StageQuestions   = "questions"
)

// StageError tags a pipeline failure with the stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage string, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

// StageOf returns the failing stage of a pipeline error, or "" when err did
// not come from a stage.
func StageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
