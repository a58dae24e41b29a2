package entity

import "errors"

var (
	// Instance errors
	ErrInvalidInstanceID = errors.New("invalid instance id")
	ErrInvalidIndustry   = errors.New("invalid industry")
	ErrNoInstance        = errors.New("no instance selected")

	// Conversation errors
	ErrInvalidConversationID = errors.New("invalid conversation id")
	ErrEmptyTag              = errors.New("empty tag")
	ErrUnknownStage          = errors.New("unknown pipeline stage")

	// Pipeline errors
	ErrStageInUse     = errors.New("pipeline stage still referenced by conversations")
	ErrDuplicateStage = errors.New("duplicate pipeline stage id")

	// Task errors
	ErrInvalidTaskID = errors.New("invalid task id")
	ErrEmptyContent  = errors.New("empty task content")
)
