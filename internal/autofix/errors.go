// File: internal/autofix/errors.go
package autofix

import "errors"

// Failure kinds. Each one ends a single test, never the session.
var (
	ErrInfrastructureSkip     = errors.New("infrastructure failure, not fixable in test code")
	ErrPromptInjectionFlagged = errors.New("prompt injection flagged")
	ErrAPITimeout             = errors.New("reasoning service timed out")
	ErrAPIFailureAfterRetries = errors.New("reasoning service failed after retries")
	ErrCodeExtraction         = errors.New("no usable code block in response")
	ErrCodeValidation         = errors.New("generated code rejected")
	ErrBackup                 = errors.New("backup failed")
	ErrWriteVerification      = errors.New("write verification failed")
	ErrTestVerification       = errors.New("test verification failed")
)
