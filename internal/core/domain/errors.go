package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrTemporary     = errors.New("temporary failure")
	ErrConfig        = errors.New("configuration error")
	ErrJudgeContract = errors.New("judge output contract violation")

	// ErrAnswerFailed is the single opaque error surfaced to chat callers.
	// Stage-level detail stays in server logs.
	ErrAnswerFailed = errors.New("failed to generate response")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
