package commands

import (
	"context"
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	commandValidationCode   = "COMMAND_VALIDATION_FAILED"
	commandContextCanceled  = "COMMAND_CONTEXT_CANCELED"
	commandContextTimeout   = "COMMAND_CONTEXT_TIMEOUT"
	commandContextErrorCode = "COMMAND_CONTEXT_ERROR"
	commandExecuteFailed    = "COMMAND_EXECUTION_FAILED"
	commandNotFoundCode     = "COMMAND_TARGET_NOT_FOUND"
	commandConflictCode     = "COMMAND_VERSION_CONFLICT"
)

// WrapValidationError tags message or payload validation failures.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, "command validation failed").
		WithTextCode(commandValidationCode)
}

// WrapContextError tags cancellation and deadline failures.
func WrapContextError(err error) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return goerrors.Wrap(err, goerrors.CategoryCommand, "command execution cancelled").
			WithTextCode(commandContextCanceled)
	case errors.Is(err, context.DeadlineExceeded):
		return goerrors.Wrap(err, goerrors.CategoryCommand, "command execution deadline exceeded").
			WithTextCode(commandContextTimeout)
	default:
		return goerrors.Wrap(err, goerrors.CategoryCommand, "command context error").
			WithTextCode(commandContextErrorCode)
	}
}

// WrapExecuteError tags failures returned by the wrapped command function.
func WrapExecuteError(err error) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryCommand, "command execution failed").
		WithTextCode(commandExecuteFailed)
}

var (
	// ErrTargetNotFound marks a command whose target record does not exist.
	ErrTargetNotFound = errors.New("commands: target not found")
	// ErrVersionConflict marks a command that lost an optimistic concurrency race.
	ErrVersionConflict = errors.New("commands: version conflict")
	// ErrRejected marks a command whose request was refused by validation.
	ErrRejected = errors.New("commands: request rejected")
)

// NotFoundError reports a missing command target such as an unknown book.
func NotFoundError(message string) error {
	return goerrors.Wrap(ErrTargetNotFound, goerrors.CategoryNotFound, message).
		WithTextCode(commandNotFoundCode)
}

// ConflictError reports an optimistic concurrency failure.
func ConflictError(message string) error {
	return goerrors.Wrap(ErrVersionConflict, goerrors.CategoryConflict, message).
		WithTextCode(commandConflictCode)
}

// RejectedError reports a request refused by validation, listing every reason.
func RejectedError(reasons []string) error {
	message := "request rejected"
	if len(reasons) > 0 {
		message = strings.Join(reasons, "; ")
	}
	return goerrors.Wrap(ErrRejected, goerrors.CategoryValidation, message).
		WithTextCode(commandValidationCode)
}
