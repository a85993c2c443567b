package pipeline

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a pipeline failure.
type ErrorCode string

const (
	// CodeReadFailure means the spreadsheet could not be read.
	CodeReadFailure ErrorCode = "READ_FAILURE"
	// CodeSchemaViolation means the service response did not match the expected shape.
	CodeSchemaViolation ErrorCode = "SCHEMA_VIOLATION"
	// CodeServiceFailure means the extraction service call itself failed.
	CodeServiceFailure ErrorCode = "SERVICE_FAILURE"
	// CodeEmptyStore means a question was asked before any statement was loaded.
	CodeEmptyStore ErrorCode = "EMPTY_STORE"
)

// Error is a structured pipeline failure.
type Error struct {
	Code    ErrorCode
	Stage   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s [%s] %s: %v", e.Stage, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s [%s] %s", e.Stage, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(code ErrorCode, stage, message string, cause error) *Error {
	return &Error{Code: code, Stage: stage, Message: message, Cause: cause}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
