package types

import (
	"errors"
	"fmt"
)

const (
	CodeValidation        = "VALIDATION"
	CodeCDPUnavailable    = "CDP_UNAVAILABLE"
	CodeBridgeNotFound    = "BRIDGE_NOT_FOUND"
	CodeEvalFailure       = "EVAL_FAILURE"
	CodeEvalTimeout       = "EVAL_TIMEOUT"
	CodeOracleUnavailable = "ORACLE_UNAVAILABLE"
	CodeOracleTimeout     = "ORACLE_TIMEOUT"
	CodeOracleBadResponse = "ORACLE_BAD_RESPONSE"
	CodeRunInProgress     = "RUN_IN_PROGRESS"
)

// CodedError is a typed error used for stable API mapping.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *CodedError) Unwrap() error { return e.Cause }

// NewError builds a *CodedError.
func NewError(code, msg string, cause error) error {
	return &CodedError{Code: code, Message: msg, Cause: cause}
}

// HasCode reports whether err wraps a *CodedError with the given code.
func HasCode(err error, code string) bool {
	var coded *CodedError
	if !errors.As(err, &coded) {
		return false
	}
	return coded.Code == code
}

// IsOracleFailure reports whether err aborted a run at the oracle step.
func IsOracleFailure(err error) bool {
	return HasCode(err, CodeOracleUnavailable) ||
		HasCode(err, CodeOracleTimeout) ||
		HasCode(err, CodeOracleBadResponse)
}
