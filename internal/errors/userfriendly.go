package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"os/exec"
	"strings"
)

// UserFriendlyError provides user-friendly error messages with context and hints
type UserFriendlyError struct {
	Message string
	Reason  string
	Hint    string
	Try     string
	Err     error
}

func (e UserFriendlyError) Error() string {
	var buf strings.Builder
	buf.WriteString(e.Message)
	if e.Reason != "" {
		buf.WriteString("\n  Reason: " + e.Reason)
	}
	if e.Hint != "" {
		buf.WriteString("\n  Hint: " + e.Hint)
	}
	if e.Try != "" {
		buf.WriteString("\n  Try: " + e.Try)
	}
	if e.Err != nil {
		buf.WriteString("\n  Details: " + e.Err.Error())
	}
	return buf.String()
}

func (e UserFriendlyError) Unwrap() error {
	return e.Err
}

// WrapConfigError wraps configuration errors with user-friendly context
func WrapConfigError(err error, configPath string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Configuration error in %s", configPath),
		Reason:  err.Error(),
		Hint:    "Unknown keys are rejected; durations use Go syntax such as 30s or 2m",
		Try:     "pccov config > pccov.yaml to start from the defaults",
		Err:     err,
	}
}

// WrapInputError reports a record line that could not be decoded. The run
// cannot continue because a partial aggregate would be misleading.
func WrapInputError(err error, inputPath string, lineNo int) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Malformed coverage record at %s:%d", inputPath, lineNo),
		Reason:  extractInputReason(err),
		Hint:    "Each non-blank line must be one JSON array: [\"<base dir>\", <script entry>...]",
		Try:     fmt.Sprintf("sed -n '%dp' %s | head -c 300", lineNo, inputPath),
		Err:     err,
	}
}

// WrapDisassemblerError wraps failures to locate or start the script shell.
func WrapDisassemblerError(err error, shell string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Cannot run disassembler %q", shell),
		Reason:  extractDisassemblerReason(err),
		Hint:    "Unexecuted files are discovered by disassembling them with the engine's shell",
		Try:     "pass --shell /path/to/js, or --no-backfill to emit dynamic data only",
		Err:     err,
	}
}

func extractInputReason(err error) string {
	errStr := err.Error()

	if strings.Contains(errStr, "invalid JSON") {
		return "Line is not valid JSON (truncated write or interleaved output?)"
	}
	if strings.Contains(errStr, "not an array") {
		return "Record is valid JSON but not an array"
	}
	if strings.Contains(errStr, "base directory") {
		return "First array element must be the base directory string"
	}

	return "Record does not follow the pccount stream format"
}

func extractDisassemblerReason(err error) string {
	if stderrors.Is(err, exec.ErrNotFound) {
		return "Executable not found in PATH"
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return "Disassembler did not finish within the timeout"
	}

	errStr := err.Error()
	if strings.Contains(errStr, "permission denied") {
		return "Executable is not runnable by the current user"
	}
	if strings.Contains(errStr, "no such file") || strings.Contains(errStr, "not found") {
		return "Executable path does not exist"
	}

	return "Disassembler invocation failed"
}
