package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	apperrors "github.com/rajasatyajit/EcoScan/internal/errors"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Product not found or rejected input
	ExitCommandError = 2 // Command error (bad config, unreachable store, etc.)
)

// Error codes carried in JSON error output.
const (
	ErrCodeGeneric      = "E001"
	ErrCodeNotFound     = "E002"
	ErrCodeInvalidInput = "E003"
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)

	reported bool
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Reported tells main whether the error was already written to the output
func (e *ExitError) Reported() bool {
	return e.reported
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // verbose and warning output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status  string      `json:"status"`            // "ok" or "error"
	Data    interface{} `json:"data,omitempty"`    // success payload
	Error   *CLIError   `json:"error,omitempty"`   // error details
	Warning string      `json:"warning,omitempty"` // non-fatal problem
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Success outputs data as a JSON envelope, or through text for humans.
func (f *OutputFormatter) Success(data interface{}, text func(w io.Writer)) error {
	return f.SuccessWithWarning(data, "", text)
}

// SuccessWithWarning is Success plus a non-fatal warning. In text mode the
// warning goes to ErrWriter.
func (f *OutputFormatter) SuccessWithWarning(data interface{}, warning string, text func(w io.Writer)) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status:  "ok",
			Data:    data,
			Warning: warning,
		})
	}

	if text != nil {
		text(f.Writer)
	} else {
		fmt.Fprintln(f.Writer, data)
	}
	if warning != "" {
		fmt.Fprintf(f.GetErrWriter(), "Warning: %s\n", warning)
	}
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.GetErrWriter(), "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.GetErrWriter(), "Details: %v\n", details)
	}
	return nil
}

// Fail reports err in the configured format and returns the ExitError the
// command should return.
func (f *OutputFormatter) Fail(err error) error {
	code, exit := ErrCodeGeneric, ExitCommandError
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		code, exit = ErrCodeNotFound, ExitFailure
	case errors.Is(err, apperrors.ErrInvalidInput):
		code, exit = ErrCodeInvalidInput, ExitFailure
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		exit = exitErr.Code
	}

	if outErr := f.Error(code, err.Error(), nil); outErr != nil {
		return outErr
	}
	return &ExitError{Code: exit, Message: err.Error(), Err: err, reported: true}
}

// VerboseLog outputs a message only if verbose mode is enabled.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
