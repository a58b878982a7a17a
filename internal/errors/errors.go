package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"time"
)

// Error types for the reobf pipeline
type ErrorType string

const (
	// Integrity errors abort the run
	ErrorTypeIntegrity ErrorType = "integrity"

	// Input errors
	ErrorTypeParse  ErrorType = "parse"
	ErrorTypeRecord ErrorType = "record"

	// File errors
	ErrorTypeFileNotFound ErrorType = "file_not_found"
	ErrorTypePermission   ErrorType = "permission"

	// Configuration errors
	ErrorTypeConfig ErrorType = "config"

	// Internal errors
	ErrorTypeInternal ErrorType = "internal"
)

// IntegrityError reports a reserved marker field declared outside the
// first-party namespace.
type IntegrityError struct {
	Type      ErrorType
	Class     string
	Field     string
	Source    string
	Timestamp time.Time
}

// NewIntegrityError creates a new integrity error for the given class
func NewIntegrityError(class, field string) *IntegrityError {
	return &IntegrityError{
		Type:      ErrorTypeIntegrity,
		Class:     class,
		Field:     field,
		Timestamp: time.Now(),
	}
}

// WithSource records the archive the class came from
func (e *IntegrityError) WithSource(source string) *IntegrityError {
	e.Source = source
	return e
}

// Error implements the error interface
func (e *IntegrityError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("reserved field %s used outside the first-party namespace by %s (in %s)", e.Field, e.Class, e.Source)
	}
	return fmt.Sprintf("reserved field %s used outside the first-party namespace by %s", e.Field, e.Class)
}

// ParseError represents a malformed class file
type ParseError struct {
	Type       ErrorType
	Path       string
	Offset     int
	Underlying error
	Timestamp  time.Time
}

// NewParseError creates a new parse error at a byte offset
func NewParseError(path string, offset int, err error) *ParseError {
	return &ParseError{
		Type:       ErrorTypeParse,
		Path:       path,
		Offset:     offset,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("parse error in %s at offset %d: %v", e.Path, e.Offset, e.Underlying)
	}
	return fmt.Sprintf("parse error at offset %d: %v", e.Offset, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ParseError) Unwrap() error {
	return e.Underlying
}

// RecordError represents a malformed line in a text input
type RecordError struct {
	Type       ErrorType
	Path       string
	Line       int
	Text       string
	Underlying error
	Timestamp  time.Time
}

// NewRecordError creates a new record error
func NewRecordError(path string, line int, text string, err error) *RecordError {
	return &RecordError{
		Type:       ErrorTypeRecord,
		Path:       path,
		Line:       line,
		Text:       text,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *RecordError) Error() string {
	return fmt.Sprintf("malformed record at %s:%d (%q): %v", e.Path, e.Line, e.Text, e.Underlying)
}

// Unwrap returns the underlying error
func (e *RecordError) Unwrap() error {
	return e.Underlying
}

// FileError represents a file-related error
type FileError struct {
	Type       ErrorType
	Path       string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewFileError creates a new file error
func NewFileError(op, path string, err error) *FileError {
	errorType := ErrorTypeFileNotFound
	if isPermissionError(err) {
		errorType = ErrorTypePermission
	}

	return &FileError{
		Type:       errorType,
		Path:       path,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

func isPermissionError(err error) bool {
	return errors.Is(err, fs.ErrPermission)
}

// Error implements the error interface
func (e *FileError) Error() string {
	return fmt.Sprintf("file %s failed for %s: %v", e.Operation, e.Path, e.Underlying)
}

// Unwrap returns the underlying error
func (e *FileError) Unwrap() error {
	return e.Underlying
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError creates a new config error
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %s): %v", e.Field, e.Value, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// MultiError represents multiple errors
type MultiError struct {
	Errors []error
}

// NewMultiError creates a new multi-error
func NewMultiError(errs []error) *MultiError {
	// Filter out nil errors
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

// Error implements the error interface
func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
}

// Unwrap returns all errors
func (e *MultiError) Unwrap() []error {
	return e.Errors
}

// IsIntegrity reports whether err wraps an IntegrityError
func IsIntegrity(err error) bool {
	var integrity *IntegrityError
	return errors.As(err, &integrity)
}
