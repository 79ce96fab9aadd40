package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// PDFError is a categorized failure raised while turning uploaded documents
// into part-number records.
type PDFError struct {
	Type        ErrorType `json:"type"`
	Message     string    `json:"message"`
	Context     string    `json:"context,omitempty"`
	FilePath    string    `json:"file_path,omitempty"`
	PageNumber  int       `json:"page_number,omitempty"`
	Recoverable bool      `json:"recoverable"`
	Timestamp   time.Time `json:"timestamp"`
	Err         error     `json:"-"`
}

// ErrorType is the failure category reported to callers.
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeCorruptDocument
	ErrorTypeFileTooLarge
	ErrorTypeEmptyExtraction
	ErrorTypeMalformedPage
	ErrorTypeOCRFailed
	ErrorTypeOCRUnavailable
	ErrorTypeInvalidCriteria
	ErrorTypeCanceled
)

// Sentinels for errors.Is. A PDFError matches the sentinel of its Type.
var (
	ErrCorruptDocument = &PDFError{Type: ErrorTypeCorruptDocument}
	ErrFileTooLarge    = &PDFError{Type: ErrorTypeFileTooLarge}
	ErrEmptyExtraction = &PDFError{Type: ErrorTypeEmptyExtraction}
	ErrMalformedPage   = &PDFError{Type: ErrorTypeMalformedPage}
	ErrOCRFailed       = &PDFError{Type: ErrorTypeOCRFailed}
	ErrOCRUnavailable  = &PDFError{Type: ErrorTypeOCRUnavailable}
	ErrInvalidCriteria = &PDFError{Type: ErrorTypeInvalidCriteria}
	ErrCanceled        = &PDFError{Type: ErrorTypeCanceled}
)

// ErrorSeverity indicates how far an error propagates.
type ErrorSeverity int

const (
	// SeverityInfo never surfaces to the caller.
	SeverityInfo ErrorSeverity = iota
	// SeverityWarning becomes an annotation on the response.
	SeverityWarning
	// SeverityFatal terminates the whole request.
	SeverityFatal
)

// Error implements the error interface
func (e *PDFError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Type.Title()
	}
	if e.Context != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Context)
	}
	return fmt.Sprintf("[%s] %s", e.Type.String(), msg)
}

// Unwrap exposes the underlying cause.
func (e *PDFError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a PDFError of the same type.
func (e *PDFError) Is(target error) bool {
	t, ok := target.(*PDFError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// String returns the wire name of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeCorruptDocument:
		return "CORRUPT_DOCUMENT"
	case ErrorTypeFileTooLarge:
		return "FILE_TOO_LARGE"
	case ErrorTypeEmptyExtraction:
		return "EMPTY_EXTRACTION"
	case ErrorTypeMalformedPage:
		return "MALFORMED_PAGE"
	case ErrorTypeOCRFailed:
		return "OCR_FAILED"
	case ErrorTypeOCRUnavailable:
		return "OCR_UNAVAILABLE"
	case ErrorTypeInvalidCriteria:
		return "INVALID_CRITERIA"
	case ErrorTypeCanceled:
		return "CANCELED"
	default:
		return "UNKNOWN"
	}
}

// Title is a short human-readable name for the category.
func (et ErrorType) Title() string {
	switch et {
	case ErrorTypeCorruptDocument:
		return "document could not be opened as a PDF"
	case ErrorTypeFileTooLarge:
		return "document exceeds the maximum file size"
	case ErrorTypeEmptyExtraction:
		return "no text could be extracted"
	case ErrorTypeMalformedPage:
		return "page could not be decoded"
	case ErrorTypeOCRFailed:
		return "text recognition failed"
	case ErrorTypeOCRUnavailable:
		return "text recognition is not available"
	case ErrorTypeInvalidCriteria:
		return "invalid dimension value"
	case ErrorTypeCanceled:
		return "request was canceled"
	default:
		return "unexpected error"
	}
}

// GetSeverity returns how far an error of this type propagates.
func (et ErrorType) GetSeverity() ErrorSeverity {
	switch et {
	case ErrorTypeEmptyExtraction:
		return SeverityInfo
	case ErrorTypeCorruptDocument, ErrorTypeFileTooLarge, ErrorTypeMalformedPage, ErrorTypeOCRFailed:
		return SeverityWarning
	default:
		return SeverityFatal
	}
}

// IsRecoverable reports whether the batch continues after this error.
func (et ErrorType) IsRecoverable() bool {
	return et.GetSeverity() != SeverityFatal
}

// NewPDFError creates a new PDFError
func NewPDFError(errorType ErrorType, message string) *PDFError {
	return &PDFError{
		Type:        errorType,
		Message:     message,
		Recoverable: errorType.IsRecoverable(),
		Timestamp:   time.Now(),
	}
}

// NewPDFErrorWithContext creates a new PDFError with additional context
func NewPDFErrorWithContext(errorType ErrorType, message, context string) *PDFError {
	e := NewPDFError(errorType, message)
	e.Context = context
	return e
}

// WrapError wraps err as a PDFError of the given type. An err that already
// is a PDFError keeps its own type.
func WrapError(errorType ErrorType, err error) *PDFError {
	var existing *PDFError
	if stderrors.As(err, &existing) {
		return existing
	}
	e := NewPDFError(errorType, err.Error())
	e.Err = err
	return e
}

// WithContext adds context to an existing PDFError
func (e *PDFError) WithContext(context string) *PDFError {
	e.Context = context
	return e
}

// WithFile adds file path information to an existing PDFError
func (e *PDFError) WithFile(filePath string) *PDFError {
	e.FilePath = filePath
	return e
}

// WithPage adds page number information to an existing PDFError
func (e *PDFError) WithPage(pageNumber int) *PDFError {
	e.PageNumber = pageNumber
	return e
}

// WithCause records the underlying error.
func (e *PDFError) WithCause(err error) *PDFError {
	e.Err = err
	return e
}

// GetSeverity returns the severity of this specific error
func (e *PDFError) GetSeverity() ErrorSeverity {
	return e.Type.GetSeverity()
}

// IsFatal returns true if the error terminates the request.
func (e *PDFError) IsFatal() bool {
	return e.GetSeverity() == SeverityFatal
}

// TypeOf returns the category of err, or ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var pe *PDFError
	if stderrors.As(err, &pe) {
		return pe.Type
	}
	return ErrorTypeUnknown
}

// ErrorCollection gathers the recoverable errors of one run.
type ErrorCollection struct {
	Errors   []*PDFError `json:"errors"`
	Warnings []*PDFError `json:"warnings"`
	FilePath string      `json:"file_path,omitempty"`
}

// NewErrorCollection creates a new error collection
func NewErrorCollection(filePath string) *ErrorCollection {
	return &ErrorCollection{
		Errors:   make([]*PDFError, 0),
		Warnings: make([]*PDFError, 0),
		FilePath: filePath,
	}
}

// Add adds an error to the appropriate collection based on severity
func (ec *ErrorCollection) Add(err *PDFError) {
	if err.FilePath == "" && ec.FilePath != "" {
		err.FilePath = ec.FilePath
	}

	switch err.GetSeverity() {
	case SeverityInfo, SeverityWarning:
		ec.Warnings = append(ec.Warnings, err)
	default:
		ec.Errors = append(ec.Errors, err)
	}
}

// Count returns the total number of errors and warnings
func (ec *ErrorCollection) Count() (errors, warnings int) {
	return len(ec.Errors), len(ec.Warnings)
}

// Summary returns a text summary of all errors and warnings
func (ec *ErrorCollection) Summary() string {
	errorCount, warningCount := ec.Count()
	if errorCount == 0 && warningCount == 0 {
		return "No errors or warnings"
	}
	return fmt.Sprintf("Found %d error(s) and %d warning(s)", errorCount, warningCount)
}
