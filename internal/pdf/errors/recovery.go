package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
)

// Guard runs fn and converts a panic raised by a third-party parser into a
// PDFError of the given type. Parsers of untrusted PDFs panic on malformed
// object graphs; one bad page must not take the batch down.
func Guard(errorType ErrorType, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewPDFErrorWithContext(errorType, errorType.Title(), fmt.Sprintf("panic: %v", r))
		}
	}()
	return fn()
}

// FromContext maps context cancellation to ErrorTypeCanceled.
func FromContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return NewPDFError(ErrorTypeCanceled, ErrorTypeCanceled.Title()).WithCause(err)
	}
	return nil
}

// Describe renders err as the single human-readable message shown to the
// person who submitted the request. Internal causes are not exposed except
// for criteria errors, whose message names the offending input.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var pe *PDFError
	if !stderrors.As(err, &pe) {
		if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
			return ErrorTypeCanceled.Title()
		}
		return ErrorTypeUnknown.Title()
	}

	var b strings.Builder
	switch pe.Type {
	case ErrorTypeInvalidCriteria:
		b.WriteString(pe.Message)
	default:
		b.WriteString(pe.Type.Title())
	}
	if pe.FilePath != "" {
		b.WriteString(" (")
		b.WriteString(pe.FilePath)
		if pe.PageNumber > 0 {
			fmt.Fprintf(&b, ", page %d", pe.PageNumber)
		}
		b.WriteString(")")
	} else if pe.Type == ErrorTypeOCRUnavailable && pe.Context != "" {
		b.WriteString(": ")
		b.WriteString(pe.Context)
	}
	return b.String()
}
