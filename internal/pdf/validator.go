package pdf

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	pdferrors "github.com/a3tai/mcp-pdf-parts/internal/pdf/errors"
)

// headerWindow is how far into the file the %PDF- marker may appear.
const headerWindow = 1024

// Validator handles PDF input validation
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a new PDF validator with the specified constraints
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{
		maxFileSize: maxFileSize,
	}
}

// ValidateBytes checks an uploaded buffer before any parser sees it.
func (v *Validator) ValidateBytes(name string, data []byte) error {
	if len(data) == 0 {
		return pdferrors.NewPDFError(pdferrors.ErrorTypeCorruptDocument, "file is empty").WithFile(name)
	}

	if v.maxFileSize > 0 && int64(len(data)) > v.maxFileSize {
		return pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeFileTooLarge, "file too large",
			fmt.Sprintf("%d bytes (max: %d bytes)", len(data), v.maxFileSize)).WithFile(name)
	}

	window := data
	if len(window) > headerWindow {
		window = window[:headerWindow]
	}
	if !bytes.Contains(window, []byte("%PDF-")) {
		return pdferrors.NewPDFError(pdferrors.ErrorTypeCorruptDocument, "missing %PDF- header").WithFile(name)
	}

	return nil
}

// ValidateFileInfo performs basic validation on file info without opening the PDF
func (v *Validator) ValidateFileInfo(filePath string, fileInfo os.FileInfo) error {
	if fileInfo.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", filePath)
	}

	if !IsPDFName(filePath) {
		return fmt.Errorf("file is not a PDF: %s", filePath)
	}

	if fileInfo.Size() == 0 {
		return fmt.Errorf("file is empty: %s", filePath)
	}

	if v.maxFileSize > 0 && fileInfo.Size() > v.maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max: %d bytes)",
			fileInfo.Size(), v.maxFileSize)
	}

	return nil
}

// IsPDFName checks if a file has a PDF extension
func IsPDFName(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".pdf")
}
