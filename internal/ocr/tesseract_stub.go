//go:build !ocr

package ocr

// NewTesseract reports ErrUnavailable: Tesseract support is compiled in
// only with the "ocr" build tag.
func NewTesseract(languages []string) (Recognizer, error) {
	return nil, ErrUnavailable
}
