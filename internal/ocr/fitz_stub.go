//go:build !ocr

package ocr

type unavailableRasterizer struct{}

// NewFitzRasterizer returns a rasterizer that reports ErrUnavailable:
// MuPDF support is compiled in only with the "ocr" build tag.
func NewFitzRasterizer() Rasterizer {
	return unavailableRasterizer{}
}

func (unavailableRasterizer) Open([]byte) (Document, error) {
	return nil, ErrUnavailable
}
