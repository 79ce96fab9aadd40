package ocr

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

// pointsPerInch converts PDF user space to inches.
const pointsPerInch = 72.0

// EmbeddedImageRasterizer renders a scanned page by extracting its largest
// embedded image and scaling it to the page box at the requested DPI. It
// needs no native libraries but only works for pages that are one scan.
type EmbeddedImageRasterizer struct{}

// NewEmbeddedImageRasterizer returns the pdfcpu based rasterizer.
func NewEmbeddedImageRasterizer() Rasterizer {
	return EmbeddedImageRasterizer{}
}

// Open implements Rasterizer.
func (EmbeddedImageRasterizer) Open(data []byte) (doc Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdfcpu panic: %v", r)
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("pdfcpu page count: %w", err)
	}
	return &embeddedDocument{ctx: ctx}, nil
}

type embeddedDocument struct {
	ctx *model.Context
}

func (d *embeddedDocument) Render(page, dpi int) (image.Image, error) {
	if page < 1 || page > d.ctx.PageCount {
		return nil, fmt.Errorf("page %d out of range", page)
	}

	images, err := pdfcpu.ExtractPageImages(d.ctx, page, false)
	if err != nil {
		return nil, fmt.Errorf("extract page images: %w", err)
	}

	var best *model.Image
	for k := range images {
		img := images[k]
		if best == nil || img.Width*img.Height > best.Width*best.Height ||
			(img.Width*img.Height == best.Width*best.Height && img.ObjNr < best.ObjNr) {
			best = &img
		}
	}
	if best == nil {
		return nil, fmt.Errorf("page %d has no embedded image", page)
	}

	src, _, err := image.Decode(best)
	if err != nil {
		return nil, fmt.Errorf("decode %s image: %w", best.FileType, err)
	}

	dims, err := d.ctx.PageDims()
	if err != nil || page > len(dims) {
		return src, nil
	}
	return ScaleToPage(src, dims[page-1].Width, dims[page-1].Height, dpi), nil
}

func (d *embeddedDocument) Close() error {
	return nil
}

// ScaleToPage resamples img to the pixel size of a widthPt x heightPt page
// at dpi. Non-positive inputs return img unchanged.
func ScaleToPage(img image.Image, widthPt, heightPt float64, dpi int) image.Image {
	if widthPt <= 0 || heightPt <= 0 || dpi <= 0 {
		return img
	}
	w := int(widthPt / pointsPerInch * float64(dpi))
	h := int(heightPt / pointsPerInch * float64(dpi))
	if w <= 0 || h <= 0 {
		return img
	}
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
