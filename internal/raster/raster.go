// Package raster turns stored documents (PDF, TIFF, plain images) into
// bitmaps one page at a time.
package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

// ErrUnreadable marks documents that cannot be parsed as an image or PDF.
var ErrUnreadable = errors.New("document cannot be read")

// ErrEmptyDocument marks documents that parse but contain no pages.
var ErrEmptyDocument = errors.New("document has no pages")

// Rasterizer renders document pages via poppler's pdftoppm for PDFs and
// in-process decoders for raster formats.
type Rasterizer struct {
	pdftoppmCmd string
}

// NewRasterizer creates a rasterizer using the given pdftoppm binary.
func NewRasterizer(pdftoppmCmd string) *Rasterizer {
	return &Rasterizer{pdftoppmCmd: pdftoppmCmd}
}

// MultiPage reports whether the file extension can hold more than one page.
func MultiPage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".tif", ".tiff":
		return true
	}
	return false
}

// PageCount returns the number of pages in the document. Parse failures are
// wrapped in ErrUnreadable; a document that parses but holds no pages returns
// ErrEmptyDocument.
func (r *Rasterizer) PageCount(path string) (int, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		n, err := api.PageCountFile(path)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
		if n == 0 {
			return 0, ErrEmptyDocument
		}
		return n, nil
	case ".tif", ".tiff":
		data, err := os.ReadFile(path)
		if err != nil {
			return 0, err
		}
		offsets, err := tiffIFDOffsets(data)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
		if len(offsets) == 0 {
			return 0, ErrEmptyDocument
		}
		return len(offsets), nil
	default:
		f, err := os.Open(path)
		if err != nil {
			return 0, err
		}
		defer f.Close()
		if _, _, err := image.DecodeConfig(f); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
		return 1, nil
	}
}

// RenderPage decodes one zero-based page as a bitmap. dpi controls the true
// render resolution for PDFs and is ignored for formats with fixed pixels.
func (r *Rasterizer) RenderPage(ctx context.Context, path string, page, dpi int) (image.Image, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return r.renderPDFPage(ctx, path, page, dpi)
	case ".tif", ".tiff":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		img, err := tiffDecodePage(data, page)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
		return img, nil
	default:
		if page != 0 {
			return nil, fmt.Errorf("page %d out of range for single-page image", page)
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		img, _, err := image.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
		return img, nil
	}
}

// renderPDFPage shells out to pdftoppm for a single page and decodes the PNG
// it leaves behind.
func (r *Rasterizer) renderPDFPage(ctx context.Context, path string, page, dpi int) (image.Image, error) {
	outDir, err := os.MkdirTemp("", "ocr-render-")
	if err != nil {
		return nil, fmt.Errorf("failed to create render dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	pageNum := page + 1
	prefix := filepath.Join(outDir, "page")

	cmd := exec.CommandContext(ctx, r.pdftoppmCmd,
		"-png",
		"-r", strconv.Itoa(dpi),
		"-f", strconv.Itoa(pageNum),
		"-l", strconv.Itoa(pageNum),
		path,
		prefix,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}

	imgPath, err := findRenderedPage(outDir, "page", pageNum)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(imgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open rendered page: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode rendered page: %w", err)
	}
	return img, nil
}

// findRenderedPage locates pdftoppm output, which zero-pads the page suffix
// depending on the document's total page count.
func findRenderedPage(dir, prefix string, pageNum int) (string, error) {
	candidates := []string{
		fmt.Sprintf("%s-%d.png", prefix, pageNum),
		fmt.Sprintf("%s-%02d.png", prefix, pageNum),
		fmt.Sprintf("%s-%03d.png", prefix, pageNum),
	}
	for _, name := range candidates {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	// Wider zero-padding than the candidate list covers (four or more
	// digits) still has to carry the requested page number.
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to list render dir: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix+"-") || !strings.HasSuffix(name, ".png") {
			continue
		}
		digits := strings.TrimSuffix(strings.TrimPrefix(name, prefix+"-"), ".png")
		if n, err := strconv.Atoi(digits); err == nil && n == pageNum {
			return filepath.Join(dir, name), nil
		}
	}
	return "", fmt.Errorf("pdftoppm produced no output for page %d", pageNum)
}

// ScaleToFit shrinks img so neither dimension exceeds maxDim, preserving the
// aspect ratio. Images already within bounds are returned unchanged.
func ScaleToFit(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 || (w <= maxDim && h <= maxDim) {
		return img
	}

	scale := float64(maxDim) / float64(w)
	if h > w {
		scale = float64(maxDim) / float64(h)
	}
	dw := int(float64(w)*scale + 0.5)
	dh := int(float64(h)*scale + 0.5)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
