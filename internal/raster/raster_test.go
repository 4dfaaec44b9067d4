package raster

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/tiff"
)

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// syntheticTIFFChain builds a structurally valid little-endian TIFF header
// followed by n empty IFDs linked in a chain. The walker only inspects the
// chain, not the pixel data.
func syntheticTIFFChain(n int) []byte {
	buf := make([]byte, 8+n*6)
	buf[0], buf[1] = 'I', 'I'
	binary.LittleEndian.PutUint16(buf[2:4], 42)
	binary.LittleEndian.PutUint32(buf[4:8], 8)
	for i := 0; i < n; i++ {
		off := 8 + i*6
		binary.LittleEndian.PutUint16(buf[off:off+2], 0)
		next := uint32(0)
		if i < n-1 {
			next = uint32(off + 6)
		}
		binary.LittleEndian.PutUint32(buf[off+2:off+6], next)
	}
	return buf
}

func TestTIFFIFDOffsets(t *testing.T) {
	offsets, err := tiffIFDOffsets(syntheticTIFFChain(3))
	if err != nil {
		t.Fatalf("tiffIFDOffsets returned error: %v", err)
	}
	if len(offsets) != 3 {
		t.Fatalf("got %d pages, want 3", len(offsets))
	}
	if offsets[0] != 8 || offsets[1] != 14 || offsets[2] != 20 {
		t.Fatalf("unexpected offsets %v", offsets)
	}
}

func TestTIFFIFDOffsetsRejectsGarbage(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("hello"), []byte("II*\x00\xff\xff\xff\xff")} {
		if _, err := tiffIFDOffsets(data); err == nil {
			t.Fatalf("expected error for %q", data)
		}
	}
}

func TestTIFFDecodeSinglePage(t *testing.T) {
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 6)), nil); err != nil {
		t.Fatalf("failed to encode tiff: %v", err)
	}

	offsets, err := tiffIFDOffsets(buf.Bytes())
	if err != nil {
		t.Fatalf("tiffIFDOffsets returned error: %v", err)
	}
	if len(offsets) != 1 {
		t.Fatalf("got %d pages, want 1", len(offsets))
	}

	img, err := tiffDecodePage(buf.Bytes(), 0)
	if err != nil {
		t.Fatalf("tiffDecodePage returned error: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 6 {
		t.Fatalf("decoded bounds %v, want 4x6", b)
	}

	if _, err := tiffDecodePage(buf.Bytes(), 1); err == nil {
		t.Fatal("expected out-of-range error for page 1")
	}
}

func TestPageCountPlainImage(t *testing.T) {
	r := NewRasterizer("pdftoppm")
	path := writeTempFile(t, "doc.png", encodePNG(t, 3, 3))

	n, err := r.PageCount(path)
	if err != nil {
		t.Fatalf("PageCount returned error: %v", err)
	}
	if n != 1 {
		t.Fatalf("PageCount = %d, want 1", n)
	}
}

func TestPageCountUnreadable(t *testing.T) {
	r := NewRasterizer("pdftoppm")
	for _, name := range []string{"doc.pdf", "doc.png", "doc.tiff"} {
		path := writeTempFile(t, name, []byte("not a document at all"))
		if _, err := r.PageCount(path); !errors.Is(err, ErrUnreadable) {
			t.Fatalf("PageCount(%s) error = %v, want ErrUnreadable", name, err)
		}
	}
}

func TestPageCountEmptyDocument(t *testing.T) {
	r := NewRasterizer("pdftoppm")
	// A valid header whose first-IFD offset is zero declares zero pages.
	hdr := []byte{'I', 'I', 42, 0, 0, 0, 0, 0}
	path := writeTempFile(t, "empty.tif", hdr)

	_, err := r.PageCount(path)
	if !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("PageCount error = %v, want ErrEmptyDocument", err)
	}
	if errors.Is(err, ErrUnreadable) {
		t.Fatalf("empty document also classified unreadable: %v", err)
	}
}

func TestRenderPagePlainImage(t *testing.T) {
	r := NewRasterizer("pdftoppm")
	path := writeTempFile(t, "doc.png", encodePNG(t, 5, 7))

	img, err := r.RenderPage(context.Background(), path, 0, 300)
	if err != nil {
		t.Fatalf("RenderPage returned error: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 5 || b.Dy() != 7 {
		t.Fatalf("rendered bounds %v, want 5x7", b)
	}

	if _, err := r.RenderPage(context.Background(), path, 1, 300); err == nil {
		t.Fatal("expected out-of-range error for page 1 of a plain image")
	}
}

func TestMultiPage(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"scan.pdf", true},
		{"scan.PDF", true},
		{"scan.tif", true},
		{"scan.tiff", true},
		{"scan.png", false},
		{"scan.jpg", false},
		{"scan", false},
	}
	for _, tt := range tests {
		if got := MultiPage(tt.name); got != tt.want {
			t.Fatalf("MultiPage(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestScaleToFit(t *testing.T) {
	big := image.NewRGBA(image.Rect(0, 0, 4000, 2000))
	scaled := ScaleToFit(big, 1000)
	if b := scaled.Bounds(); b.Dx() != 1000 || b.Dy() != 500 {
		t.Fatalf("scaled bounds %v, want 1000x500", b)
	}

	tall := image.NewRGBA(image.Rect(0, 0, 300, 900))
	scaled = ScaleToFit(tall, 300)
	if b := scaled.Bounds(); b.Dx() != 100 || b.Dy() != 300 {
		t.Fatalf("scaled bounds %v, want 100x300", b)
	}

	small := image.NewRGBA(image.Rect(0, 0, 20, 10))
	if got := ScaleToFit(small, 1000); got != small {
		t.Fatal("small image should be returned unchanged")
	}
}

func TestFindRenderedPage(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "page-03.png"), []byte("x"), 0644); err != nil {
		t.Fatalf("failed to seed render dir: %v", err)
	}

	got, err := findRenderedPage(dir, "page", 3)
	if err != nil {
		t.Fatalf("findRenderedPage returned error: %v", err)
	}
	if filepath.Base(got) != "page-03.png" {
		t.Fatalf("found %q, want page-03.png", got)
	}

	if _, err := findRenderedPage(dir, "page", 9); err == nil {
		t.Fatal("expected error when no output exists for the page")
	}

	// pdftoppm pads to four digits past 999 pages.
	if err := os.WriteFile(filepath.Join(dir, "page-0007.png"), []byte("x"), 0644); err != nil {
		t.Fatalf("failed to seed render dir: %v", err)
	}
	got, err = findRenderedPage(dir, "page", 7)
	if err != nil {
		t.Fatalf("findRenderedPage returned error: %v", err)
	}
	if filepath.Base(got) != "page-0007.png" {
		t.Fatalf("found %q, want page-0007.png", got)
	}
}
