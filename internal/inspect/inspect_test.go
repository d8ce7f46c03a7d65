package inspect

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"testing"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestImageDimensionsFromBytes(t *testing.T) {
	dims, err := ImageDimensionsFromBytes(pngBytes(t, 800, 600))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dims.Width != 800 || dims.Height != 600 {
		t.Fatalf("expected 800x600, got %dx%d", dims.Width, dims.Height)
	}
}

func TestImageDimensionsFromBytesNotAnImage(t *testing.T) {
	if _, err := ImageDimensionsFromBytes([]byte("plain text")); !errors.Is(err, ErrNotAnImage) {
		t.Fatalf("expected ErrNotAnImage, got %v", err)
	}
}

func TestPDFPageCountFromBytesRejectsGarbage(t *testing.T) {
	if _, err := PDFPageCountFromBytes([]byte("not a pdf")); !errors.Is(err, ErrNotAPDF) {
		t.Fatalf("expected ErrNotAPDF, got %v", err)
	}
	if _, err := PDFPageCountFromBytes(nil); !errors.Is(err, ErrNotAPDF) {
		t.Fatalf("expected ErrNotAPDF for empty data, got %v", err)
	}
}

func TestIsImageExtension(t *testing.T) {
	cases := map[string]bool{
		"photo.JPG":    true,
		"photo.jpeg":   true,
		"diagram.png":  true,
		"anim.gif":     true,
		"report.pdf":   false,
		"archive.docx": false,
	}
	for name, want := range cases {
		if got := IsImageExtension(name); got != want {
			t.Errorf("IsImageExtension(%q) = %v, want %v", name, got, want)
		}
	}
}
