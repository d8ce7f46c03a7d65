package inspect

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strings"

	_ "image/gif"  // register GIF decoding for DecodeConfig
	_ "image/jpeg" // register JPEG decoding for DecodeConfig
	_ "image/png"  // register PNG decoding for DecodeConfig

	"github.com/ledongthuc/pdf"

	"fileforge-backend/internal/shared/storage/object"
)

// ErrNotAnImage is returned when pixel dimensions are requested for data that
// does not decode as a supported image format.
var ErrNotAnImage = errors.New("not a decodable image")

// ErrNotAPDF is returned when PDF inspection is requested for data that does
// not parse as a PDF.
var ErrNotAPDF = errors.New("not a parsable pdf")

// Dimensions holds the natural pixel size of an image.
type Dimensions struct {
	Width  int
	Height int
}

// ImageDimensions reads the natural pixel dimensions of a stored image.
// Only the header is decoded; the object is not read in full unless the
// format requires it.
func ImageDimensions(ctx context.Context, store object.ObjectStore, storageKey string) (Dimensions, error) {
	if err := ctx.Err(); err != nil {
		return Dimensions{}, err
	}

	body, err := store.Open(ctx, storageKey)
	if err != nil {
		return Dimensions{}, fmt.Errorf("inspect image key=%s: %w", storageKey, err)
	}
	defer body.Close()

	cfg, _, err := image.DecodeConfig(body)
	if err != nil {
		return Dimensions{}, fmt.Errorf("inspect image key=%s: %w", storageKey, ErrNotAnImage)
	}
	return Dimensions{Width: cfg.Width, Height: cfg.Height}, nil
}

// ImageDimensionsFromBytes reads pixel dimensions from an in-memory payload.
func ImageDimensionsFromBytes(data []byte) (Dimensions, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Dimensions{}, ErrNotAnImage
	}
	return Dimensions{Width: cfg.Width, Height: cfg.Height}, nil
}

// PDFPageCount parses a stored PDF and returns its page count. Merge inputs
// are checked this way before any network call is made.
func PDFPageCount(ctx context.Context, store object.ObjectStore, storageKey string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	body, err := store.Open(ctx, storageKey)
	if err != nil {
		return 0, fmt.Errorf("inspect pdf key=%s: %w", storageKey, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return 0, fmt.Errorf("inspect pdf key=%s: read: %w", storageKey, err)
	}

	return PDFPageCountFromBytes(raw)
}

// PDFPageCountFromBytes parses an in-memory PDF payload.
func PDFPageCountFromBytes(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, ErrNotAPDF
	}
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return 0, ErrNotAPDF
	}
	pages := pdfReader.NumPage()
	if pages <= 0 {
		return 0, ErrNotAPDF
	}
	return pages, nil
}

// IsImageExtension reports whether the file name carries a decodable image
// extension.
func IsImageExtension(fileName string) bool {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".jpg", ".jpeg", ".png", ".gif":
		return true
	default:
		return false
	}
}
