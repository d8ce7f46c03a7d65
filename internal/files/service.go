package files

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"fileforge-backend/internal/inspect"
	"fileforge-backend/internal/shared/storage/object"
	"fileforge-backend/internal/shared/telemetry"
)

// allowedExtensions lists the inputs the conversion engine accepts.
var allowedExtensions = map[string]bool{
	".doc":  true,
	".docx": true,
	".xls":  true,
	".xlsx": true,
	".ppt":  true,
	".pptx": true,
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

func extensionOf(fileName string) string {
	return strings.ToLower(path.Ext(fileName))
}

// Service contains business logic for uploaded files.
type Service struct {
	Store    object.ObjectStore
	Repo     FilesRepo
	MaxBytes int64
}

// Upload saves the file to object storage and records it. PDFs get a best
// effort page count so merge requests can be validated without re-reading
// the object.
func (s *Service) Upload(ctx context.Context, userID, fileName string, size int64, r io.Reader) (File, error) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return File{}, ErrInvalidInput
	}
	ext := extensionOf(fileName)
	if !allowedExtensions[ext] {
		return File{}, fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}
	if s.MaxBytes > 0 && size > s.MaxBytes {
		return File{}, fmt.Errorf("%w: %d bytes", ErrTooLarge, size)
	}

	storageKey, savedSize, mimeType, err := s.Store.Save(ctx, userID, fileName, r)
	if err != nil {
		return File{}, err
	}

	f := File{
		ID:         uuid.NewString(),
		UserID:     userID,
		FileName:   fileName,
		MimeType:   mimeType,
		SizeBytes:  savedSize,
		StorageKey: storageKey,
		CreatedAt:  time.Now().UTC(),
	}

	if ext == ".pdf" {
		pages, err := inspect.PDFPageCount(ctx, s.Store, storageKey)
		if err != nil {
			telemetry.Warn("pdf page count failed", map[string]any{
				"file_name": fileName,
				"error":     err.Error(),
			})
		} else {
			f.PageCount = pages
		}
	}

	if err := s.Repo.Create(ctx, f); err != nil {
		return File{}, err
	}

	return f, nil
}

// Get returns a file by ID for a user.
func (s *Service) Get(ctx context.Context, userID, fileID string) (File, error) {
	if userID == "" || fileID == "" {
		return File{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, userID, fileID)
}

// GetMany returns the files matching fileIDs in the order requested.
func (s *Service) GetMany(ctx context.Context, userID string, fileIDs []string) ([]File, error) {
	if userID == "" || len(fileIDs) == 0 {
		return nil, ErrInvalidInput
	}
	return s.Repo.GetByIDs(ctx, userID, fileIDs)
}

// Current returns the user's most recently uploaded file.
func (s *Service) Current(ctx context.Context, userID string) (File, error) {
	if userID == "" {
		return File{}, ErrInvalidInput
	}
	fs, err := s.Repo.ListByUser(ctx, userID, 1, 0)
	if err != nil {
		return File{}, err
	}
	if len(fs) == 0 {
		return File{}, ErrNotFound
	}
	return fs[0], nil
}

// List returns a page of the user's files, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]File, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}
