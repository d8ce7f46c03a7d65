package files

import "time"

// File represents an uploaded file owned by a user. PageCount is set for
// PDFs when the file could be inspected at upload time.
type File struct {
	ID         string
	UserID     string
	FileName   string
	MimeType   string
	SizeBytes  int64
	StorageKey string
	PageCount  int
	CreatedAt  time.Time
}

// Extension returns the lowercase extension of FileName including the dot.
func (f File) Extension() string {
	return extensionOf(f.FileName)
}
