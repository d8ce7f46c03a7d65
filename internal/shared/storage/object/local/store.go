package local

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fileforge-backend/internal/shared/storage/object"
	"fileforge-backend/internal/shared/util"
)

// Store implements ObjectStore on the local filesystem. Objects live under
// baseDir/<hashed-user>/<random>_<name> so user namespaces never collide.
type Store struct {
	baseDir string
}

// New creates a local object store rooted at baseDir.
func New(baseDir string) object.ObjectStore {
	return &Store{baseDir: baseDir}
}

// Save streams the reader to disk and returns the storage key, byte size, and
// sniffed MIME type.
func (s *Store) Save(ctx context.Context, userID string, fileName string, r io.Reader) (string, int64, string, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, "", err
	}
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", 0, "", fmt.Errorf("sanitize file name: %w", err)
	}

	userKey := util.HashUserKey(userID)
	dir := filepath.Join(s.baseDir, userKey)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, "", fmt.Errorf("mkdir: %w", err)
	}

	objectName := randomID() + "_" + name
	f, err := os.OpenFile(filepath.Join(dir, objectName), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", 0, "", fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	size, mimeType, err := copyAndSniff(f, r)
	if err != nil {
		return "", 0, "", err
	}
	return filepath.Join(userKey, objectName), size, mimeType, nil
}

// copyAndSniff writes r to w, detecting the content type from the first 512
// bytes as they pass through.
func copyAndSniff(w io.Writer, r io.Reader) (int64, string, error) {
	var head [512]byte
	n, err := io.ReadFull(r, head[:])
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, "", fmt.Errorf("read head: %w", err)
	}
	mimeType := http.DetectContentType(head[:n])

	size := int64(0)
	if n > 0 {
		if _, err := w.Write(head[:n]); err != nil {
			return 0, "", fmt.Errorf("write head: %w", err)
		}
		size = int64(n)
	}
	rest, err := io.Copy(w, r)
	if err != nil {
		return 0, "", fmt.Errorf("write body: %w", err)
	}
	return size + rest, mimeType, nil
}

// Open opens a stored object for reading. Keys that escape the base directory
// are rejected.
func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean := filepath.Clean(storageKey)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return nil, fmt.Errorf("invalid storage key")
	}
	return os.Open(filepath.Join(s.baseDir, clean))
}

func randomID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
