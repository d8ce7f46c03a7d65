package staging

import (
	"context"
	"errors"
)

// Source identifies a stored object to be made reachable by the conversion
// engine. Key addresses the object store; Name is the original file name the
// engine should see.
type Source struct {
	Key  string
	Name string
	Size int64
}

// ProgressFunc receives transfer progress in bytes. total is the source size
// when known, otherwise 0.
type ProgressFunc func(transferred, total int64)

// Stager turns a stored object into a URL the conversion engine can fetch.
type Stager interface {
	Stage(ctx context.Context, src Source, onProgress ProgressFunc) (string, error)
}

var (
	// ErrFileTooLarge is returned before any network traffic when the source
	// exceeds the configured upload limit.
	ErrFileTooLarge = errors.New("staging: file exceeds upload size limit")
	// ErrTimeout indicates the staging transfer did not complete in time.
	ErrTimeout = errors.New("staging: transfer timed out")
)
