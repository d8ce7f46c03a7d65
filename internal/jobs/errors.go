package jobs

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrNoFile                = errors.New("no file selected")
	ErrTooManyFiles          = errors.New("operation takes a single file")
	ErrNotMergeable          = errors.New("not a mergeable pdf")
	ErrJobQueueNotConfigured = errors.New("job queue not configured")
)

const (
	ErrorCodeNoFile            = "NO_FILE"
	ErrorCodeUnrecognizedOp    = "UNRECOGNIZED_OPERATION"
	ErrorCodeUploadFailed      = "UPLOAD_FAILED"
	ErrorCodeUploadTimeout     = "UPLOAD_TIMEOUT"
	ErrorCodeConvertTimeout    = "CONVERT_TIMEOUT"
	ErrorCodeRemoteRejected    = "REMOTE_REJECTED"
	ErrorCodeMalformedResponse = "MALFORMED_RESPONSE"
	ErrorCodeStorage           = "STORAGE_ERROR"
	ErrorCodeInternal          = "INTERNAL_ERROR"
)
