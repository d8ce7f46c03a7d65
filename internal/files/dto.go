package files

import "time"

// FileResponse is the outward-facing representation of an uploaded file.
type FileResponse struct {
	FileID     string    `json:"fileId"`
	FileName   string    `json:"fileName"`
	MimeType   string    `json:"mimeType"`
	SizeBytes  int64     `json:"sizeBytes"`
	PageCount  int       `json:"pageCount,omitempty"`
	UploadedAt time.Time `json:"uploadedAt"`
}

func toResponse(f File) FileResponse {
	return FileResponse{
		FileID:     f.ID,
		FileName:   f.FileName,
		MimeType:   f.MimeType,
		SizeBytes:  f.SizeBytes,
		PageCount:  f.PageCount,
		UploadedAt: f.CreatedAt,
	}
}
