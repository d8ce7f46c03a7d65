package jobs

import "time"

// Job represents one conversion run from staging through the remote engine.
type Job struct {
	ID           string
	UserID       string
	View         string
	SubTool      string
	Operation    string
	Parameters   map[string]string
	FileIDs      []string
	Status       string
	Progress     int
	ResultURL    string
	ResultName   string
	ResultSize   int64
	ErrorCode    string
	ErrorMessage string
	StartedAt    *time.Time
	CompletedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
