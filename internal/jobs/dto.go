package jobs

import "time"

// JobResponse is the outward-facing representation of a job.
type JobResponse struct {
	JobID        string     `json:"jobId"`
	View         string     `json:"view"`
	SubTool      string     `json:"subTool"`
	Operation    string     `json:"operation,omitempty"`
	FileIDs      []string   `json:"fileIds"`
	Status       string     `json:"status"`
	Progress     int        `json:"progress"`
	ResultURL    string     `json:"resultUrl,omitempty"`
	ResultName   string     `json:"resultName,omitempty"`
	ResultSize   int64      `json:"resultSize,omitempty"`
	ErrorCode    string     `json:"errorCode,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

func toResponse(job Job) JobResponse {
	resp := JobResponse{
		JobID:       job.ID,
		View:        job.View,
		SubTool:     job.SubTool,
		Operation:   job.Operation,
		FileIDs:     job.FileIDs,
		Status:      job.Status,
		Progress:    job.Progress,
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
	}
	if job.Status == StatusSucceeded {
		resp.ResultURL = job.ResultURL
		resp.ResultName = job.ResultName
		resp.ResultSize = job.ResultSize
	}
	if job.Status == StatusFailed {
		resp.ErrorCode = job.ErrorCode
		resp.ErrorMessage = UserMessage(job.ErrorCode)
	}
	return resp
}
