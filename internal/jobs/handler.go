package jobs

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fileforge-backend/internal/files"
	"fileforge-backend/internal/shared/server/middleware"
	"fileforge-backend/internal/shared/server/respond"
	"fileforge-backend/internal/tools"
	"fileforge-backend/internal/usage"
)

// Handler wires HTTP handlers to the jobs service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches job routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/jobs", h.createJob)
	rg.GET("/jobs", h.listJobs)
	rg.GET("/jobs/:id", h.getJob)
}

type createJobRequest struct {
	View    string        `json:"view"`
	SubTool string        `json:"subTool"`
	FileIDs []string      `json:"fileIds"`
	Options tools.Options `json:"options"`
}

func (h *Handler) createJob(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if req.View == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "view is required", nil)
		return
	}

	in := CreateInput{
		Selection: tools.Selection{
			View:    tools.View(req.View),
			SubTool: req.SubTool,
			Options: req.Options,
		},
		FileIDs: req.FileIDs,
	}

	ctx := WithRequestID(c.Request.Context(), c.GetString("requestId"))
	job, err := h.Svc.Create(ctx, userID, in)
	if err != nil {
		switch {
		case errors.Is(err, usage.ErrLimitReached):
			respond.Error(c, http.StatusTooManyRequests, "limit_reached", "You've reached today's conversion limit. Try again tomorrow.", []map[string]string{
				{"field": "usage", "issue": "limit_reached"},
			})
		case errors.Is(err, ErrNoFile):
			respond.Error(c, http.StatusBadRequest, ErrorCodeNoFile, "no file selected", nil)
		case errors.Is(err, ErrTooManyFiles):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, ErrNotMergeable):
			respond.Error(c, http.StatusUnprocessableEntity, "validation_error", err.Error(), nil)
		case errors.Is(err, tools.ErrUnrecognizedOperation):
			respond.Error(c, http.StatusUnprocessableEntity, ErrorCodeUnrecognizedOp, "this file type is not supported for the selected tool", nil)
		case errors.Is(err, tools.ErrDimensionsRequired):
			respond.Error(c, http.StatusUnprocessableEntity, "validation_error", err.Error(), nil)
		case errors.Is(err, files.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "file not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start job", nil)
		}
		return
	}

	respond.JSON(c, http.StatusAccepted, gin.H{
		"jobId":  job.ID,
		"status": job.Status,
	})
}

func (h *Handler) getJob(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	jobID := c.Param("id")
	if jobID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "job id is required", nil)
		return
	}

	job, err := h.Svc.Get(c.Request.Context(), userID, jobID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "job not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch job", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, toResponse(job))
}

func (h *Handler) listJobs(c *gin.Context) {
	if middleware.IsGuest(c) {
		respond.Error(c, http.StatusUnauthorized, "login_required", "Login required to view history", nil)
		return
	}

	userID := middleware.UserIDFromContext(c)

	limit := 20
	offset := 0

	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}
	if limit > 50 {
		limit = 50
	}

	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	jobList, err := h.Svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list jobs", nil)
		return
	}

	resp := make([]JobResponse, 0, len(jobList))
	for _, job := range jobList {
		resp = append(resp, toResponse(job))
	}

	respond.JSON(c, http.StatusOK, resp)
}
