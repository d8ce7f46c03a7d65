package files_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"fileforge-backend/internal/files"
	"fileforge-backend/internal/shared/storage/object/local"
)

func newTestRouter(t *testing.T, maxBytes int64) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := &files.Service{
		Store:    local.New(t.TempDir()),
		Repo:     files.NewMemoryRepo(),
		MaxBytes: maxBytes,
	}

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userId", "guest:abc")
		c.Next()
	})
	files.NewHandler(svc).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func multipartBody(t *testing.T, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fw, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestFilesUploadAndGet(t *testing.T) {
	router := newTestRouter(t, 50<<20)

	body, contentType := multipartBody(t, "report.docx", []byte("not really a docx"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var created struct {
		FileID    string `json:"fileId"`
		FileName  string `json:"fileName"`
		SizeBytes int64  `json:"sizeBytes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.FileID == "" {
		t.Fatalf("expected fileId, got empty")
	}
	if created.FileName != "report.docx" {
		t.Fatalf("expected report.docx, got %s", created.FileName)
	}
	if created.SizeBytes != int64(len("not really a docx")) {
		t.Fatalf("unexpected size %d", created.SizeBytes)
	}

	reqGet := httptest.NewRequest(http.MethodGet, "/api/v1/files/"+created.FileID, nil)
	respGet := httptest.NewRecorder()
	router.ServeHTTP(respGet, reqGet)

	if respGet.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", respGet.Code)
	}
}

func TestFilesUploadRejectsUnsupportedType(t *testing.T) {
	router := newTestRouter(t, 50<<20)

	body, contentType := multipartBody(t, "malware.exe", []byte("nope"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected status 415, got %d", resp.Code)
	}
}

func TestFilesUploadRejectsOversize(t *testing.T) {
	router := newTestRouter(t, 64)

	body, contentType := multipartBody(t, "big.pdf", bytes.Repeat([]byte("x"), 4096))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	// MaxBytesReader truncates the multipart body before the service sees it.
	if resp.Code != http.StatusBadRequest && resp.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 400 or 413, got %d", resp.Code)
	}
}

func TestFilesUploadRequiresFile(t *testing.T) {
	router := newTestRouter(t, 50<<20)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestFilesList(t *testing.T) {
	router := newTestRouter(t, 50<<20)

	for _, name := range []string{"a.pdf", "b.pdf"} {
		body, contentType := multipartBody(t, name, []byte("content"))
		req := httptest.NewRequest(http.MethodPost, "/api/v1/files", body)
		req.Header.Set("Content-Type", contentType)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusCreated {
			t.Fatalf("upload %s: expected 201, got %d", name, resp.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/files?limit=10", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	var listed []struct {
		FileID string `json:"fileId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listed); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 files, got %d", len(listed))
	}
}
