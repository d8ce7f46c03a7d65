package staging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"fileforge-backend/internal/shared/storage/object"
)

const defaultUploadTimeout = 150 * time.Second

// HTTPStager uploads the object's bytes to the engine's upload endpoint and
// returns the URL the engine hands back. It is the conservative transport:
// every byte travels through this process, so it works with any object store.
type HTTPStager struct {
	store      object.ObjectStore
	uploadURL  string
	token      string
	maxBytes   int64
	httpClient *http.Client
}

func NewHTTPStager(store object.ObjectStore, engineBaseURL, token string, maxBytes int64, timeout time.Duration) (*HTTPStager, error) {
	if store == nil {
		return nil, errors.New("staging: object store is required")
	}
	base := strings.TrimRight(strings.TrimSpace(engineBaseURL), "/")
	if base == "" {
		return nil, errors.New("staging: engine base URL is required")
	}
	if timeout <= 0 {
		timeout = defaultUploadTimeout
	}
	return &HTTPStager{
		store:      store,
		uploadURL:  base + "/upload",
		token:      token,
		maxBytes:   maxBytes,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type uploadResponse struct {
	FileID   string `json:"FileId"`
	FileName string `json:"FileName"`
	URL      string `json:"Url"`
}

func (s *HTTPStager) Stage(ctx context.Context, src Source, onProgress ProgressFunc) (string, error) {
	if s.maxBytes > 0 && src.Size > s.maxBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrFileTooLarge, src.Size)
	}

	rc, err := s.store.Open(ctx, src.Key)
	if err != nil {
		return "", fmt.Errorf("open object %s: %w", src.Key, err)
	}
	defer rc.Close()

	body := &progressReader{r: rc, total: src.Size, onProgress: onProgress}
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", src.Name)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, body); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.uploadURL, pr)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("upload %s: %w", src.Name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read upload response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("upload %s: engine returned %d: %s", src.Name, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed uploadResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if parsed.URL == "" {
		return "", fmt.Errorf("upload %s: response missing file URL", src.Name)
	}
	if onProgress != nil && src.Size > 0 {
		onProgress(src.Size, src.Size)
	}
	return parsed.URL, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	return strings.Contains(err.Error(), "Client.Timeout")
}

// progressReader reports cumulative bytes read to the progress callback.
type progressReader struct {
	r          io.Reader
	total      int64
	read       atomic.Int64
	onProgress ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		transferred := p.read.Add(int64(n))
		if p.onProgress != nil {
			p.onProgress(transferred, p.total)
		}
	}
	return n, err
}
