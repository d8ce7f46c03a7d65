package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fileforge-backend/internal/tools"
)

const defaultTimeout = 240 * time.Second

// Invoker calls a remote conversion operation with staged source URLs.
type Invoker interface {
	Convert(ctx context.Context, op tools.Operation, sourceURLs []string) (Result, error)
}

// Result describes the single output artifact of a conversion.
type Result struct {
	URL      string
	FileName string
	Size     int64
}

// Client implements Invoker against the remote conversion engine's HTTP API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient constructs an engine client. A zero timeout falls back to the
// default 240 s.
func NewClient(baseURL, token string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("engine base URL is required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type requestParameter struct {
	Name       string      `json:"Name"`
	Value      string      `json:"Value,omitempty"`
	FileValue  *fileValue  `json:"FileValue,omitempty"`
	FileValues []fileValue `json:"FileValues,omitempty"`
}

type fileValue struct {
	URL string `json:"Url"`
}

type convertRequest struct {
	Parameters []requestParameter `json:"Parameters"`
	StoreFile  bool               `json:"StoreFile"`
}

type convertResponse struct {
	Files []struct {
		FileName string `json:"FileName"`
		FileSize int64  `json:"FileSize"`
		URL      string `json:"Url"`
	} `json:"Files"`
	Code    int    `json:"Code,omitempty"`
	Message string `json:"Message,omitempty"`
}

// Convert invokes a single remote operation and expects exactly one output
// artifact in the response.
func (c *Client) Convert(ctx context.Context, op tools.Operation, sourceURLs []string) (Result, error) {
	if len(sourceURLs) == 0 {
		return Result{}, fmt.Errorf("at least one source URL is required")
	}

	reqBody := convertRequest{StoreFile: true}
	if op.MultiSource {
		values := make([]fileValue, 0, len(sourceURLs))
		for _, u := range sourceURLs {
			values = append(values, fileValue{URL: u})
		}
		reqBody.Parameters = append(reqBody.Parameters, requestParameter{Name: "Files", FileValues: values})
	} else {
		reqBody.Parameters = append(reqBody.Parameters, requestParameter{Name: "File", FileValue: &fileValue{URL: sourceURLs[0]}})
	}
	for name, value := range op.Parameters {
		reqBody.Parameters = append(reqBody.Parameters, requestParameter{Name: name, Value: value})
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return Result{}, err
	}

	url := c.baseURL + "/convert/" + op.Name
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return Result{}, fmt.Errorf("%w: %s", ErrTimeout, op.Name)
		}
		return Result{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Surface the remote's status and body verbatim, never swallowed.
		return Result{}, &RemoteError{
			Status:  resp.StatusCode,
			Message: strings.TrimSpace(string(body)),
		}
	}

	var parsed convertResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(parsed.Files) == 0 {
		return Result{}, ErrNoOutput
	}

	out := parsed.Files[0]
	if strings.TrimSpace(out.URL) == "" {
		return Result{}, fmt.Errorf("%w: output missing url", ErrMalformedResponse)
	}

	return Result{
		URL:      out.URL,
		FileName: out.FileName,
		Size:     out.FileSize,
	}, nil
}

var _ Invoker = (*Client)(nil)
