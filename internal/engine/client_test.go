package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fileforge-backend/internal/tools"
)

func testOp() tools.Operation {
	return tools.Operation{
		Name:       "docx/to/pdf",
		Parameters: map[string]string{},
	}
}

func TestConvertSuccess(t *testing.T) {
	var gotPath string
	var gotBody convertRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"Files":[{"FileName":"report.pdf","FileSize":1234,"Url":"https://out.example/report.pdf"}]}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "secret", time.Minute)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	res, err := client.Convert(context.Background(), testOp(), []string{"https://staged.example/report.docx"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/convert/docx/to/pdf" {
		t.Fatalf("expected /convert/docx/to/pdf, got %s", gotPath)
	}
	if !gotBody.StoreFile {
		t.Fatalf("expected StoreFile true")
	}
	if res.URL != "https://out.example/report.pdf" || res.FileName != "report.pdf" || res.Size != 1234 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestConvertMultiSource(t *testing.T) {
	var gotBody convertRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"Files":[{"FileName":"merged.pdf","FileSize":99,"Url":"https://out.example/merged.pdf"}]}`))
	}))
	defer srv.Close()

	client, _ := NewClient(srv.URL, "", time.Minute)
	op := tools.Operation{Name: "pdf/to/merge", Parameters: map[string]string{}, MultiSource: true}
	urls := []string{"https://s/a.pdf", "https://s/b.pdf", "https://s/c.pdf"}

	if _, err := client.Convert(context.Background(), op, urls); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(gotBody.Parameters) != 1 || gotBody.Parameters[0].Name != "Files" {
		t.Fatalf("expected single Files parameter, got %+v", gotBody.Parameters)
	}
	if len(gotBody.Parameters[0].FileValues) != 3 {
		t.Fatalf("expected 3 file values, got %d", len(gotBody.Parameters[0].FileValues))
	}
}

func TestConvertRemoteRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"Code":4000,"Message":"Unable to download file"}`))
	}))
	defer srv.Close()

	client, _ := NewClient(srv.URL, "", time.Minute)
	_, err := client.Convert(context.Background(), testOp(), []string{"https://staged.example/x.docx"})

	var remoteErr *RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remoteErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", remoteErr.Status)
	}
	if remoteErr.Message != `{"Code":4000,"Message":"Unable to download file"}` {
		t.Fatalf("expected verbatim body, got %q", remoteErr.Message)
	}
}

func TestConvertZeroOutputs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Files":[]}`))
	}))
	defer srv.Close()

	client, _ := NewClient(srv.URL, "", time.Minute)
	_, err := client.Convert(context.Background(), testOp(), []string{"https://staged.example/x.docx"})
	if !errors.Is(err, ErrNoOutput) {
		t.Fatalf("expected ErrNoOutput, got %v", err)
	}
}

func TestConvertMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>definitely not json</html>`))
	}))
	defer srv.Close()

	client, _ := NewClient(srv.URL, "", time.Minute)
	_, err := client.Convert(context.Background(), testOp(), []string{"https://staged.example/x.docx"})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestConvertTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"Files":[]}`))
	}))
	defer srv.Close()

	client, _ := NewClient(srv.URL, "", 20*time.Millisecond)
	_, err := client.Convert(context.Background(), testOp(), []string{"https://staged.example/x.docx"})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestConvertRequiresSource(t *testing.T) {
	client, _ := NewClient("https://engine.example", "", time.Minute)
	if _, err := client.Convert(context.Background(), testOp(), nil); err == nil {
		t.Fatalf("expected error for missing source URLs")
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient("  ", "token", time.Minute); err == nil {
		t.Fatalf("expected error for empty base URL")
	}
	client, err := NewClient("https://engine.example/", "token", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.baseURL != "https://engine.example" {
		t.Fatalf("expected trimmed base URL, got %q", client.baseURL)
	}
}
