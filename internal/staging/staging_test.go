package staging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

type stubStore struct {
	objects map[string][]byte
	opens   atomic.Int32
}

func newStubStore() *stubStore {
	return &stubStore{objects: map[string][]byte{}}
}

func (s *stubStore) Save(ctx context.Context, userID, fileName string, r io.Reader) (string, int64, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, "", err
	}
	key := userID + "/" + fileName
	s.objects[key] = data
	return key, int64(len(data)), "application/octet-stream", nil
}

func (s *stubStore) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	s.opens.Add(1)
	data, ok := s.objects[storageKey]
	if !ok {
		return nil, fmt.Errorf("no object %s", storageKey)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type stubPresigner struct {
	url   string
	err   error
	calls atomic.Int32
}

func (p *stubPresigner) PresignGet(ctx context.Context, storageKey string, ttl time.Duration) (string, error) {
	p.calls.Add(1)
	if p.err != nil {
		return "", p.err
	}
	return p.url + "/" + storageKey, nil
}

func TestHTTPStagerUploads(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer file.Close()
		if header.Filename != "report.docx" {
			t.Errorf("expected report.docx, got %s", header.Filename)
		}
		w.Write([]byte(`{"FileId":"abc","FileName":"report.docx","Url":"https://engine.example/d/abc"}`))
	}))
	defer srv.Close()

	store := newStubStore()
	payload := bytes.Repeat([]byte("x"), 8192)
	key, _, _, _ := store.Save(context.Background(), "u1", "report.docx", bytes.NewReader(payload))

	stager, err := NewHTTPStager(store, srv.URL, "tok", 50<<20, time.Minute)
	if err != nil {
		t.Fatalf("new stager: %v", err)
	}

	var last int64
	monotonic := true
	url, err := stager.Stage(context.Background(), Source{Key: key, Name: "report.docx", Size: int64(len(payload))}, func(transferred, total int64) {
		if transferred < last {
			monotonic = false
		}
		last = transferred
	})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if url != "https://engine.example/d/abc" {
		t.Fatalf("unexpected url %s", url)
	}
	if !monotonic {
		t.Fatalf("progress went backwards")
	}
	if last != int64(len(payload)) {
		t.Fatalf("expected final progress %d, got %d", len(payload), last)
	}
	if requests.Load() != 1 {
		t.Fatalf("expected 1 upload request, got %d", requests.Load())
	}
}

func TestHTTPStagerRejectsOversizeBeforeNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected for oversize file")
	}))
	defer srv.Close()

	store := newStubStore()
	stager, _ := NewHTTPStager(store, srv.URL, "", 1024, time.Minute)

	_, err := stager.Stage(context.Background(), Source{Key: "u1/big.bin", Name: "big.bin", Size: 2048}, nil)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
	if store.opens.Load() != 0 {
		t.Fatalf("object store touched for oversize file")
	}
}

func TestHTTPStagerEngineError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	}))
	defer srv.Close()

	store := newStubStore()
	key, _, _, _ := store.Save(context.Background(), "u1", "a.pdf", bytes.NewReader([]byte("pdf")))
	stager, _ := NewHTTPStager(store, srv.URL, "", 0, time.Minute)

	_, err := stager.Stage(context.Background(), Source{Key: key, Name: "a.pdf", Size: 3}, nil)
	if err == nil || !bytes.Contains([]byte(err.Error()), []byte("502")) {
		t.Fatalf("expected 502 error, got %v", err)
	}
}

func TestHTTPStagerTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"Url":"late"}`))
	}))
	defer srv.Close()

	store := newStubStore()
	key, _, _, _ := store.Save(context.Background(), "u1", "a.pdf", bytes.NewReader([]byte("pdf")))
	stager, _ := NewHTTPStager(store, srv.URL, "", 0, 20*time.Millisecond)

	_, err := stager.Stage(context.Background(), Source{Key: key, Name: "a.pdf", Size: 3}, nil)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestPresignStager(t *testing.T) {
	p := &stubPresigner{url: "https://bucket.example"}
	stager, err := NewPresignStager(p, 50<<20, 0)
	if err != nil {
		t.Fatalf("new stager: %v", err)
	}

	var final int64
	url, err := stager.Stage(context.Background(), Source{Key: "u1/a.pdf", Name: "a.pdf", Size: 100}, func(transferred, total int64) {
		final = transferred
	})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if url != "https://bucket.example/u1/a.pdf" {
		t.Fatalf("unexpected url %s", url)
	}
	if final != 100 {
		t.Fatalf("expected immediate completion, got %d", final)
	}
}

func TestPresignStagerOversize(t *testing.T) {
	p := &stubPresigner{url: "https://bucket.example"}
	stager, _ := NewPresignStager(p, 1024, 0)
	_, err := stager.Stage(context.Background(), Source{Key: "u1/big", Name: "big", Size: 4096}, nil)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
	if p.calls.Load() != 0 {
		t.Fatalf("presigner called for oversize file")
	}
}

type scriptedStager struct {
	calls atomic.Int32
	url   string
	errs  []error
}

func (s *scriptedStager) Stage(ctx context.Context, src Source, onProgress ProgressFunc) (string, error) {
	n := int(s.calls.Add(1))
	if n <= len(s.errs) && s.errs[n-1] != nil {
		return "", s.errs[n-1]
	}
	return s.url, nil
}

func TestRetryFallsBackOnce(t *testing.T) {
	primary := &scriptedStager{errs: []error{errors.New("presign unavailable")}}
	fallback := &scriptedStager{url: "https://engine.example/d/1"}

	url, err := WithRetry(primary, fallback).Stage(context.Background(), Source{Key: "k", Name: "a.pdf", Size: 1}, nil)
	if err != nil {
		t.Fatalf("expected fallback success, got %v", err)
	}
	if url != "https://engine.example/d/1" {
		t.Fatalf("unexpected url %s", url)
	}
	if primary.calls.Load() != 1 || fallback.calls.Load() != 1 {
		t.Fatalf("expected one attempt each, got %d/%d", primary.calls.Load(), fallback.calls.Load())
	}
}

func TestRetrySkipsPrimarySuccess(t *testing.T) {
	primary := &scriptedStager{url: "https://bucket.example/k"}
	fallback := &scriptedStager{url: "https://engine.example/d/1"}

	url, err := WithRetry(primary, fallback).Stage(context.Background(), Source{Key: "k", Name: "a.pdf", Size: 1}, nil)
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if url != "https://bucket.example/k" {
		t.Fatalf("unexpected url %s", url)
	}
	if fallback.calls.Load() != 0 {
		t.Fatalf("fallback called despite primary success")
	}
}

func TestRetryNeverRetriesOversize(t *testing.T) {
	primary := &scriptedStager{errs: []error{fmt.Errorf("%w: 99 bytes", ErrFileTooLarge)}}
	fallback := &scriptedStager{url: "https://engine.example/d/1"}

	_, err := WithRetry(primary, fallback).Stage(context.Background(), Source{Key: "k", Name: "big", Size: 99}, nil)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
	if fallback.calls.Load() != 0 {
		t.Fatalf("fallback attempted for oversize file")
	}
}

func TestRetryWithoutFallbackRetriesPrimary(t *testing.T) {
	primary := &scriptedStager{url: "https://engine.example/d/2", errs: []error{errors.New("transient")}}

	url, err := WithRetry(primary, nil).Stage(context.Background(), Source{Key: "k", Name: "a.pdf", Size: 1}, nil)
	if err != nil {
		t.Fatalf("expected retry success, got %v", err)
	}
	if url != "https://engine.example/d/2" {
		t.Fatalf("unexpected url %s", url)
	}
	if primary.calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", primary.calls.Load())
	}
}
