package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func seedUser(t *testing.T, svc *Service, id string) {
	t.Helper()
	err := svc.UpsertFromAuth(context.Background(), User{
		ID:       id,
		Email:    "jordan@example.com",
		FullName: "Jordan Example",
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func setupMeRouter(svc *Service, userID string, guest bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userId", userID)
		c.Set("isGuest", guest)
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestMeReturnsStoredProfile(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	seedUser(t, svc, "google:42")
	r := setupMeRouter(svc, "google:42", false)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["email"] != "jordan@example.com" {
		t.Fatalf("unexpected email %v", body["email"])
	}
	if body["fullName"] != "Jordan Example" {
		t.Fatalf("unexpected fullName %v", body["fullName"])
	}
}

func TestMeRejectsGuests(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	r := setupMeRouter(svc, "guest:abc", true)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestMeUnknownUserReturns404(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	r := setupMeRouter(svc, "google:missing", false)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestUpsertPreservesCreatedAt(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	seedUser(t, svc, "google:7")

	first, err := repo.GetByID(context.Background(), "google:7")
	if err != nil {
		t.Fatalf("get after first upsert: %v", err)
	}
	seedUser(t, svc, "google:7")
	second, err := repo.GetByID(context.Background(), "google:7")
	if err != nil {
		t.Fatalf("get after second upsert: %v", err)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("CreatedAt changed on upsert: %s vs %s", first.CreatedAt, second.CreatedAt)
	}
}
