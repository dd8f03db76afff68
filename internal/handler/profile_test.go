package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukerupert/bywater/internal/database"
	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/store"
)

func setupProfileHandler(t *testing.T) (*ProfileHandler, *store.UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	us := store.NewUserStore(db)
	return NewProfileHandler(us, slog.New(slog.NewTextHandler(io.Discard, nil))), us
}

func TestProfileUpdateUsername(t *testing.T) {
	h, us := setupProfileHandler(t)
	user, err := us.UpsertFromIdentity(model.Identity{ID: "google:a", Provider: "google", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("upsert user: %v", err)
	}

	req := authedRequest("PUT", "/api/profile", strings.NewReader(`{"username":"GroceryGoblin"}`), user.ID)
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var got model.User
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Username != "GroceryGoblin" {
		t.Errorf("username = %q, want GroceryGoblin", got.Username)
	}
}

func TestProfileUpdateUsernameTooShort(t *testing.T) {
	h, us := setupProfileHandler(t)
	user, err := us.UpsertFromIdentity(model.Identity{ID: "google:a", Provider: "google", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("upsert user: %v", err)
	}

	req := authedRequest("PUT", "/api/profile", strings.NewReader(`{"username":"shorty"}`), user.ID)
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestProfileUpdateUsernameConflict(t *testing.T) {
	h, us := setupProfileHandler(t)
	a, err := us.UpsertFromIdentity(model.Identity{ID: "google:a", Provider: "google", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("upsert a: %v", err)
	}
	b, err := us.UpsertFromIdentity(model.Identity{ID: "google:b", Provider: "google", Email: "b@example.com"})
	if err != nil {
		t.Fatalf("upsert b: %v", err)
	}
	if _, err := us.UpdateUsername(a.ID, "GroceryGoblin"); err != nil {
		t.Fatalf("claim name: %v", err)
	}

	req := authedRequest("PUT", "/api/profile", strings.NewReader(`{"username":"GroceryGoblin"}`), b.ID)
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}
