package handler

import (
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/dukerupert/bywater/internal/auth"
	"github.com/dukerupert/bywater/internal/database"
	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/store"
	ws "github.com/dukerupert/bywater/internal/websocket"
)

func setupListHandler(t *testing.T) (*ListHandler, *store.ListStore, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ls := store.NewListStore(db)
	return NewListHandler(ls, ws.NewHub(logger), logger), ls, db
}

func insertHandlerTestUser(t *testing.T, db *sql.DB, id string) string {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO users (id, auth_provider, username, email) VALUES (?, 'google', ?, ?)`,
		id, "user-"+id, id+"@example.com",
	)
	if err != nil {
		t.Fatalf("insert test user: %v", err)
	}
	return id
}

func authedRequest(method, target string, body io.Reader, userID string) *http.Request {
	req := httptest.NewRequest(method, target, body)
	ctx := auth.WithAuth(req.Context(), auth.AuthContext{UserID: userID, CSRFToken: "csrf"})
	return req.WithContext(ctx)
}

func seedList(t *testing.T, ls *store.ListStore, db *sql.DB, userID, title string) int64 {
	t.Helper()
	err := ls.Upsert(model.UpsertList{
		Title: title,
		Items: []model.UpsertListItem{{Name: "Milk", ListKey: "a"}},
	}, userID)
	if err != nil {
		t.Fatalf("seed list: %v", err)
	}
	var id int64
	if err := db.QueryRow(
		`SELECT id FROM grocery_lists WHERE owner_id = ? AND title = ?`, userID, title,
	).Scan(&id); err != nil {
		t.Fatalf("seed list id: %v", err)
	}
	return id
}

func TestListHandlerListEmpty(t *testing.T) {
	h, _, db := setupListHandler(t)
	user := insertHandlerTestUser(t, db, "u1")

	rec := httptest.NewRecorder()
	h.List(rec, authedRequest("GET", "/api/lists", nil, user))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("body = %q, want empty array", got)
	}
}

func TestListHandlerGet(t *testing.T) {
	h, ls, db := setupListHandler(t)
	user := insertHandlerTestUser(t, db, "u1")
	listID := seedList(t, ls, db, user, "Weekly Shop")

	req := authedRequest("GET", "/api/lists/"+strconv.FormatInt(listID, 10), nil, user)
	req.SetPathValue("id", strconv.FormatInt(listID, 10))

	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var got model.GroceryList
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Title != "Weekly Shop" {
		t.Errorf("title = %q, want Weekly Shop", got.Title)
	}
	if len(got.Items) != 1 {
		t.Errorf("items = %d, want 1", len(got.Items))
	}
}

func TestListHandlerGetNotFound(t *testing.T) {
	h, _, db := setupListHandler(t)
	user := insertHandlerTestUser(t, db, "u1")

	req := authedRequest("GET", "/api/lists/999", nil, user)
	req.SetPathValue("id", "999")

	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestListHandlerGetBadID(t *testing.T) {
	h, _, db := setupListHandler(t)
	user := insertHandlerTestUser(t, db, "u1")

	req := authedRequest("GET", "/api/lists/abc", nil, user)
	req.SetPathValue("id", "abc")

	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListHandlerSaveCreates(t *testing.T) {
	h, ls, db := setupListHandler(t)
	user := insertHandlerTestUser(t, db, "u1")

	body := url.Values{
		"title":        {"New List"},
		"itemsCount":   {"1"},
		"itemListKey0": {"a"},
		"itemNamea":    {"Milk"},
	}
	req := authedRequest("POST", "/lists/save", strings.NewReader(body.Encode()), user)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	h.Save(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	summaries, err := ls.SummariesByOwner(user)
	if err != nil {
		t.Fatalf("summaries: %v", err)
	}
	if len(summaries) != 1 || summaries[0].Title != "New List" {
		t.Errorf("summaries = %+v, want one New List", summaries)
	}
}

func TestListHandlerSaveValidationErrors(t *testing.T) {
	h, _, db := setupListHandler(t)
	user := insertHandlerTestUser(t, db, "u1")

	body := url.Values{"itemsCount": {"0"}}
	req := authedRequest("POST", "/lists/save", strings.NewReader(body.Encode()), user)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	h.Save(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var resp struct {
		Errors map[string]string `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Errors["title"] == "" {
		t.Errorf("expected title error, got %v", resp.Errors)
	}
}

func TestListHandlerDuplicate(t *testing.T) {
	h, ls, db := setupListHandler(t)
	user := insertHandlerTestUser(t, db, "u1")
	listID := seedList(t, ls, db, user, "Party")

	req := authedRequest("POST", "/api/lists/"+strconv.FormatInt(listID, 10)+"/duplicate", nil, user)
	req.SetPathValue("id", strconv.FormatInt(listID, 10))

	rec := httptest.NewRecorder()
	h.Duplicate(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	summaries, err := ls.SummariesByOwner(user)
	if err != nil {
		t.Fatalf("summaries: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 lists after duplicate, got %d", len(summaries))
	}
}

func TestListHandlerDuplicateMissing(t *testing.T) {
	h, _, db := setupListHandler(t)
	user := insertHandlerTestUser(t, db, "u1")

	req := authedRequest("POST", "/api/lists/999/duplicate", nil, user)
	req.SetPathValue("id", "999")

	rec := httptest.NewRecorder()
	h.Duplicate(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestListHandlerDelete(t *testing.T) {
	h, ls, db := setupListHandler(t)
	user := insertHandlerTestUser(t, db, "u1")
	listID := seedList(t, ls, db, user, "Doomed")

	req := authedRequest("DELETE", "/api/lists/"+strconv.FormatInt(listID, 10), nil, user)
	req.SetPathValue("id", strconv.FormatInt(listID, 10))

	rec := httptest.NewRecorder()
	h.Delete(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	summaries, err := ls.SummariesByOwner(user)
	if err != nil {
		t.Fatalf("summaries: %v", err)
	}
	if len(summaries) != 0 {
		t.Errorf("expected no lists, got %d", len(summaries))
	}
}
