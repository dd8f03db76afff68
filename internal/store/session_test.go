package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/dukerupert/bywater/internal/database"
)

func setupSessionTestDB(t *testing.T) (*SessionStore, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSessionStore(db), db
}

func TestSessionCreateAndGet(t *testing.T) {
	ss, db := setupSessionTestDB(t)
	user := createTestUser(t, db, "u1")

	sess, err := ss.Create(user, "google")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sess.ID == "" || sess.CSRFToken == "" {
		t.Fatalf("expected generated tokens, got %+v", sess)
	}
	if sess.ID == sess.CSRFToken {
		t.Error("session id and CSRF token must differ")
	}
	if sess.UserID != user {
		t.Errorf("user id = %q, want %q", sess.UserID, user)
	}
	remaining := time.Until(sess.ExpiresAt)
	if remaining < 23*time.Hour || remaining > 25*time.Hour {
		t.Errorf("expiry %v from now, want about 24h", remaining)
	}

	got, err := ss.GetByID(sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected session, got nil")
	}
	if got.CSRFToken != sess.CSRFToken {
		t.Errorf("csrf token = %q, want %q", got.CSRFToken, sess.CSRFToken)
	}
}

func TestSessionGetMissing(t *testing.T) {
	ss, _ := setupSessionTestDB(t)

	got, err := ss.GetByID("no-such-session")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestSessionExpiredDeletedOnRead(t *testing.T) {
	ss, db := setupSessionTestDB(t)
	user := createTestUser(t, db, "u1")

	_, err := db.Exec(
		`INSERT INTO user_sessions (id, user_id, csrf_token, auth_provider, expires_at) VALUES (?, ?, ?, 'google', ?)`,
		"stale", user, "csrf", time.Now().UTC().Add(-time.Minute),
	)
	if err != nil {
		t.Fatalf("insert stale session: %v", err)
	}

	got, err := ss.GetByID("stale")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("expired session should read as missing")
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM user_sessions WHERE id = 'stale'`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Error("expired session should be deleted on read")
	}
}

func TestSessionDelete(t *testing.T) {
	ss, db := setupSessionTestDB(t)
	user := createTestUser(t, db, "u1")

	sess, err := ss.Create(user, "google")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := ss.Delete(sess.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := ss.GetByID(sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("expected session gone after delete")
	}

	// Deleting again is fine.
	if err := ss.Delete(sess.ID); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestDeleteExpiredSessions(t *testing.T) {
	ss, db := setupSessionTestDB(t)
	user := createTestUser(t, db, "u1")

	live, err := ss.Create(user, "google")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for i, id := range []string{"old-1", "old-2"} {
		_, err := db.Exec(
			`INSERT INTO user_sessions (id, user_id, csrf_token, auth_provider, expires_at) VALUES (?, ?, ?, 'google', ?)`,
			id, user, "csrf", time.Now().UTC().Add(-time.Duration(i+1)*time.Hour),
		)
		if err != nil {
			t.Fatalf("insert stale session %s: %v", id, err)
		}
	}

	swept, err := ss.DeleteExpired()
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if swept != 2 {
		t.Errorf("swept = %d, want 2", swept)
	}

	got, err := ss.GetByID(live.ID)
	if err != nil {
		t.Fatalf("get live: %v", err)
	}
	if got == nil {
		t.Error("live session should survive the sweep")
	}
}
