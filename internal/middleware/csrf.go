package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/dukerupert/bywater/internal/auth"
)

// VerifyCSRF rejects mutating requests whose CSRF token does not match the
// session's. The token is read from the X-CSRF-Token header, falling back to
// the csrfToken form field for plain form posts. Must run after RequireAuth.
func VerifyCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		want := auth.CSRFToken(r.Context())
		got := r.Header.Get("X-CSRF-Token")
		if got == "" {
			got = r.FormValue("csrfToken")
		}

		if want == "" || subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":"invalid csrf token"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}
