package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dukerupert/bywater/internal/apperr"
)

func parseIDParam(r *http.Request) (int64, error) {
	idStr := r.PathValue("id")
	return strconv.ParseInt(idStr, 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError translates store errors to JSON responses using the apperr
// status code, hiding internal detail for 500s.
func writeError(w http.ResponseWriter, err error) {
	code := apperr.Code(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, code, map[string]string{"error": msg})
}
