package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/fernhill/pennyjar/internal/economy"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeEconomyError maps the economy package's sentinel errors to HTTP
// statuses. Unknown errors become 500 without leaking detail.
func writeEconomyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, economy.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, economy.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "not allowed")
	case errors.Is(err, economy.ErrInsufficientFunds):
		writeError(w, http.StatusUnprocessableEntity, "insufficient funds")
	case errors.Is(err, economy.ErrInvalidStateTransition),
		errors.Is(err, economy.ErrAlreadyCompleted),
		errors.Is(err, economy.ErrConcurrentModification):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}
