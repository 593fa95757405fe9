package receipts

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"
)

// AuthorizeFunc decides whether the request may read receipts of a household.
// A non-nil error rejects the request with 403.
type AuthorizeFunc func(r *http.Request, householdID string) error

// Handler serves GET /receipts/<householdID>/<file>.
type Handler struct {
	store     Store
	authorize AuthorizeFunc
}

// NewHandler creates a Handler. Mount it at "/receipts/".
func NewHandler(store Store, authorize AuthorizeFunc) *Handler {
	return &Handler{store: store, authorize: authorize}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ref := strings.TrimPrefix(r.URL.Path, "/")
	householdID, err := HouseholdOf(ref)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	if err := h.authorize(r, householdID); err != nil {
		slog.Warn("Receipt access denied", "household_id", householdID, "error", err)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	body, err := h.store.Open(r.Context(), ref)
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidRef) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("Failed to open receipt", "ref", ref, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer body.Close()

	if ct := mime.TypeByExtension(path.Ext(ref)); ct != "" {
		w.Header().Set("Content-Type", ct)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	w.Header().Set("Cache-Control", "private, max-age=86400")
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, body); err != nil {
		slog.Warn("Failed to stream receipt", "ref", ref, "error", err)
	}
}
