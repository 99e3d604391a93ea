package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-roster/internal/constants"
	"github.com/kozaktomas/face-roster/internal/database"
)

// IdentitiesHandler serves operator access to stored identities
type IdentitiesHandler struct {
	store database.IdentityWriter
}

// NewIdentitiesHandler creates a new identities handler
func NewIdentitiesHandler(store database.IdentityWriter) *IdentitiesHandler {
	return &IdentitiesHandler{store: store}
}

// IdentityListResponse is one page of identities, without reference photos
type IdentityListResponse struct {
	Identities []database.StoredIdentity `json:"identities"`
	NextCursor string                    `json:"nextCursor,omitempty"`
}

// RegistrationRequest is the body of a registration update
type RegistrationRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Grade     *int   `json:"grade"`
}

// List returns one page of identities
func (h *IdentitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")

	limit := database.DefaultPageSize
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = database.NormalizeLimit(n)
	}

	page, err := h.store.ScanPage(r.Context(), cursor, limit)
	if err != nil {
		slog.WarnContext(r.Context(), "list identities failed", "cursor", sanitizeForLog(cursor), "error", err)
		respondError(w, http.StatusServiceUnavailable, "failed to list identities")
		return
	}

	resp := IdentityListResponse{
		Identities: make([]database.StoredIdentity, 0, len(page.Identities)),
		NextCursor: page.NextCursor,
	}
	for _, identity := range page.Identities {
		resp.Identities = append(resp.Identities, identity.WithoutPhoto())
	}
	respondJSON(w, http.StatusOK, resp)
}

// Get returns a single identity
func (h *IdentitiesHandler) Get(w http.ResponseWriter, r *http.Request) {
	uuid := chi.URLParam(r, "uuid")

	identity, err := h.store.Get(r.Context(), uuid)
	if err != nil {
		slog.WarnContext(r.Context(), "get identity failed", "uuid", sanitizeForLog(uuid), "error", err)
		respondError(w, http.StatusServiceUnavailable, "failed to get identity")
		return
	}
	if identity == nil {
		respondError(w, http.StatusNotFound, "identity not found")
		return
	}
	respondJSON(w, http.StatusOK, identity.WithoutPhoto())
}

// Register attaches a name and grade to an identity and marks it registered
func (h *IdentitiesHandler) Register(w http.ResponseWriter, r *http.Request) {
	uuid := chi.URLParam(r, "uuid")

	body, ok := readBody(w, r, constants.MaxRegistrationBodySize)
	if !ok {
		return
	}

	var req RegistrationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	reg, msg := req.validate()
	if msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	identity, err := h.store.Register(r.Context(), uuid, reg)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "identity not found")
		return
	}
	if err != nil {
		slog.WarnContext(r.Context(), "register identity failed", "uuid", sanitizeForLog(uuid), "error", err)
		respondError(w, http.StatusServiceUnavailable, "failed to register identity")
		return
	}

	slog.InfoContext(r.Context(), "identity registered", "uuid", sanitizeForLog(uuid))
	respondJSON(w, http.StatusOK, identity.WithoutPhoto())
}

// validate returns the registration or a message describing the first invalid field.
func (req RegistrationRequest) validate() (database.Registration, string) {
	first := strings.TrimSpace(req.FirstName)
	last := strings.TrimSpace(req.LastName)
	switch {
	case first == "":
		return database.Registration{}, "firstName is required"
	case last == "":
		return database.Registration{}, "lastName is required"
	case req.Grade == nil:
		return database.Registration{}, "grade is required"
	case *req.Grade < 0:
		return database.Registration{}, "grade must not be negative"
	}
	return database.Registration{FirstName: first, LastName: last, Grade: *req.Grade}, ""
}
