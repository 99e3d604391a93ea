package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/kozaktomas/face-roster/internal/constants"
	"github.com/kozaktomas/face-roster/internal/recognition"
)

// Identifier runs an identification. Implemented by *recognition.Service.
type Identifier interface {
	Identify(ctx context.Context, req recognition.Request) recognition.Result
}

// IdentifyHandler exposes identification over plain HTTP and as proxy events.
type IdentifyHandler struct {
	identifier Identifier
}

// NewIdentifyHandler creates a new identify handler
func NewIdentifyHandler(identifier Identifier) *IdentifyHandler {
	return &IdentifyHandler{identifier: identifier}
}

// readBody reads a size-limited request body, answering 413 or 400 itself on failure.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return nil, false
	}
	return body, true
}

// Identify answers with the envelope's status code, headers and body.
func (h *IdentifyHandler) Identify(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r, constants.MaxRequestBodySize)
	if !ok {
		return
	}

	var res recognition.Result
	if req, err := recognition.ParseRequest(body); err != nil {
		res = recognition.Result{Err: err}
	} else {
		res = h.identifier.Identify(r.Context(), req)
	}

	env := recognition.BuildEnvelope(res)
	for k, v := range env.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(env.StatusCode)
	io.WriteString(w, env.Body)
}

// Events accepts a gateway proxy event and always answers 200 with the whole envelope,
// leaving the outcome to the envelope's statusCode.
func (h *IdentifyHandler) Events(w http.ResponseWriter, r *http.Request) {
	raw, ok := readBody(w, r, constants.MaxRequestBodySize)
	if !ok {
		return
	}

	var res recognition.Result
	if req, err := recognition.ParseEvent(raw); err != nil {
		res = recognition.Result{Err: err}
	} else {
		res = h.identifier.Identify(r.Context(), req)
	}

	respondJSON(w, http.StatusOK, recognition.BuildEnvelope(res))
}
