package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/face-roster/internal/database"
	"github.com/kozaktomas/face-roster/internal/constants"
	dbmock "github.com/kozaktomas/face-roster/internal/database/mock"
)

func seededStore(ids ...string) *dbmock.MockIdentityStore {
	store := dbmock.NewMockIdentityStore()
	for _, id := range ids {
		store.AddIdentity(database.StoredIdentity{UUID: id, Photo: "cGhvdG8="})
	}
	return store
}

func TestIdentitiesHandler_List_Pagination(t *testing.T) {
	handler := NewIdentitiesHandler(seededStore("a", "b", "c"))

	recorder := httptest.NewRecorder()
	handler.List(recorder, httptest.NewRequest("GET", "/api/v1/identities?limit=2", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var first IdentityListResponse
	parseJSONResponse(t, recorder, &first)
	if len(first.Identities) != 2 || first.NextCursor == "" {
		t.Fatalf("expected 2 identities and a cursor, got %+v", first)
	}
	if first.Identities[0].Photo != "" {
		t.Error("expected photos to be omitted from listings")
	}

	recorder = httptest.NewRecorder()
	handler.List(recorder, httptest.NewRequest("GET", "/api/v1/identities?limit=2&cursor="+first.NextCursor, nil))

	var second IdentityListResponse
	parseJSONResponse(t, recorder, &second)
	if len(second.Identities) != 1 || second.Identities[0].UUID != "c" || second.NextCursor != "" {
		t.Errorf("unexpected last page %+v", second)
	}
}

func TestIdentitiesHandler_List_Errors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		scanErr    error
		wantStatus int
	}{
		{"invalid limit", "/api/v1/identities?limit=abc", nil, http.StatusBadRequest},
		{"negative limit", "/api/v1/identities?limit=-1", nil, http.StatusBadRequest},
		{"store failure", "/api/v1/identities", errors.New("timeout"), http.StatusServiceUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := seededStore("a")
			store.ScanPageError = tc.scanErr
			handler := NewIdentitiesHandler(store)

			recorder := httptest.NewRecorder()
			handler.List(recorder, httptest.NewRequest("GET", tc.path, nil))

			assertStatusCode(t, recorder, tc.wantStatus)
		})
	}
}

func TestIdentitiesHandler_Get(t *testing.T) {
	handler := NewIdentitiesHandler(seededStore("a"))

	recorder := httptest.NewRecorder()
	req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/identities/a", nil), map[string]string{"uuid": "a"})
	handler.Get(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var identity database.StoredIdentity
	parseJSONResponse(t, recorder, &identity)
	if identity.UUID != "a" || identity.Photo != "" {
		t.Errorf("unexpected identity %+v", identity)
	}

	recorder = httptest.NewRecorder()
	req = requestWithChiParams(httptest.NewRequest("GET", "/api/v1/identities/zzz", nil), map[string]string{"uuid": "zzz"})
	handler.Get(recorder, req)

	assertStatusCode(t, recorder, http.StatusNotFound)
	assertJSONError(t, recorder, "identity not found")
}

func TestIdentitiesHandler_Register(t *testing.T) {
	store := seededStore("a")
	handler := NewIdentitiesHandler(store)

	body := `{"firstName":" Jane ","lastName":"Goodall","grade":4}`
	req := requestWithChiParams(httptest.NewRequest("PUT", "/api/v1/identities/a/registration", strings.NewReader(body)),
		map[string]string{"uuid": "a"})
	recorder := httptest.NewRecorder()

	handler.Register(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var identity database.StoredIdentity
	parseJSONResponse(t, recorder, &identity)
	if !identity.IsRegistered || identity.FirstName == nil || *identity.FirstName != "Jane" || *identity.Grade != 4 {
		t.Errorf("unexpected identity %+v", identity)
	}
}

func TestIdentitiesHandler_Register_Invalid(t *testing.T) {
	tests := []struct {
		name       string
		uuid       string
		body       string
		wantStatus int
		wantError  string
	}{
		{"bad json", "a", `{`, http.StatusBadRequest, errInvalidRequestBody},
		{"missing first name", "a", `{"lastName":"X","grade":1}`, http.StatusBadRequest, "firstName is required"},
		{"missing last name", "a", `{"firstName":"X","grade":1}`, http.StatusBadRequest, "lastName is required"},
		{"missing grade", "a", `{"firstName":"X","lastName":"Y"}`, http.StatusBadRequest, "grade is required"},
		{"negative grade", "a", `{"firstName":"X","lastName":"Y","grade":-2}`, http.StatusBadRequest, "grade must not be negative"},
		{"unknown identity", "zzz", `{"firstName":"X","lastName":"Y","grade":0}`, http.StatusNotFound, "identity not found"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewIdentitiesHandler(seededStore("a"))
			req := requestWithChiParams(httptest.NewRequest("PUT", "/api/v1/identities/"+tc.uuid+"/registration", strings.NewReader(tc.body)),
				map[string]string{"uuid": tc.uuid})
			recorder := httptest.NewRecorder()

			handler.Register(recorder, req)

			assertStatusCode(t, recorder, tc.wantStatus)
			assertJSONError(t, recorder, tc.wantError)
		})
	}
}

func TestIdentitiesHandler_Register_BodyTooLarge(t *testing.T) {
	store := seededStore("a")
	handler := NewIdentitiesHandler(store)

	body := `{"firstName":"` + strings.Repeat("x", constants.MaxRegistrationBodySize) + `","lastName":"Y","grade":1}`
	req := requestWithChiParams(httptest.NewRequest("PUT", "/api/v1/identities/a/registration", strings.NewReader(body)),
		map[string]string{"uuid": "a"})
	recorder := httptest.NewRecorder()

	handler.Register(recorder, req)

	assertStatusCode(t, recorder, http.StatusRequestEntityTooLarge)
	assertJSONError(t, recorder, "request body too large")
	if store.RegisterCount() != 0 {
		t.Errorf("expected no registration for an oversized body, got %d", store.RegisterCount())
	}
}
