package calculations_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/EngCalc/calc-backend/internal/calculations"
	"github.com/EngCalc/calc-backend/internal/middleware"
	"github.com/EngCalc/calc-backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store   *storage.MemoryStore
	handler http.Handler
	now     time.Time
	alice   string // session ids
	bob     string
	aliceID string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	f.store = storage.NewMemoryStore(storage.WithClock(func() time.Time { return f.now }))

	login := func(username string) (string, string) {
		u, err := f.store.CreateUser(ctx, storage.NewUser{Username: username, Email: username + "@x.com", HashedPassword: "h"})
		require.NoError(t, err)
		s, err := f.store.CreateSession(ctx, u.ID)
		require.NoError(t, err)
		return u.ID, s.ID
	}
	f.aliceID, f.alice = login("alice")
	_, f.bob = login("bob")

	f.handler = calculations.SetupRoutes(&calculations.Handler{Store: f.store}, f.store)
	return f
}

func (f *fixture) do(t *testing.T, method, path, session string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: session})
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

var beam = map[string]any{
	"type":    "beam_deflection",
	"name":    "Test",
	"inputs":  map[string]any{"length": 2.5, "load": 1200},
	"results": map[string]any{"deflection": 0.0031},
}

func TestCreate_StampsCaller(t *testing.T) {
	f := setup(t)

	body := map[string]any{"userId": "someone-else"}
	for k, v := range beam {
		body[k] = v
	}
	rec := f.do(t, http.MethodPost, "/", f.alice, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[storage.Calculation](t, rec)
	assert.NotEmpty(t, got.ID)
	require.NotNil(t, got.UserID)
	assert.Equal(t, f.aliceID, *got.UserID)
	assert.Equal(t, "beam_deflection", got.Type)
	assert.JSONEq(t, `{"length": 2.5, "load": 1200}`, string(got.Inputs))
	assert.Nil(t, got.Description)
}

func TestCreate_Invalid(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name string
		body any
	}{
		{"missing type", map[string]any{"name": "x", "inputs": map[string]any{}, "results": map[string]any{}}},
		{"missing inputs", map[string]any{"type": "t", "name": "x", "results": map[string]any{}}},
		{"null results", map[string]any{"type": "t", "name": "x", "inputs": map[string]any{}, "results": nil}},
		{"malformed", `{"type":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/", f.alice, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestRequiresSession(t *testing.T) {
	f := setup(t)

	rec := f.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestList_OnlyOwned(t *testing.T) {
	f := setup(t)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/", f.alice, beam).Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/", f.bob, beam).Code)

	rec := f.do(t, http.MethodGet, "/", f.alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]storage.Calculation](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, f.aliceID, *list[0].UserID)
}

func TestList_EmptyIsArray(t *testing.T) {
	f := setup(t)

	rec := f.do(t, http.MethodGet, "/", f.alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestOtherUserGets404(t *testing.T) {
	f := setup(t)

	created := decode[storage.Calculation](t, f.do(t, http.MethodPost, "/", f.alice, beam))
	path := "/" + created.ID

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			rec := f.do(t, method, path, f.bob, map[string]any{"name": "stolen"})
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.JSONEq(t, `{"message":"Calculation not found"}`, rec.Body.String())
		})
	}

	// Untouched by bob's attempts.
	rec := f.do(t, http.MethodGet, path, f.alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Test", decode[storage.Calculation](t, rec).Name)
}

func TestGet_Unknown(t *testing.T) {
	f := setup(t)

	rec := f.do(t, http.MethodGet, "/does-not-exist", f.alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOwnerlessRecordIsUnreachable(t *testing.T) {
	f := setup(t)

	c, err := f.store.CreateCalculation(context.Background(), storage.NewCalculation{
		Type: "t", Name: "orphan", Inputs: storage.JSON(`{}`), Results: storage.JSON(`{}`),
	})
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/"+c.ID, f.alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdate_PartialMerge(t *testing.T) {
	f := setup(t)

	created := decode[storage.Calculation](t, f.do(t, http.MethodPost, "/", f.alice, beam))
	f.now = f.now.Add(time.Hour)

	rec := f.do(t, http.MethodPut, "/"+created.ID, f.alice, map[string]any{
		"name":      "Renamed",
		"material":  "steel",
		"userId":    "someone-else",
		"createdAt": "2000-01-01T00:00:00Z",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[storage.Calculation](t, rec)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Renamed", updated.Name)
	require.NotNil(t, updated.Material)
	assert.Equal(t, "steel", *updated.Material)

	assert.Equal(t, created.Type, updated.Type)
	assert.JSONEq(t, string(created.Inputs), string(updated.Inputs))
	assert.JSONEq(t, string(created.Results), string(updated.Results))
	assert.Equal(t, *created.UserID, *updated.UserID)
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
}

func TestUpdate_NullClearsOptionalFields(t *testing.T) {
	f := setup(t)

	body := map[string]any{"description": "midspan load", "material": "steel"}
	for k, v := range beam {
		body[k] = v
	}
	created := decode[storage.Calculation](t, f.do(t, http.MethodPost, "/", f.alice, body))
	require.NotNil(t, created.Material)

	rec := f.do(t, http.MethodPut, "/"+created.ID, f.alice, `{"material": null}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[storage.Calculation](t, rec)

	assert.Nil(t, updated.Material)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "midspan load", *updated.Description)
	assert.Equal(t, created.Name, updated.Name)
}

func TestUpdate_RejectsInvalidFields(t *testing.T) {
	f := setup(t)

	created := decode[storage.Calculation](t, f.do(t, http.MethodPost, "/", f.alice, beam))

	for _, body := range []string{`{"name": ""}`, `{"name": null}`, `{"type": null}`, `{"inputs": null}`, `{"results": null}`, `{"material": 7}`} {
		rec := f.do(t, http.MethodPut, "/"+created.ID, f.alice, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	rec := f.do(t, http.MethodPut, "/"+created.ID, f.alice, `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDelete(t *testing.T) {
	f := setup(t)

	created := decode[storage.Calculation](t, f.do(t, http.MethodPost, "/", f.alice, beam))

	rec := f.do(t, http.MethodDelete, "/"+created.ID, f.alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Calculation deleted"}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/"+created.ID, f.alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodDelete, "/"+created.ID, f.alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
