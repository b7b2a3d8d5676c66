package projects_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/EngCalc/calc-backend/internal/middleware"
	"github.com/EngCalc/calc-backend/internal/projects"
	"github.com/EngCalc/calc-backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (h http.Handler, clock *time.Time, alice, bob string) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock = &now
	store := storage.NewMemoryStore(storage.WithClock(func() time.Time { return *clock }))

	session := func(username string) string {
		u, err := store.CreateUser(ctx, storage.NewUser{Username: username, Email: username + "@x.com", HashedPassword: "h"})
		require.NoError(t, err)
		s, err := store.CreateSession(ctx, u.ID)
		require.NoError(t, err)
		return s.ID
	}
	alice, bob = session("alice"), session("bob")

	return projects.SetupRoutes(&projects.Handler{Store: store}, store), clock, alice, bob
}

func do(t *testing.T, h http.Handler, method, path, session string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: session})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeProject(t *testing.T, rec *httptest.ResponseRecorder) storage.Project {
	t.Helper()
	var p storage.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p), rec.Body.String())
	return p
}

func TestCreate_Defaults(t *testing.T) {
	h, _, alice, _ := setup(t)

	rec := do(t, h, http.MethodPost, "/", alice, map[string]any{"name": "Bridge"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Equal(t, "in_progress", raw["status"])
	assert.Equal(t, []any{}, raw["calculations"])
	assert.Nil(t, raw["description"])
	assert.NotEmpty(t, raw["userId"])
}

func TestCreate_Validation(t *testing.T) {
	h, _, alice, _ := setup(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing name", map[string]any{"status": "complete"}},
		{"unknown status", map[string]any{"name": "Bridge", "status": "done"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/", alice, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreate_KeepsDanglingIDs(t *testing.T) {
	h, _, alice, _ := setup(t)

	rec := do(t, h, http.MethodPost, "/", alice, map[string]any{
		"name":         "Bridge",
		"calculations": []string{"c-2", "c-1", "missing"},
		"status":       "complete",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	p := decodeProject(t, rec)
	assert.Equal(t, []string{"c-2", "c-1", "missing"}, []string(p.Calculations))
	assert.Equal(t, storage.StatusComplete, p.Status)
}

func TestOwnership(t *testing.T) {
	h, _, alice, bob := setup(t)

	created := decodeProject(t, do(t, h, http.MethodPost, "/", alice, map[string]any{"name": "Bridge"}))

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rec := do(t, h, method, "/"+created.ID, bob, map[string]any{"status": "archived"})
		assert.Equal(t, http.StatusNotFound, rec.Code, method)
		assert.JSONEq(t, `{"message":"Project not found"}`, rec.Body.String())
	}

	rec := do(t, h, http.MethodGet, "/", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	got := decodeProject(t, do(t, h, http.MethodGet, "/"+created.ID, alice, nil))
	assert.Equal(t, storage.StatusInProgress, got.Status)
}

func TestUpdate(t *testing.T) {
	h, clock, alice, _ := setup(t)

	created := decodeProject(t, do(t, h, http.MethodPost, "/", alice, map[string]any{
		"name":         "Bridge",
		"description":  "Span study",
		"calculations": []string{"c-1"},
	}))
	*clock = clock.Add(time.Minute)

	t.Run("status only", func(t *testing.T) {
		rec := do(t, h, http.MethodPut, "/"+created.ID, alice, map[string]any{"status": "archived"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		p := decodeProject(t, rec)
		assert.Equal(t, storage.StatusArchived, p.Status)
		assert.Equal(t, "Bridge", p.Name)
		require.NotNil(t, p.Description)
		assert.Equal(t, "Span study", *p.Description)
		assert.Equal(t, []string{"c-1"}, []string(p.Calculations))
		assert.True(t, p.CreatedAt.Equal(created.CreatedAt))
		assert.True(t, p.UpdatedAt.After(created.UpdatedAt))
	})

	t.Run("replace calculations", func(t *testing.T) {
		rec := do(t, h, http.MethodPut, "/"+created.ID, alice, map[string]any{"calculations": []string{}})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, decodeProject(t, rec).Calculations)
	})

	t.Run("null clears description", func(t *testing.T) {
		rec := do(t, h, http.MethodPut, "/"+created.ID, alice, map[string]any{"description": nil})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		p := decodeProject(t, rec)
		assert.Nil(t, p.Description)
		assert.Equal(t, "Bridge", p.Name)
	})

	t.Run("invalid", func(t *testing.T) {
		for _, body := range []map[string]any{{"name": nil}, {"status": nil}, {"calculations": nil}} {
			rec := do(t, h, http.MethodPut, "/"+created.ID, alice, body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		}

		rec := do(t, h, http.MethodPut, "/"+created.ID, alice, map[string]any{"status": "done"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = do(t, h, http.MethodPut, "/"+created.ID, alice, map[string]any{"name": ""})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDelete(t *testing.T) {
	h, _, alice, _ := setup(t)

	created := decodeProject(t, do(t, h, http.MethodPost, "/", alice, map[string]any{"name": "Bridge"}))

	rec := do(t, h, http.MethodDelete, "/"+created.ID, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Project deleted"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/"+created.ID, alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
