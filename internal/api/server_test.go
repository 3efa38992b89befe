package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/ShelfBoT/internal/catalog"
	"github.com/Kerhoff/ShelfBoT/internal/metrics"
	"github.com/Kerhoff/ShelfBoT/internal/models"
	"github.com/Kerhoff/ShelfBoT/internal/repository/memory"
	"github.com/Kerhoff/ShelfBoT/internal/service"
	"github.com/Kerhoff/ShelfBoT/pkg/logger"
)

const alice, bob int64 = 1, 2

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	log := logger.Discard()
	resolver := catalog.NewStatic("10026-1", "10305-1", "21318-1", "30706-1", "6990-1")
	svc := service.New(memory.NewStore(), resolver, memory.NewUserRepository(), log, nil)
	return NewServer(svc, log, HeaderIdentity{}, metrics.New()).Handler()
}

func do(t *testing.T, h http.Handler, method, path string, user int64, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != 0 {
		req.Header.Set("X-User-ID", fmt.Sprint(user))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/healthz", 0, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListLifecycle(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/lists", alice, map[string]any{"title": "Castles"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	castles := decode[models.List](t, rec)
	assert.Equal(t, 2, castles.Position)
	assert.True(t, castles.IsPublic, "lists are public unless asked otherwise")

	rec = do(t, h, http.MethodPost, "/api/lists", alice, map[string]any{"title": "Secret", "is_public": false})
	require.Equal(t, http.StatusCreated, rec.Code)
	secret := decode[models.List](t, rec)

	rec = do(t, h, http.MethodGet, "/api/lists/me", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decode[[]models.List](t, rec)
	require.Len(t, mine, 4)
	assert.Equal(t, "Owned", mine[0].Title)
	assert.Equal(t, "Secret", mine[3].Title)

	rec = do(t, h, http.MethodPut, "/api/lists/order", alice, map[string]any{"list_ids": []int64{secret.ID, castles.ID}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	reordered := decode[[]models.List](t, rec)
	assert.Equal(t, secret.ID, reordered[2].ID)

	rec = do(t, h, http.MethodPatch, fmt.Sprintf("/api/lists/%d", castles.ID), alice, map[string]any{"title": "Keeps"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Keeps", decode[models.List](t, rec).Title)

	rec = do(t, h, http.MethodGet, "/api/lists/public", 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	public := decode[[]models.List](t, rec)
	require.Len(t, public, 1)
	assert.Equal(t, castles.ID, public[0].ID)

	rec = do(t, h, http.MethodGet, fmt.Sprintf("/api/lists/%d", secret.ID), bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodDelete, fmt.Sprintf("/api/lists/%d", secret.ID), bob, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "NOT_OWNER", decode[errorResponse](t, rec).Code)

	rec = do(t, h, http.MethodDelete, fmt.Sprintf("/api/lists/%d", secret.ID), alice, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/lists/me", alice, nil)
	mine = decode[[]models.List](t, rec)
	require.Len(t, mine, 3)
	assert.Equal(t, 2, mine[2].Position)
}

func TestListItems(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/lists", alice, map[string]any{"title": "Bricks"})
	require.Equal(t, http.StatusCreated, rec.Code)
	list := decode[models.List](t, rec)
	base := fmt.Sprintf("/api/lists/%d", list.ID)

	for _, setNum := range []string{"10026", "30706", "21318"} {
		rec = do(t, h, http.MethodPost, base+"/items", alice, map[string]string{"set_num": setNum})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodPost, base+"/items", alice, map[string]string{"set_num": "10026-1"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/items", alice, map[string]string{"set_num": "99999"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPut, base+"/items/order", alice, map[string]any{"set_nums": []string{"21318", "10026"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION", decode[errorResponse](t, rec).Code)

	rec = do(t, h, http.MethodPut, base+"/items/order", alice, map[string]any{"set_nums": []string{"21318", "10026", "30706"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodDelete, base+"/items/10026", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"removed":["10026-1"]}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, base, 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[models.List](t, rec)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "21318-1", got.Items[0].SetNum)
	assert.Equal(t, 0, got.Items[0].Position)
	assert.Equal(t, "30706-1", got.Items[1].SetNum)
	assert.Equal(t, 1, got.Items[1].Position)
}

func TestSystemListsRejectGenericMutation(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/lists/me", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	owned := decode[[]models.List](t, rec)[0]
	path := fmt.Sprintf("/api/lists/%d", owned.ID)

	rec = do(t, h, http.MethodPost, path+"/items", alice, map[string]string{"set_num": "10305"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN_SYSTEM_MUTATION", decode[errorResponse](t, rec).Code)

	rec = do(t, h, http.MethodDelete, path, alice, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodPatch, path, alice, map[string]any{"is_public": true})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCollections(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/collections/wishlist", alice, map[string]string{"set_num": "10305"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/collections/owned", alice, map[string]string{"set_num": "10305"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/collections/wishlist", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/collections/owned", alice, nil)
	owned := decode[[]models.ListItem](t, rec)
	require.Len(t, owned, 1)
	assert.Equal(t, "10305-1", owned[0].SetNum)

	rec = do(t, h, http.MethodPost, "/api/collections/wishlist", alice, map[string]string{"set_num": "10305-1"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/collections/owned/order", alice, map[string]any{"set_nums": []string{"10305"}})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/collections/owned/10305-1", alice, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodDelete, "/api/collections/owned/10305-1", alice, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequestValidation(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/lists", alice, map[string]any{"title": "   "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[errorResponse](t, rec)
	assert.Equal(t, "VALIDATION", resp.Code)
	assert.Contains(t, resp.Details, "title")

	rec = do(t, h, http.MethodPost, "/api/lists", alice, `{"title":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/lists", alice, `{"title":"x","colour":"red"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/lists/order", alice, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPatch, "/api/lists/abc", alice, map[string]any{"title": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIdentity(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/lists/me", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/lists/me", nil)
	req.Header.Set("X-User-ID", "alice")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerIdentity(t *testing.T) {
	b := BearerIdentity{Lookup: StaticTokens(map[string]int64{"s3cret": 7})}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	id, err := b.Identify(req)
	require.NoError(t, err)
	assert.Zero(t, id)

	req.Header.Set("Authorization", "Bearer s3cret")
	id, err = b.Identify(req)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	req.Header.Set("Authorization", "Bearer nope")
	_, err = b.Identify(req)
	assert.ErrorIs(t, err, ErrInvalidIdentity)

	req.Header.Set("Authorization", "Basic s3cret")
	_, err = b.Identify(req)
	assert.ErrorIs(t, err, ErrInvalidIdentity)
}

func TestServerWithBearerTokens(t *testing.T) {
	log := logger.Discard()
	svc := service.New(memory.NewStore(), catalog.NewStatic("10305-1"), memory.NewUserRepository(), log, nil)
	h := NewServer(svc, log, BearerIdentity{Lookup: StaticTokens(map[string]int64{"s3cret": alice})}, nil).Handler()

	post := func(auth string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/collections/owned", bytes.NewBufferString(`{"set_num":"10305"}`))
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		req.Header.Set("X-User-ID", fmt.Sprint(bob))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusUnauthorized, post("").Code, "X-User-ID is ignored in token mode")
	assert.Equal(t, http.StatusUnauthorized, post("Bearer wrong").Code)
	require.Equal(t, http.StatusCreated, post("Bearer s3cret").Code)

	owned, err := svc.Owned(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, "10305-1", owned[0].SetNum)
}
