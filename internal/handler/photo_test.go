package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photomanager/api/internal/model"
	"github.com/photomanager/api/internal/store"
)

// newPhotoApp wires the handler routes that need no queue: tag management,
// rename, listing. Upload and reanalysis are covered by the service and
// worker tests.
func newPhotoApp(t *testing.T) (*fiber.App, store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	h := NewPhotoHandler(nil, st, t.TempDir(), 20)

	app := fiber.New()
	app.Get("/api/tags", h.ListTags)
	app.Get("/api/photos", h.List)
	app.Get("/api/photos/:id", h.Get)
	app.Put("/api/photos/:id/rename", h.Rename)
	app.Get("/api/photos/:id/tags", h.PhotoTags)
	app.Post("/api/photos/:id/tags", h.AddTag)
	app.Delete("/api/photos/:photoId/tags/:tagId", h.RemoveTag)
	return app, st
}

func seedPhoto(t *testing.T, st store.Store) *model.Photo {
	t.Helper()
	p := &model.Photo{
		Filename:     "abc.jpg",
		OriginalName: "vacances.jpg",
		Path:         "/uploads/abc.jpg",
		MimeType:     "image/jpeg",
		Size:         1024,
	}
	require.NoError(t, st.CreatePhoto(context.Background(), p))
	return p
}

func doJSON(t *testing.T, app *fiber.App, method, target, body string) *http.Response {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeTags(t *testing.T, resp *http.Response) []model.Tag {
	t.Helper()
	var tags []model.Tag
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tags))
	return tags
}

func TestRenamePhoto(t *testing.T) {
	app, st := newPhotoApp(t)
	p := seedPhoto(t, st)

	resp := doJSON(t, app, http.MethodPut, "/api/photos/1/rename", `{"newName":"  été 2024  "}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var got model.Photo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "été 2024", got.OriginalName, "surrounding whitespace is trimmed")
	assert.Equal(t, p.Filename, got.Filename, "stored file keeps its generated name")
}

func TestRenamePhotoValidation(t *testing.T) {
	app, st := newPhotoApp(t)
	seedPhoto(t, st)

	resp := doJSON(t, app, http.MethodPut, "/api/photos/1/rename", `{"newName":"   "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPut, "/api/photos/999/rename", `{"newName":"x"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAddAndListPhotoTags(t *testing.T) {
	app, st := newPhotoApp(t)
	seedPhoto(t, st)

	// Manual tags go through the same normalization as analysis tags.
	resp := doJSON(t, app, http.MethodPost, "/api/photos/1/tags", `{"tagName":"  Coucher de Soleil  "}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tags := decodeTags(t, resp)
	require.Len(t, tags, 1)
	assert.Equal(t, "coucher de soleil", tags[0].Name)

	// Adding the same tag again stays idempotent.
	resp = doJSON(t, app, http.MethodPost, "/api/photos/1/tags", `{"tagName":"coucher de soleil"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeTags(t, resp), 1)

	resp = doJSON(t, app, http.MethodGet, "/api/photos/1/tags", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeTags(t, resp), 1)

	// The global tag index sees it too.
	resp = doJSON(t, app, http.MethodGet, "/api/tags", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	all := decodeTags(t, resp)
	require.Len(t, all, 1)
	assert.Equal(t, "coucher de soleil", all[0].Name)
}

func TestAddTagValidation(t *testing.T) {
	app, st := newPhotoApp(t)
	seedPhoto(t, st)

	resp := doJSON(t, app, http.MethodPost, "/api/photos/1/tags", `{"tagName":"   "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/photos/999/tags", `{"tagName":"plage"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRemovePhotoTag(t *testing.T) {
	app, st := newPhotoApp(t)
	seedPhoto(t, st)
	ctx := context.Background()

	require.NoError(t, st.CreateTag(ctx, "plage"))
	tag, err := st.GetTagByName(ctx, "plage")
	require.NoError(t, err)
	require.NoError(t, st.AddPhotoTag(ctx, 1, tag.ID))

	resp := doJSON(t, app, http.MethodDelete, "/api/photos/1/tags/1", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	tags, err := st.GetPhotoTags(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, tags)

	// The tag itself survives in the index for other photos.
	_, err = st.GetTagByName(ctx, "plage")
	assert.NoError(t, err)

	// Removing an absent association is a no-op.
	resp = doJSON(t, app, http.MethodDelete, "/api/photos/1/tags/1", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListTagsEmpty(t *testing.T) {
	app, _ := newPhotoApp(t)

	resp := doJSON(t, app, http.MethodGet, "/api/tags", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeTags(t, resp))
}
