package storage

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Disabled(t *testing.T) {
	client, err := NewClient(Config{})
	require.NoError(t, err)

	_, err = client.BucketExists(context.Background())
	assert.ErrorIs(t, err, ErrDisabled)

	err = client.Upload(context.Background(), "uploads/x.png", bytes.NewReader(nil), 0, "image/png")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestClient_PublicURL(t *testing.T) {
	client, err := NewClient(Config{
		Endpoint:      "minio.local:9000",
		Bucket:        "showfolio",
		PublicBaseURL: "https://cdn.showfolio.dev/",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.showfolio.dev/uploads/a.png", client.PublicURL("uploads/a.png"))
	assert.Equal(t, "https://cdn.showfolio.dev/uploads/a.png", client.PublicURL("/uploads/a.png"))
}

func TestHandler_Upload(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(t *testing.T) *gin.Engine {
		t.Helper()
		client, err := NewClient(Config{})
		require.NoError(t, err)
		r := gin.New()
		Register(r.Group("/uploads"), client)
		return r
	}

	t.Run("missing file part is a 400", func(t *testing.T) {
		r := newRouter(t)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/uploads", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("disabled storage is a 503", func(t *testing.T) {
		r := newRouter(t)

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", "shot.png")
		require.NoError(t, err)
		_, err = part.Write([]byte("fake image bytes"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/uploads", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
