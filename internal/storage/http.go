package storage

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	client *Client
}

func Register(rg *gin.RouterGroup, client *Client) {
	h := &Handler{client: client}
	rg.POST("", h.upload)
}

// upload stores a multipart image file and returns its public URL.
func (h *Handler) upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "file is required"})
		return
	}
	defer file.Close()

	ext := strings.ToLower(path.Ext(header.Filename))
	key := fmt.Sprintf("uploads/%s/%s%s", time.Now().UTC().Format("2006/01"), uuid.New().String(), ext)

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := h.client.Upload(c.Request.Context(), key, file, header.Size, contentType); err != nil {
		if errors.Is(err, ErrDisabled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "path": key, "url": h.client.PublicURL(key)})
}
