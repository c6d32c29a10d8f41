package projects

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	store     *Store
	favorites *Favorites
}

func Register(rg *gin.RouterGroup, store *Store, favorites *Favorites) {
	h := &Handler{store: store, favorites: favorites}

	rg.GET("", h.list)
	rg.GET("/stream", h.stream)
	rg.POST("", h.create)
	rg.PUT("/:id", h.update)
	rg.DELETE("/:id", h.remove)
}

// RegisterFavorites mounts the favorites sub-routes.
func RegisterFavorites(rg *gin.RouterGroup, favorites *Favorites) {
	h := &Handler{favorites: favorites}

	rg.GET("", h.listFavorites)
	rg.POST("/:projectID", h.addFavorite)
	rg.DELETE("/:projectID", h.removeFavorite)
}

// list serves the filtered, paginated view of the store's list.
func (h *Handler) list(c *gin.Context) {
	view := View{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Page:     1,
		PageSize: DefaultPageSize,
	}
	if tags := c.Query("tags"); tags != "" {
		view.Tags = strings.Split(tags, ",")
	}
	if page, err := strconv.Atoi(c.Query("page")); err == nil {
		view.Page = page
	}
	if size, err := strconv.Atoi(c.Query("page_size")); err == nil && size > 0 {
		view.PageSize = size
	}

	result := view.Apply(h.store.Projects())
	c.JSON(http.StatusOK, gin.H{"ok": true, "projects": result.Items, "page": result.Page, "total_pages": result.TotalPages, "total": result.Total})
}

func (h *Handler) create(c *gin.Context) {
	var draft Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	draft.Normalize()
	if err := draft.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	p, err := h.store.Create(c.Request.Context(), draft)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "project": p})
}

func (h *Handler) update(c *gin.Context) {
	var p Project
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	p.ID = c.Param("id")

	updated, err := h.store.Update(c.Request.Context(), p)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": updated})
}

func (h *Handler) remove(c *gin.Context) {
	if err := h.store.Remove(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(statusFor(err), gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// stream pushes realtime project change events over Server-Sent Events.
func (h *Handler) stream(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // nginx: disable buffering

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "streaming unsupported"})
		return
	}

	// Initial snapshot so a fresh client does not need a second request.
	snapshot, _ := json.Marshal(gin.H{"projects": h.store.Projects()})
	fmt.Fprintf(c.Writer, "event: initial\ndata: %s\n\n", snapshot)
	flusher.Flush()

	events, cancel := h.store.Subscribe()
	defer cancel()

	ctx := c.Request.Context()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Client disconnected
			return

		case <-ticker.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
			flusher.Flush()

		case ev, open := <-events:
			if !open {
				return
			}
			data, _ := json.Marshal(ev)
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", ev.Kind, data)
			flusher.Flush()
		}
	}
}

func (h *Handler) listFavorites(c *gin.Context) {
	ids, err := h.favorites.Load(c.Request.Context())
	if err != nil {
		if errors.Is(err, ErrNotAuthenticated) {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": err.Error()})
			return
		}
		// Remote load failed: serve the locally known set.
		if local, localErr := h.favorites.List(); localErr == nil {
			c.JSON(http.StatusOK, gin.H{"ok": true, "favorites": local, "degraded": true})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "favorites": ids})
}

func (h *Handler) addFavorite(c *gin.Context) {
	err := h.favorites.Add(c.Request.Context(), c.Param("projectID"))
	respondFavorite(c, err)
}

func (h *Handler) removeFavorite(c *gin.Context) {
	err := h.favorites.Remove(c.Request.Context(), c.Param("projectID"))
	respondFavorite(c, err)
}

// respondFavorite reports a failed remote write without undoing the
// optimistic local change.
func respondFavorite(c *gin.Context, err error) {
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}
	if errors.Is(err, ErrNotAuthenticated) {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"ok": true, "warning": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotAdmin):
		return http.StatusForbidden
	case errors.Is(err, ErrProjectNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
