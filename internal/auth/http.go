package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/showfolio/showfolio-backend/internal/identity"
	"github.com/showfolio/showfolio-backend/internal/session"
)

type Handler struct {
	manager  *Manager
	provider session.Provider
	limiter  *rate.Limiter
}

func NewHandler(manager *Manager, provider session.Provider, ratePerMin, burst int) *Handler {
	if ratePerMin <= 0 {
		ratePerMin = 10
	}
	if burst <= 0 {
		burst = 5
	}
	return &Handler{
		manager:  manager,
		provider: provider,
		limiter:  rate.NewLimiter(rate.Limit(float64(ratePerMin)/60.0), burst),
	}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/signup", h.signUp)
	rg.POST("/signin", h.signIn)
	rg.POST("/signout", h.signOut)
	rg.GET("/me", h.me)
}

// RegisterUsers mounts the admin identity-management routes.
func (h *Handler) RegisterUsers(rg *gin.RouterGroup) {
	rg.GET("", h.listIdentities)
	rg.POST("", h.addIdentity)
	rg.DELETE("/:id", h.removeIdentity)
}

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (h *Handler) signUp(c *gin.Context) {
	var req credentialsReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "email and password are required"})
		return
	}

	sess, err := h.provider.SignUp(c.Request.Context(), req.Email, req.Password, session.Metadata{
		Name: req.Name,
		Role: string(identity.RoleUser),
	})
	if err != nil {
		if errors.Is(err, session.ErrAccountExists) {
			c.JSON(http.StatusConflict, gin.H{"ok": false, "error": "account already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	h.manager.Refresh(c.Request.Context())
	ident, _ := h.manager.Current()
	c.JSON(http.StatusCreated, gin.H{"ok": true, "user": ident, "token": sess.Token})
}

func (h *Handler) signIn(c *gin.Context) {
	if !h.limiter.Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{"ok": false, "error": "too many sign-in attempts"})
		return
	}

	var req credentialsReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "email and password are required"})
		return
	}

	ident, err := h.manager.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid credentials"})
		return
	}

	var token string
	if sess, err := h.provider.Current(c.Request.Context()); err == nil && sess != nil {
		token = sess.Token
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": ident, "token": token})
}

func (h *Handler) signOut(c *gin.Context) {
	if err := h.manager.SignOut(c.Request.Context()); err != nil {
		// Local state is already cleared; report the remote failure.
		c.JSON(http.StatusOK, gin.H{"ok": true, "warning": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) me(c *gin.Context) {
	ident, ok := h.manager.Current()
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": ErrNotAuthenticated.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": ident, "state": h.manager.State().String()})
}

func (h *Handler) listIdentities(c *gin.Context) {
	identities, err := h.manager.Identities(c.Request.Context())
	if err != nil {
		c.JSON(statusForAuth(err), gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "users": identities})
}

type addIdentityReq struct {
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

func (h *Handler) addIdentity(c *gin.Context) {
	var req addIdentityReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "email and password are required"})
		return
	}

	perms := make([]identity.Category, 0, len(req.Permissions))
	for _, p := range req.Permissions {
		perms = append(perms, identity.Category(p))
	}

	outcome, err := h.manager.AddIdentity(c.Request.Context(), NewIdentity{
		Email:       req.Email,
		Password:    req.Password,
		Name:        req.Name,
		Role:        identity.Role(req.Role),
		Permissions: perms,
	})
	if err != nil {
		c.JSON(statusForAuth(err), gin.H{"ok": false, "error": err.Error()})
		return
	}

	if outcome == AddDegraded {
		c.JSON(http.StatusAccepted, gin.H{"ok": true, "degraded": true})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true})
}

func (h *Handler) removeIdentity(c *gin.Context) {
	if err := h.manager.RemoveIdentity(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(statusForAuth(err), gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// WithSession validates a bearer token when present and resolves the
// verified session into the manager, so a token minted before a restart
// still authenticates its requests. It never rejects; routes that need an
// authenticated identity check the manager.
func WithSession(provider session.Provider, manager *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token != "" {
			if sess, err := provider.Verify(c.Request.Context(), token); err == nil {
				manager.ResolveSession(c.Request.Context(), sess)
			}
		}
		c.Next()
	}
}

// extractToken extracts the Bearer token from the Authorization header.
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.HasPrefix(bearerToken, "Bearer ") {
		return bearerToken[7:]
	}
	return ""
}

func statusForAuth(err error) int {
	switch {
	case errors.Is(err, ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotAdmin):
		return http.StatusForbidden
	case errors.Is(err, ErrSelfRemoval):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
