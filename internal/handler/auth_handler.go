package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/feedback-api/internal/middleware"
	"github.com/noah-isme/feedback-api/internal/models"
	"github.com/noah-isme/feedback-api/pkg/response"
)

type authService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Logout(ctx context.Context, tokenString string) error
	SessionExpiry() time.Duration
}

// CookieConfig controls the admin session cookie.
type CookieConfig struct {
	Name   string
	Path   string
	Secure bool
}

// AuthHandler wires admin login and logout.
type AuthHandler struct {
	auth   authService
	cookie CookieConfig
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(auth authService, cookie CookieConfig) *AuthHandler {
	if cookie.Path == "" {
		cookie.Path = "/"
	}
	return &AuthHandler{auth: auth, cookie: cookie}
}

// Login godoc
// @Summary Admin login
// @Description Checks the admin password and opens a session
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Admin password"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /admin/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid login payload"))
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.cookie.Name != "" {
		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(h.cookie.Name, res.AccessToken, int(h.auth.SessionExpiry().Seconds()), h.cookie.Path, "", h.cookie.Secure, true)
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Logout godoc
// @Summary Admin logout
// @Description Revokes the presented session and clears the session cookie
// @Tags Admin
// @Success 204
// @Router /admin/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), middleware.SessionToken(c, h.cookie.Name)); err != nil {
		response.Error(c, err)
		return
	}
	if h.cookie.Name != "" {
		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(h.cookie.Name, "", -1, h.cookie.Path, "", h.cookie.Secure, true)
	}
	response.NoContent(c)
}
