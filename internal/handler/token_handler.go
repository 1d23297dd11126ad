package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/feedback-api/internal/models"
	"github.com/noah-isme/feedback-api/internal/service"
	"github.com/noah-isme/feedback-api/pkg/response"
)

type tokenService interface {
	Verify(ctx context.Context, value string) (bool, error)
	Stats(ctx context.Context) (*models.TokenStats, error)
	Generate(ctx context.Context, req service.GenerateTokensRequest) ([]string, error)
	Reset(ctx context.Context, req service.ResetRequest) error
}

// VerifyTokenRequest carries a token to check without consuming it.
type VerifyTokenRequest struct {
	Token string `json:"token"`
}

// TokenHandler exposes token verification and admin token management.
type TokenHandler struct {
	tokens tokenService
}

// NewTokenHandler constructs a TokenHandler.
func NewTokenHandler(tokens tokenService) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

// Verify godoc
// @Summary Verify token
// @Description Reports whether a token is issued and unused. The token is not consumed.
// @Tags Tokens
// @Accept json
// @Produce json
// @Param payload body VerifyTokenRequest true "Token"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /tokens/verify [post]
func (h *TokenHandler) Verify(c *gin.Context) {
	var req VerifyTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid verify payload"))
		return
	}
	valid, err := h.tokens.Verify(c.Request.Context(), req.Token)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"valid": valid}, nil)
}

// Stats godoc
// @Summary Token usage
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /admin/tokens/stats [get]
func (h *TokenHandler) Stats(c *gin.Context) {
	stats, err := h.tokens.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Generate godoc
// @Summary Generate tokens
// @Description Generates and issues a batch of random single-use tokens
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.GenerateTokensRequest true "Batch size and token length"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/tokens [post]
func (h *TokenHandler) Generate(c *gin.Context) {
	var req service.GenerateTokensRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid token generation payload"))
		return
	}
	tokens, err := h.tokens.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"count": len(tokens), "tokens": tokens})
}

// Reset godoc
// @Summary Reset store
// @Description Deletes every token and feedback entry. Requires {"confirm":"RESET"}.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.ResetRequest true "Confirmation"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/reset [post]
func (h *TokenHandler) Reset(c *gin.Context) {
	var req service.ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid reset payload"))
		return
	}
	if err := h.tokens.Reset(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"reset": true}, nil)
}
