// Package http provides HTTP handlers for one-time secret operations.
// Handlers only ever see the secret id; the client key stays in the share link.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/ots/internal/httputil"
	secretsDomain "github.com/allisson/ots/internal/secrets/domain"
	"github.com/allisson/ots/internal/secrets/http/dto"
	secretsUseCase "github.com/allisson/ots/internal/secrets/usecase"
	customValidation "github.com/allisson/ots/internal/validation"
)

// SecretHandler handles HTTP requests for one-time secrets.
type SecretHandler struct {
	secretUseCase secretsUseCase.SecretUseCase
	logger        *slog.Logger
}

// NewSecretHandler creates a new secret handler with required dependencies.
func NewSecretHandler(secretUseCase secretsUseCase.SecretUseCase, logger *slog.Logger) *SecretHandler {
	return &SecretHandler{
		secretUseCase: secretUseCase,
		logger:        logger,
	}
}

// CreateHandler stores a client-encrypted envelope.
// POST /api/v1/ots/
// Returns 201 Created with the id, expiry, remaining reads and the retrieve path.
func (h *SecretHandler) CreateHandler(c *gin.Context) {
	var req dto.CreateSecretRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	secret, err := h.secretUseCase.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapSecretToCreateResponse(secret))
}

// RedeemHandler spends one read of a secret and returns its envelope fields.
// GET /api/v1/ots/:id
// The query string is never consulted, so a key pasted along with the id is ignored.
func (h *SecretHandler) RedeemHandler(c *gin.Context) {
	redeemed, err := h.secretUseCase.Redeem(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, dto.MapRedeemedSecretToResponse(redeemed))
}

// DeleteHandler removes a secret without reading it.
// DELETE /api/v1/ots/:id
// Returns 204 No Content when the secret existed, 404 otherwise.
func (h *SecretHandler) DeleteHandler(c *gin.Context) {
	existed, err := h.secretUseCase.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	if !existed {
		httputil.HandleErrorGin(c, secretsDomain.ErrSecretNotFound, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}
