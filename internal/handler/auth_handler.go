package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/ntholi/registry-web-sub009/internal/dto"
	"github.com/ntholi/registry-web-sub009/internal/models"
	"github.com/ntholi/registry-web-sub009/internal/service"
	appErrors "github.com/ntholi/registry-web-sub009/pkg/errors"
	"github.com/ntholi/registry-web-sub009/pkg/response"
)

type tokenIssuer interface {
	IssueToken(identity service.TokenIdentity) (string, time.Time, error)
}

// AuthHandler mints development tokens. Production tokens come from the identity provider.
type AuthHandler struct {
	issuer    tokenIssuer
	validator *validator.Validate
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(issuer tokenIssuer) *AuthHandler {
	return &AuthHandler{issuer: issuer, validator: validator.New()}
}

// IssueToken godoc
// @Summary Issue a development access token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.IssueTokenRequest true "Token subject"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/token [post]
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req dto.IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid token payload"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, bindError(err, "invalid token payload"))
		return
	}
	role := models.UserRole(req.Role)
	if role == models.RoleStudent && req.StdNo == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "student tokens require stdNo"))
		return
	}

	token, expiresAt, err := h.issuer.IssueToken(service.TokenIdentity{
		UserID: req.UserID,
		Role:   role,
		Email:  req.Email,
		Name:   req.Name,
		StdNo:  req.StdNo,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.IssueTokenResponse{AccessToken: token, ExpiresAt: expiresAt.Format(time.RFC3339)})
}
