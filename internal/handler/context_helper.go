package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ntholi/registry-web-sub009/internal/middleware"
	"github.com/ntholi/registry-web-sub009/internal/models"
	appErrors "github.com/ntholi/registry-web-sub009/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

func stdNoParam(c *gin.Context) (int64, error) {
	stdNo, err := strconv.ParseInt(c.Param("stdNo"), 10, 64)
	if err != nil || stdNo <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid student number")
	}
	return stdNo, nil
}

func bindError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
