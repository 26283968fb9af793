package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/xralks/Bancodealimentos/internal/middleware"
	"github.com/xralks/Bancodealimentos/internal/models"
	appErrors "github.com/xralks/Bancodealimentos/pkg/errors"
	"github.com/xralks/Bancodealimentos/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Session(c)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

// pathID reads a UUID path parameter. Anything that does not parse cannot name a
// stored row, so it is answered with 404 before reaching the database.
func pathID(c *gin.Context, key, notFound string) (string, bool) {
	raw := c.Param(key)
	if _, err := uuid.Parse(raw); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, notFound))
		return "", false
	}
	return raw, true
}
