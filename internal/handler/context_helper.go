package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/unipass-api/internal/middleware"
	"github.com/noah-isme/unipass-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

func universityFromContext(c *gin.Context) string {
	return middleware.UniversityID(c)
}

func passKeyFromPath(c *gin.Context) models.PassKey {
	return models.PassKey{
		CareerID:         strings.TrimSpace(c.Param("careerId")),
		UniqueIdentifier: strings.TrimSpace(c.Param("uniqueIdentifier")),
	}
}

func pageFromQuery(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, size
}
