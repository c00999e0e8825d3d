package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

// idParam parses the :id path segment.
func idParam(c *gin.Context) (snowflake.ID, error) {
	return parseIDField(c.Param("id"), "id")
}

func parseIDField(raw, field string) (snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, newValidationError(field, "invalid_id", "invalid id")
	}
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, newValidationError(field, "invalid_id", "invalid id")
	}
	return id, nil
}
