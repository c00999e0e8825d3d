package server

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	apikeydomain "github.com/pullpaylabs/pullpay/internal/apikey/domain"
)

// APIKeyRequired authenticates requests using an API key only. Caller
// identity is derived solely from the api_keys table; the role decides which
// surface the key reaches.
func (s *Server) APIKeyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		if !s.apiKeyLimiter.Allow(c.Request.Context(), parts[1]) {
			AbortWithError(c, ErrRateLimited)
			return
		}

		hash := apikeydomain.HashAPIKey(parts[1])
		now := time.Now().UTC()

		var record struct {
			ID       snowflake.ID      `gorm:"column:id"`
			KeyHash  string            `gorm:"column:key_hash"`
			Role     apikeydomain.Role `gorm:"column:role"`
			Identity string            `gorm:"column:identity"`
		}

		if err := s.db.WithContext(c.Request.Context()).Raw(
			`SELECT id, key_hash, role, identity
			 FROM api_keys
			 WHERE key_hash = ?
			   AND is_active = true
			   AND (expires_at IS NULL OR expires_at > ?)
			 LIMIT 1`,
			hash,
			now,
		).Scan(&record).Error; err != nil {
			AbortWithError(c, err)
			return
		}

		if record.ID == 0 || subtle.ConstantTimeCompare([]byte(record.KeyHash), []byte(hash)) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := withIdentity(c.Request.Context(), Identity{
			KeyID:   record.ID,
			Role:    record.Role,
			Account: record.Identity,
		})

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
