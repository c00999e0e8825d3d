package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	auditdomain "github.com/pullpaylabs/pullpay/internal/audit/domain"
)

// recordAudit appends the admin-trail entry after a successful mutation.
// Failures are logged, never surfaced: the mutation already committed.
func (s *Server) recordAudit(c *gin.Context, action, targetType, targetID string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}

	id, _ := IdentityFromContext(c.Request.Context())
	err := s.auditSvc.Record(c.Request.Context(), nil, auditdomain.NewEntry{
		Actor:      id.Account,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		IPAddress:  c.ClientIP(),
		Metadata:   metadata,
	})
	if err != nil {
		s.log.Warn("audit record failed", zap.String("action", action), zap.Error(err))
	}
}
