package server

import (
	"strings"

	"github.com/gin-gonic/gin"

	eventdomain "github.com/pullpaylabs/pullpay/internal/event/domain"
	"github.com/pullpaylabs/pullpay/pkg/db/pagination"
)

// @Summary      List Events
// @Description  List recorded state-transition events, newest first
// @Tags         events
// @Produce      json
// @Security     ApiKeyAuth
// @Param        type         query  string  false  "Event type"
// @Param        entity_type  query  string  false  "Entity type"
// @Param        entity_id    query  string  false  "Entity ID"
// @Param        page         query  int     false  "Page"
// @Param        size         query  int     false  "Page size"
// @Success      200  {object}  ListResponse
// @Router       /admin/events [get]
func (s *Server) ListEvents(c *gin.Context) {
	var page pagination.Params
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	filter := eventdomain.ListFilter{
		Type:       strings.TrimSpace(c.Query("type")),
		EntityType: strings.TrimSpace(c.Query("entity_type")),
		EntityID:   strings.TrimSpace(c.Query("entity_id")),
	}

	events, total, err := s.eventSvc.List(c.Request.Context(), filter, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondList(c, events, pagination.NewMeta(page, total))
}
