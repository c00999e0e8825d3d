package server

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apikeydomain "github.com/pullpaylabs/pullpay/internal/apikey/domain"
	"github.com/pullpaylabs/pullpay/pkg/db/pagination"
)

type issueAPIKeyRequest struct {
	Name      string `json:"name"`
	Role      string `json:"role"`
	Identity  string `json:"identity"`
	ExpiresAt string `json:"expires_at"`
}

// @Summary      Issue API Key
// @Description  Issue a new API key; the raw secret is returned exactly once
// @Tags         api-keys
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        request  body  issueAPIKeyRequest  true  "Issue API Key Request"
// @Success      200  {object}  DataResponse
// @Router       /admin/api-keys [post]
func (s *Server) IssueAPIKey(c *gin.Context) {
	var req issueAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var expires *time.Time
	if raw := strings.TrimSpace(req.ExpiresAt); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			AbortWithError(c, newValidationError("expires_at", "invalid_expires_at", "invalid expires_at format"))
			return
		}
		expires = &t
	}

	result, err := s.apiKeySvc.Issue(c.Request.Context(), apikeydomain.IssueRequest{
		Name:     strings.TrimSpace(req.Name),
		Role:     apikeydomain.Role(strings.TrimSpace(req.Role)),
		Identity: strings.TrimSpace(req.Identity),
		Expires:  expires,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "apikey.issue", "api_key", result.Key.ID.String(), map[string]any{
		"name": result.Key.Name,
		"role": string(result.Key.Role),
	})

	respondData(c, result)
}

// @Summary      List API Keys
// @Description  List issued keys; hashes are never returned
// @Tags         api-keys
// @Produce      json
// @Security     ApiKeyAuth
// @Param        page  query  int  false  "Page"
// @Param        size  query  int  false  "Page size"
// @Success      200  {object}  ListResponse
// @Router       /admin/api-keys [get]
func (s *Server) ListAPIKeys(c *gin.Context) {
	var page pagination.Params
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	keys, total, err := s.apiKeySvc.List(c.Request.Context(), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondList(c, keys, pagination.NewMeta(page, total))
}

// @Summary      Disable API Key
// @Description  Permanently deactivate a key
// @Tags         api-keys
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id  path  string  true  "API Key ID"
// @Success      200  {object}  DataResponse
// @Router       /admin/api-keys/{id}/disable [post]
func (s *Server) DisableAPIKey(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	key, err := s.apiKeySvc.Disable(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "apikey.disable", "api_key", key.ID.String(), nil)

	respondData(c, key)
}
