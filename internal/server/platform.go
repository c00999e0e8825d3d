package server

import (
	"github.com/gin-gonic/gin"

	platformdomain "github.com/pullpaylabs/pullpay/internal/platform/domain"
)

// @Summary      Get Platform State
// @Description  Read the platform configuration and global counters
// @Tags         platform
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200  {object}  DataResponse
// @Router       /platform [get]
func (s *Server) GetPlatform(c *gin.Context) {
	state, err := s.platformSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, state)
}

type initializePlatformRequest struct {
	AdminAccount     string `json:"admin_account"`
	FeeAccountID     string `json:"fee_account_id"`
	FeeBasisPoints   int    `json:"fee_basis_points"`
	MinFee           int64  `json:"min_fee"`
	MaxFee           int64  `json:"max_fee"`
	DailyVolumeLimit int64  `json:"daily_volume_limit"`
}

// @Summary      Initialize Platform
// @Description  Create the platform singleton with its fee parameters
// @Tags         platform
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        request  body  initializePlatformRequest  true  "Initialize Platform Request"
// @Success      200  {object}  DataResponse
// @Router       /admin/platform/initialize [post]
func (s *Server) InitializePlatform(c *gin.Context) {
	var req initializePlatformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	feeAccountID, err := parseIDField(req.FeeAccountID, "fee_account_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	state, err := s.platformSvc.Initialize(c.Request.Context(), platformdomain.InitializeRequest{
		AdminAccount:     req.AdminAccount,
		FeeAccountID:     feeAccountID,
		FeeBasisPoints:   req.FeeBasisPoints,
		MinFee:           req.MinFee,
		MaxFee:           req.MaxFee,
		DailyVolumeLimit: req.DailyVolumeLimit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "platform.initialize", "platform", "", map[string]any{
		"admin_account":    state.AdminAccount,
		"fee_basis_points": state.FeeBasisPoints,
	})

	respondData(c, state)
}

type updatePlatformConfigRequest struct {
	FeeBasisPoints   *int    `json:"fee_basis_points"`
	MinFee           *int64  `json:"min_fee"`
	MaxFee           *int64  `json:"max_fee"`
	DailyVolumeLimit *int64  `json:"daily_volume_limit"`
	NewAdminAccount  *string `json:"new_admin_account"`
}

// @Summary      Update Platform Config
// @Description  Change fee parameters, the volume limit, or the admin account
// @Tags         platform
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        request  body  updatePlatformConfigRequest  true  "Update Platform Config Request"
// @Success      200  {object}  DataResponse
// @Router       /admin/platform/config [patch]
func (s *Server) UpdatePlatformConfig(c *gin.Context) {
	var req updatePlatformConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	id, ok := callerIdentity(c)
	if !ok {
		return
	}

	state, err := s.platformSvc.UpdateConfig(c.Request.Context(), id.Account, platformdomain.UpdateConfigRequest{
		FeeBasisPoints:   req.FeeBasisPoints,
		MinFee:           req.MinFee,
		MaxFee:           req.MaxFee,
		DailyVolumeLimit: req.DailyVolumeLimit,
		NewAdminAccount:  req.NewAdminAccount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "platform.config.update", "platform", "", map[string]any{
		"fee_basis_points":   state.FeeBasisPoints,
		"daily_volume_limit": state.DailyVolumeLimit,
	})

	respondData(c, state)
}

// @Summary      Pause Platform
// @Description  Set the emergency pause; all payment execution refuses
// @Tags         platform
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200  {object}  DataResponse
// @Router       /admin/platform/pause [post]
func (s *Server) PausePlatform(c *gin.Context) {
	s.setEmergencyPause(c, true)
}

// @Summary      Unpause Platform
// @Description  Clear the emergency pause
// @Tags         platform
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200  {object}  DataResponse
// @Router       /admin/platform/unpause [post]
func (s *Server) UnpausePlatform(c *gin.Context) {
	s.setEmergencyPause(c, false)
}

func (s *Server) setEmergencyPause(c *gin.Context, paused bool) {
	id, ok := callerIdentity(c)
	if !ok {
		return
	}

	state, err := s.platformSvc.SetEmergencyPause(c.Request.Context(), id.Account, paused)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	action := "platform.pause"
	if !paused {
		action = "platform.unpause"
	}
	s.recordAudit(c, action, "platform", "", nil)

	respondData(c, state)
}
