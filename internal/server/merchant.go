package server

import (
	"strings"

	"github.com/gin-gonic/gin"

	apikeydomain "github.com/pullpaylabs/pullpay/internal/apikey/domain"
	merchantdomain "github.com/pullpaylabs/pullpay/internal/merchant/domain"
	"github.com/pullpaylabs/pullpay/pkg/db/pagination"
)

// @Summary      Get Registry
// @Description  Read the merchant registry counters and badge price
// @Tags         merchants
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200  {object}  DataResponse
// @Router       /registry [get]
func (s *Server) GetRegistry(c *gin.Context) {
	state, err := s.merchantSvc.GetRegistry(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, state)
}

type initializeRegistryRequest struct {
	TreasuryAccountID string `json:"treasury_account_id"`
	PremiumBadgePrice int64  `json:"premium_badge_price"`
}

// @Summary      Initialize Registry
// @Description  Create the registry singleton with its treasury account
// @Tags         merchants
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        request  body  initializeRegistryRequest  true  "Initialize Registry Request"
// @Success      200  {object}  DataResponse
// @Router       /admin/registry/initialize [post]
func (s *Server) InitializeRegistry(c *gin.Context) {
	var req initializeRegistryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	treasuryID, err := parseIDField(req.TreasuryAccountID, "treasury_account_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	state, err := s.merchantSvc.InitializeRegistry(c.Request.Context(), merchantdomain.InitializeRegistryRequest{
		TreasuryAccountID: treasuryID,
		PremiumBadgePrice: req.PremiumBadgePrice,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "registry.initialize", "registry", "", map[string]any{
		"premium_badge_price": state.PremiumBadgePrice,
	})

	respondData(c, state)
}

type applyMerchantRequest struct {
	BusinessName string `json:"business_name"`
	Category     string `json:"category"`
	WebhookURL   string `json:"webhook_url"`
}

// @Summary      Apply as Merchant
// @Description  Register the caller's account as an unverified merchant
// @Tags         merchants
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        request  body  applyMerchantRequest  true  "Merchant Application"
// @Success      200  {object}  DataResponse
// @Router       /merchants [post]
func (s *Server) ApplyMerchant(c *gin.Context) {
	var req applyMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	id, ok := callerIdentity(c)
	if !ok {
		return
	}

	merchant, err := s.merchantSvc.Apply(c.Request.Context(), id.Account, merchantdomain.ApplyRequest{
		BusinessName: strings.TrimSpace(req.BusinessName),
		Category:     strings.TrimSpace(req.Category),
		WebhookURL:   strings.TrimSpace(req.WebhookURL),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, merchant)
}

// @Summary      Get Merchant
// @Description  Fetch one merchant by id
// @Tags         merchants
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id  path  string  true  "Merchant ID"
// @Success      200  {object}  DataResponse
// @Router       /merchants/{id} [get]
func (s *Server) GetMerchant(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	caller, ok := callerIdentity(c)
	if !ok {
		return
	}

	merchant, err := s.merchantSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// The webhook URL is owner data; only the owner and admins see it.
	if caller.Role != apikeydomain.RoleAdmin && caller.Account != merchant.OwnerAccount {
		merchant.WebhookURL = ""
	}

	respondData(c, merchant)
}

// @Summary      List Merchants
// @Description  List merchants, optionally filtered by verification tier
// @Tags         merchants
// @Produce      json
// @Security     ApiKeyAuth
// @Param        tier  query  string  false  "Verification Tier"
// @Param        page  query  int     false  "Page"
// @Param        size  query  int     false  "Page size"
// @Success      200  {object}  ListResponse
// @Router       /merchants [get]
func (s *Server) ListMerchants(c *gin.Context) {
	var page pagination.Params
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	filter := merchantdomain.ListFilter{
		Tier: merchantdomain.Tier(strings.TrimSpace(c.Query("tier"))),
	}

	merchants, total, err := s.merchantSvc.List(c.Request.Context(), filter, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondList(c, merchants, pagination.NewMeta(page, total))
}

type updateMerchantRequest struct {
	BusinessName *string `json:"business_name"`
	Category     *string `json:"category"`
	WebhookURL   *string `json:"webhook_url"`
}

// @Summary      Update Merchant Info
// @Description  Change the caller's merchant profile fields
// @Tags         merchants
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string                 true  "Merchant ID"
// @Param        request  body  updateMerchantRequest  true  "Update Merchant Request"
// @Success      200  {object}  DataResponse
// @Router       /merchants/{id} [patch]
func (s *Server) UpdateMerchant(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updateMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	caller, ok := callerIdentity(c)
	if !ok {
		return
	}

	merchant, err := s.merchantSvc.UpdateInfo(c.Request.Context(), caller.Account, id, merchantdomain.UpdateInfoRequest{
		BusinessName: req.BusinessName,
		Category:     req.Category,
		WebhookURL:   req.WebhookURL,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, merchant)
}

type approveMerchantRequest struct {
	Tier string `json:"tier"`
}

// @Summary      Approve Merchant
// @Description  Grant a merchant the verified or premium tier
// @Tags         merchants
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string                  true  "Merchant ID"
// @Param        request  body  approveMerchantRequest  true  "Approve Merchant Request"
// @Success      200  {object}  DataResponse
// @Router       /admin/merchants/{id}/approve [post]
func (s *Server) ApproveMerchant(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req approveMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	merchant, err := s.merchantSvc.Approve(c.Request.Context(), id, merchantdomain.Tier(strings.TrimSpace(req.Tier)))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "merchant.approve", "merchant", merchant.ID.String(), map[string]any{
		"tier": string(merchant.VerificationTier),
	})

	respondData(c, merchant)
}

type suspendMerchantRequest struct {
	Reason string `json:"reason"`
}

// @Summary      Suspend Merchant
// @Description  Suspend a merchant; its active subscriptions stop billing
// @Tags         merchants
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string                  true  "Merchant ID"
// @Param        request  body  suspendMerchantRequest  true  "Suspend Merchant Request"
// @Success      200  {object}  DataResponse
// @Router       /admin/merchants/{id}/suspend [post]
func (s *Server) SuspendMerchant(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req suspendMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	merchant, err := s.merchantSvc.Suspend(c.Request.Context(), id, strings.TrimSpace(req.Reason))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "merchant.suspend", "merchant", merchant.ID.String(), map[string]any{
		"reason": strings.TrimSpace(req.Reason),
	})

	respondData(c, merchant)
}

// @Summary      Subscribe Premium Badge
// @Description  Buy the 30-day premium badge for the caller's merchant
// @Tags         merchants
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id  path  string  true  "Merchant ID"
// @Success      200  {object}  DataResponse
// @Router       /merchants/{id}/premium [post]
func (s *Server) SubscribePremiumBadge(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	caller, ok := callerIdentity(c)
	if !ok {
		return
	}

	merchant, err := s.merchantSvc.SubscribePremiumBadge(c.Request.Context(), caller.Account, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, merchant)
}

type submitReviewRequest struct {
	MerchantID     string `json:"merchant_id"`
	SubscriptionID string `json:"subscription_id"`
	Rating         int    `json:"rating"`
	Comment        string `json:"comment"`
}

// @Summary      Submit Review
// @Description  Review a merchant; requires a qualifying payment history
// @Tags         reviews
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        request  body  submitReviewRequest  true  "Submit Review Request"
// @Success      200  {object}  DataResponse
// @Router       /reviews [post]
func (s *Server) SubmitReview(c *gin.Context) {
	var req submitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	merchantID, err := parseIDField(req.MerchantID, "merchant_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	subscriptionID, err := parseIDField(req.SubscriptionID, "subscription_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	caller, ok := callerIdentity(c)
	if !ok {
		return
	}

	review, err := s.merchantSvc.SubmitReview(c.Request.Context(), caller.Account, merchantdomain.SubmitReviewRequest{
		MerchantID:     merchantID,
		SubscriptionID: subscriptionID,
		Rating:         req.Rating,
		Comment:        strings.TrimSpace(req.Comment),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, review)
}

// @Summary      List Merchant Reviews
// @Description  List accepted reviews for a merchant
// @Tags         reviews
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id    path   string  true   "Merchant ID"
// @Param        page  query  int     false  "Page"
// @Param        size  query  int     false  "Page size"
// @Success      200  {object}  ListResponse
// @Router       /merchants/{id}/reviews [get]
func (s *Server) ListMerchantReviews(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var page pagination.Params
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	reviews, total, err := s.merchantSvc.ListReviews(c.Request.Context(), id, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondList(c, reviews, pagination.NewMeta(page, total))
}
