package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	subscriptiondomain "github.com/pullpaylabs/pullpay/internal/subscription/domain"
	"github.com/pullpaylabs/pullpay/pkg/db/pagination"
)

type createSubscriptionRequest struct {
	MerchantID        string `json:"merchant_id"`
	MerchantName      string `json:"merchant_name"`
	Amount            int64  `json:"amount"`
	FrequencySeconds  int64  `json:"frequency_seconds"`
	MaxPerTransaction int64  `json:"max_per_transaction"`
	LifetimeCap       int64  `json:"lifetime_cap"`
}

// @Summary      Create Subscription
// @Description  Create a recurring pull-payment agreement with a merchant
// @Tags         subscriptions
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        request  body  createSubscriptionRequest  true  "Create Subscription Request"
// @Success      200  {object}  DataResponse
// @Router       /subscriptions [post]
func (s *Server) CreateSubscription(c *gin.Context) {
	var req createSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	merchantID, err := parseIDField(req.MerchantID, "merchant_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	id, ok := callerIdentity(c)
	if !ok {
		return
	}

	sub, err := s.subscriptionSvc.Create(c.Request.Context(), id.Account, subscriptiondomain.CreateRequest{
		MerchantID:        merchantID,
		MerchantName:      strings.TrimSpace(req.MerchantName),
		Amount:            req.Amount,
		FrequencySeconds:  req.FrequencySeconds,
		MaxPerTransaction: req.MaxPerTransaction,
		LifetimeCap:       req.LifetimeCap,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, sub)
}

// @Summary      Get Subscription
// @Description  Fetch one subscription by id
// @Tags         subscriptions
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id  path  string  true  "Subscription ID"
// @Success      200  {object}  DataResponse
// @Router       /subscriptions/{id} [get]
func (s *Server) GetSubscription(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	sub, err := s.subscriptionSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, sub)
}

// @Summary      List Subscriptions
// @Description  List subscriptions, filtered to the caller unless a merchant filter is given
// @Tags         subscriptions
// @Produce      json
// @Security     ApiKeyAuth
// @Param        merchant_id  query  string  false  "Merchant ID"
// @Param        active       query  bool    false  "Active only"
// @Param        page         query  int     false  "Page"
// @Param        size         query  int     false  "Page size"
// @Success      200  {object}  ListResponse
// @Router       /subscriptions [get]
func (s *Server) ListSubscriptions(c *gin.Context) {
	var page pagination.Params
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	filter := subscriptiondomain.ListFilter{
		ActiveOnly: c.Query("active") == "true",
	}

	if raw := strings.TrimSpace(c.Query("merchant_id")); raw != "" {
		merchantID, err := parseIDField(raw, "merchant_id")
		if err != nil {
			AbortWithError(c, err)
			return
		}
		filter.MerchantID = merchantID
	} else {
		id, ok := callerIdentity(c)
		if !ok {
			return
		}
		filter.PayerAccount = id.Account
	}

	subs, total, err := s.subscriptionSvc.List(c.Request.Context(), filter, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondList(c, subs, pagination.NewMeta(page, total))
}

// @Summary      Pause Subscription
// @Description  Pause billing; the due date keeps advancing while paused
// @Tags         subscriptions
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id  path  string  true  "Subscription ID"
// @Success      200  {object}  DataResponse
// @Router       /subscriptions/{id}/pause [post]
func (s *Server) PauseSubscription(c *gin.Context) {
	s.transitionSubscription(c, s.subscriptionSvc.Pause)
}

// @Summary      Resume Subscription
// @Description  Resume a paused subscription
// @Tags         subscriptions
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id  path  string  true  "Subscription ID"
// @Success      200  {object}  DataResponse
// @Router       /subscriptions/{id}/resume [post]
func (s *Server) ResumeSubscription(c *gin.Context) {
	s.transitionSubscription(c, s.subscriptionSvc.Resume)
}

// @Summary      Cancel Subscription
// @Description  Permanently deactivate a subscription
// @Tags         subscriptions
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id  path  string  true  "Subscription ID"
// @Success      200  {object}  DataResponse
// @Router       /subscriptions/{id}/cancel [post]
func (s *Server) CancelSubscription(c *gin.Context) {
	s.transitionSubscription(c, s.subscriptionSvc.Cancel)
}

func (s *Server) transitionSubscription(
	c *gin.Context,
	op func(ctx context.Context, payer string, id snowflake.ID) (*subscriptiondomain.Subscription, error),
) {
	id, err := idParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	caller, ok := callerIdentity(c)
	if !ok {
		return
	}

	sub, err := op(c.Request.Context(), caller.Account, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, sub)
}

// @Summary      Close Subscription
// @Description  Delete a cancelled subscription record
// @Tags         subscriptions
// @Security     ApiKeyAuth
// @Param        id  path  string  true  "Subscription ID"
// @Success      204
// @Router       /subscriptions/{id} [delete]
func (s *Server) CloseSubscription(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	caller, ok := callerIdentity(c)
	if !ok {
		return
	}

	if err := s.subscriptionSvc.Close(c.Request.Context(), caller.Account, id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type updateSubscriptionLimitsRequest struct {
	MaxPerTransaction *int64 `json:"max_per_transaction"`
	LifetimeCap       *int64 `json:"lifetime_cap"`
}

// @Summary      Update Subscription Limits
// @Description  Tighten or loosen the per-transaction and lifetime caps
// @Tags         subscriptions
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string                           true  "Subscription ID"
// @Param        request  body  updateSubscriptionLimitsRequest  true  "Update Limits Request"
// @Success      200  {object}  DataResponse
// @Router       /subscriptions/{id}/limits [patch]
func (s *Server) UpdateSubscriptionLimits(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updateSubscriptionLimitsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	caller, ok := callerIdentity(c)
	if !ok {
		return
	}

	sub, err := s.subscriptionSvc.UpdateLimits(c.Request.Context(), caller.Account, id, subscriptiondomain.UpdateLimitsRequest{
		MaxPerTransaction: req.MaxPerTransaction,
		LifetimeCap:       req.LifetimeCap,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, sub)
}

// @Summary      Execute Subscription Payment
// @Description  Trigger a due payment; the layered limits decide whether it settles
// @Tags         subscriptions
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id  path  string  true  "Subscription ID"
// @Success      200  {object}  DataResponse
// @Router       /subscriptions/{id}/execute [post]
func (s *Server) ExecuteSubscriptionPayment(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.subscriptionSvc.ExecutePayment(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, result)
}
