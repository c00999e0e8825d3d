package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	testclockdomain "github.com/pullpaylabs/pullpay/internal/testclock/domain"
)

// requireNonProduction refuses test-clock mutations in production. Simulated
// time and live billing never mix.
func (s *Server) requireNonProduction(c *gin.Context) bool {
	if s.cfg.IsProduction() {
		AbortWithError(c, ErrNotFound)
		return false
	}
	return true
}

// @Summary      Create Test Clock
// @Description  Create a frozen clock for simulated billing runs
// @Tags         test-clocks
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        request  body  testclockdomain.CreateRequest  true  "Create Test Clock Request"
// @Success      200  {object}  DataResponse
// @Router       /admin/test-clocks [post]
func (s *Server) CreateTestClock(c *gin.Context) {
	if !s.requireNonProduction(c) {
		return
	}

	var req struct {
		Name        string `json:"name"`
		InitialTime string `json:"initial_time"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var initialTime time.Time
	if req.InitialTime != "" {
		var err error
		initialTime, err = time.Parse(time.RFC3339, req.InitialTime)
		if err != nil {
			AbortWithError(c, newValidationError("initial_time", "invalid_initial_time", "invalid initial_time format"))
			return
		}
	}

	clk, err := s.testClockSvc.Create(c.Request.Context(), testclockdomain.CreateRequest{
		Name:        req.Name,
		InitialTime: initialTime,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, clk)
}

// @Summary      Advance Test Clock
// @Description  Move the frozen time forward, settling pinned payments that become due
// @Tags         test-clocks
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string  true  "Test Clock ID"
// @Param        request  body  object  true  "Advance Request"
// @Success      200  {object}  DataResponse
// @Router       /admin/test-clocks/{id}/advance [post]
func (s *Server) AdvanceTestClock(c *gin.Context) {
	if !s.requireNonProduction(c) {
		return
	}

	id, err := idParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req struct {
		Seconds int64 `json:"seconds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.testClockSvc.Advance(c.Request.Context(), id, time.Duration(req.Seconds)*time.Second)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, result)
}

// @Summary      Get Test Clock
// @Tags         test-clocks
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id  path  string  true  "Test Clock ID"
// @Success      200  {object}  DataResponse
// @Router       /admin/test-clocks/{id} [get]
func (s *Server) GetTestClock(c *gin.Context) {
	if !s.requireNonProduction(c) {
		return
	}

	id, err := idParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	clk, err := s.testClockSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, clk)
}

// @Summary      List Test Clocks
// @Tags         test-clocks
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200  {object}  DataResponse
// @Router       /admin/test-clocks [get]
func (s *Server) ListTestClocks(c *gin.Context) {
	if !s.requireNonProduction(c) {
		return
	}

	clocks, err := s.testClockSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, clocks)
}

// @Summary      Delete Test Clock
// @Description  Delete a clock; its pinned subscriptions return to real time
// @Tags         test-clocks
// @Security     ApiKeyAuth
// @Param        id  path  string  true  "Test Clock ID"
// @Success      204
// @Router       /admin/test-clocks/{id} [delete]
func (s *Server) DeleteTestClock(c *gin.Context) {
	if !s.requireNonProduction(c) {
		return
	}

	id, err := idParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.testClockSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
