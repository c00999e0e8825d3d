package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	ledgerdomain "github.com/pullpaylabs/pullpay/internal/ledger/domain"
	"github.com/pullpaylabs/pullpay/internal/receipt"
	"github.com/pullpaylabs/pullpay/pkg/db/pagination"
)

type createLedgerAccountRequest struct {
	OwnerAccount string `json:"owner_account"`
	Asset        string `json:"asset"`
}

// @Summary      Create Ledger Account
// @Description  Open a balance account for an owner in one asset
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        request  body  createLedgerAccountRequest  true  "Create Account Request"
// @Success      200  {object}  DataResponse
// @Router       /admin/ledger/accounts [post]
func (s *Server) CreateLedgerAccount(c *gin.Context) {
	var req createLedgerAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	account, err := s.ledgerSvc.CreateAccount(c.Request.Context(), ledgerdomain.CreateAccountRequest{
		OwnerAccount: strings.TrimSpace(req.OwnerAccount),
		Asset:        strings.TrimSpace(req.Asset),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "ledger.account.create", "ledger_account", account.ID.String(), map[string]any{
		"owner_account": account.OwnerAccount,
		"asset":         account.Asset,
	})

	respondData(c, account)
}

type creditLedgerAccountRequest struct {
	Amount int64  `json:"amount"`
	Memo   string `json:"memo"`
}

// @Summary      Credit Ledger Account
// @Description  Credit an account from outside the ledger
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string                      true  "Account ID"
// @Param        request  body  creditLedgerAccountRequest  true  "Credit Request"
// @Success      200  {object}  DataResponse
// @Router       /admin/ledger/accounts/{id}/credit [post]
func (s *Server) CreditLedgerAccount(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req creditLedgerAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	entry, err := s.ledgerSvc.Credit(c.Request.Context(), id.String(), req.Amount, strings.TrimSpace(req.Memo))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "ledger.account.credit", "ledger_account", id.String(), map[string]any{
		"amount": req.Amount,
		"entry":  entry.ID.String(),
	})

	respondData(c, entry)
}

// @Summary      Get Ledger Account
// @Description  Fetch one ledger account by id
// @Tags         ledger
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id  path  string  true  "Account ID"
// @Success      200  {object}  DataResponse
// @Router       /ledger/accounts/{id} [get]
func (s *Server) GetLedgerAccount(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	account, err := s.ledgerSvc.GetAccount(c.Request.Context(), id.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, account)
}

// @Summary      List Ledger Entries
// @Description  List entries touching an account, newest first
// @Tags         ledger
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id    path   string  true   "Account ID"
// @Param        page  query  int     false  "Page"
// @Param        size  query  int     false  "Page size"
// @Success      200  {object}  ListResponse
// @Router       /ledger/accounts/{id}/entries [get]
func (s *Server) ListLedgerEntries(c *gin.Context) {
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

	entries, total, err := s.ledgerSvc.ListEntries(c.Request.Context(), id.String(), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondList(c, entries, pagination.NewMeta(page, total))
}

// @Summary      Get Entry Receipt
// @Description  Render a payment receipt PDF for one ledger entry
// @Tags         ledger
// @Produce      application/pdf
// @Security     ApiKeyAuth
// @Param        id  path  string  true  "Entry ID"
// @Success      200  {file}  binary
// @Router       /ledger/entries/{id}/receipt [get]
func (s *Server) GetEntryReceipt(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	entry, err := s.ledgerSvc.GetEntry(c.Request.Context(), id.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	data := receipt.Data{Entry: entry}
	if entry.FromAccountID != 0 {
		from, err := s.ledgerSvc.GetAccount(c.Request.Context(), entry.FromAccountID.String())
		if err != nil {
			AbortWithError(c, err)
			return
		}
		data.FromOwner = from.OwnerAccount
	}
	to, err := s.ledgerSvc.GetAccount(c.Request.Context(), entry.ToAccountID.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	data.ToOwner = to.OwnerAccount

	pdf, err := s.receipts.Render(data)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=receipt-%s.pdf", entry.ID.String()))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
