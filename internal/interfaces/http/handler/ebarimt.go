package handler

import (
	"github.com/gin-gonic/gin"

	appfiscal "github.com/mnpay/backend/internal/application/fiscal"
	"github.com/mnpay/backend/internal/domain/fiscal"
)

// EbarimtHandler exposes the tax authority's information services
type EbarimtHandler struct {
	BaseHandler
	receipts *appfiscal.ReceiptService
}

// NewEbarimtHandler creates a new EbarimtHandler
func NewEbarimtHandler(receipts *appfiscal.ReceiptService) *EbarimtHandler {
	return &EbarimtHandler{receipts: receipts}
}

// Info returns the operator information reported by the local daemon
func (h *EbarimtHandler) Info(c *gin.Context) {
	info, err := h.receipts.MerchantInfo(c.Request.Context())
	if err != nil {
		h.BadGateway(c, err.Error())
		return
	}
	h.Success(c, info)
}

// Taxpayer looks up a taxpayer by TIN
func (h *EbarimtHandler) Taxpayer(c *gin.Context) {
	info, err := h.receipts.TaxpayerInfo(c.Request.Context(), c.Param("tin"))
	if err != nil {
		h.BadGateway(c, err.Error())
		return
	}
	if !info.Found {
		h.NotFound(c, "taxpayer not found")
		return
	}
	h.Success(c, info)
}

// ProductCodes searches the product classification registry
func (h *EbarimtHandler) ProductCodes(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		h.BadRequest(c, "query parameter is required")
		return
	}
	codes, err := h.receipts.ProductTaxCodes(c.Request.Context(), query)
	if err != nil {
		h.BadGateway(c, err.Error())
		return
	}
	h.Success(c, codes)
}

// StockQR resolves a stock QR code to its product record
func (h *EbarimtHandler) StockQR(c *gin.Context) {
	code, err := h.receipts.StockQR(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.BadGateway(c, err.Error())
		return
	}
	h.Success(c, code)
}

// OperatorMerchantRequest is one merchant to register under the operator
type OperatorMerchantRequest struct {
	TIN   string `json:"tin"`
	RegNo string `json:"reg_no"`
	Name  string `json:"name" binding:"required"`
}

// RegisterMerchants registers merchants under the service operator
func (h *EbarimtHandler) RegisterMerchants(c *gin.Context) {
	var req []OperatorMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if len(req) == 0 {
		h.BadRequest(c, "at least one merchant is required")
		return
	}

	merchants := make([]fiscal.OperatorMerchant, 0, len(req))
	for _, m := range req {
		merchants = append(merchants, fiscal.OperatorMerchant{
			TIN:   m.TIN,
			RegNo: m.RegNo,
			Name:  m.Name,
		})
	}

	if err := h.receipts.RegisterOperatorMerchants(c.Request.Context(), merchants); err != nil {
		h.BadGateway(c, err.Error())
		return
	}
	h.Success(c, gin.H{"registered": len(merchants)})
}

// BankAccounts lists the settlement accounts registered with the authority
func (h *EbarimtHandler) BankAccounts(c *gin.Context) {
	accounts, err := h.receipts.BankAccounts(c.Request.Context())
	if err != nil {
		h.BadGateway(c, err.Error())
		return
	}
	h.Success(c, accounts)
}
