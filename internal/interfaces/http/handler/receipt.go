package handler

import (
	"encoding/base64"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	appfiscal "github.com/mnpay/backend/internal/application/fiscal"
	"github.com/mnpay/backend/internal/domain/fiscal"
	"github.com/mnpay/backend/internal/domain/tax"
	"github.com/mnpay/backend/internal/interfaces/http/dto"
)

// ReceiptHandler handles fiscal receipt endpoints
type ReceiptHandler struct {
	BaseHandler
	receipts *appfiscal.ReceiptService
}

// NewReceiptHandler creates a new ReceiptHandler
func NewReceiptHandler(receipts *appfiscal.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{receipts: receipts}
}

// ReceiptItemRequest is one line item in a receipt submission
type ReceiptItemRequest struct {
	Name           string          `json:"name" binding:"required"`
	Code           string          `json:"code"`
	TaxProductCode string          `json:"tax_product_code"`
	Barcode        string          `json:"barcode"`
	BarcodeType    string          `json:"barcode_type"`
	MeasureUnit    string          `json:"measure_unit"`
	Regime         string          `json:"regime"`
	CityTax        bool            `json:"city_tax"`
	Qty            decimal.Decimal `json:"qty"`
	Total          decimal.Decimal `json:"total"`
}

// IssueReceiptsRequest is the request body for fiscalizing an order
type IssueReceiptsRequest struct {
	OrderRef      string               `json:"order_ref" binding:"required"`
	Items         []ReceiptItemRequest `json:"items" binding:"required,min=1,dive"`
	CustomerRegNo string               `json:"customer_reg_no"`
	CustomerEmail string               `json:"customer_email" binding:"omitempty,email"`
	ConsumerNo    string               `json:"consumer_no"`
	BranchNo      string               `json:"branch_no"`
	PosNo         string               `json:"pos_no"`
	DistrictCode  string               `json:"district_code"`
}

// ReceiptResponse is one issued receipt in the response
type ReceiptResponse struct {
	ReceiptID    string    `json:"receipt_id"`
	OrderRef     string    `json:"order_ref"`
	Regime       string    `json:"regime"`
	Type         string    `json:"type"`
	TotalAmount  string    `json:"total_amount"`
	TotalVAT     string    `json:"total_vat"`
	TotalCityTax string    `json:"total_city_tax"`
	Lottery      string    `json:"lottery,omitempty"`
	QRData       string    `json:"qr_data,omitempty"`
	QRImage      string    `json:"qr_image,omitempty"`
	Status       string    `json:"status"`
	IssuedAt     time.Time `json:"issued_at"`
}

func receiptResponse(r *fiscal.Receipt, qrPNG []byte) ReceiptResponse {
	resp := ReceiptResponse{
		ReceiptID:    r.ReceiptID,
		OrderRef:     r.OrderRef,
		Regime:       string(r.Regime),
		Type:         string(r.Type),
		TotalAmount:  r.TotalAmount.StringFixed(2),
		TotalVAT:     r.TotalVAT.StringFixed(2),
		TotalCityTax: r.TotalCityTax.StringFixed(2),
		Lottery:      r.Lottery,
		QRData:       r.QRData,
		Status:       string(r.Status),
		IssuedAt:     r.IssuedAt,
	}
	if len(qrPNG) > 0 {
		resp.QRImage = base64.StdEncoding.EncodeToString(qrPNG)
	}
	return resp
}

// Issue fiscalizes one order
func (h *ReceiptHandler) Issue(c *gin.Context) {
	var req IssueReceiptsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	items := make([]tax.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, tax.LineItem{
			Name:           it.Name,
			Code:           it.Code,
			TaxProductCode: it.TaxProductCode,
			Barcode:        it.Barcode,
			BarcodeType:    tax.BarcodeType(it.BarcodeType),
			MeasureUnit:    it.MeasureUnit,
			Regime:         tax.Regime(it.Regime),
			CityTax:        it.CityTax,
			Qty:            it.Qty,
			Total:          it.Total,
		})
	}

	result, err := h.receipts.IssueReceipts(c.Request.Context(), &appfiscal.IssueReceiptsInput{
		OrderRef:      req.OrderRef,
		Items:         items,
		CustomerRegNo: req.CustomerRegNo,
		CustomerEmail: req.CustomerEmail,
		ConsumerNo:    req.ConsumerNo,
		BranchNo:      req.BranchNo,
		PosNo:         req.PosNo,
		DistrictCode:  req.DistrictCode,
	})
	if err != nil {
		h.handleReceiptError(c, err)
		return
	}

	responses := make([]ReceiptResponse, 0, len(result.Receipts))
	for _, issued := range result.Receipts {
		responses = append(responses, receiptResponse(issued.Receipt, issued.QRPNG))
	}
	h.Created(c, responses)
}

// List returns the stored receipts for an order
func (h *ReceiptHandler) List(c *gin.Context) {
	receipts, err := h.receipts.ListReceipts(c.Request.Context(), c.Param("orderRef"))
	if err != nil {
		h.handleReceiptError(c, err)
		return
	}

	responses := make([]ReceiptResponse, 0, len(receipts))
	for _, r := range receipts {
		responses = append(responses, receiptResponse(r, nil))
	}
	h.Success(c, responses)
}

// Invalidate returns an issued receipt to the authority
func (h *ReceiptHandler) Invalidate(c *gin.Context) {
	if err := h.receipts.InvalidateReceipt(c.Request.Context(), c.Param("id")); err != nil {
		h.handleReceiptError(c, err)
		return
	}
	h.NoContent(c)
}

// SendData flushes the daemon's locally buffered receipts upstream
func (h *ReceiptHandler) SendData(c *gin.Context) {
	if err := h.receipts.SendData(c.Request.Context()); err != nil {
		h.BadGateway(c, err.Error())
		return
	}
	h.Success(c, gin.H{"sent": true})
}

func (h *ReceiptHandler) handleReceiptError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, fiscal.ErrReceiptNotFound):
		h.NotFound(c, "receipt not found")
	case errors.Is(err, fiscal.ErrReceiptInvalidated):
		h.Conflict(c, "receipt is already invalidated")
	case errors.Is(err, tax.ErrNoItems):
		h.UnprocessableEntity(c, dto.ErrCodeBusinessRule, "no items eligible for a receipt")
	case errors.Is(err, appfiscal.ErrNoBranchConfigured),
		errors.Is(err, appfiscal.ErrPersistenceOff):
		h.UnprocessableEntity(c, dto.ErrCodeInvalidState, err.Error())
	default:
		h.BadGateway(c, err.Error())
	}
}
