package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apppayment "github.com/mnpay/backend/internal/application/payment"
	"github.com/mnpay/backend/internal/domain/payment"
)

// PaymentHandler handles payment invoice endpoints
type PaymentHandler struct {
	BaseHandler
	payments  *apppayment.PaymentService
	reconcile *apppayment.ReconcileService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments *apppayment.PaymentService, reconcile *apppayment.ReconcileService) *PaymentHandler {
	return &PaymentHandler{payments: payments, reconcile: reconcile}
}

// CreatePaymentRequest is the request body for creating a payment invoice
type CreatePaymentRequest struct {
	PaymentRef     string                     `json:"payment_ref" binding:"required"`
	Amount         *decimal.Decimal           `json:"amount"`
	Source         map[string]decimal.Decimal `json:"source"`
	SpecialTaxType string                     `json:"special_tax_type"`
	PayerType      string                     `json:"payer_type" binding:"omitempty,oneof=Individual Organization"`
	PayerEmail     string                     `json:"payer_email" binding:"omitempty,email"`
	EntityName     string                     `json:"entity_name"`
	EntityRegNo    string                     `json:"entity_reg_no"`
	ReceiverCode   string                     `json:"receiver_code"`
	RetainData     bool                       `json:"retain_data"`
	Description    string                     `json:"description"`
}

// DeeplinkResponse is one bank-app deeplink in the response
type DeeplinkResponse struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Link        string `json:"link"`
	Logo        string `json:"logo,omitempty"`
}

// PaymentResponse is the response body for payment endpoints
type PaymentResponse struct {
	PaymentRef     string             `json:"payment_ref"`
	GatewayInvoice string             `json:"gateway_invoice,omitempty"`
	Status         string             `json:"status"`
	BaseAmount     string             `json:"base_amount,omitempty"`
	SpecialTax     string             `json:"special_tax,omitempty"`
	CityTax        string             `json:"city_tax,omitempty"`
	Amount         string             `json:"amount"`
	QRText         string             `json:"qr_text,omitempty"`
	QRImage        string             `json:"qr_image,omitempty"`
	ShortURL       string             `json:"short_url,omitempty"`
	URLs           []DeeplinkResponse `json:"urls,omitempty"`
	PaidAt         *time.Time         `json:"paid_at,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
}

func paymentResponseFromResult(result *apppayment.PaymentResult) PaymentResponse {
	resp := PaymentResponse{
		PaymentRef:     result.Invoice.PaymentRef,
		GatewayInvoice: result.Invoice.GatewayInvoice,
		Status:         string(result.Invoice.Status),
		BaseAmount:     result.BaseAmount.StringFixed(2),
		SpecialTax:     result.SpecialTax.StringFixed(2),
		CityTax:        result.CityTax.StringFixed(2),
		Amount:         result.Total.StringFixed(2),
		QRText:         result.QRText,
		QRImage:        result.QRImage,
		ShortURL:       result.ShortURL,
		CreatedAt:      result.Invoice.CreatedAt,
	}
	for _, u := range result.URLs {
		resp.URLs = append(resp.URLs, DeeplinkResponse{
			Name:        u.Name,
			Description: u.Description,
			Link:        u.Link,
			Logo:        u.Logo,
		})
	}
	return resp
}

func paymentResponseFromInvoice(inv *payment.Invoice) PaymentResponse {
	return PaymentResponse{
		PaymentRef:     inv.PaymentRef,
		GatewayInvoice: inv.GatewayInvoice,
		Status:         string(inv.Status),
		Amount:         inv.Amount.StringFixed(2),
		QRText:         inv.QRText,
		QRImage:        inv.QRImage,
		PaidAt:         inv.PaidAt,
		CreatedAt:      inv.CreatedAt,
	}
}

// Create registers a QR invoice for a payment request
func (h *PaymentHandler) Create(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.payments.CreatePayment(c.Request.Context(), &apppayment.CreatePaymentInput{
		PaymentRef:     req.PaymentRef,
		AmountOverride: req.Amount,
		Source:         req.Source,
		SpecialTaxType: req.SpecialTaxType,
		PayerType:      payment.PayerType(req.PayerType),
		PayerEmail:     req.PayerEmail,
		EntityName:     req.EntityName,
		EntityRegNo:    req.EntityRegNo,
		ReceiverCode:   req.ReceiverCode,
		RetainData:     req.RetainData,
		Description:    req.Description,
	})
	if err != nil {
		h.handlePaymentError(c, err)
		return
	}

	h.Created(c, paymentResponseFromResult(result))
}

// Get returns the stored invoice for a payment reference
func (h *PaymentHandler) Get(c *gin.Context) {
	inv, err := h.payments.GetPayment(c.Request.Context(), c.Param("ref"))
	if err != nil {
		h.handlePaymentError(c, err)
		return
	}
	h.Success(c, paymentResponseFromInvoice(inv))
}

// Cancel voids the gateway invoice for a pending payment
func (h *PaymentHandler) Cancel(c *gin.Context) {
	inv, err := h.payments.CancelPayment(c.Request.Context(), c.Param("ref"))
	if err != nil {
		h.handlePaymentError(c, err)
		return
	}
	h.Success(c, paymentResponseFromInvoice(inv))
}

// Check reconciles one payment against the gateway on demand
func (h *PaymentHandler) Check(c *gin.Context) {
	inv, err := h.payments.GetPayment(c.Request.Context(), c.Param("ref"))
	if err != nil {
		h.handlePaymentError(c, err)
		return
	}

	h.reconcile.HandleCallback(c.Request.Context(), inv.GatewayInvoice)

	// re-read so the response reflects any transition
	inv, err = h.payments.GetPayment(c.Request.Context(), inv.PaymentRef)
	if err != nil {
		h.handlePaymentError(c, err)
		return
	}
	h.Success(c, paymentResponseFromInvoice(inv))
}

func (h *PaymentHandler) handlePaymentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, payment.ErrInvoiceNotFound):
		h.NotFound(c, "payment not found")
	case errors.Is(err, payment.ErrMissingPaymentRef),
		errors.Is(err, payment.ErrNonPositiveAmount),
		errors.Is(err, payment.ErrNoResolvableAmount):
		h.BadRequest(c, err.Error())
	case errors.Is(err, payment.ErrInvoiceFinal):
		h.Conflict(c, "payment is already in a final state")
	default:
		h.HandleError(c, err)
	}
}
