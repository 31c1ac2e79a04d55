package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apppayment "github.com/mnpay/backend/internal/application/payment"
)

// CallbackHandler handles payment gateway notifications. The gateway
// retries until it sees HTTP 200, so every outcome answers 200 and the
// body carries the disposition.
type CallbackHandler struct {
	reconcile *apppayment.ReconcileService
}

// NewCallbackHandler creates a new CallbackHandler
func NewCallbackHandler(reconcile *apppayment.ReconcileService) *CallbackHandler {
	return &CallbackHandler{reconcile: reconcile}
}

type callbackBody struct {
	InvoiceID string `json:"invoice_id"`
	ObjectID  string `json:"object_id"`
}

// Handle processes one gateway callback. The invoice id may arrive as a
// query parameter or in the JSON body, under either of the gateway's
// field names.
func (h *CallbackHandler) Handle(c *gin.Context) {
	invoiceID := c.Query("invoice_id")
	if invoiceID == "" {
		invoiceID = c.Query("object_id")
	}
	if invoiceID == "" && c.Request.Body != nil {
		var body callbackBody
		if err := c.ShouldBindJSON(&body); err == nil {
			invoiceID = body.InvoiceID
			if invoiceID == "" {
				invoiceID = body.ObjectID
			}
		}
	}

	result := h.reconcile.HandleCallback(c.Request.Context(), invoiceID)
	c.JSON(http.StatusOK, result)
}
