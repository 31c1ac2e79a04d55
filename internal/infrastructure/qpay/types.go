package qpay

// Wire types of the merchant API v2. Field names follow its JSON exactly.

type tokenResult struct {
	TokenType        string `json:"token_type"`
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
}

type receiverDataPayload struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type createInvoicePayload struct {
	InvoiceCode         string               `json:"invoice_code"`
	SenderInvoiceNo     string               `json:"sender_invoice_no"`
	InvoiceReceiverCode string               `json:"invoice_receiver_code"`
	InvoiceReceiverData *receiverDataPayload `json:"invoice_receiver_data,omitempty"`
	InvoiceDescription  string               `json:"invoice_description"`
	Amount              float64              `json:"amount"`
	CallbackURL         string               `json:"callback_url,omitempty"`
}

type deeplinkResult struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Logo        string `json:"logo"`
	Link        string `json:"link"`
}

type createInvoiceResult struct {
	InvoiceID string           `json:"invoice_id"`
	QRText    string           `json:"qr_text"`
	QRImage   string           `json:"qr_image"`
	ShortURL  string           `json:"qPay_shortUrl"`
	URLs      []deeplinkResult `json:"urls"`
}

type invoiceResult struct {
	InvoiceID          string  `json:"invoice_id"`
	InvoiceStatus      string  `json:"invoice_status"`
	InvoiceDescription string  `json:"invoice_description"`
	TotalAmount        float64 `json:"total_amount"`
}

type offsetPayload struct {
	PageNumber int `json:"page_number"`
	PageLimit  int `json:"page_limit"`
}

type paymentCheckPayload struct {
	ObjectType string        `json:"object_type"`
	ObjectID   string        `json:"object_id"`
	Offset     offsetPayload `json:"offset"`
}

type paymentRowResult struct {
	PaymentID       string  `json:"payment_id"`
	PaymentStatus   string  `json:"payment_status"`
	PaymentAmount   string  `json:"payment_amount"`
	PaymentCurrency string  `json:"payment_currency"`
	PaymentWallet   string  `json:"payment_wallet"`
	PaymentDate     string  `json:"payment_date"`
	Amount          float64 `json:"amount"`
}

type paymentCheckResult struct {
	Count int                `json:"count"`
	Rows  []paymentRowResult `json:"rows"`
}

type errorResult struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
