package notify

import (
	"encoding/base64"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Errors for configuration validation
var (
	ErrMissingSMTPHost = errors.New("notify: missing SMTP host")
	ErrMissingSender   = errors.New("notify: missing sender address")
)

// EmailConfig configures the SMTP sender
type EmailConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Validate checks the configuration when sending is enabled
func (c *EmailConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Host == "" {
		return ErrMissingSMTPHost
	}
	if c.From == "" {
		return ErrMissingSender
	}
	if c.Port == 0 {
		c.Port = 587
	}
	return nil
}

// EmailSender delivers receipt notifications over SMTP. Sending is a
// soft-fail side effect: callers log errors and move on.
type EmailSender struct {
	config *EmailConfig
	dialer *gomail.Dialer
	logger *zap.Logger
}

// NewEmailSender creates an SMTP sender
func NewEmailSender(cfg *EmailConfig, logger *zap.Logger) (*EmailSender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailSender{
		config: cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		logger: logger.Named("notify"),
	}, nil
}

// ReceiptEmail is the content of one receipt notification
type ReceiptEmail struct {
	To        string
	OrderRef  string
	ReceiptID string
	Lottery   string
	Amount    string
	QRPNG     []byte
}

// SendReceipt sends a receipt notification with the QR image inlined
func (s *EmailSender) SendReceipt(mail *ReceiptEmail) error {
	if !s.config.Enabled {
		return nil
	}
	if mail.To == "" {
		return errors.New("notify: recipient address is empty")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.From)
	m.SetHeader("To", mail.To)
	m.SetHeader("Subject", fmt.Sprintf("Receipt for %s", mail.OrderRef))

	body := fmt.Sprintf(
		"<p>Your payment of %s MNT was registered.</p>"+
			"<p>Receipt: %s<br>Lottery: %s</p>",
		mail.Amount, mail.ReceiptID, mail.Lottery)
	if len(mail.QRPNG) > 0 {
		body += fmt.Sprintf(`<p><img src="data:image/png;base64,%s" alt="receipt QR"></p>`,
			base64.StdEncoding.EncodeToString(mail.QRPNG))
	}
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("notify: failed to send receipt email: %w", err)
	}
	s.logger.Debug("receipt email sent",
		zap.String("order_ref", mail.OrderRef),
		zap.String("receipt_id", mail.ReceiptID))
	return nil
}
