// Package email delivers payment receipts to order contacts.
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/model"
)

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Config holds SMTP credentials and the sender identity
type Config struct {
	Host         string
	Port         int
	Username     string
	Password     string
	From         string
	BusinessName string
}

// SMTPReceiptSender renders the receipt template and sends it over SMTP
type SMTPReceiptSender struct {
	dialer       dialer
	from         string
	businessName string
	logger       *zap.Logger
}

func NewSMTPReceiptSender(cfg Config, logger *zap.Logger) *SMTPReceiptSender {
	return &SMTPReceiptSender{
		dialer:       gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:         cfg.From,
		businessName: cfg.BusinessName,
		logger:       logger,
	}
}

// SendReceipt returns false without error when the order has no contact email
func (s *SMTPReceiptSender) SendReceipt(ctx context.Context, payment *model.Payment, order *model.Order) (bool, error) {
	to := strings.TrimSpace(order.ContactEmail)
	if to == "" {
		s.logger.Warn("Order has no contact email, receipt skipped",
			zap.String("order_id", order.ID.String()),
			zap.String("payment_id", payment.ID.String()))
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	body, err := RenderReceipt(s.businessName, payment, order)
	if err != nil {
		return false, err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.from, s.businessName))
	m.SetHeader("To", to)
	m.SetHeader("Subject", ReceiptSubject(s.businessName, order))
	m.SetBody("text/html", body)

	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()
	select {
	case err := <-done:
		if err != nil {
			return false, fmt.Errorf("failed to send receipt to %s: %w", to, err)
		}
	case <-ctx.Done():
		// gomail cannot be interrupted; the send may still complete
		return false, fmt.Errorf("receipt to %s not confirmed: %w", to, ctx.Err())
	}

	s.logger.Info("Receipt email sent",
		zap.String("to", to),
		zap.String("payment_id", payment.ID.String()))
	return true, nil
}

// LogReceiptSender stands in for SMTP in development; it only logs
type LogReceiptSender struct {
	logger *zap.Logger
}

func NewLogReceiptSender(logger *zap.Logger) *LogReceiptSender {
	return &LogReceiptSender{logger: logger}
}

func (s *LogReceiptSender) SendReceipt(_ context.Context, payment *model.Payment, order *model.Order) (bool, error) {
	s.logger.Info("Receipt delivery simulated",
		zap.String("to", order.ContactEmail),
		zap.String("order", order.Label()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("amount", payment.Amount.StringFixed(2)))
	return true, nil
}

func ReceiptSubject(businessName string, order *model.Order) string {
	return fmt.Sprintf("%s payment receipt - %s", businessName, order.Label())
}

type receiptView struct {
	BusinessName string
	ContactName  string
	OrderLabel   string
	Amount       string
	Currency     string
	CardBrand    string
	CardLast4    string
	BalanceDue   string
	PaidAt       string
	LineItems    []lineItemView
}

type lineItemView struct {
	Description string
	Quantity    string
	Total       string
}

// RenderReceipt builds the HTML receipt body
func RenderReceipt(businessName string, payment *model.Payment, order *model.Order) (string, error) {
	view := receiptView{
		BusinessName: businessName,
		ContactName:  order.ContactName,
		OrderLabel:   order.Label(),
		Amount:       payment.Amount.StringFixed(2),
		Currency:     strings.ToUpper(payment.Currency),
		BalanceDue:   order.BalanceDue.StringFixed(2),
		PaidAt:       payment.UpdatedAt.Format("January 2, 2006"),
	}
	if payment.CardBrand != nil {
		view.CardBrand = strings.ToUpper(*payment.CardBrand)
	}
	if payment.CardLast4 != nil {
		view.CardLast4 = *payment.CardLast4
	}
	for _, li := range order.LineItems {
		view.LineItems = append(view.LineItems, lineItemView{
			Description: li.Description,
			Quantity:    li.Quantity.String(),
			Total:       li.Total().StringFixed(2),
		})
	}

	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("failed to render receipt: %w", err)
	}
	return buf.String(), nil
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
	<meta http-equiv="Content-Type" content="text/html; charset=UTF-8" />
	<meta name="viewport" content="width=device-width, initial-scale=1.0" />
	<title>{{.BusinessName}} receipt</title>
</head>
<body style="margin: 0; padding: 0; font-family: Arial, sans-serif; background-color: #f7f9fc;">
	<table align="center" border="0" cellpadding="0" cellspacing="0" width="600" style="border-collapse: collapse; background-color: #ffffff;">
		<tr>
			<td style="padding: 30px; background-color: #1f4e79; color: #ffffff;">
				<h1 style="margin: 0; font-size: 24px;">Payment received</h1>
			</td>
		</tr>
		<tr>
			<td style="padding: 30px; color: #333333; font-size: 15px; line-height: 1.6;">
				<p style="margin-top: 0;">{{if .ContactName}}Hi {{.ContactName}},{{else}}Hello,{{end}}</p>
				<p>Thank you for your payment of <strong>{{.Amount}} {{.Currency}}</strong> for {{.OrderLabel}}.</p>
				{{if .CardLast4}}<p>Charged to {{.CardBrand}} ending in {{.CardLast4}} on {{.PaidAt}}.</p>{{end}}
				{{if .LineItems}}
				<table border="0" cellpadding="6" cellspacing="0" width="100%" style="border-collapse: collapse;">
					{{range .LineItems}}
					<tr>
						<td style="border-bottom: 1px solid #eeeeee;">{{.Description}}</td>
						<td align="right" style="border-bottom: 1px solid #eeeeee;">{{.Quantity}}</td>
						<td align="right" style="border-bottom: 1px solid #eeeeee;">{{.Total}}</td>
					</tr>
					{{end}}
				</table>
				{{end}}
				<p>Remaining balance: <strong>{{.BalanceDue}} {{.Currency}}</strong></p>
				<p style="margin-bottom: 0;">{{.BusinessName}}</p>
			</td>
		</tr>
	</table>
</body>
</html>`))
