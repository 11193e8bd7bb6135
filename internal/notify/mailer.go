package notify

import (
	"context"
	"fmt"

	"marketplace-booking/pkg/utils"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type mailer struct {
	dialer *gomail.Dialer
	from   string
	log    *zap.Logger
}

func NewMailer(config utils.EmailConfig, log *zap.Logger) Notifier {
	return &mailer{
		dialer: gomail.NewDialer(config.Host, config.Port, config.User, config.Password),
		from:   config.From,
		log:    log.With(zap.String("notifier", "mailer")),
	}
}

func (m *mailer) Send(ctx context.Context, msg Message) error {
	subject, body := renderTemplate(msg)

	mail := gomail.NewMessage()
	mail.SetHeader("From", m.from)
	mail.SetAddressHeader("To", msg.To, msg.ToName)
	mail.SetHeader("Subject", subject)
	mail.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(mail); err != nil {
		m.log.Error("Failed to send notification",
			zap.Error(err),
			zap.String("to", msg.To),
			zap.String("template", string(msg.Template)),
		)
		return fmt.Errorf("send %s notification to %s: %w", msg.Template, msg.To, err)
	}

	m.log.Info("Notification sent",
		zap.String("to", msg.To),
		zap.String("template", string(msg.Template)),
	)
	return nil
}

func renderTemplate(msg Message) (subject, body string) {
	reference := msg.Context["reference"]
	service := msg.Context["service"]
	event := msg.Context["event"]

	switch msg.Template {
	case TemplateBookingRequested:
		subject = fmt.Sprintf("New booking request %s", reference)
		body = fmt.Sprintf("You have a new reservation request for %s (%s). Please accept or decline it.", service, event)
	case TemplateBookingConfirmed:
		subject = fmt.Sprintf("Booking %s confirmed", reference)
		body = fmt.Sprintf("Your reservation for %s (%s) has been confirmed by the provider.", service, event)
	case TemplateBookingDeclined:
		subject = fmt.Sprintf("Booking %s declined", reference)
		body = fmt.Sprintf("Unfortunately the provider declined your reservation for %s (%s).", service, event)
	case TemplateBookingCancelled:
		subject = fmt.Sprintf("Booking %s cancelled", reference)
		body = fmt.Sprintf("Your reservation for %s (%s) has been cancelled.", service, event)
	case TemplateBookingDelivered:
		subject = fmt.Sprintf("Booking %s delivered", reference)
		body = fmt.Sprintf("The service %s (%s) has been delivered and your payment was captured.", service, event)
	case TemplatePaymentFailed:
		subject = fmt.Sprintf("Payment failed for booking %s", reference)
		body = fmt.Sprintf("The payment for %s (%s) could not be captured. Please update your payment method.", service, event)
	case TemplateRefundIssued:
		subject = fmt.Sprintf("Refund issued for booking %s", reference)
		body = fmt.Sprintf("Your payment for %s (%s) has been refunded.", service, event)
	case TemplateRefundFailed:
		subject = fmt.Sprintf("Refund problem for booking %s", reference)
		body = fmt.Sprintf("We could not process the refund for %s (%s) automatically. Our team is looking into it.", service, event)
	default:
		subject = fmt.Sprintf("Update on booking %s", reference)
		body = fmt.Sprintf("There is an update on your reservation for %s (%s).", service, event)
	}

	return subject, body
}
