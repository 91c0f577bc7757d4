package services

import (
	"context"
	"fmt"
	stdhtml "html"

	"github.com/poofware/rental-service/internal/config"
	"github.com/poofware/rental-service/internal/constants"
	"github.com/poofware/rental-service/internal/models"
	"github.com/poofware/rental-service/internal/utils"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// PaymentNotifier tells a tenant that a payment reached a terminal state.
// Implementations log their own failures; a notification problem never
// undoes a recorded transition.
type PaymentNotifier interface {
	PaymentSettled(ctx context.Context, tenant *models.Tenant, payment *models.Payment)
}

type NotificationService struct {
	cfg            *config.Config
	sendgridClient *sendgrid.Client
	twilioClient   *twilio.RestClient
}

func NewNotificationService(cfg *config.Config) *NotificationService {
	s := &NotificationService{cfg: cfg}
	if cfg.SendgridAPIKey != "" {
		s.sendgridClient = sendgrid.NewSendClient(cfg.SendgridAPIKey)
	} else {
		utils.Logger.Warn("SENDGRID_API_KEY not configured; payment emails disabled")
	}
	if cfg.LDFlag_SendPaymentSMS && cfg.TwilioAccountSID != "" {
		s.twilioClient = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.TwilioAccountSID,
			Password: cfg.TwilioAuthToken,
		})
	}
	return s
}

func (s *NotificationService) PaymentSettled(ctx context.Context, tenant *models.Tenant, p *models.Payment) {
	if !p.Status.IsTerminal() {
		return
	}
	s.sendEmail(ctx, tenant, p)
	s.sendSMS(tenant, p)
}

func (s *NotificationService) sendEmail(ctx context.Context, tenant *models.Tenant, p *models.Payment) {
	if s.sendgridClient == nil || tenant.Email == "" {
		return
	}

	subject, plain, html := paymentEmailContent(tenant, p)
	from := mail.NewEmail(s.cfg.OrganizationName, s.cfg.LDFlag_SendgridFromEmail)
	to := mail.NewEmail(tenant.FullName, tenant.Email)
	msg := mail.NewSingleEmail(from, subject, to, plain, html)
	if s.cfg.LDFlag_SendgridSandboxMode {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		msg.MailSettings = ms
	}

	resp, err := s.sendgridClient.SendWithContext(ctx, msg)
	if err != nil {
		utils.Logger.WithError(err).Errorf("Failed to send payment %s email for payment %s", p.Status, p.ID)
		return
	}
	if resp.StatusCode >= 300 {
		utils.Logger.Errorf("SendGrid rejected payment email for payment %s: status=%d body=%s", p.ID, resp.StatusCode, resp.Body)
	}
}

func (s *NotificationService) sendSMS(tenant *models.Tenant, p *models.Payment) {
	if s.twilioClient == nil || tenant.PhoneNumber == nil || s.cfg.LDFlag_TwilioFromPhone == "" {
		return
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(*tenant.PhoneNumber)
	params.SetFrom(s.cfg.LDFlag_TwilioFromPhone)
	params.SetBody(paymentSMSBody(p))

	if _, err := s.twilioClient.Api.CreateMessage(params); err != nil {
		utils.Logger.WithError(err).Errorf("Failed to send payment SMS for payment %s", p.ID)
	}
}

func paymentEmailContent(tenant *models.Tenant, p *models.Payment) (subject, plain, html string) {
	amount := utils.CentsToDecimal(p.AmountCents).StringFixed(2)
	if p.Status == models.PaymentStatusSucceeded {
		subject = constants.EmailSubjectPaymentSucceeded
		plain = fmt.Sprintf(
			"Hi %s,\n\nWe received your rent payment of $%s for lease %s. Payment reference: %s.\n\nThank you!",
			tenant.FullName, amount, p.LeaseID, p.ID,
		)
		html = fmt.Sprintf(paymentSucceededEmailHTML, stdhtml.EscapeString(tenant.FullName), amount, p.LeaseID, p.ID)
		return
	}

	reason := utils.Val(p.FailureReason)
	if reason == "" {
		reason = "the payment was not completed"
	}
	subject = constants.EmailSubjectPaymentFailed
	plain = fmt.Sprintf(
		"Hi %s,\n\nYour rent payment of $%s for lease %s did not go through (%s). Please start a new payment from your dashboard.",
		tenant.FullName, amount, p.LeaseID, reason,
	)
	html = fmt.Sprintf(paymentFailedEmailHTML, stdhtml.EscapeString(tenant.FullName), amount, p.LeaseID, stdhtml.EscapeString(reason))
	return
}

func paymentSMSBody(p *models.Payment) string {
	amount := utils.CentsToDecimal(p.AmountCents).StringFixed(2)
	if p.Status == models.PaymentStatusSucceeded {
		return fmt.Sprintf("Your rent payment of $%s was received. Ref %s", amount, p.ID)
	}
	return fmt.Sprintf("Your rent payment of $%s did not go through. Please try again.", amount)
}

const paymentSucceededEmailHTML = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <p>Hi %s,</p>
  <p>We received your rent payment of <strong>$%s</strong> for lease <code>%s</code>.</p>
  <p>Payment reference: <code>%s</code></p>
  <p>Thank you!</p>
</body>
</html>`

const paymentFailedEmailHTML = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <p>Hi %s,</p>
  <p>Your rent payment of <strong>$%s</strong> for lease <code>%s</code> did not go through.</p>
  <p>Reason: %s</p>
  <p>Please start a new payment from your dashboard.</p>
</body>
</html>`
