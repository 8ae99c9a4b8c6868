package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/carpal-dk/backoffice/src/config"
	"github.com/carpal-dk/backoffice/src/logger"
	"github.com/mailgun/mailgun-go/v4"
)

func NewEmailService() EmailService {
	if config.Cfg == nil {
		slog.Error("Configuration (config.Cfg) is nil. Email service will default to mock.")
		return &MockEmailService{}
	}

	provider := strings.ToLower(config.Cfg.EmailServiceProvider)
	logger.L.Info("Initializing email service", "provider", provider)

	switch provider {
	case "mailgun":
		if config.Cfg.MailgunDomain == "" || config.Cfg.MailgunPrivateAPIKey == "" || config.Cfg.SenderEmail == "" {
			logger.L.Warn("Mailgun configuration incomplete (Domain, API Key, or SenderEmail missing). Falling back to MockEmailService.")
			return &MockEmailService{}
		}
		mg := mailgun.NewMailgun(config.Cfg.MailgunDomain, config.Cfg.MailgunPrivateAPIKey)
		logger.L.Info("Mailgun client initialized", "domain", config.Cfg.MailgunDomain)
		return &MailgunEmailService{
			mg:          mg,
			senderEmail: config.Cfg.SenderEmail,
			senderName:  config.Cfg.SenderName,
		}
	case "smtp":
		if config.Cfg.SMTPServer == "" || config.Cfg.SMTPUser == "" || config.Cfg.SMTPPassword == "" || config.Cfg.SenderEmail == "" {
			logger.L.Warn("SMTP configuration incomplete. Falling back to MockEmailService.")
			return &MockEmailService{}
		}
		return &SMTPEmailService{
			SMTPServer:   config.Cfg.SMTPServer,
			SMTPPort:     config.Cfg.SMTPPort,
			SMTPUser:     config.Cfg.SMTPUser,
			SMTPPassword: config.Cfg.SMTPPassword,
			SenderEmail:  config.Cfg.SenderEmail,
		}
	default:
		logger.L.Info("Defaulting to MockEmailService.")
		return &MockEmailService{}
	}
}

func queuedEmailBodies(recordID, jobID string) (subject, plain, html string) {
	subject = fmt.Sprintf("Contract queued for signing (deal %s)", recordID)
	plain = fmt.Sprintf(`Hi,

A contract for deal %s has been queued for sending to the signing provider.
Job reference: %s

You will be notified separately if the signing provider rejects the document.

CarPal Backoffice`, recordID, jobID)

	html = fmt.Sprintf(`
	<html>
		<body style="font-family: Arial, sans-serif; line-height: 1.6;">
			<p>Hi,</p>
			<p>A contract for deal <strong>%s</strong> has been queued for sending to the signing provider.</p>
			<p>Job reference: <code>%s</code></p>
			<p>You will be notified separately if the signing provider rejects the document.</p>
			<p>CarPal Backoffice</p>
		</body>
	</html>`, recordID, jobID)
	return subject, plain, html
}

type SMTPEmailService struct {
	SMTPServer   string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SenderEmail  string
}

func (s *SMTPEmailService) SendContractQueuedEmail(toEmail, recordID, jobID string) error {
	subject, plain, _ := queuedEmailBodies(recordID, jobID)

	header := make(map[string]string)
	header["From"] = s.SenderEmail
	header["To"] = toEmail
	header["Subject"] = subject
	header["MIME-version"] = "1.0"
	header["Content-Type"] = "text/plain; charset=\"UTF-8\""
	message := ""
	for k, v := range header {
		message += fmt.Sprintf("%s: %s\r\n", k, v)
	}
	message += "\r\n" + plain

	auth := smtp.PlainAuth("", s.SMTPUser, s.SMTPPassword, s.SMTPServer)
	addr := fmt.Sprintf("%s:%d", s.SMTPServer, s.SMTPPort)
	if err := smtp.SendMail(addr, auth, s.SenderEmail, []string{toEmail}, []byte(message)); err != nil {
		logger.L.Error("Failed to send contract-queued email via SMTP", "error", err, "to", toEmail)
		return fmt.Errorf("failed to send contract-queued email via SMTP: %w", err)
	}
	logger.L.Info("Contract-queued email sent via SMTP", "to", toEmail, "jobId", jobID)
	return nil
}

type MailgunEmailService struct {
	mg          mailgun.Mailgun
	senderEmail string
	senderName  string
}

func (s *MailgunEmailService) SendContractQueuedEmail(toEmail, recordID, jobID string) error {
	from := fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail)
	subject, plain, html := queuedEmailBodies(recordID, jobID)

	message := s.mg.NewMessage(from, subject, plain, toEmail)
	message.SetHtml(html)
	message.AddTag("contract-queued")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*20)
	defer cancel()
	resp, id, err := s.mg.Send(ctx, message)
	if err != nil {
		logger.L.Error("Failed to send contract-queued email via Mailgun", "error", err, "to", toEmail, "mailgunResp", resp, "mailgunId", id)
		return fmt.Errorf("mailgun send failed: %w. Response: %s", err, resp)
	}
	logger.L.Info("Contract-queued email sent via Mailgun", "to", toEmail, "jobId", jobID, "mailgunId", id)
	return nil
}

type MockEmailService struct{}

func (m *MockEmailService) SendContractQueuedEmail(toEmail, recordID, jobID string) error {
	logger.L.Info("MockEmailService: Would send contract-queued email.", "to", toEmail, "recordId", recordID, "jobId", jobID)
	return nil
}
