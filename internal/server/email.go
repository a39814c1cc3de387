// email.go - SMTP notifier for verification links.
package server

import (
	"fmt"
	"log"
	"net/smtp"
	"os"
)

// EmailConfig holds configuration for sending emails via SMTP.
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	FromEmail    string
	Enabled      bool
}

// LoadEmailConfig reads email configuration from environment variables.
// When DS_EMAIL_ENABLED is not "true" the service only logs outgoing mail,
// which is what local development wants.
func LoadEmailConfig() EmailConfig {
	cfg := EmailConfig{
		SMTPHost:     os.Getenv("DS_SMTP_HOST"),
		SMTPPort:     os.Getenv("DS_SMTP_PORT"),
		SMTPUser:     os.Getenv("DS_SMTP_USER"),
		SMTPPassword: os.Getenv("DS_SMTP_PASSWORD"),
		FromEmail:    os.Getenv("DS_FROM_EMAIL"),
		Enabled:      os.Getenv("DS_EMAIL_ENABLED") == "true",
	}

	if cfg.SMTPPort == "" {
		cfg.SMTPPort = "587"
	}
	if cfg.FromEmail == "" {
		cfg.FromEmail = cfg.SMTPUser
	}

	return cfg
}

// EmailService implements notifier over plain SMTP.
type EmailService struct {
	config EmailConfig
}

func NewEmailService(cfg EmailConfig) *EmailService {
	return &EmailService{config: cfg}
}

func (s *EmailService) send(to, subject, body string) error {
	if !s.config.Enabled {
		log.Printf("msg=email_disabled to=%s subject=%q", to, subject)
		return nil
	}

	if s.config.SMTPHost == "" || s.config.SMTPUser == "" || s.config.SMTPPassword == "" {
		return fmt.Errorf("SMTP not configured")
	}

	message := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		s.config.FromEmail, to, subject, body,
	))

	auth := smtp.PlainAuth("", s.config.SMTPUser, s.config.SMTPPassword, s.config.SMTPHost)
	addr := s.config.SMTPHost + ":" + s.config.SMTPPort
	if err := smtp.SendMail(addr, auth, s.config.FromEmail, []string{to}, message); err != nil {
		return err
	}

	log.Printf("msg=email_sent to=%s subject=%q", to, subject)
	return nil
}

// SendVerificationEmail mails the signed verification link to a new account.
func (s *EmailService) SendVerificationEmail(to, verifyURL string) error {
	subject := "Verify your email"
	body := fmt.Sprintf(`
		<html>
		<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
			<p>Please verify your email address by clicking the link below:</p>
			<p><a href="%s">Verify email</a></p>
			<p style="color: #666; font-size: 0.9em;">
				Or copy and paste this link into your browser:<br>
				<code>%s</code>
			</p>
			<p style="color: #666; font-size: 0.85em;">
				If you did not create this account, ignore this email.
			</p>
		</body>
		</html>
	`, verifyURL, verifyURL)

	return s.send(to, subject, body)
}
