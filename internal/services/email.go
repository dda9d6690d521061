package services

import (
	"fmt"

	"skydrive/internal/models"
	"skydrive/internal/pkg"

	"gopkg.in/gomail.v2"
)

// EmailService sends share notifications. Delivery is best effort; callers
// never fail an operation on a send error.
type EmailService interface {
	NotifyShared(recipient *models.User, sharer *models.User, entries []*models.Entry) error
}

// SMTPConfig holds mail transport settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smtpEmailService struct {
	config SMTPConfig
	logger *pkg.Logger
}

// NewEmailService creates an SMTP-backed email service
func NewEmailService(config SMTPConfig, logger *pkg.Logger) EmailService {
	return &smtpEmailService{config: config, logger: logger}
}

func (s *smtpEmailService) NotifyShared(recipient *models.User, sharer *models.User, entries []*models.Entry) error {
	subject := fmt.Sprintf("%s shared %d item(s) with you", sharer.Name, len(entries))

	body := fmt.Sprintf("Hi %s,\n\n%s (%s) shared the following with you:\n\n", recipient.Name, sharer.Name, sharer.Email)
	for _, entry := range entries {
		kind := "File"
		if entry.IsFolder {
			kind = "Folder"
		} else if entry.IsNote() {
			kind = "Note"
		}
		body += fmt.Sprintf("  - %s: %s\n", kind, entry.Name)
	}
	body += "\nSign in to view them under Shared with me.\n"

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.From)
	m.SetHeader("To", recipient.Email)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(s.config.Host, s.config.Port, s.config.Username, s.config.Password)
	if err := d.DialAndSend(m); err != nil {
		s.logger.Warn("failed to send share notification", map[string]interface{}{
			"recipient": recipient.Email,
			"error":     err.Error(),
		})
		return err
	}

	return nil
}

// MockEmailService records notifications for tests
type MockEmailService struct {
	Sent []MockNotification
}

// MockNotification is one recorded NotifyShared call
type MockNotification struct {
	Recipient *models.User
	Sharer    *models.User
	Entries   []*models.Entry
}

func (m *MockEmailService) NotifyShared(recipient *models.User, sharer *models.User, entries []*models.Entry) error {
	m.Sent = append(m.Sent, MockNotification{Recipient: recipient, Sharer: sharer, Entries: entries})
	return nil
}
