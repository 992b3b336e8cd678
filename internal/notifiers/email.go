package notifiers

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"weather-telemetry-service/internal/models"
)

// EmailNotifier sends alerts over SMTP to a fixed recipient list.
type EmailNotifier struct {
	server     string
	port       int
	username   string
	password   string
	recipients []string
}

func NewEmailNotifier(server string, port int, username, password string, recipients []string) (*EmailNotifier, error) {
	if server == "" || port == 0 || username == "" || password == "" {
		return nil, fmt.Errorf("incomplete SMTP configuration")
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("no email recipients configured")
	}
	for _, to := range recipients {
		if !strings.Contains(to, "@") {
			return nil, fmt.Errorf("invalid email address: %s", to)
		}
	}
	return &EmailNotifier{
		server:     server,
		port:       port,
		username:   username,
		password:   password,
		recipients: recipients,
	}, nil
}

func (n *EmailNotifier) Name() string { return "email" }

func (n *EmailNotifier) Notify(ctx context.Context, alert models.Alert) error {
	msg := []byte(fmt.Sprintf(
		"To: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		strings.Join(n.recipients, ", "),
		Subject(alert),
		Body(alert),
	))
	auth := smtp.PlainAuth("", n.username, n.password, n.server)
	addr := fmt.Sprintf("%s:%d", n.server, n.port)
	if err := smtp.SendMail(addr, auth, n.username, n.recipients, msg); err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}
	return nil
}
