// Package mailer sends transactional email over SMTP.
package mailer

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"net/url"
	"strings"
	"time"

	"github.com/pressroom-cms/pressroom/internal/authz"
)

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// BaseURL is the external panel address used to build links.
	BaseURL string
}

// Mailer sends panel email.
type Mailer struct {
	cfg Config
}

// New constructs a Mailer.
func New(cfg Config) *Mailer {
	return &Mailer{cfg: cfg}
}

// SendInvite delivers the invitation email carrying the accept link.
func (m *Mailer) SendInvite(ctx context.Context, to, name, rawToken string, expiresAt time.Time) error {
	link := m.acceptLink(rawToken)
	subject := "You have been invited to the admin panel"
	body := fmt.Sprintf(
		"Hello %s,\n\nYou have been invited to join the admin panel. "+
			"Set your password using the link below:\n\n%s\n\n"+
			"The link expires on %s.\n",
		name, link, expiresAt.UTC().Format("Jan 2, 2006 15:04 MST"),
	)
	return m.send(ctx, to, subject, body)
}

func (m *Mailer) acceptLink(rawToken string) string {
	base := strings.TrimRight(m.cfg.BaseURL, "/")
	return base + authz.AcceptInvitePath + "?token=" + url.QueryEscape(rawToken)
}

func (m *Mailer) send(_ context.Context, to, subject, body string) error {
	addr := net.JoinHostPort(m.cfg.Host, fmt.Sprintf("%d", m.cfg.Port))
	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	return smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg))
}
