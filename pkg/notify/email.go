package notify

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"ldreader/pkg/config"
)

// EmailSender delivers the report over SMTP with implicit TLS (port 465).
type EmailSender struct {
	User     string
	Password string
	To       string
	Server   string
}

// NewEmailSender builds an email channel from configuration. The SMTP host
// defaults to smtp.<sender domain> and the recipient to the sender itself.
func NewEmailSender(cfg config.NotifyConfig) *EmailSender {
	server := cfg.SMTPServer
	if server == "" {
		if _, domain, found := strings.Cut(cfg.EmailUser, "@"); found {
			server = "smtp." + domain
		}
	}
	to := cfg.EmailTo
	if to == "" {
		to = cfg.EmailUser
	}
	return &EmailSender{
		User:     cfg.EmailUser,
		Password: cfg.EmailPass,
		To:       to,
		Server:   server,
	}
}

func (s *EmailSender) Name() string { return "email" }

func (s *EmailSender) Send(title, content string) error {
	if s.Server == "" {
		return fmt.Errorf("no SMTP server configured or derivable from %q", s.User)
	}

	addr := s.Server + ":465"
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.Server})
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, s.Server)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to start SMTP session: %w", err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", s.User, s.Password, s.Server)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP auth failed: %w", err)
	}
	if err := client.Mail(s.User); err != nil {
		return fmt.Errorf("MAIL FROM rejected: %w", err)
	}
	if err := client.Rcpt(s.To); err != nil {
		return fmt.Errorf("RCPT TO rejected: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA rejected: %w", err)
	}
	if _, err := w.Write(s.message(title, content)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish message: %w", err)
	}

	return client.Quit()
}

func (s *EmailSender) message(title, content string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.User)
	fmt.Fprintf(&b, "To: %s\r\n", s.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", title)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(content)
	return []byte(b.String())
}
