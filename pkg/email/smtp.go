package email

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
)

// SMTPSender implements Sender using SMTP
type SMTPSender struct {
	config *Config
	auth   smtp.Auth
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(config *Config) *SMTPSender {
	var auth smtp.Auth
	if config.SMTPUsername != "" {
		auth = smtp.PlainAuth("", config.SMTPUsername, config.SMTPPassword, config.SMTPHost)
	}
	return &SMTPSender{
		config: config,
		auth:   auth,
		send:   smtp.SendMail,
	}
}

func (s *SMTPSender) addr() string {
	return fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)
}

// Send delivers msg. net/smtp has no context support, so ctx is only checked
// before dialing.
func (s *SMTPSender) Send(ctx context.Context, to []string, msg Message) error {
	if len(to) == 0 {
		return errors.New("send email: no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body := buildMIMEMessage(s.config.FromEmail, s.config.FromName, to, msg, generateBoundary())
	if err := s.send(s.addr(), s.auth, s.config.FromEmail, to, body); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// TestConnection tests the SMTP connection
func (s *SMTPSender) TestConnection(ctx context.Context) error {
	client, err := smtp.Dial(s.addr())
	if err != nil {
		return fmt.Errorf("dial SMTP server: %w", err)
	}
	defer client.Close()

	if s.auth == nil {
		return nil
	}
	if err := client.Auth(s.auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}
	return nil
}

func generateBoundary() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// buildMIMEMessage builds a MIME message. A message without an HTML body is
// sent as plain text.
func buildMIMEMessage(from, fromName string, to []string, msg Message, boundary string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", headerValue(fromName), headerValue(from))
	fmt.Fprintf(&b, "To: %s\r\n", headerValue(strings.Join(to, ", ")))
	fmt.Fprintf(&b, "Subject: %s\r\n", headerValue(msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")

	if msg.HTMLBody == "" {
		b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		b.WriteString(msg.TextBody)
		return []byte(b.String())
	}

	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=UTF-8\r\nContent-Transfer-Encoding: 7bit\r\n\r\n%s\r\n", boundary, msg.TextBody)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=UTF-8\r\nContent-Transfer-Encoding: 7bit\r\n\r\n%s\r\n", boundary, msg.HTMLBody)
	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String())
}

var headerBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// headerValue folds line breaks so a value cannot start a new header, and
// Q-encodes it when it is not plain ASCII.
func headerValue(v string) string {
	return mime.QEncoding.Encode("utf-8", headerBreaks.Replace(v))
}
