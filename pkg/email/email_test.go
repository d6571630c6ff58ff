package email

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPSender_Send(t *testing.T) {
	sender := NewSMTPSender(&Config{
		SMTPHost:     "mail.example.com",
		SMTPPort:     587,
		SMTPUsername: "ops",
		SMTPPassword: "secret",
		FromEmail:    "tracker@example.com",
		FromName:     "Task Tracker",
	})

	var gotAddr, gotFrom string
	var gotTo []string
	var gotBody []byte
	sender.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotBody = addr, from, to, msg
		return nil
	}

	err := sender.Send(context.Background(), []string{"lead@example.com", "ops@example.com"}, Message{
		Subject:  "Task blocked",
		TextBody: "blocked on review",
	})
	require.NoError(t, err)

	assert.Equal(t, "mail.example.com:587", gotAddr)
	assert.Equal(t, "tracker@example.com", gotFrom)
	assert.Equal(t, []string{"lead@example.com", "ops@example.com"}, gotTo)
	body := string(gotBody)
	assert.Contains(t, body, "From: Task Tracker <tracker@example.com>\r\n")
	assert.Contains(t, body, "To: lead@example.com, ops@example.com\r\n")
	assert.Contains(t, body, "Subject: Task blocked\r\n")
	assert.Contains(t, body, "Content-Type: text/plain")
	assert.True(t, strings.HasSuffix(body, "blocked on review"))
}

func TestSMTPSender_Errors(t *testing.T) {
	sender := NewSMTPSender(&Config{SMTPHost: "localhost", SMTPPort: 25})
	sender.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := sender.Send(context.Background(), nil, Message{})
	assert.ErrorContains(t, err, "no recipients")

	err = sender.Send(context.Background(), []string{"a@example.com"}, Message{})
	assert.ErrorContains(t, err, "connection refused")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = sender.Send(ctx, []string{"a@example.com"}, Message{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildMIMEMessage_Multipart(t *testing.T) {
	body := string(buildMIMEMessage("a@example.com", "A", []string{"b@example.com"}, Message{
		Subject:  "Hi",
		TextBody: "plain",
		HTMLBody: "<p>html</p>",
	}, "xyz"))

	assert.Contains(t, body, `multipart/alternative; boundary="xyz"`)
	assert.Contains(t, body, "--xyz\r\nContent-Type: text/plain")
	assert.Contains(t, body, "--xyz\r\nContent-Type: text/html")
	assert.True(t, strings.HasSuffix(body, "--xyz--\r\n"))
}

func TestBuildMIMEMessage_HeaderValues(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		want    string
	}{
		{name: "plain", subject: "Task blocked: deploy", want: "Subject: Task blocked: deploy\r\n"},
		{name: "crlf folded", subject: "Task blocked: x\r\nBcc: attacker@example.com", want: "Subject: Task blocked: x Bcc: attacker@example.com\r\n"},
		{name: "bare lf folded", subject: "a\nb", want: "Subject: a b\r\n"},
		{name: "non-ascii encoded", subject: "Görev durdu", want: "Subject: =?utf-8?q?G=C3=B6rev_durdu?=\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := string(buildMIMEMessage("a@example.com", "A", []string{"b@example.com"}, Message{
				Subject:  tt.subject,
				TextBody: "body",
			}, "xyz"))

			assert.Contains(t, body, tt.want)
			header, _, found := strings.Cut(body, "\r\n\r\n")
			require.True(t, found)
			for _, line := range strings.Split(header, "\r\n") {
				assert.False(t, strings.HasPrefix(line, "Bcc:"), "unexpected header line %q", line)
			}
			assert.NotContains(t, header, "\n\n")
		})
	}
}

func TestSMTPSender_SendDoesNotInjectHeaders(t *testing.T) {
	sender := NewSMTPSender(&Config{SMTPHost: "localhost", SMTPPort: 25, FromEmail: "tracker@example.com", FromName: "Tracker"})
	var gotBody []byte
	sender.send = func(_ string, _ smtp.Auth, _ string, _ []string, msg []byte) error {
		gotBody = msg
		return nil
	}

	err := sender.Send(context.Background(), []string{"lead@example.com"}, Message{
		Subject:  "Task blocked: x\r\nBcc: attacker@example.com",
		TextBody: "blocked",
	})
	require.NoError(t, err)

	header, _, _ := strings.Cut(string(gotBody), "\r\n\r\n")
	lines := strings.Split(header, "\r\n")
	assert.Len(t, lines, 5, "From, To, Subject, MIME-Version, Content-Type")
	for _, line := range lines {
		assert.NotContains(t, line, "\n")
		assert.False(t, strings.HasPrefix(line, "Bcc:"))
	}
}

func TestMockSender(t *testing.T) {
	m := NewMockSender()
	assert.Nil(t, m.GetLastSentEmail())

	require.NoError(t, m.Send(context.Background(), []string{"a@example.com"}, Message{Subject: "one"}))
	require.NoError(t, m.Send(context.Background(), []string{"b@example.com"}, Message{Subject: "two"}))
	assert.Len(t, m.GetSentEmails(), 2)
	assert.Equal(t, "two", m.GetLastSentEmail().Message.Subject)

	m.FailWith(errors.New("down"))
	assert.Error(t, m.Send(context.Background(), []string{"c@example.com"}, Message{}))
	assert.Len(t, m.GetSentEmails(), 2)
}
