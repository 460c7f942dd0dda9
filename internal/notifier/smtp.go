package notifier

import (
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/rxtech-lab/argo-fx/pkg/errors"
)

// SMTPConfig holds the mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// SendMailFunc matches smtp.SendMail.
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender mails status messages. smtp.SendMail upgrades the connection
// with STARTTLS when the server offers it.
type SMTPSender struct {
	config   SMTPConfig
	send     SendMailFunc
	attempts int
	backoff  time.Duration
}

// NewSMTPSender creates a sender that tries each message up to three times.
func NewSMTPSender(config SMTPConfig) (*SMTPSender, error) {
	if config.Host == "" || config.From == "" || len(config.To) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "smtp host, from and to are required")
	}

	if config.Port == 0 {
		config.Port = 587
	}

	return &SMTPSender{
		config:   config,
		send:     smtp.SendMail,
		attempts: 3,
		backoff:  time.Second,
	}, nil
}

// WithSendFunc replaces the transport. Used by tests.
func (s *SMTPSender) WithSendFunc(send SendMailFunc, backoff time.Duration) *SMTPSender {
	s.send = send
	s.backoff = backoff

	return s
}

// SendText mails body under subject.
func (s *SMTPSender) SendText(subject, body string) error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	msg := s.message(subject, body)

	var auth smtp.Auth
	if s.config.Username != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}

	var lastErr error

	for i := 0; i < s.attempts; i++ {
		if lastErr = s.send(addr, auth, s.config.From, s.config.To, msg); lastErr == nil {
			return nil
		}

		if i < s.attempts-1 {
			time.Sleep(time.Duration(i+1) * s.backoff)
		}
	}

	return errors.Wrapf(errors.ErrCodeNotifyFailed, lastErr, "failed to send mail after %d attempts", s.attempts)
}

func (s *SMTPSender) message(subject, body string) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "From: %s\r\n", s.config.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(s.config.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))

	return []byte(b.String())
}
