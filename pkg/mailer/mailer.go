package mailer

import (
	"context"
	"net/http"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/noah-isme/taller-agenda-api/pkg/config"
)

// Sender delivers one HTML email. It reports delivery and never panics.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) bool
}

// New picks a sender from configuration. Anything other than "sendgrid" logs instead of sending.
func New(cfg config.MailConfig, logger *zap.Logger) Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.EqualFold(cfg.Provider, "sendgrid") && cfg.SendGridAPIKey != "" {
		return NewSendGridSender(cfg.SendGridAPIKey, cfg.FromName, cfg.FromEmail, logger)
	}
	return NewLogSender(logger)
}

type sendGridClient interface {
	Send(email *sgmail.SGMailV3) (*sendGridResponse, error)
}

type sendGridResponse struct {
	StatusCode int
	Body       string
}

type sendGridAPI struct {
	key string
}

func (c sendGridAPI) Send(email *sgmail.SGMailV3) (*sendGridResponse, error) {
	res, err := sendgrid.NewSendClient(c.key).Send(email)
	if err != nil {
		return nil, err
	}
	return &sendGridResponse{StatusCode: res.StatusCode, Body: res.Body}, nil
}

// SendGridSender sends through the SendGrid v3 API.
type SendGridSender struct {
	client sendGridClient
	from   *sgmail.Email
	logger *zap.Logger
}

// NewSendGridSender builds a SendGrid-backed sender.
func NewSendGridSender(apiKey, fromName, fromEmail string, logger *zap.Logger) *SendGridSender {
	return &SendGridSender{
		client: sendGridAPI{key: apiKey},
		from:   sgmail.NewEmail(fromName, fromEmail),
		logger: logger,
	}
}

// Send implements Sender.
func (s *SendGridSender) Send(ctx context.Context, to, subject, html string) bool {
	if ctx.Err() != nil {
		return false
	}
	p := sgmail.NewPersonalization()
	p.Subject = subject
	p.AddTos(sgmail.NewEmail("", to))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/html", html))

	res, err := s.client.Send(m)
	if err != nil {
		s.logger.Warn("sendgrid send failed", zap.String("to", to), zap.Error(err))
		return false
	}
	if res.StatusCode >= http.StatusBadRequest {
		s.logger.Warn("sendgrid rejected email", zap.String("to", to), zap.Int("status", res.StatusCode), zap.String("body", res.Body))
		return false
	}
	return true
}

// LogSender only logs messages. Used in development and when no provider is configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender builds a log-only sender.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send implements Sender.
func (s *LogSender) Send(ctx context.Context, to, subject, html string) bool {
	if strings.TrimSpace(to) == "" {
		return false
	}
	s.logger.Info("email", zap.String("to", to), zap.String("subject", subject), zap.Int("bytes", len(html)))
	return true
}
