package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/taller-agenda-api/internal/models"
	"github.com/noah-isme/taller-agenda-api/pkg/jobs"
	"github.com/noah-isme/taller-agenda-api/pkg/mailer"
)

const emailJobType = "notification_email"

var errEmailNotDelivered = errors.New("email not delivered")

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

type emailRetryQueue interface {
	Enqueue(job jobs.Job) error
}

// EmailMessage is the payload of a queued email retry.
type EmailMessage struct {
	To      string
	Subject string
	HTML    string
}

// NotificationService writes in-app notifications and sends emails, retrying failed sends in the background.
type NotificationService struct {
	store   notificationStore
	sender  mailer.Sender
	retry   emailRetryQueue
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService constructs a NotificationService. retry may be nil.
func NewNotificationService(store notificationStore, sender mailer.Sender, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{store: store, sender: sender, metrics: metrics, logger: logger}
}

// SetRetryQueue attaches the queue failed emails are pushed to.
func (s *NotificationService) SetRetryQueue(queue emailRetryQueue) {
	s.retry = queue
}

// Notify stores an in-app notification for userID.
func (s *NotificationService) Notify(ctx context.Context, userID, title, message string, kind models.NotificationKind) error {
	n := &models.Notification{UserID: userID, Title: title, Message: message, Kind: kind}
	if err := s.store.Create(ctx, n); err != nil {
		return fmt.Errorf("notify %s: %w", userID, err)
	}
	return nil
}

// SendEmail attempts delivery once. A failed send is counted, logged and
// queued for retry; it never returns an error to the caller.
func (s *NotificationService) SendEmail(ctx context.Context, to, subject, html string) bool {
	if s.sender != nil && s.sender.Send(ctx, to, subject, html) {
		s.metrics.RecordNotificationEmail(EmailResultSent)
		return true
	}
	s.metrics.RecordNotificationEmail(EmailResultFailed)
	s.logger.Warn("notification email failed", zap.String("to", to), zap.String("subject", subject))
	if s.retry == nil || to == "" {
		return false
	}
	job := jobs.Job{ID: uuid.NewString(), Type: emailJobType, Payload: EmailMessage{To: to, Subject: subject, HTML: html}}
	if err := s.retry.Enqueue(job); err != nil {
		s.metrics.RecordNotificationEmail(EmailResultDropped)
		s.logger.Warn("email retry not queued", zap.String("to", to), zap.Error(err))
	}
	return false
}

// HandleEmailRetry is the jobs.Handler for queued email retries.
func (s *NotificationService) HandleEmailRetry(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(EmailMessage)
	if !ok {
		s.logger.Error("unexpected email job payload", zap.String("job_id", job.ID))
		return nil
	}
	if s.sender == nil || !s.sender.Send(ctx, msg.To, msg.Subject, msg.HTML) {
		return errEmailNotDelivered
	}
	s.metrics.RecordNotificationEmail(EmailResultRetried)
	return nil
}

// EmailGaveUp records an email dropped after exhausting retries.
func (s *NotificationService) EmailGaveUp(job jobs.Job, err error) {
	s.metrics.RecordNotificationEmail(EmailResultDropped)
	if msg, ok := job.Payload.(EmailMessage); ok {
		s.logger.Error("email dropped", zap.String("to", msg.To), zap.Int("attempts", job.Attempt), zap.Error(err))
	}
}
