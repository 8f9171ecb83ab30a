package notifications

import (
	"context"

	"go.uber.org/zap"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type Service struct {
	store       StoreAPI
	Mailer      Mailer
	DefaultFrom string
	log         *zap.Logger
}

func New(store StoreAPI, mailer Mailer, from string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if from == "" {
		from = "no-reply@example.com"
	}
	return &Service{store: store, Mailer: mailer, DefaultFrom: from, log: log}
}

// Create stores an in-app notification and mails a copy when a mailer is
// set. Mail failures are logged, never returned.
func (s *Service) Create(ctx context.Context, tenantID, userID, ntype, title, body string) error {
	if err := s.store.CreateNotification(ctx, tenantID, userID, ntype, title, body); err != nil {
		return err
	}
	if s.Mailer == nil {
		return nil
	}
	email, err := s.store.UserEmail(ctx, tenantID, userID)
	if err != nil {
		s.log.Warn("notification email lookup failed", zap.String("userId", userID), zap.Error(err))
		return nil
	}
	s.send(ctx, email, title, body)
	return nil
}

// NotifyEmployee notifies the user account linked to an employee. Employees
// without a login are skipped.
func (s *Service) NotifyEmployee(ctx context.Context, tenantID, employeeID, ntype, title, body string) error {
	recipient, ok, err := s.store.RecipientForEmployee(ctx, tenantID, employeeID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := s.store.CreateNotification(ctx, tenantID, recipient.UserID, ntype, title, body); err != nil {
		return err
	}
	if s.Mailer != nil {
		s.send(ctx, recipient.Email, title, body)
	}
	return nil
}

func (s *Service) send(ctx context.Context, to, subject, body string) {
	if to == "" {
		return
	}
	if err := s.Mailer.Send(ctx, s.DefaultFrom, to, subject, body); err != nil {
		s.log.Warn("notification email send failed", zap.String("to", to), zap.Error(err))
	}
}

func (s *Service) List(ctx context.Context, tenantID, userID string, unreadOnly bool, limit, offset int) ([]Notification, error) {
	return s.store.ListNotifications(ctx, tenantID, userID, unreadOnly, limit, offset)
}

func (s *Service) Count(ctx context.Context, tenantID, userID string, unreadOnly bool) (int, error) {
	return s.store.CountNotifications(ctx, tenantID, userID, unreadOnly)
}

func (s *Service) MarkRead(ctx context.Context, tenantID, userID, notificationID string) error {
	ok, err := s.store.MarkRead(ctx, tenantID, userID, notificationID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
