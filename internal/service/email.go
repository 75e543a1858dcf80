package service

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davidwuwu001/vmail/internal/domain"
	"github.com/davidwuwu001/vmail/internal/storage"
)

// IncomingEmail SMTP 接收侧解析出的入站邮件。
type IncomingEmail struct {
	To       string
	From     string
	FromName string
	Subject  string
	Text     string
	HTML     string
}

// EmailService 负责入站邮件的投递。
type EmailService struct {
	store     storage.EmailRepository
	mailboxes *MailboxService
	log       *zap.Logger
	now       func() time.Time
}

// NewEmailService 创建邮件投递服务。
func NewEmailService(store storage.EmailRepository, mailboxes *MailboxService, log *zap.Logger) *EmailService {
	if log == nil {
		log = zap.NewNop()
	}
	return &EmailService{
		store:     store,
		mailboxes: mailboxes,
		log:       log,
		now:       time.Now,
	}
}

// WithNowFunc 注入时钟，用于确定性测试。
func (s *EmailService) WithNowFunc(now func() time.Time) *EmailService {
	s.now = now
	return s
}

// Deliver 按收件地址路由入站邮件并持久化。
// 地址不存在或邮箱已过期时返回 ErrMailboxNotFound，邮件被丢弃。
func (s *EmailService) Deliver(incoming *IncomingEmail) (*domain.Email, error) {
	mailbox, err := s.mailboxes.ResolveByAddress(incoming.To)
	if err != nil {
		return nil, err
	}

	email := &domain.Email{
		ID:          uuid.NewString(),
		MailboxID:   mailbox.ID,
		MessageTo:   mailbox.Address,
		MessageFrom: incoming.From,
		FromName:    incoming.FromName,
		Subject:     incoming.Subject,
		Text:        incoming.Text,
		HTML:        incoming.HTML,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.store.SaveEmail(email); err != nil {
		return nil, err
	}

	s.log.Info("email delivered",
		zap.String("mailbox_id", mailbox.ID),
		zap.String("to", mailbox.Address),
		zap.String("from", incoming.From))
	return email, nil
}
