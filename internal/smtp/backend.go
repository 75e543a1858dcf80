package smtp

import (
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"

	gosmtp "github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/davidwuwu001/vmail/internal/monitoring"
	"github.com/davidwuwu001/vmail/internal/service"
)

// 单封邮件大小上限
const maxMessageBytes = 10 << 20

// Backend 实现 go-smtp 的 Backend 接口。
//
// 这是一个只接收邮件的 SMTP 服务器：
// - 只接收发送到本系统邮箱的邮件
// - 收件人域名必须在配置的域名列表中
// - 不支持对外发送，不会成为开放中继
//
// Rcpt() 对域名不匹配和邮箱不存在的收件人一律返回 550。
type Backend struct {
	mailboxes *service.MailboxService
	emails    *service.EmailService
	domains   []string
	metrics   *monitoring.Metrics
	log       *zap.Logger
}

// NewBackend 创建 SMTP Backend。metrics 可为 nil。
func NewBackend(mailboxes *service.MailboxService, emails *service.EmailService, domains []string, metrics *monitoring.Metrics, log *zap.Logger) *Backend {
	if log == nil {
		log = zap.NewNop()
	}
	return &Backend{
		mailboxes: mailboxes,
		emails:    emails,
		domains:   domains,
		metrics:   metrics,
		log:       log,
	}
}

// NewSession 创建新的 SMTP 会话。
func (b *Backend) NewSession(c *gosmtp.Conn) (gosmtp.Session, error) {
	return &session{
		backend: b,
	}, nil
}

type session struct {
	backend     *Backend
	fromAddress string
	recipients  []string
}

// Mail 处理 MAIL 命令。
func (s *session) Mail(from string, opts *gosmtp.MailOptions) error {
	s.fromAddress = from
	return nil
}

// Rcpt 处理 RCPT 命令。
//
// 验证流程：
// 1. 收件人域名必须在配置的域名列表中，否则 550 拒绝中继
// 2. 收件地址必须解析到一个未过期邮箱，否则 550
func (s *session) Rcpt(to string, _ *gosmtp.RcptOptions) error {
	addr := normalizeAddress(to)

	parts := strings.Split(addr, "@")
	if len(parts) != 2 {
		return &gosmtp.SMTPError{
			Code:         501,
			EnhancedCode: gosmtp.EnhancedCode{5, 1, 3},
			Message:      "invalid recipient address",
		}
	}
	recipientDomain := parts[1]

	domainAllowed := false
	for _, d := range s.backend.domains {
		if strings.EqualFold(d, recipientDomain) {
			domainAllowed = true
			break
		}
	}
	if !domainAllowed {
		s.rejected()
		return &gosmtp.SMTPError{
			Code:         550,
			EnhancedCode: gosmtp.EnhancedCode{5, 7, 1},
			Message:      "relay access denied - domain not managed by this server",
		}
	}

	if _, err := s.backend.mailboxes.ResolveByAddress(addr); err != nil {
		if errors.Is(err, service.ErrMailboxNotFound) {
			s.rejected()
			return &gosmtp.SMTPError{
				Code:         550,
				EnhancedCode: gosmtp.EnhancedCode{5, 1, 1},
				Message:      "recipient mailbox not found",
			}
		}
		return err
	}

	s.recipients = append(s.recipients, addr)
	return nil
}

// Data 处理邮件内容。
func (s *session) Data(r io.Reader) error {
	rawBytes, err := io.ReadAll(io.LimitReader(r, maxMessageBytes))
	if err != nil {
		return err
	}

	parsed, err := ParseEmail(rawBytes)
	if err != nil {
		return fmt.Errorf("parse email: %w", err)
	}

	fromAddr, fromName := splitFrom(parsed.From, s.fromAddress)

	for _, rcpt := range s.recipients {
		email, err := s.backend.emails.Deliver(&service.IncomingEmail{
			To:       rcpt,
			From:     fromAddr,
			FromName: fromName,
			Subject:  parsed.Subject,
			Text:     parsed.Text,
			HTML:     parsed.HTML,
		})
		if err != nil {
			// 邮箱可能在会话期间被删除或过期，静默丢弃
			if errors.Is(err, service.ErrMailboxNotFound) {
				s.rejected()
				continue
			}
			return err
		}

		if s.backend.metrics != nil {
			s.backend.metrics.MessagesReceived.Inc()
		}
		s.backend.log.Debug("message accepted",
			zap.String("email_id", email.ID),
			zap.String("to", rcpt))
	}

	return nil
}

// Reset 重置状态。
func (s *session) Reset() {
	s.fromAddress = ""
	s.recipients = nil
}

// Logout 会话结束。
func (s *session) Logout() error {
	return nil
}

func (s *session) rejected() {
	if s.backend.metrics != nil {
		s.backend.metrics.MessagesRejected.Inc()
	}
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	addr = strings.Trim(addr, "<>")
	return strings.ToLower(addr)
}

// splitFrom 从 From 头中拆出地址和显示名，头缺失时回退到信封地址。
func splitFrom(header, envelope string) (addr, name string) {
	if header == "" {
		return normalizeAddress(envelope), ""
	}
	parsed, err := mail.ParseAddress(decodeHeader(header))
	if err != nil {
		return normalizeAddress(envelope), ""
	}
	return strings.ToLower(parsed.Address), parsed.Name
}
