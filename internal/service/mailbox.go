package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davidwuwu001/vmail/internal/config"
	"github.com/davidwuwu001/vmail/internal/domain"
	"github.com/davidwuwu001/vmail/internal/storage"
	rediscache "github.com/davidwuwu001/vmail/internal/storage/redis"
)

var (
	// ErrLocalPartInvalid 邮箱名为空或包含非法字符
	ErrLocalPartInvalid = errors.New("local part invalid")
	// ErrAddressTaken 邮箱地址已被占用
	ErrAddressTaken = errors.New("address already taken")
	// ErrMailboxNotFound 邮箱不存在或不属于当前用户
	ErrMailboxNotFound = errors.New("mailbox not found")
)

// 邮箱名只允许字母、数字、点、下划线和连字符
var localPartRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// MailboxService 封装邮箱生命周期相关业务操作。
type MailboxService struct {
	store storage.Store
	cfg   *config.Config
	cache *rediscache.Cache // 可选的地址查找缓存
	log   *zap.Logger
	now   func() time.Time
}

// NewMailboxService 创建邮箱业务服务。
func NewMailboxService(store storage.Store, cfg *config.Config, log *zap.Logger) *MailboxService {
	if log == nil {
		log = zap.NewNop()
	}
	return &MailboxService{
		store: store,
		cfg:   cfg,
		log:   log,
		now:   time.Now,
	}
}

// SetCache 设置地址查找缓存（可选）。
func (s *MailboxService) SetCache(cache *rediscache.Cache) {
	s.cache = cache
}

// WithNowFunc 注入时钟，用于确定性测试。
func (s *MailboxService) WithNowFunc(now func() time.Time) *MailboxService {
	s.now = now
	return s
}

// Create 为用户创建新邮箱。
//
// localPart 必须匹配 [a-zA-Z0-9._-]+，地址由 localPart 和配置域名列表
// 的第一项拼接而成。ttlHours > 0 时设置过期时间，否则为永久邮箱。
// 地址全局唯一，冲突时返回 ErrAddressTaken；唯一性由存储层约束保证，
// 并发创建同一地址时恰好一个成功。
func (s *MailboxService) Create(userID, localPart string, ttlHours int) (*domain.Mailbox, error) {
	localPart = strings.TrimSpace(localPart)
	if localPart == "" || !localPartRegex.MatchString(localPart) {
		return nil, ErrLocalPartInvalid
	}

	emailDomain := s.cfg.PrimaryDomain()
	// 地址统一小写存储，入站路由按小写地址匹配
	address := strings.ToLower(fmt.Sprintf("%s@%s", localPart, emailDomain))

	now := s.now().UTC()
	mailbox := &domain.Mailbox{
		ID:        uuid.NewString(),
		UserID:    userID,
		Address:   address,
		LocalPart: localPart,
		Domain:    emailDomain,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if ttlHours > 0 {
		expiresAt := now.Add(time.Duration(ttlHours) * time.Hour)
		mailbox.ExpiresAt = &expiresAt
	}

	if err := s.store.CreateMailbox(mailbox); err != nil {
		if errors.Is(err, storage.ErrAddressExists) {
			return nil, ErrAddressTaken
		}
		return nil, err
	}

	return mailbox, nil
}

// ListByUser 按创建时间倒序返回用户的全部邮箱。
func (s *MailboxService) ListByUser(userID string) ([]domain.Mailbox, error) {
	return s.store.ListMailboxesByUser(userID)
}

// AuthorizeMailbox 确认邮箱属于指定用户并返回邮箱。
//
// 在用户自己的邮箱列表中线性查找。不属于该用户的邮箱与不存在的
// 邮箱返回同样的 ErrMailboxNotFound，不向非所有者泄露地址是否存在。
func (s *MailboxService) AuthorizeMailbox(userID, mailboxID string) (*domain.Mailbox, error) {
	mailboxes, err := s.store.ListMailboxesByUser(userID)
	if err != nil {
		return nil, err
	}
	for i := range mailboxes {
		if mailboxes[i].ID == mailboxID {
			return &mailboxes[i], nil
		}
	}
	return nil, ErrMailboxNotFound
}

// Delete 级联删除邮箱及其全部邮件，返回删除的邮箱数量。
// 邮箱不存在时返回 0，幂等。
func (s *MailboxService) Delete(mailboxID string) (int, error) {
	mailbox, err := s.store.GetMailbox(mailboxID)
	if err != nil && !errors.Is(err, storage.ErrMailboxNotFound) {
		return 0, err
	}

	count, err := s.store.DeleteMailbox(mailboxID)
	if err != nil {
		return 0, err
	}

	if count > 0 && mailbox != nil {
		s.invalidateCache(mailbox.Address)
	}
	return count, nil
}

// ExpireSweep 级联删除所有在 now 之前过期的邮箱，返回删除数量。
// 幂等，可与用户发起的删除并发执行。
func (s *MailboxService) ExpireSweep(now time.Time) (int, error) {
	count, err := s.store.DeleteExpiredMailboxes(now)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.log.Info("expired mailboxes swept", zap.Int("count", count))
	}
	return count, nil
}

// ListEmails 按创建时间倒序返回邮箱下的全部邮件。
func (s *MailboxService) ListEmails(mailboxID string) ([]domain.Email, error) {
	return s.store.ListEmails(mailboxID)
}

// DeleteEmails 按 ID 集合批量删除邮件，返回删除数量。
// 空集合直接返回 0，未知 ID 视为已删除。
func (s *MailboxService) DeleteEmails(ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return s.store.DeleteEmails(ids)
}

// ResolveByAddress 按地址解析未过期的邮箱，供入站路由使用。
// 命中缓存时仍重新检查过期时间，缓存条目可能滞后于存储。
func (s *MailboxService) ResolveByAddress(address string) (*domain.Mailbox, error) {
	address = strings.TrimSpace(strings.ToLower(address))
	if address == "" {
		return nil, ErrMailboxNotFound
	}

	now := s.now()

	if s.cache != nil {
		if mailbox, err := s.cache.GetMailboxByAddress(context.Background(), address); err == nil {
			if mailbox.Expired(now) {
				return nil, ErrMailboxNotFound
			}
			return mailbox, nil
		}
	}

	mailbox, err := s.store.GetMailboxByAddress(address)
	if err != nil {
		if errors.Is(err, storage.ErrMailboxNotFound) {
			return nil, ErrMailboxNotFound
		}
		return nil, err
	}
	if mailbox.Expired(now) {
		return nil, ErrMailboxNotFound
	}

	if s.cache != nil {
		if err := s.cache.CacheMailbox(context.Background(), mailbox); err != nil {
			s.log.Warn("failed to cache mailbox", zap.String("address", address), zap.Error(err))
		}
	}
	return mailbox, nil
}

func (s *MailboxService) invalidateCache(address string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateMailbox(context.Background(), address); err != nil {
		s.log.Warn("failed to invalidate mailbox cache", zap.String("address", address), zap.Error(err))
	}
}
