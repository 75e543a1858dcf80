package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/davidwuwu001/vmail/internal/domain"
	"github.com/davidwuwu001/vmail/internal/storage"
)

// Store 使用内存保存用户、邮箱与邮件数据，主要用于开发验证和测试。
// 写入和读取都按值复制，调用方持有的指针与内部状态互不影响。
type Store struct {
	mu         sync.RWMutex
	users      map[string]*domain.User
	byUsername map[string]string // username -> userID
	mailboxes  map[string]*domain.Mailbox
	byAddress  map[string]string                        // address -> mailboxID
	emails     map[string]map[string]*domain.Email      // mailboxID -> emailID -> email
	emailIndex map[string]string                        // emailID -> mailboxID
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		users:      make(map[string]*domain.User),
		byUsername: make(map[string]string),
		mailboxes:  make(map[string]*domain.Mailbox),
		byAddress:  make(map[string]string),
		emails:     make(map[string]map[string]*domain.Email),
		emailIndex: make(map[string]string),
	}
}

// ========== User Repository ==========

// CreateUser 创建用户。
func (s *Store) CreateUser(user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[user.Username]; ok {
		return storage.ErrUsernameExists
	}
	copied := *user
	s.users[user.ID] = &copied
	s.byUsername[user.Username] = user.ID
	return nil
}

// GetUserByID 根据 ID 获取用户。
func (s *Store) GetUserByID(id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

// GetUserByUsername 根据用户名获取用户。
func (s *Store) GetUserByUsername(username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	copied := *s.users[id]
	return &copied, nil
}

// ========== Mailbox Repository ==========

// CreateMailbox 创建邮箱。地址检查和写入在同一把锁内完成，
// 并发创建同一地址时只有一个成功。
func (s *Store) CreateMailbox(mailbox *domain.Mailbox) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byAddress[mailbox.Address]; ok {
		return storage.ErrAddressExists
	}
	copied := *mailbox
	s.mailboxes[mailbox.ID] = &copied
	s.byAddress[mailbox.Address] = mailbox.ID
	return nil
}

// GetMailbox 根据 ID 获取邮箱。
func (s *Store) GetMailbox(id string) (*domain.Mailbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mailbox, ok := s.mailboxes[id]
	if !ok {
		return nil, storage.ErrMailboxNotFound
	}
	copied := *mailbox
	return &copied, nil
}

// GetMailboxByAddress 根据完整地址获取邮箱。
func (s *Store) GetMailboxByAddress(address string) (*domain.Mailbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byAddress[address]
	if !ok {
		return nil, storage.ErrMailboxNotFound
	}
	copied := *s.mailboxes[id]
	return &copied, nil
}

// ListMailboxesByUser 按创建时间倒序返回用户的全部邮箱。
func (s *Store) ListMailboxesByUser(userID string) ([]domain.Mailbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Mailbox, 0)
	for _, mb := range s.mailboxes {
		if mb.UserID == userID {
			result = append(result, *mb)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// DeleteMailbox 级联删除邮箱及其全部邮件，返回删除的邮箱数量。
func (s *Store) DeleteMailbox(id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.mailboxes[id]; !ok {
		return 0, nil
	}
	s.deleteMailboxLocked(id)
	return 1, nil
}

// DeleteExpiredMailboxes 级联删除所有已过期的邮箱，返回删除数量。
func (s *Store) DeleteExpiredMailboxes(now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, mb := range s.mailboxes {
		if mb.Expired(now) {
			s.deleteMailboxLocked(id)
			count++
		}
	}
	return count, nil
}

func (s *Store) deleteMailboxLocked(id string) {
	if mb, ok := s.mailboxes[id]; ok {
		delete(s.byAddress, mb.Address)
	}
	for emailID := range s.emails[id] {
		delete(s.emailIndex, emailID)
	}
	delete(s.emails, id)
	delete(s.mailboxes, id)
}

// ========== Email Repository ==========

// SaveEmail 保存邮件。
func (s *Store) SaveEmail(email *domain.Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.mailboxes[email.MailboxID]; !ok {
		return storage.ErrMailboxNotFound
	}
	if _, ok := s.emails[email.MailboxID]; !ok {
		s.emails[email.MailboxID] = make(map[string]*domain.Email)
	}
	copied := *email
	s.emails[email.MailboxID][email.ID] = &copied
	s.emailIndex[email.ID] = email.MailboxID
	return nil
}

// ListEmails 按创建时间倒序返回邮箱下的全部邮件。
func (s *Store) ListEmails(mailboxID string) ([]domain.Email, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Email, 0, len(s.emails[mailboxID]))
	for _, e := range s.emails[mailboxID] {
		result = append(result, *e)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// DeleteEmails 按 ID 集合批量删除邮件，返回删除数量。
func (s *Store) DeleteEmails(ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, id := range ids {
		mailboxID, ok := s.emailIndex[id]
		if !ok {
			continue
		}
		delete(s.emails[mailboxID], id)
		delete(s.emailIndex, id)
		count++
	}
	return count, nil
}

// Close 关闭存储，内存实现无需释放资源。
func (s *Store) Close() error { return nil }

// Health 检查存储健康状态。
func (s *Store) Health() error { return nil }
