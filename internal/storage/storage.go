package storage

import (
	"errors"
	"time"

	"github.com/davidwuwu001/vmail/internal/domain"
)

var (
	// ErrUserNotFound 用户不存在
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameExists 用户名已被注册
	ErrUsernameExists = errors.New("username already exists")
	// ErrMailboxNotFound 邮箱不存在
	ErrMailboxNotFound = errors.New("mailbox not found")
	// ErrAddressExists 邮箱地址已被占用
	ErrAddressExists = errors.New("address already exists")
	// ErrEmailNotFound 邮件不存在
	ErrEmailNotFound = errors.New("email not found")
)

// UserRepository 定义用户数据存取操作。
type UserRepository interface {
	// CreateUser 创建用户，用户名冲突时返回 ErrUsernameExists。
	CreateUser(user *domain.User) error
	GetUserByID(id string) (*domain.User, error)
	GetUserByUsername(username string) (*domain.User, error)
}

// MailboxRepository 定义邮箱数据存取操作。
type MailboxRepository interface {
	// CreateMailbox 创建邮箱。地址唯一性由存储层约束保证，
	// 并发创建同一地址时恰好一个成功，其余返回 ErrAddressExists。
	CreateMailbox(mailbox *domain.Mailbox) error
	GetMailbox(id string) (*domain.Mailbox, error)
	GetMailboxByAddress(address string) (*domain.Mailbox, error)
	// ListMailboxesByUser 按创建时间倒序返回用户的全部邮箱。
	ListMailboxesByUser(userID string) ([]domain.Mailbox, error)
	// DeleteMailbox 在同一事务内级联删除邮箱及其全部邮件，
	// 返回删除的邮箱数量（不存在时为 0，幂等）。
	DeleteMailbox(id string) (int, error)
	// DeleteExpiredMailboxes 级联删除 expiresAt 早于 now 的全部邮箱，
	// 返回删除的邮箱数量。
	DeleteExpiredMailboxes(now time.Time) (int, error)
}

// EmailRepository 定义邮件数据存取操作。
type EmailRepository interface {
	SaveEmail(email *domain.Email) error
	// ListEmails 按创建时间倒序返回邮箱下的全部邮件。
	ListEmails(mailboxID string) ([]domain.Email, error)
	// DeleteEmails 按 ID 集合批量删除，返回删除数量。
	// 空集合直接返回 0，未知 ID 视为已删除。
	DeleteEmails(ids []string) (int, error)
}

// Store 定义完整的存储接口。
type Store interface {
	UserRepository
	MailboxRepository
	EmailRepository

	Close() error
	Health() error
}
