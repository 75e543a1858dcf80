package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/davidwuwu001/vmail/internal/domain"
	"github.com/davidwuwu001/vmail/internal/storage"
)

var (
	// ErrUsernameExists 用户名已存在
	ErrUsernameExists = errors.New("username already exists")
	// ErrInvalidCredentials 凭证无效
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Service 认证服务。
type Service struct {
	userRepo storage.UserRepository
	now      func() time.Time
}

// NewService 创建认证服务。
func NewService(userRepo storage.UserRepository) *Service {
	return &Service{
		userRepo: userRepo,
		now:      time.Now,
	}
}

// WithNowFunc 注入时钟，用于确定性测试。
func (s *Service) WithNowFunc(now func() time.Time) *Service {
	s.now = now
	return s
}

// Register 用户注册。
func (s *Service) Register(username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)

	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.CreateUser(user); err != nil {
		if errors.Is(err, storage.ErrUsernameExists) {
			return nil, ErrUsernameExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Login 用户登录。
// 用户不存在和密码错误统一返回 ErrInvalidCredentials，
// 不向调用方泄露用户名是否存在。
func (s *Service) Login(username, password string) (*domain.User, error) {
	user, err := s.userRepo.GetUserByUsername(strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GetUserByID 根据 ID 获取用户。
func (s *Service) GetUserByID(userID string) (*domain.User, error) {
	return s.userRepo.GetUserByID(userID)
}
