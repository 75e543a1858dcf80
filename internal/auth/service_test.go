package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidwuwu001/vmail/internal/storage/memory"
)

func newTestService() *Service {
	return NewService(memory.NewStore())
}

func TestService_Register(t *testing.T) {
	t.Run("注册成功", func(t *testing.T) {
		svc := newTestService()

		user, err := svc.Register("alice", "password123")
		require.NoError(t, err)

		assert.NotEmpty(t, user.ID)
		assert.Equal(t, "alice", user.Username)
		assert.NotEmpty(t, user.PasswordHash)
		assert.NotEqual(t, "password123", user.PasswordHash)
		assert.False(t, user.CreatedAt.IsZero())
	})

	t.Run("用户名前后空白被去除", func(t *testing.T) {
		svc := newTestService()

		user, err := svc.Register("  bob  ", "password123")
		require.NoError(t, err)
		assert.Equal(t, "bob", user.Username)
	})

	t.Run("用户名过短返回错误", func(t *testing.T) {
		svc := newTestService()

		_, err := svc.Register("ab", "password123")
		assert.ErrorIs(t, err, ErrUsernameInvalid)
	})

	t.Run("用户名过长返回错误", func(t *testing.T) {
		svc := newTestService()

		_, err := svc.Register(strings.Repeat("a", 21), "password123")
		assert.ErrorIs(t, err, ErrUsernameInvalid)
	})

	t.Run("多字节用户名按字符计数", func(t *testing.T) {
		svc := newTestService()

		// 2 个字符，按字节是 6，应当判定过短
		_, err := svc.Register("中文", "password123")
		assert.ErrorIs(t, err, ErrUsernameInvalid)

		// 12 个字符，按字节超过 20，应当注册成功
		user, err := svc.Register("临时邮箱测试用户名十二字", "password123")
		require.NoError(t, err)
		assert.Equal(t, "临时邮箱测试用户名十二字", user.Username)
	})

	t.Run("密码过短返回错误", func(t *testing.T) {
		svc := newTestService()

		_, err := svc.Register("alice", "12345")
		assert.ErrorIs(t, err, ErrPasswordInvalid)
	})

	t.Run("密码超过72字节返回错误", func(t *testing.T) {
		svc := newTestService()

		_, err := svc.Register("alice", strings.Repeat("a", 80))
		assert.ErrorIs(t, err, ErrPasswordTooLong)
	})

	t.Run("用户名重复返回错误", func(t *testing.T) {
		svc := newTestService()

		_, err := svc.Register("alice", "password123")
		require.NoError(t, err)

		_, err = svc.Register("alice", "otherpassword")
		assert.ErrorIs(t, err, ErrUsernameExists)
	})

	t.Run("同一密码两次注册产生不同摘要", func(t *testing.T) {
		svc := newTestService()

		user1, err := svc.Register("alice", "password123")
		require.NoError(t, err)
		user2, err := svc.Register("carol", "password123")
		require.NoError(t, err)

		assert.NotEqual(t, user1.PasswordHash, user2.PasswordHash)
	})
}

func TestService_Login(t *testing.T) {
	t.Run("登录成功", func(t *testing.T) {
		svc := newTestService()

		registered, err := svc.Register("alice", "password123")
		require.NoError(t, err)

		user, err := svc.Login("alice", "password123")
		require.NoError(t, err)
		assert.Equal(t, registered.ID, user.ID)
	})

	t.Run("密码错误返回统一错误", func(t *testing.T) {
		svc := newTestService()

		_, err := svc.Register("alice", "password123")
		require.NoError(t, err)

		_, err = svc.Login("alice", "wrongpassword")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("用户不存在返回统一错误", func(t *testing.T) {
		svc := newTestService()

		_, err := svc.Login("nobody", "password123")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestService_GetUserByID(t *testing.T) {
	svc := newTestService()

	registered, err := svc.Register("alice", "password123")
	require.NoError(t, err)

	user, err := svc.GetUserByID(registered.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
}
