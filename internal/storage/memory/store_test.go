package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidwuwu001/vmail/internal/domain"
	"github.com/davidwuwu001/vmail/internal/storage"
)

func newUser(username string) *domain.User {
	return &domain.User{
		ID:        uuid.NewString(),
		Username:  username,
		CreatedAt: time.Now().UTC(),
	}
}

func newMailbox(userID, address string, expiresAt *time.Time, createdAt time.Time) *domain.Mailbox {
	return &domain.Mailbox{
		ID:        uuid.NewString(),
		UserID:    userID,
		Address:   address,
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
	}
}

func TestStore_Users(t *testing.T) {
	t.Run("创建并查询用户", func(t *testing.T) {
		store := NewStore()
		user := newUser("alice")

		require.NoError(t, store.CreateUser(user))

		byID, err := store.GetUserByID(user.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", byID.Username)

		byName, err := store.GetUserByUsername("alice")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byName.ID)
	})

	t.Run("用户名重复返回错误", func(t *testing.T) {
		store := NewStore()
		require.NoError(t, store.CreateUser(newUser("alice")))

		err := store.CreateUser(newUser("alice"))
		assert.ErrorIs(t, err, storage.ErrUsernameExists)
	})

	t.Run("用户不存在返回错误", func(t *testing.T) {
		store := NewStore()

		_, err := store.GetUserByID("missing")
		assert.ErrorIs(t, err, storage.ErrUserNotFound)

		_, err = store.GetUserByUsername("missing")
		assert.ErrorIs(t, err, storage.ErrUserNotFound)
	})
}

func TestStore_Mailboxes(t *testing.T) {
	t.Run("地址冲突返回错误", func(t *testing.T) {
		store := NewStore()
		require.NoError(t, store.CreateMailbox(newMailbox("u1", "a@vmail.dev", nil, time.Now())))

		err := store.CreateMailbox(newMailbox("u2", "a@vmail.dev", nil, time.Now()))
		assert.ErrorIs(t, err, storage.ErrAddressExists)
	})

	t.Run("并发创建同一地址只有一个成功", func(t *testing.T) {
		store := NewStore()

		const workers = 16
		var wg sync.WaitGroup
		errs := make([]error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = store.CreateMailbox(newMailbox("u1", "race@vmail.dev", nil, time.Now()))
			}(i)
		}
		wg.Wait()

		success := 0
		for _, err := range errs {
			if err == nil {
				success++
			} else {
				assert.ErrorIs(t, err, storage.ErrAddressExists)
			}
		}
		assert.Equal(t, 1, success)
	})

	t.Run("删除邮箱幂等且级联删除邮件", func(t *testing.T) {
		store := NewStore()
		mb := newMailbox("u1", "a@vmail.dev", nil, time.Now())
		require.NoError(t, store.CreateMailbox(mb))
		require.NoError(t, store.SaveEmail(&domain.Email{
			ID:        uuid.NewString(),
			MailboxID: mb.ID,
			CreatedAt: time.Now(),
		}))

		count, err := store.DeleteMailbox(mb.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		count, err = store.DeleteMailbox(mb.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		emails, err := store.ListEmails(mb.ID)
		require.NoError(t, err)
		assert.Empty(t, emails)

		_, err = store.GetMailboxByAddress("a@vmail.dev")
		assert.ErrorIs(t, err, storage.ErrMailboxNotFound)
	})

	t.Run("清理过期邮箱", func(t *testing.T) {
		store := NewStore()
		now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		past := now.Add(-time.Hour)
		future := now.Add(time.Hour)

		require.NoError(t, store.CreateMailbox(newMailbox("u1", "expired@vmail.dev", &past, now)))
		require.NoError(t, store.CreateMailbox(newMailbox("u1", "alive@vmail.dev", &future, now)))
		require.NoError(t, store.CreateMailbox(newMailbox("u1", "permanent@vmail.dev", nil, now)))

		count, err := store.DeleteExpiredMailboxes(now)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		mailboxes, err := store.ListMailboxesByUser("u1")
		require.NoError(t, err)
		assert.Len(t, mailboxes, 2)
	})

	t.Run("返回的是数据副本", func(t *testing.T) {
		store := NewStore()
		mb := newMailbox("u1", "a@vmail.dev", nil, time.Now())
		require.NoError(t, store.CreateMailbox(mb))

		got, err := store.GetMailbox(mb.ID)
		require.NoError(t, err)
		got.Address = "tampered@vmail.dev"

		again, err := store.GetMailbox(mb.ID)
		require.NoError(t, err)
		assert.Equal(t, "a@vmail.dev", again.Address)
	})

	t.Run("写入后修改原始对象不影响已存数据", func(t *testing.T) {
		store := NewStore()

		user := newUser("alice")
		require.NoError(t, store.CreateUser(user))
		user.Username = "mutated"

		gotUser, err := store.GetUserByID(user.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", gotUser.Username)

		mb := newMailbox(user.ID, "a@vmail.dev", nil, time.Now())
		require.NoError(t, store.CreateMailbox(mb))
		mb.Address = "mutated@vmail.dev"

		gotMailbox, err := store.GetMailbox(mb.ID)
		require.NoError(t, err)
		assert.Equal(t, "a@vmail.dev", gotMailbox.Address)

		email := &domain.Email{
			ID:        uuid.NewString(),
			MailboxID: mb.ID,
			Subject:   "hello",
			CreatedAt: time.Now(),
		}
		require.NoError(t, store.SaveEmail(email))
		email.Subject = "mutated"

		emails, err := store.ListEmails(mb.ID)
		require.NoError(t, err)
		require.Len(t, emails, 1)
		assert.Equal(t, "hello", emails[0].Subject)
	})
}

func TestStore_Emails(t *testing.T) {
	store := NewStore()
	mb := newMailbox("u1", "a@vmail.dev", nil, time.Now())
	require.NoError(t, store.CreateMailbox(mb))

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		id := uuid.NewString()
		ids = append(ids, id)
		require.NoError(t, store.SaveEmail(&domain.Email{
			ID:        id,
			MailboxID: mb.ID,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	t.Run("按创建时间倒序列出", func(t *testing.T) {
		emails, err := store.ListEmails(mb.ID)
		require.NoError(t, err)
		require.Len(t, emails, 3)
		assert.Equal(t, ids[2], emails[0].ID)
		assert.Equal(t, ids[1], emails[1].ID)
		assert.Equal(t, ids[0], emails[2].ID)
	})

	t.Run("批量删除返回实际删除数", func(t *testing.T) {
		count, err := store.DeleteEmails([]string{ids[0], ids[1], uuid.NewString()})
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		emails, err := store.ListEmails(mb.ID)
		require.NoError(t, err)
		assert.Len(t, emails, 1)
	})

	t.Run("空集合返回0", func(t *testing.T) {
		count, err := store.DeleteEmails(nil)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}
