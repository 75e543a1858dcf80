package httptransport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davidwuwu001/vmail/internal/auth"
	"github.com/davidwuwu001/vmail/internal/config"
	"github.com/davidwuwu001/vmail/internal/domain"
	"github.com/davidwuwu001/vmail/internal/service"
	"github.com/davidwuwu001/vmail/internal/storage/memory"
)

type testEnv struct {
	router    *gin.Engine
	store     *memory.Store
	mailboxes *service.MailboxService
	emails    *service.EmailService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Mailbox: config.MailboxConfig{
			AllowedDomains: []string{"vmail.dev"},
			SweepInterval:  10 * time.Minute,
		},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Auth: config.AuthConfig{
			Secret:      "router-test-secret-32-characters-long!",
			TokenExpiry: time.Hour,
		},
	}

	store := memory.NewStore()
	mailboxes := service.NewMailboxService(store, cfg, zap.NewNop())
	emails := service.NewEmailService(store, mailboxes, zap.NewNop())
	authService := auth.NewService(store)
	tokenManager := auth.NewTokenManager(cfg.Auth.Secret, cfg.Auth.TokenExpiry)

	router := NewRouter(RouterDependencies{
		Config:         cfg,
		AuthService:    authService,
		TokenManager:   tokenManager,
		MailboxService: mailboxes,
		Logger:         zap.NewNop(),
	})

	return &testEnv{
		router:    router,
		store:     store,
		mailboxes: mailboxes,
		emails:    emails,
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var resp Response
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

// register 注册用户并返回令牌
func (e *testEnv) register(t *testing.T, username, password string) string {
	t.Helper()

	w, resp := e.do(t, http.MethodPost, "/v1/auth/register", "", gin.H{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var out authResponse
	require.NoError(t, json.Unmarshal(data, &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func decodeData(t *testing.T, resp Response, out interface{}) {
	t.Helper()
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out))
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)

	t.Run("注册登录获取用户信息", func(t *testing.T) {
		token := env.register(t, "alice", "password123")

		w, resp := env.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{
			"username": "alice",
			"password": "password123",
		})
		assert.Equal(t, http.StatusOK, w.Code)

		var login authResponse
		decodeData(t, resp, &login)
		assert.Equal(t, "alice", login.User.Username)
		assert.NotEmpty(t, login.Token)

		w, resp = env.do(t, http.MethodGet, "/v1/auth/me", token, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var me userResponse
		decodeData(t, resp, &me)
		assert.Equal(t, "alice", me.Username)
	})

	t.Run("用户名重复返回409", func(t *testing.T) {
		env.register(t, "bob", "password123")

		w, _ := env.do(t, http.MethodPost, "/v1/auth/register", "", gin.H{
			"username": "bob",
			"password": "otherpassword",
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("超长密码返回400", func(t *testing.T) {
		w, resp := env.do(t, http.MethodPost, "/v1/auth/register", "", gin.H{
			"username": "longpass",
			"password": strings.Repeat("a", 80),
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "密码长度不能超过72个字符", resp.Msg)
	})

	t.Run("密码错误返回401", func(t *testing.T) {
		w, _ := env.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{
			"username": "alice",
			"password": "wrongpassword",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("无令牌访问受保护接口返回401", func(t *testing.T) {
		w, _ := env.do(t, http.MethodGet, "/v1/mailboxes", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("伪造令牌返回401", func(t *testing.T) {
		w, _ := env.do(t, http.MethodGet, "/v1/mailboxes", "not-a-token", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestMailboxLifecycleFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "alice", "password123")

	var created mailboxResponse

	t.Run("创建带有效期的邮箱", func(t *testing.T) {
		w, resp := env.do(t, http.MethodPost, "/v1/mailboxes", token, gin.H{
			"name":        "alice-temp",
			"expiryHours": 1,
		})
		require.Equal(t, http.StatusCreated, w.Code)

		decodeData(t, resp, &created)
		assert.Equal(t, "alice-temp@vmail.dev", created.Address)
		require.NotNil(t, created.ExpiresAt)
		assert.True(t, created.ExpiresAt.After(time.Now()))
	})

	t.Run("列表包含新邮箱", func(t *testing.T) {
		w, resp := env.do(t, http.MethodGet, "/v1/mailboxes", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var list []mailboxResponse
		decodeData(t, resp, &list)
		require.Len(t, list, 1)
		assert.Equal(t, created.ID, list[0].ID)
	})

	t.Run("非法邮箱名返回400", func(t *testing.T) {
		w, _ := env.do(t, http.MethodPost, "/v1/mailboxes", token, gin.H{
			"name": "bad name!",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("地址冲突返回409", func(t *testing.T) {
		w, _ := env.do(t, http.MethodPost, "/v1/mailboxes", token, gin.H{
			"name": "alice-temp",
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("删除邮箱返回删除数量", func(t *testing.T) {
		w, resp := env.do(t, http.MethodDelete, "/v1/mailboxes/"+created.ID, token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var out deleteCountResponse
		decodeData(t, resp, &out)
		assert.Equal(t, 1, out.Deleted)
	})

	t.Run("删除后列表为空", func(t *testing.T) {
		w, resp := env.do(t, http.MethodGet, "/v1/mailboxes", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var list []mailboxResponse
		decodeData(t, resp, &list)
		assert.Empty(t, list)
	})

	t.Run("重复删除返回404", func(t *testing.T) {
		w, _ := env.do(t, http.MethodDelete, "/v1/mailboxes/"+created.ID, token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestMailboxOwnership(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.register(t, "alice", "password123")
	eveToken := env.register(t, "eve", "password123")

	w, resp := env.do(t, http.MethodPost, "/v1/mailboxes", aliceToken, gin.H{
		"name": "alice-box",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created mailboxResponse
	decodeData(t, resp, &created)

	t.Run("他人邮箱与不存在的邮箱返回同样的404", func(t *testing.T) {
		wForeign, _ := env.do(t, http.MethodDelete, "/v1/mailboxes/"+created.ID, eveToken, nil)
		wMissing, _ := env.do(t, http.MethodDelete, "/v1/mailboxes/no-such-id", eveToken, nil)

		assert.Equal(t, http.StatusNotFound, wForeign.Code)
		assert.Equal(t, http.StatusNotFound, wMissing.Code)
		assert.JSONEq(t, wMissing.Body.String(), wForeign.Body.String())
	})

	t.Run("他人无法读取邮件", func(t *testing.T) {
		w, _ := env.do(t, http.MethodGet, fmt.Sprintf("/v1/mailboxes/%s/emails", created.ID), eveToken, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("所有者的邮箱不受影响", func(t *testing.T) {
		w, resp := env.do(t, http.MethodGet, "/v1/mailboxes", aliceToken, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var list []mailboxResponse
		decodeData(t, resp, &list)
		assert.Len(t, list, 1)
	})
}

func TestEmailEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "alice", "password123")

	w, resp := env.do(t, http.MethodPost, "/v1/mailboxes", token, gin.H{
		"name": "alice-box",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created mailboxResponse
	decodeData(t, resp, &created)

	// 通过投递服务写入两封邮件
	deliver := func(subject string) *domain.Email {
		email, err := env.emails.Deliver(&service.IncomingEmail{
			To:      created.Address,
			From:    "sender@example.com",
			Subject: subject,
			Text:    "body of " + subject,
		})
		require.NoError(t, err)
		return email
	}
	first := deliver("first")
	second := deliver("second")

	t.Run("列出邮件", func(t *testing.T) {
		w, resp := env.do(t, http.MethodGet, fmt.Sprintf("/v1/mailboxes/%s/emails", created.ID), token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var list []emailResponse
		decodeData(t, resp, &list)
		require.Len(t, list, 2)
		assert.Equal(t, "sender@example.com", list[0].From)
	})

	t.Run("按ID集合删除邮件", func(t *testing.T) {
		w, resp := env.do(t, http.MethodDelete, fmt.Sprintf("/v1/mailboxes/%s/emails", created.ID), token, gin.H{
			"ids": []string{first.ID},
		})
		require.Equal(t, http.StatusOK, w.Code)

		var out deleteCountResponse
		decodeData(t, resp, &out)
		assert.Equal(t, 1, out.Deleted)

		w, resp = env.do(t, http.MethodGet, fmt.Sprintf("/v1/mailboxes/%s/emails", created.ID), token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var list []emailResponse
		decodeData(t, resp, &list)
		require.Len(t, list, 1)
		assert.Equal(t, second.ID, list[0].ID)
	})

	t.Run("不属于该邮箱的邮件ID被忽略", func(t *testing.T) {
		// 另一个邮箱的邮件
		w, resp := env.do(t, http.MethodPost, "/v1/mailboxes", token, gin.H{"name": "other-box"})
		require.Equal(t, http.StatusCreated, w.Code)
		var other mailboxResponse
		decodeData(t, resp, &other)

		foreign, err := env.emails.Deliver(&service.IncomingEmail{
			To:      other.Address,
			From:    "sender@example.com",
			Subject: "foreign",
		})
		require.NoError(t, err)

		w, resp = env.do(t, http.MethodDelete, fmt.Sprintf("/v1/mailboxes/%s/emails", created.ID), token, gin.H{
			"ids": []string{foreign.ID},
		})
		require.Equal(t, http.StatusOK, w.Code)

		var out deleteCountResponse
		decodeData(t, resp, &out)
		assert.Equal(t, 0, out.Deleted)

		// 外部邮箱的邮件仍然存在
		emails, err := env.mailboxes.ListEmails(other.ID)
		require.NoError(t, err)
		assert.Len(t, emails, 1)
	})
}

func TestPublicDomains(t *testing.T) {
	env := newTestEnv(t)

	w, resp := env.do(t, http.MethodGet, "/v1/public/domains", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		Domains []string `json:"domains"`
	}
	decodeData(t, resp, &out)
	assert.Equal(t, []string{"vmail.dev"}, out.Domains)
}
