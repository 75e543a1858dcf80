package httptransport

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/davidwuwu001/vmail/internal/auth"
	"github.com/davidwuwu001/vmail/internal/domain"
	"github.com/davidwuwu001/vmail/internal/monitoring"
	"github.com/davidwuwu001/vmail/internal/storage"
)

// AuthHandler 处理认证相关的 HTTP 请求
type AuthHandler struct {
	authService *auth.Service
	tokens      *auth.TokenManager
	metrics     *monitoring.Metrics
	log         *zap.Logger
}

// NewAuthHandler 创建认证处理器。metrics 可为 nil。
func NewAuthHandler(authService *auth.Service, tokens *auth.TokenManager, metrics *monitoring.Metrics, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{
		authService: authService,
		tokens:      tokens,
		metrics:     metrics,
		log:         log,
	}
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
	}
}

// Register 处理用户注册
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	user, err := h.authService.Register(req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUsernameInvalid),
			errors.Is(err, auth.ErrPasswordInvalid),
			errors.Is(err, auth.ErrPasswordTooLong):
			BadRequest(c, GetErrorMessage(err))
		case errors.Is(err, auth.ErrUsernameExists):
			Conflict(c, GetErrorMessage(err))
		default:
			h.log.Error("failed to register user", zap.Error(err))
			InternalError(c, MsgRegisterFailed)
		}
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.log.Error("failed to issue token", zap.Error(err))
		InternalError(c, MsgTokenIssueFailed)
		return
	}

	if h.metrics != nil {
		h.metrics.UsersRegistered.Inc()
	}
	h.log.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("username", user.Username),
	)

	Created(c, authResponse{
		User:  toUserResponse(user),
		Token: token,
	})
}

// Login 处理用户登录
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	user, err := h.authService.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			Unauthorized(c, GetErrorMessage(err))
			return
		}
		h.log.Error("failed to login user", zap.Error(err))
		InternalError(c, MsgLoginFailed)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.log.Error("failed to issue token", zap.Error(err))
		InternalError(c, MsgTokenIssueFailed)
		return
	}

	Success(c, authResponse{
		User:  toUserResponse(user),
		Token: token,
	})
}

// Me 返回当前登录用户信息
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetString("userID")

	user, err := h.authService.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			NotFound(c, MsgUserNotFound)
			return
		}
		h.log.Error("failed to get user", zap.String("user_id", userID), zap.Error(err))
		InternalError(c, MsgUserGetFailed)
		return
	}

	Success(c, toUserResponse(user))
}
