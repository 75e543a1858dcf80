package httptransport

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/davidwuwu001/vmail/internal/domain"
	"github.com/davidwuwu001/vmail/internal/monitoring"
	"github.com/davidwuwu001/vmail/internal/service"
)

// MailboxHandler 处理邮箱和邮件相关的 HTTP 请求
type MailboxHandler struct {
	mailboxes *service.MailboxService
	metrics   *monitoring.Metrics
	log       *zap.Logger
}

// NewMailboxHandler 创建邮箱处理器。metrics 可为 nil。
func NewMailboxHandler(mailboxes *service.MailboxService, metrics *monitoring.Metrics, log *zap.Logger) *MailboxHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &MailboxHandler{
		mailboxes: mailboxes,
		metrics:   metrics,
		log:       log,
	}
}

type createMailboxRequest struct {
	Name        string `json:"name" binding:"required"`
	ExpiryHours int    `json:"expiryHours"`
}

type deleteEmailsRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

type mailboxResponse struct {
	ID        string     `json:"id"`
	Address   string     `json:"address"`
	LocalPart string     `json:"localPart"`
	Domain    string     `json:"domain"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

type emailResponse struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	FromName  string    `json:"fromName,omitempty"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Text      string    `json:"text,omitempty"`
	HTML      string    `json:"html,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type deleteCountResponse struct {
	Deleted int `json:"deleted"`
}

func toMailboxResponse(m *domain.Mailbox) mailboxResponse {
	return mailboxResponse{
		ID:        m.ID,
		Address:   m.Address,
		LocalPart: m.LocalPart,
		Domain:    m.Domain,
		ExpiresAt: m.ExpiresAt,
		CreatedAt: m.CreatedAt,
	}
}

func toEmailResponse(e *domain.Email) emailResponse {
	return emailResponse{
		ID:        e.ID,
		From:      e.MessageFrom,
		FromName:  e.FromName,
		To:        e.MessageTo,
		Subject:   e.Subject,
		Text:      e.Text,
		HTML:      e.HTML,
		CreatedAt: e.CreatedAt,
	}
}

// Create 创建新邮箱
func (h *MailboxHandler) Create(c *gin.Context) {
	var req createMailboxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	userID := c.GetString("userID")

	mailbox, err := h.mailboxes.Create(userID, req.Name, req.ExpiryHours)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLocalPartInvalid):
			BadRequest(c, GetErrorMessage(err))
		case errors.Is(err, service.ErrAddressTaken):
			Conflict(c, GetErrorMessage(err))
		default:
			h.log.Error("failed to create mailbox", zap.Error(err))
			InternalError(c, MsgMailboxCreateFailed)
		}
		return
	}

	if h.metrics != nil {
		h.metrics.MailboxesCreated.Inc()
	}
	h.log.Info("mailbox created",
		zap.String("mailbox_id", mailbox.ID),
		zap.String("address", mailbox.Address),
		zap.String("user_id", userID),
	)

	Created(c, toMailboxResponse(mailbox))
}

// List 返回当前用户的全部邮箱
func (h *MailboxHandler) List(c *gin.Context) {
	userID := c.GetString("userID")

	mailboxes, err := h.mailboxes.ListByUser(userID)
	if err != nil {
		h.log.Error("failed to list mailboxes", zap.String("user_id", userID), zap.Error(err))
		InternalError(c, MsgMailboxListFailed)
		return
	}

	out := make([]mailboxResponse, 0, len(mailboxes))
	for i := range mailboxes {
		out = append(out, toMailboxResponse(&mailboxes[i]))
	}
	Success(c, out)
}

// Delete 删除邮箱及其全部邮件
func (h *MailboxHandler) Delete(c *gin.Context) {
	mailbox, ok := h.authorize(c)
	if !ok {
		return
	}

	count, err := h.mailboxes.Delete(mailbox.ID)
	if err != nil {
		h.log.Error("failed to delete mailbox", zap.String("mailbox_id", mailbox.ID), zap.Error(err))
		InternalError(c, MsgMailboxDeleteFailed)
		return
	}

	if h.metrics != nil && count > 0 {
		h.metrics.MailboxesDeleted.Inc()
	}

	Success(c, deleteCountResponse{Deleted: count})
}

// ListEmails 返回邮箱内的全部邮件
func (h *MailboxHandler) ListEmails(c *gin.Context) {
	mailbox, ok := h.authorize(c)
	if !ok {
		return
	}

	emails, err := h.mailboxes.ListEmails(mailbox.ID)
	if err != nil {
		h.log.Error("failed to list emails", zap.String("mailbox_id", mailbox.ID), zap.Error(err))
		InternalError(c, MsgEmailListFailed)
		return
	}

	out := make([]emailResponse, 0, len(emails))
	for i := range emails {
		out = append(out, toEmailResponse(&emails[i]))
	}
	Success(c, out)
}

// DeleteEmails 按 ID 集合批量删除邮箱内的邮件
func (h *MailboxHandler) DeleteEmails(c *gin.Context) {
	mailbox, ok := h.authorize(c)
	if !ok {
		return
	}

	var req deleteEmailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	// 只允许删除该邮箱内的邮件
	emails, err := h.mailboxes.ListEmails(mailbox.ID)
	if err != nil {
		h.log.Error("failed to list emails", zap.String("mailbox_id", mailbox.ID), zap.Error(err))
		InternalError(c, MsgEmailDeleteFailed)
		return
	}
	owned := make(map[string]bool, len(emails))
	for i := range emails {
		owned[emails[i].ID] = true
	}
	ids := make([]string, 0, len(req.IDs))
	for _, id := range req.IDs {
		if owned[id] {
			ids = append(ids, id)
		}
	}

	count, err := h.mailboxes.DeleteEmails(ids)
	if err != nil {
		h.log.Error("failed to delete emails", zap.String("mailbox_id", mailbox.ID), zap.Error(err))
		InternalError(c, MsgEmailDeleteFailed)
		return
	}

	if h.metrics != nil {
		h.metrics.MessagesDeleted.Add(float64(count))
	}

	Success(c, deleteCountResponse{Deleted: count})
}

// authorize 校验当前用户对路径中邮箱的所有权。
// 邮箱不存在和不属于当前用户返回同样的 404。
func (h *MailboxHandler) authorize(c *gin.Context) (*domain.Mailbox, bool) {
	userID := c.GetString("userID")
	mailboxID := c.Param("id")

	mailbox, err := h.mailboxes.AuthorizeMailbox(userID, mailboxID)
	if err != nil {
		if errors.Is(err, service.ErrMailboxNotFound) {
			NotFound(c, MsgMailboxNotFound)
			return nil, false
		}
		h.log.Error("failed to authorize mailbox",
			zap.String("user_id", userID),
			zap.String("mailbox_id", mailboxID),
			zap.Error(err))
		InternalError(c, MsgInternalError)
		return nil, false
	}
	return mailbox, true
}
