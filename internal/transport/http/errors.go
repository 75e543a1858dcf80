package httptransport

import (
	"github.com/davidwuwu001/vmail/internal/auth"
	"github.com/davidwuwu001/vmail/internal/service"
)

// 错误消息映射表（业务错误 -> 中文消息）
var errorMessages = map[error]string{
	// 认证错误
	auth.ErrUsernameInvalid:    "用户名长度须为3-20个字符",
	auth.ErrPasswordInvalid:    "密码长度至少6个字符",
	auth.ErrPasswordTooLong:    "密码长度不能超过72个字符",
	auth.ErrUsernameExists:     "该用户名已被注册",
	auth.ErrInvalidCredentials: "用户名或密码错误",

	// 邮箱错误
	service.ErrLocalPartInvalid: "邮箱名只能包含字母、数字、点、下划线和连字符",
	service.ErrAddressTaken:     "该邮箱地址已被占用",
	service.ErrMailboxNotFound:  "邮箱不存在",
}

// GetErrorMessage 获取错误的中文消息
func GetErrorMessage(err error) string {
	if msg, ok := errorMessages[err]; ok {
		return msg
	}
	return err.Error()
}

// 通用错误消息
const (
	MsgInvalidRequest = "请求参数格式错误"

	MsgRegisterFailed      = "注册失败，请稍后重试"
	MsgLoginFailed         = "登录失败，请稍后重试"
	MsgTokenIssueFailed    = "生成令牌失败"
	MsgUserNotFound        = "用户不存在"
	MsgUserGetFailed       = "获取用户信息失败"
	MsgMailboxCreateFailed = "创建邮箱失败"
	MsgMailboxListFailed   = "获取邮箱列表失败"
	MsgMailboxDeleteFailed = "删除邮箱失败"
	MsgMailboxNotFound     = "邮箱不存在"
	MsgEmailListFailed     = "获取邮件列表失败"
	MsgEmailDeleteFailed   = "删除邮件失败"

	MsgInternalError = "服务器内部错误，请稍后重试"
)
