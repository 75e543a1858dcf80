package httptransport

import (
	"github.com/gin-gonic/gin"
)

// PublicHandler 处理无需认证的公开请求
type PublicHandler struct {
	domains []string
}

// NewPublicHandler 创建公开接口处理器
func NewPublicHandler(domains []string) *PublicHandler {
	return &PublicHandler{
		domains: domains,
	}
}

// GetAvailableDomains 返回可用于创建邮箱的域名列表。
// 列表第一项是新邮箱使用的域名。
func (h *PublicHandler) GetAvailableDomains(c *gin.Context) {
	Success(c, gin.H{
		"domains": h.domains,
	})
}
