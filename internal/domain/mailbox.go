package domain

import "time"

// Mailbox 表示用户持有的一次性邮箱实体。
//
// Address 全局唯一（不区分所属用户），由 LocalPart 和配置的域名拼接而成。
// ExpiresAt 为 nil 时表示永久邮箱，否则到期后由清理任务级联删除。
type Mailbox struct {
	ID        string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string     `json:"userId" gorm:"type:varchar(36);index;not null"`
	Address   string     `json:"address" gorm:"type:varchar(255);uniqueIndex"`
	LocalPart string     `json:"localPart" gorm:"type:varchar(255)"`
	Domain    string     `json:"domain" gorm:"type:varchar(100)"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty" gorm:"index"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Expired 判断邮箱在给定时间点是否已过期。
func (m *Mailbox) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && m.ExpiresAt.Before(now)
}
