package domain

import "time"

// Email 表示投递到某个邮箱的一封邮件。
//
// MessageTo 是投递时收件地址的冗余副本，入站路由先按地址匹配，
// 找到邮箱后才写入 MailboxID。
type Email struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	MailboxID   string    `json:"mailboxId" gorm:"type:varchar(36);index;not null"`
	MessageTo   string    `json:"messageTo" gorm:"type:varchar(255);index"`
	MessageFrom string    `json:"messageFrom" gorm:"type:varchar(255)"`
	FromName    string    `json:"fromName" gorm:"type:varchar(255)"`
	Subject     string    `json:"subject" gorm:"type:varchar(500)"`
	Text        string    `json:"text" gorm:"type:text"`
	HTML        string    `json:"html" gorm:"type:text"`
	CreatedAt   time.Time `json:"createdAt"`
}
