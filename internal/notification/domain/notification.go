// Package domain 通知领域层：收件人、偏好与发送通道接口
package domain

import (
	"context"

	"gorm.io/gorm"
)

// Recipient 通知收件人，由调用方从自身聚合中摘取
type Recipient struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	// 国际区号 + 手机号，未验证的手机号不发送短信
	CountryCode   string `json:"country_code"`
	Phone         string `json:"phone"`
	PhoneVerified bool   `json:"phone_verified"`
}

// Message 一次通知的全部内容。SMS 为空时不走短信通道。
type Message struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	SMS     string `json:"sms"`
}

// Preference 账户通知偏好，缺省记录视为全部开启
type Preference struct {
	gorm.Model
	AccountID string `gorm:"column:account_id;type:varchar(64);uniqueIndex;not null" json:"account_id"`
	// 申领相关邮件
	EmailClaim bool `gorm:"column:email_claim;default:true" json:"email_claim"`
	// 申领相关短信
	SMSClaim bool `gorm:"column:sms_claim;default:true" json:"sms_claim"`
}

// TableName 表名
func (Preference) TableName() string {
	return "notification_preferences"
}

// PreferenceRepository 通知偏好仓储接口
type PreferenceRepository interface {
	Get(ctx context.Context, accountID string) (*Preference, error)
	Save(ctx context.Context, pref *Preference) error
}

// EmailSender 邮件发送通道
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMSSender 短信发送通道
type SMSSender interface {
	Send(ctx context.Context, phone, text string) error
}
