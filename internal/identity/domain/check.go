// Package domain 身份核验领域层：核验记录、提交前闸门与回调解析
package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"gorm.io/gorm"
)

// CheckStatus 单次核验的状态
type CheckStatus int8

const (
	CheckStatusPending  CheckStatus = 1 // 已提交，等待服务商回调
	CheckStatusInvalid  CheckStatus = 2 // 提交内容无效
	CheckStatusDeclined CheckStatus = 3 // 服务商拒绝
	CheckStatusAccepted CheckStatus = 4 // 服务商通过
)

func (s CheckStatus) String() string {
	switch s {
	case CheckStatusPending:
		return "pending"
	case CheckStatusInvalid:
		return "invalid"
	case CheckStatusDeclined:
		return "declined"
	case CheckStatusAccepted:
		return "accepted"
	default:
		return "unknown"
	}
}

var (
	// ErrCheckNotFound 核验记录不存在
	ErrCheckNotFound = errors.New("identity check not found")
	// ErrDuplicateIdentity 证件号已被其他账户使用
	ErrDuplicateIdentity = errors.New("identity document already used by another account")
)

// IdentityCheck 一次身份核验的记录。ReferenceID 是提交时生成并
// 传给服务商的唯一标识，回调凭它定位记录；ReferenceSecret 是
// 证件号的 SHA-256 摘要，用于跨账户查重且不落明文。
type IdentityCheck struct {
	gorm.Model
	AccountID   string `gorm:"column:account_id;type:varchar(64);index;not null" json:"account_id"`
	ReferenceID string `gorm:"column:reference_id;type:varchar(64);uniqueIndex;not null" json:"reference_id"`
	// 证件号摘要
	ReferenceSecret string      `gorm:"column:reference_secret;type:char(64);index;not null" json:"-"`
	DocumentType    string      `gorm:"column:document_type;type:varchar(32)" json:"document_type"`
	Country         string      `gorm:"column:country;type:varchar(8)" json:"country"`
	Status          CheckStatus `gorm:"column:status;type:tinyint;not null;default:1" json:"status"`
	// 失败原因，点分路径或服务商消息
	Remarks string `gorm:"column:remarks;type:varchar(512)" json:"remarks"`
	// 结果已通知用户，防止回调重放导致重复通知
	Notified bool `gorm:"column:notified;default:false" json:"notified"`
}

// TableName 表名
func (IdentityCheck) TableName() string {
	return "identity_checks"
}

// HashDocumentNumber 计算证件号摘要
func HashDocumentNumber(documentNumber string) string {
	sum := sha256.Sum256([]byte(documentNumber))
	return hex.EncodeToString(sum[:])
}

// CheckRepository 核验记录仓储接口。FindByAccount 按提交时间
// 从新到旧排序，闸门判定依赖该顺序。
type CheckRepository interface {
	Save(ctx context.Context, check *IdentityCheck) error
	FindByReference(ctx context.Context, referenceID string) (*IdentityCheck, error)
	FindByAccount(ctx context.Context, accountID string) ([]*IdentityCheck, error)
	FindBySecret(ctx context.Context, referenceSecret string) ([]*IdentityCheck, error)
}
