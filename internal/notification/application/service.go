// Package application 通知应用服务：按偏好分发邮件与短信
package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/odinlabs/claimportal/internal/notification/domain"
	"github.com/odinlabs/claimportal/pkg/mq"
	"gorm.io/gorm"
)

// 单次发送的超时时间
const dispatchTimeout = 30 * time.Second

// Service 通知应用服务。Notify 尽力而为：发送失败只记录日志，
// 绝不把错误回传给业务流程。
type Service struct {
	prefs    domain.PreferenceRepository
	email    domain.EmailSender
	sms      domain.SMSSender
	producer *mq.KafkaProducer
	topic    string
	logger   *slog.Logger
}

// NewService 创建通知应用服务。producer 可为 nil（例如单测环境）。
func NewService(
	prefs domain.PreferenceRepository,
	email domain.EmailSender,
	sms domain.SMSSender,
	producer *mq.KafkaProducer,
	topic string,
	logger *slog.Logger,
) *Service {
	return &Service{
		prefs:    prefs,
		email:    email,
		sms:      sms,
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

// notifyEvent 写入 Kafka 的通知事件，供下游审计与补发
type notifyEvent struct {
	AccountID string   `json:"account_id"`
	Subject   string   `json:"subject"`
	Channels  []string `json:"channels"`
	SentAt    int64    `json:"sent_at"`
}

// Notify 向收件人分发一条通知。调用方不等待发送结果，
// 入参上下文取消不影响已经开始的发送。
func (s *Service) Notify(ctx context.Context, recipient domain.Recipient, msg domain.Message) {
	go s.dispatch(context.WithoutCancel(ctx), recipient, msg)
}

func (s *Service) dispatch(ctx context.Context, recipient domain.Recipient, msg domain.Message) {
	ctx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()

	pref := s.preference(ctx, recipient.AccountID)
	var channels []string

	if pref.EmailClaim && recipient.Email != "" {
		if err := s.email.Send(ctx, recipient.Email, msg.Subject, msg.Body); err != nil {
			s.logger.Error("send email failed",
				"account_id", recipient.AccountID, "subject", msg.Subject, "error", err)
		} else {
			channels = append(channels, "email")
		}
	}

	if pref.SMSClaim && msg.SMS != "" && recipient.PhoneVerified && recipient.Phone != "" {
		phone := recipient.CountryCode + recipient.Phone
		if err := s.sms.Send(ctx, phone, msg.SMS); err != nil {
			s.logger.Error("send sms failed",
				"account_id", recipient.AccountID, "error", err)
		} else {
			channels = append(channels, "sms")
		}
	}

	if s.producer != nil && len(channels) > 0 {
		event := notifyEvent{
			AccountID: recipient.AccountID,
			Subject:   msg.Subject,
			Channels:  channels,
			SentAt:    time.Now().Unix(),
		}
		if err := s.producer.SendMessage(ctx, s.topic, recipient.AccountID, event); err != nil {
			s.logger.Error("publish notify event failed",
				"account_id", recipient.AccountID, "error", err)
		}
	}
}

// preference 读取偏好，缺省记录或读取失败均按全部开启处理
func (s *Service) preference(ctx context.Context, accountID string) domain.Preference {
	pref, err := s.prefs.Get(ctx, accountID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("load notification preference failed",
				"account_id", accountID, "error", err)
		}
		return domain.Preference{AccountID: accountID, EmailClaim: true, SMSClaim: true}
	}
	return *pref
}

// UpdatePreference 更新账户通知偏好
func (s *Service) UpdatePreference(ctx context.Context, accountID string, emailClaim, smsClaim bool) error {
	pref, err := s.prefs.Get(ctx, accountID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		pref = &domain.Preference{AccountID: accountID}
	}
	pref.EmailClaim = emailClaim
	pref.SMSClaim = smsClaim
	return s.prefs.Save(ctx, pref)
}
