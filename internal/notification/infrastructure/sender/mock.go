package sender

import (
	"context"
	"sync"
)

// MockMessage 测试环境记录的一条发送
type MockMessage struct {
	Channel string
	To      string
	Subject string
	Body    string
}

// MockSender 测试用发送器，只做记录不外发。
// Email() 与 SMS() 分别提供邮件和短信通道视图。
type MockSender struct {
	mu   sync.Mutex
	sent []MockMessage
	// Err 非空时每次发送都返回该错误
	Err error
}

// NewMockSender 创建测试发送器
func NewMockSender() *MockSender {
	return &MockSender{}
}

func (m *MockSender) record(msg MockMessage) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	return nil
}

// Sent 已记录的发送
func (m *MockSender) Sent() []MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

// Email 邮件通道视图
func (m *MockSender) Email() *MockEmailChannel {
	return &MockEmailChannel{m}
}

// SMS 短信通道视图
func (m *MockSender) SMS() *MockSMSChannel {
	return &MockSMSChannel{m}
}

// MockEmailChannel 测试邮件通道
type MockEmailChannel struct {
	sender *MockSender
}

// Send 记录一封邮件
func (c *MockEmailChannel) Send(ctx context.Context, to, subject, body string) error {
	return c.sender.record(MockMessage{Channel: "email", To: to, Subject: subject, Body: body})
}

// MockSMSChannel 测试短信通道
type MockSMSChannel struct {
	sender *MockSender
}

// Send 记录一条短信
func (c *MockSMSChannel) Send(ctx context.Context, phone, text string) error {
	return c.sender.record(MockMessage{Channel: "sms", To: phone, Body: text})
}
