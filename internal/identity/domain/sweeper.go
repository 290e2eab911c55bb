package domain

import (
	"errors"
	"time"
)

var (
	// ErrKycAccepted 身份已通过核验，不再受理新提交
	ErrKycAccepted = errors.New("identity already accepted")
	// ErrKycInFlight 上一次核验仍在处理中
	ErrKycInFlight = errors.New("identity check still in flight")
	// ErrKycMaxDeclines 被拒次数达到上限，转人工处理
	ErrKycMaxDeclines = errors.New("maximum declined checks reached")
	// ErrKycMaxInvalid 无效提交次数达到上限，转人工处理
	ErrKycMaxInvalid = errors.New("maximum invalid checks reached")
	// ErrKycRetryWait 距上次无效提交的冷却期未满
	ErrKycRetryWait = errors.New("retry wait period not elapsed")
)

// Sweeper 提交前闸门。每次新提交都会产生服务商费用，
// 闸门在调用服务商之前把注定无意义的提交拦下来。
type Sweeper struct {
	maxDeclined int
	maxInvalid  int
	retryWait   time.Duration
	now         func() time.Time
}

// NewSweeper 创建提交闸门
func NewSweeper(maxDeclined, maxInvalid int, retryWait time.Duration) *Sweeper {
	return &Sweeper{
		maxDeclined: maxDeclined,
		maxInvalid:  maxInvalid,
		retryWait:   retryWait,
		now:         time.Now,
	}
}

// Admit 依据账户的历史核验记录判定是否受理新提交。
// history 按提交时间从新到旧排序。
func (s *Sweeper) Admit(history []*IdentityCheck) error {
	if len(history) == 0 {
		return nil
	}

	declined := 0
	invalid := 0
	for _, check := range history {
		switch check.Status {
		case CheckStatusAccepted:
			return ErrKycAccepted
		case CheckStatusDeclined:
			declined++
		case CheckStatusInvalid:
			invalid++
		}
	}

	if history[0].Status == CheckStatusPending {
		return ErrKycInFlight
	}
	if declined >= s.maxDeclined {
		return ErrKycMaxDeclines
	}
	if invalid >= s.maxInvalid {
		return ErrKycMaxInvalid
	}
	// 冷却期从最近一次无效提交起算，不论其后是否还有其他记录
	for _, check := range history {
		if check.Status != CheckStatusInvalid {
			continue
		}
		if s.now().Sub(check.CreatedAt) < s.retryWait {
			return ErrKycRetryWait
		}
		break
	}
	return nil
}
