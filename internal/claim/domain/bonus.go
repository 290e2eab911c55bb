package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProgramTerms 申领计划的固定条款，构造后不可变
type ProgramTerms struct {
	// 注册开放日
	RegistrationOpen time.Time
	// 锁定截止时间
	LockDeadline time.Time
	// 快照/上线日
	LaunchDate time.Time
	// 早鸟奖励系数
	EarlyBirdRate decimal.Decimal
	// 锁定奖励系数
	LockInRate decimal.Decimal
	// 申领兑换倍数
	ClaimFactor decimal.Decimal
	// 锁定总额上限
	MaxLockedSum decimal.Decimal
	// 快照差额阈值
	LockedDiffThreshold decimal.Decimal
	// 余额刷新时视为异常转出的差额
	BalanceRemovalThreshold decimal.Decimal
}

// BonusCalculator 按计划条款计算时间相关的奖励系数。
// 纯函数，除构造期的日期校验外没有任何错误路径。
type BonusCalculator struct {
	terms ProgramTerms
	now   func() time.Time
}

// NewBonusCalculator 创建奖励计算器
func NewBonusCalculator(terms ProgramTerms) *BonusCalculator {
	return &BonusCalculator{terms: terms, now: time.Now}
}

// EarlyBirdBonus 早鸟奖励系数：注册越早系数越高，
// 按注册日起始到上线日的天数占计划总天数的比例折算，保留 4 位小数。
func (c *BonusCalculator) EarlyBirdBonus(createdAt time.Time) decimal.Decimal {
	registered := createdAt.UTC().Truncate(24 * time.Hour)

	programDays := daysBetween(c.terms.RegistrationOpen, c.terms.LaunchDate)
	if programDays <= 0 {
		return decimal.Zero
	}
	earlyDays := daysBetween(registered, c.terms.LaunchDate)
	if earlyDays < 0 {
		earlyDays = 0
	}

	bonus := c.terms.EarlyBirdRate.
		Mul(decimal.NewFromInt(earlyDays)).
		Div(decimal.NewFromInt(programDays))
	return bonus.Round(4)
}

// LockInBonus 锁定奖励系数：截止时间前锁定（或尚未锁定且未过截止）得固定系数，否则为零
func (c *BonusCalculator) LockInBonus(lockedAt *time.Time) decimal.Decimal {
	if lockedAt == nil {
		if c.now().Before(c.terms.LockDeadline) {
			return c.terms.LockInRate
		}
		return decimal.Zero
	}
	if lockedAt.Before(c.terms.LockDeadline) {
		return c.terms.LockInRate
	}
	return decimal.Zero
}

// TotalBonus 锁定金额对应的奖励总额，保留 8 位小数
func (c *BonusCalculator) TotalBonus(lockedSum decimal.Decimal, createdAt time.Time, lockedAt *time.Time) decimal.Decimal {
	early := lockedSum.Mul(c.EarlyBirdBonus(createdAt))
	locked := lockedSum.Mul(c.LockInBonus(lockedAt))
	return early.Add(locked).Round(8)
}

// ClaimBalance 锁定时一次性计算的申领余额：(锁定金额 + 奖励) × 兑换倍数
func (c *BonusCalculator) ClaimBalance(lockedSum decimal.Decimal, createdAt time.Time, lockedAt *time.Time) decimal.Decimal {
	return lockedSum.Add(c.TotalBonus(lockedSum, createdAt, lockedAt)).Mul(c.terms.ClaimFactor)
}

// Terms 返回计划条款
func (c *BonusCalculator) Terms() ProgramTerms {
	return c.terms
}

func daysBetween(from, to time.Time) int64 {
	return int64(to.Sub(from).Hours() / 24)
}
