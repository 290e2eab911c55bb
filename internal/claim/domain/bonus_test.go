package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testTerms() ProgramTerms {
	return ProgramTerms{
		RegistrationOpen:        time.Date(2018, 7, 27, 0, 0, 0, 0, time.UTC),
		LockDeadline:            time.Date(2018, 9, 14, 0, 0, 0, 0, time.UTC),
		LaunchDate:              time.Date(2018, 9, 21, 0, 0, 0, 0, time.UTC),
		EarlyBirdRate:           decimal.NewFromFloat(0.03),
		LockInRate:              decimal.NewFromFloat(0.07),
		ClaimFactor:             decimal.NewFromFloat(2.5),
		MaxLockedSum:            decimal.NewFromInt(150000),
		LockedDiffThreshold:     decimal.NewFromInt(1000),
		BalanceRemovalThreshold: decimal.NewFromInt(10000),
	}
}

func TestEarlyBirdBonus(t *testing.T) {
	calc := NewBonusCalculator(testTerms())

	tests := []struct {
		name      string
		createdAt time.Time
		want      string
	}{
		{
			name:      "registered on opening day gets full rate",
			createdAt: time.Date(2018, 7, 27, 0, 0, 0, 0, time.UTC),
			want:      "0.03",
		},
		{
			name:      "registered mid program gets prorated rate",
			createdAt: time.Date(2018, 8, 24, 10, 30, 0, 0, time.UTC),
			want:      "0.015", // 28 of 56 days remaining
		},
		{
			name:      "registered on launch day gets nothing",
			createdAt: time.Date(2018, 9, 21, 0, 0, 0, 0, time.UTC),
			want:      "0",
		},
		{
			name:      "registered after launch gets nothing",
			createdAt: time.Date(2018, 10, 1, 0, 0, 0, 0, time.UTC),
			want:      "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.EarlyBirdBonus(tt.createdAt)
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("EarlyBirdBonus() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestLockInBonus(t *testing.T) {
	terms := testTerms()
	calc := NewBonusCalculator(terms)

	before := terms.LockDeadline.Add(-time.Hour)
	after := terms.LockDeadline.Add(time.Hour)

	if got := calc.LockInBonus(&before); !got.Equal(terms.LockInRate) {
		t.Errorf("locked before deadline: got %s, want %s", got, terms.LockInRate)
	}
	if got := calc.LockInBonus(&after); !got.IsZero() {
		t.Errorf("locked after deadline: got %s, want 0", got)
	}

	// 尚未锁定时按当前时间判断
	calc.now = func() time.Time { return before }
	if got := calc.LockInBonus(nil); !got.Equal(terms.LockInRate) {
		t.Errorf("unlocked before deadline: got %s, want %s", got, terms.LockInRate)
	}
	calc.now = func() time.Time { return after }
	if got := calc.LockInBonus(nil); !got.IsZero() {
		t.Errorf("unlocked after deadline: got %s, want 0", got)
	}
}

func TestClaimBalance(t *testing.T) {
	// 构造总奖励恰为 5% 的条款：早鸟 2% + 锁定 3%
	terms := testTerms()
	terms.RegistrationOpen = time.Date(2018, 8, 1, 0, 0, 0, 0, time.UTC)
	terms.LaunchDate = time.Date(2018, 8, 31, 0, 0, 0, 0, time.UTC)
	terms.LockDeadline = time.Date(2018, 8, 25, 0, 0, 0, 0, time.UTC)
	terms.LockInRate = decimal.NewFromFloat(0.03)
	calc := NewBonusCalculator(terms)

	createdAt := time.Date(2018, 8, 11, 0, 0, 0, 0, time.UTC) // 20/30 天 => 0.02
	lockedAt := time.Date(2018, 8, 20, 0, 0, 0, 0, time.UTC)

	got := calc.ClaimBalance(decimal.NewFromInt(1000), createdAt, &lockedAt)
	want := decimal.NewFromInt(2625) // (1000 + 50) * 2.5
	if !got.Equal(want) {
		t.Errorf("ClaimBalance() = %s, want %s", got, want)
	}
}

func TestTotalBonusRounding(t *testing.T) {
	calc := NewBonusCalculator(testTerms())

	createdAt := time.Date(2018, 8, 2, 0, 0, 0, 0, time.UTC)
	lockedAt := time.Date(2018, 9, 1, 0, 0, 0, 0, time.UTC)

	got := calc.TotalBonus(decimal.RequireFromString("333.33333333"), createdAt, &lockedAt)
	if got.Exponent() < -8 {
		t.Errorf("TotalBonus() = %s, want at most 8 decimal places", got)
	}
	if !got.IsPositive() {
		t.Errorf("TotalBonus() = %s, want positive", got)
	}
}
