package application

import (
	"context"
	"log/slog"
	"testing"

	"github.com/odinlabs/claimportal/internal/claim/domain"
	"github.com/shopspring/decimal"
)

type mapSnapshot map[string]string

func (m mapSnapshot) Balance(address string) (decimal.Decimal, bool) {
	raw, ok := m[address]
	if !ok {
		return decimal.Zero, false
	}
	return decimal.RequireFromString(raw), true
}

func TestSnapshotCompare(t *testing.T) {
	repo := newFakeAccountRepo()

	locked := &domain.ClaimAccount{
		AccountID:     "acct-1",
		WalletAddress: "addr-1",
		BalanceLocked: true,
		LockedSum:     decimal.NewFromInt(5000),
	}
	_ = repo.Save(context.Background(), locked)

	comparer := NewSnapshotComparer(repo, mapSnapshot{"addr-1": "4000"}, 100, slog.Default())
	updated, err := comparer.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error: %v", err)
	}
	if updated != 1 {
		t.Errorf("updated = %d, want 1", updated)
	}

	stored, _ := repo.Get(context.Background(), "acct-1")
	if !stored.LockedSumDiff.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("locked_sum_diff = %s, want 1000", stored.LockedSumDiff)
	}
	// 锁定金额本身永不改写
	if !stored.LockedSum.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("locked_sum = %s, must stay 5000", stored.LockedSum)
	}
}

func TestSnapshotCompareMissingAddressMeansZero(t *testing.T) {
	repo := newFakeAccountRepo()

	locked := &domain.ClaimAccount{
		AccountID:     "acct-1",
		WalletAddress: "unknown-addr",
		BalanceLocked: true,
		LockedSum:     decimal.NewFromInt(300),
	}
	_ = repo.Save(context.Background(), locked)

	comparer := NewSnapshotComparer(repo, mapSnapshot{}, 100, slog.Default())
	if _, err := comparer.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error: %v", err)
	}

	stored, _ := repo.Get(context.Background(), "acct-1")
	if !stored.LockedSumDiff.Equal(decimal.NewFromInt(300)) {
		t.Errorf("locked_sum_diff = %s, want full locked sum", stored.LockedSumDiff)
	}
}

func TestSnapshotCompareNoChangeSkipsWrite(t *testing.T) {
	repo := newFakeAccountRepo()

	locked := &domain.ClaimAccount{
		AccountID:     "acct-1",
		WalletAddress: "addr-1",
		BalanceLocked: true,
		LockedSum:     decimal.NewFromInt(5000),
	}
	_ = repo.Save(context.Background(), locked)

	comparer := NewSnapshotComparer(repo, mapSnapshot{"addr-1": "5000"}, 100, slog.Default())
	updated, err := comparer.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error: %v", err)
	}
	if updated != 0 {
		t.Errorf("updated = %d, want 0 when diff is unchanged", updated)
	}
}
