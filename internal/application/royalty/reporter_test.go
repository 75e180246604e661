package royalty

import (
	"context"
	"errors"
	"testing"
	"time"

	"citementor-api/internal/domain/entity"
)

type stubRoyaltyRepo struct {
	sums map[string]int64
	err  error

	gotStart time.Time
	gotEnd   time.Time
}

func (s *stubRoyaltyRepo) CreateBatch(context.Context, []*entity.RoyaltyEvent) error { return nil }

func (s *stubRoyaltyRepo) SumByGenre(_ context.Context, start, end time.Time) (map[string]int64, error) {
	s.gotStart = start
	s.gotEnd = end
	return s.sums, s.err
}

func TestReporterSnapshotWindow(t *testing.T) {
	repo := &stubRoyaltyRepo{sums: map[string]int64{"wealth": 1200, "philosophy": 300}}
	r := NewReporter(repo, 6*time.Hour)

	sums, err := r.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if sums["wealth"] != 1200 || sums["philosophy"] != 300 {
		t.Errorf("汇总结果 = %v", sums)
	}

	window := repo.gotEnd.Sub(repo.gotStart)
	if window != 6*time.Hour {
		t.Errorf("统计窗口 = %v, want 6h", window)
	}
}

func TestReporterSnapshotError(t *testing.T) {
	repo := &stubRoyaltyRepo{err: errors.New("db down")}
	r := NewReporter(repo, 0)

	if _, err := r.Snapshot(context.Background()); err == nil {
		t.Fatal("查询失败应返回错误")
	}
	if window := repo.gotEnd.Sub(repo.gotStart); window != defaultReportWindow {
		t.Errorf("默认统计窗口 = %v, want %v", window, defaultReportWindow)
	}
}
