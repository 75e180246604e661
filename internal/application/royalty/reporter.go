package royalty

import (
	"context"
	"time"

	"citementor-api/internal/domain/repository"
	"citementor-api/pkg/logger"
	"citementor-api/pkg/metrics"
)

const defaultReportWindow = 24 * time.Hour

// Reporter 周期汇总落库的版税，按书架输出总额
type Reporter struct {
	repo   repository.RoyaltyEventRepository
	window time.Duration
}

func NewReporter(repo repository.RoyaltyEventRepository, window time.Duration) *Reporter {
	if window <= 0 {
		window = defaultReportWindow
	}
	return &Reporter{
		repo:   repo,
		window: window,
	}
}

// Snapshot 返回最近窗口内各书架的版税总额（微美元）
func (r *Reporter) Snapshot(ctx context.Context) (map[string]int64, error) {
	now := time.Now()
	return r.repo.SumByGenre(ctx, now.Add(-r.window), now)
}

// Run 周期输出汇总并更新指标，直到 ctx 取消
func (r *Reporter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.report(ctx)
		}
	}
}

func (r *Reporter) report(ctx context.Context) {
	sums, err := r.Snapshot(ctx)
	if err != nil {
		logger.Warn(ctx, "版税汇总查询失败", "error", err.Error())
		return
	}
	for genre, micros := range sums {
		metrics.RoyaltySettledMicros.WithLabelValues(genre).Set(float64(micros))
		logger.Info(ctx, "版税结算汇总",
			"genre", genre,
			"window", r.window.String(),
			"total_micros", micros,
		)
	}
}
