// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"
	"time"

	"citementor-api/internal/domain/entity"
)

type RoyaltyEventRepository struct {
	client *Client
}

func NewRoyaltyEventRepository(client *Client) *RoyaltyEventRepository {
	return &RoyaltyEventRepository{client: client}
}

// CreateBatch 批量写入一次问答产生的版税事件
func (r *RoyaltyEventRepository) CreateBatch(ctx context.Context, events []*entity.RoyaltyEvent) error {
	ctx, span := tracer.Start(ctx, "postgres.RoyaltyEventRepository.CreateBatch")
	defer span.End()

	if len(events) == 0 {
		return nil
	}

	db := getDB(ctx, r.client.db)
	if err := db.CreateInBatches(events, 100).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create royalty events: %w", err)
	}
	return nil
}

type genreSum struct {
	Genre     string
	TotalCost int64
}

// SumByGenre 统计时间区间内各书架的版税总额（微美元）
func (r *RoyaltyEventRepository) SumByGenre(ctx context.Context, startInclusive, endExclusive time.Time) (map[string]int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.RoyaltyEventRepository.SumByGenre")
	defer span.End()

	db := getDB(ctx, r.client.db)

	var rows []genreSum
	if err := db.Model(&entity.RoyaltyEvent{}).
		Where("created_at >= ? AND created_at < ?", startInclusive, endExclusive).
		Select("genre, COALESCE(SUM(cost_micros),0) AS total_cost").
		Group("genre").
		Scan(&rows).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to sum royalty events: %w", err)
	}

	sums := make(map[string]int64, len(rows))
	for _, row := range rows {
		sums[row.Genre] = row.TotalCost
	}
	return sums, nil
}
