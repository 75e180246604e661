// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"time"

	"citementor-api/internal/domain/entity"
)

type RoyaltyEventRepository interface {
	CreateBatch(ctx context.Context, events []*entity.RoyaltyEvent) error
	// SumByGenre 统计时间区间内各书架的版税总额（微美元）
	SumByGenre(ctx context.Context, startInclusive, endExclusive time.Time) (map[string]int64, error)
}
