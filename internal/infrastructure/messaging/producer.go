// Package messaging 提供消息队列实现
package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"citementor-api/internal/domain/entity"
)

var tracer = otel.Tracer("messaging")

// Producer 消息生产者
type Producer struct {
	client *redis.Client
	maxLen int64
}

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = 100000
	}
	return &Producer{
		client: client,
		maxLen: maxLen,
	}
}

// Publish 发布消息到指定流
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	result, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()

	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// RoyaltyEventsMessage 一次问答产生的全部版税条目
type RoyaltyEventsMessage struct {
	QueryID     string             `json:"query_id"`
	Genre       string             `json:"genre"`
	TotalMicros int64              `json:"total_micros"`
	Items       []RoyaltyEventItem `json:"items"`
}

// RoyaltyEventItem 单个段落的版税条目
type RoyaltyEventItem struct {
	PassageID  string `json:"passage_id"`
	BookTitle  string `json:"book_title"`
	Author     string `json:"author"`
	Rank       int    `json:"rank"`
	Tokens     int    `json:"tokens"`
	CostMicros int64  `json:"cost_micros"`
}

// PublishRoyaltyEvents 发布版税结算事件
func (p *Producer) PublishRoyaltyEvents(ctx context.Context, events *RoyaltyEventsMessage) (string, error) {
	msg, err := NewMessage(events.QueryID, "royalty_settle", events.QueryID, events.Genre, events)
	if err != nil {
		return "", err
	}

	msg.SetMetadata("item_count", fmt.Sprintf("%d", len(events.Items)))
	return p.Publish(ctx, StreamRoyalty, msg)
}

// RoyaltyPublisherAdapter 将 Producer 适配为应用层的发布 port
type RoyaltyPublisherAdapter struct {
	producer *Producer
}

func NewRoyaltyPublisherAdapter(producer *Producer) *RoyaltyPublisherAdapter {
	return &RoyaltyPublisherAdapter{producer: producer}
}

// PublishRoyalty 将问答结果转换为版税事件并发布
func (a *RoyaltyPublisherAdapter) PublishRoyalty(ctx context.Context, result *entity.QueryResult) error {
	if a == nil || a.producer == nil || result == nil {
		return nil
	}

	events := &RoyaltyEventsMessage{
		QueryID:     result.QueryID,
		Genre:       result.Genre.String(),
		TotalMicros: int64(result.TotalMicros),
		Items:       make([]RoyaltyEventItem, 0, len(result.Citations)),
	}
	for _, c := range result.Citations {
		events.Items = append(events.Items, RoyaltyEventItem{
			PassageID:  c.PassageID,
			BookTitle:  c.BookTitle,
			Author:     c.Author,
			Rank:       c.Rank,
			Tokens:     c.Tokens,
			CostMicros: int64(c.CostMicros),
		})
	}

	_, err := a.producer.PublishRoyaltyEvents(ctx, events)
	return err
}
