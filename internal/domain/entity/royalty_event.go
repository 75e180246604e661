package entity

import "time"

// RoyaltyEvent 一次问答中对单个段落的版税计费记录，用于落库审计
type RoyaltyEvent struct {
	ID         string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	QueryID    string    `json:"query_id" gorm:"type:uuid;index;not null"`
	Genre      string    `json:"genre" gorm:"type:varchar(32);index;not null"`
	PassageID  string    `json:"passage_id" gorm:"type:varchar(128);not null"`
	BookTitle  string    `json:"book_title" gorm:"type:varchar(256);not null"`
	Author     string    `json:"author" gorm:"type:varchar(128);not null"`
	Rank       int       `json:"rank" gorm:"not null;default:0"`
	Tokens     int       `json:"tokens" gorm:"not null;default:0"`
	CostMicros int64     `json:"cost_micros" gorm:"not null;default:0"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (RoyaltyEvent) TableName() string {
	return "royalty_events"
}
