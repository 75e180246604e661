// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"fmt"

	milvusentity "github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// CollectionBookPassages 书籍段落集合
	CollectionBookPassages = "book_passages"
)

// BookPassagesSchema 书籍段落 Collection Schema
func BookPassagesSchema(dimension int) *milvusentity.Schema {
	return &milvusentity.Schema{
		CollectionName: CollectionBookPassages,
		Description:    "Book passages for attributed semantic search",
		Fields: []*milvusentity.Field{
			{
				Name:       "id",
				DataType:   milvusentity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "128",
				},
			},
			{
				Name:     "vector",
				DataType: milvusentity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", dimension),
				},
			},
			{
				Name:     "genre",
				DataType: milvusentity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "32",
				},
			},
			{
				Name:     "book_id",
				DataType: milvusentity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "128",
				},
			},
			{
				Name:     "book_title",
				DataType: milvusentity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "256",
				},
			},
			{
				Name:     "author",
				DataType: milvusentity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "128",
				},
			},
			{
				Name:     "position",
				DataType: milvusentity.FieldTypeInt64,
			},
			{
				Name:     "text_content",
				DataType: milvusentity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "65535",
				},
			},
		},
	}
}

// BookPassage 书籍段落数据结构
type BookPassage struct {
	ID          string    `json:"id"`
	Vector      []float32 `json:"vector"`
	Genre       string    `json:"genre"`
	BookID      string    `json:"book_id"`
	BookTitle   string    `json:"book_title"`
	Author      string    `json:"author"`
	Position    int64     `json:"position"`
	TextContent string    `json:"text_content"`
}

// PartitionName 生成书架分区名称
func PartitionName(genre string) string {
	return "genre_" + genre
}
