package models

import (
	"time"
)

// 消息角色。角色是显式存储的标签字段，而不是从对象类型推断。
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage 对话消息表，按线程追加的检查点日志
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey;column:id" json:"id"`
	ThreadID  string    `gorm:"column:thread_id;size:64;not null;index:idx_thread_seq,priority:1" json:"thread_id"`
	Seq       int64     `gorm:"column:seq;not null;index:idx_thread_seq,priority:2" json:"seq"`
	Role      string    `gorm:"column:role;size:20;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}

// IngestedDocument 已摄取文档记录（便于管理端查看上传历史）
type IngestedDocument struct {
	ID         uint      `gorm:"primaryKey;column:id" json:"id"`
	SourceFile string    `gorm:"column:source_file;size:255;not null;index" json:"source_file"`
	ChunkCount int       `gorm:"column:chunk_count;not null" json:"chunk_count"`
	StorageKey string    `gorm:"column:storage_key;size:500" json:"storage_key,omitempty"`
	CreatedAt  time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

func (IngestedDocument) TableName() string {
	return "ingested_documents"
}
