package models

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

const EmbeddingDims = 768

// ConversationLog is one journaled exchange: a user question or a reply the
// worker sent to the room.
type ConversationLog struct {
	ID        string           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SessionID string           `gorm:"column:session_id;type:uuid;index" json:"session_id"`
	Role      string           `gorm:"column:role;type:text" json:"role"` // "user" | "assistant"
	Kind      string           `gorm:"column:kind;type:text" json:"kind"` // message type, ex: structured_answer
	Content   string           `gorm:"column:content;type:text" json:"content"`
	Embedding *pgvector.Vector `gorm:"column:embedding;type:vector(768)" json:"-"`
	Timestamp time.Time        `gorm:"column:timestamp;type:timestamptz;index" json:"timestamp"`
	Metadata  datatypes.JSON   `gorm:"column:metadata;type:jsonb" json:"metadata"`
}

func (ConversationLog) TableName() string { return "conversation_logs" }
