package models

import (
	"time"

	"github.com/lib/pq"
)

// Snapshot is an archived hi-res capture with what vision derived from it.
type Snapshot struct {
	ID         string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SessionID  string `gorm:"column:session_id;type:uuid;index" json:"session_id"`
	Digest     string `gorm:"column:digest;type:text;index" json:"digest"`
	ObjectPath string `gorm:"column:object_path;type:text" json:"object_path"`
	SizeBytes  int    `gorm:"column:size_bytes;type:integer" json:"size_bytes"`

	Summary     string         `gorm:"column:summary;type:text" json:"summary"`
	KeyItems    pq.StringArray `gorm:"column:key_items;type:text[]" json:"key_items"`
	Suggestions pq.StringArray `gorm:"column:suggestions;type:text[]" json:"suggestions"`

	CapturedAt time.Time `gorm:"column:captured_at;type:timestamptz" json:"captured_at"`
}

func (Snapshot) TableName() string { return "snapshots" }
