package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	SessionActive = "active"
	SessionEnded  = "ended"
)

// WorkerSession is one worker-to-room session. The copilot state itself is
// never persisted; this record only tracks who served which room and when.
type WorkerSession struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID string             `bson:"session_id" json:"session_id"` // uuid v4
	Room      string             `bson:"room" json:"room"`
	Identity  string             `bson:"identity" json:"identity"`
	Status    string             `bson:"status" json:"status"` // active|ended

	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	EndedAt   *time.Time `bson:"ended_at,omitempty" json:"ended_at,omitempty"`

	DurationSeconds int64 `bson:"duration_seconds" json:"duration_seconds"`
}
