package jobs

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Job kinds handled by the external worker fleet.
const (
	KindCommunityJoined = "community.joined"
	KindAnalyticsEvent  = "analytics.event"
)

// Job is an outbox row picked up by the async worker. Delivery retries are
// owned by the worker, not by this service.
type Job struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	Kind      string            `gorm:"column:kind;not null;index" json:"kind"`
	Args      datatypes.JSONMap `gorm:"column:args;type:jsonb;not null;default:'{}'" json:"args"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Job) TableName() string { return "jobs" }

// Queue enqueues fire-and-forget work. Callers must only enqueue after the
// triggering writes have committed.
type Queue interface {
	Enqueue(ctx context.Context, kind string, args datatypes.JSONMap) error
}

type outboxQueue struct {
	db    *gorm.DB
	genID *snowflake.Node
}

// NewOutboxQueue writes jobs into the jobs table for the worker to drain.
func NewOutboxQueue(db *gorm.DB, genID *snowflake.Node) Queue {
	return &outboxQueue{db: db, genID: genID}
}

func (q *outboxQueue) Enqueue(ctx context.Context, kind string, args datatypes.JSONMap) error {
	if args == nil {
		args = datatypes.JSONMap{}
	}
	job := &Job{
		ID:   q.genID.Generate(),
		Kind: kind,
		Args: args,
	}
	return q.db.WithContext(ctx).Create(job).Error
}

type noopQueue struct{}

func NewNoopQueue() Queue {
	return &noopQueue{}
}

func (q *noopQueue) Enqueue(ctx context.Context, kind string, args datatypes.JSONMap) error {
	_ = ctx
	_ = kind
	_ = args
	return nil
}
