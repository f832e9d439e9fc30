package queue

import (
	"time"

	"github.com/gofrs/uuid"

	"github.com/clovelane/order-service/internal/order"
)

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobSent       JobStatus = "sent"
	JobFailed     JobStatus = "failed"
)

const (
	// A job is abandoned after this many failed attempts.
	RetryCeiling = 3
	// How many due jobs one sweep claims at most.
	SweepBatchSize = 10
	// Cadence of the due-job sweep.
	SweepInterval = 30 * time.Second
)

// Job is one durable scheduled notification. It references its order by
// number only: the order row may lag the job under transactional ordering.
type Job struct {
	ID            uuid.UUID              `json:"id" db:"id"`
	OrderNumber   string                 `json:"order_number" db:"order_number"`
	Kind          order.NotificationKind `json:"kind" db:"kind"`
	Recipient     string                 `json:"recipient" db:"recipient"`
	Status        JobStatus              `json:"status" db:"status"`
	Attempts      int                    `json:"attempts" db:"attempts"`
	ScheduledAt   time.Time              `json:"scheduled_at" db:"scheduled_at"`
	LastAttemptAt *time.Time             `json:"last_attempt_at,omitempty" db:"last_attempt_at"`
	LastError     *string                `json:"last_error,omitempty" db:"last_error"`
	Metadata      []byte                 `json:"metadata,omitempty" db:"metadata"`
	CreatedAt     time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at" db:"updated_at"`
}

// Metadata is the free-form payload cached at schedule time. Confirmation
// retries carry the item list here in case the order_items insert raced
// the original send.
type Metadata struct {
	Items []order.OrderItem `json:"items,omitempty"`
}
