package queue

import (
	"context"
	"time"
)

// MessageInterface is a delivered job awaiting acknowledgement
type MessageInterface interface {
	Ack() error
	Nack(requeue bool) error
	GetJob() *Job
}

// JobQueue carries generate_week and lock_week jobs from the api and the
// cadence scheduler to the workers.
type JobQueue interface {
	// Enqueue publishes a job; NotBefore delays are honoured by the consumer
	Enqueue(ctx context.Context, job *Job) error

	// Consume delivers jobs until ctx is cancelled. Every message must be
	// acked or nacked; prefetchCount bounds the unacknowledged messages held
	// by this consumer.
	Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error)

	Close() error

	// HealthCheck verifies the broker connection is usable
	HealthCheck(ctx context.Context) error
}

// DLQPurger removes dead-lettered messages past their retention
type DLQPurger interface {
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error)
}
