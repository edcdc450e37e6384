package queue

import (
	"encoding/json"
	"testing"
	"time"
)

func testQueue(delayed bool) *RabbitMQQueue {
	return &RabbitMQQueue{
		queueName:           DefaultQueueName,
		dlqName:             DefaultDLQName,
		exchangeName:        DefaultExchangeName,
		delayedExchangeName: DefaultDelayedExchangeName,
		delayedAvailable:    delayed,
	}
}

func TestPublishing_Immediate(t *testing.T) {
	t.Parallel()
	now := time.Now()
	job := NewJob(JobTypeLockWeek, testWeek, nil)

	pub, exchange, err := testQueue(true).publishing(job, now)
	if err != nil {
		t.Fatalf("publishing() error = %v", err)
	}
	if exchange != DefaultExchangeName {
		t.Errorf("exchange = %q, want %q", exchange, DefaultExchangeName)
	}
	if pub.Type != string(JobTypeLockWeek) {
		t.Errorf("Type = %q, want %q", pub.Type, JobTypeLockWeek)
	}
	if pub.Expiration != "" {
		t.Errorf("Expiration = %q, want empty", pub.Expiration)
	}

	var decoded Job
	if err := json.Unmarshal(pub.Body, &decoded); err != nil {
		t.Fatalf("body is not a job: %v", err)
	}
	if decoded.ID != job.ID || !decoded.WeekStart.Equal(testWeek) {
		t.Errorf("decoded job = %+v, want id %s week %s", decoded, job.ID, testWeek)
	}
}

func TestPublishing_Delayed(t *testing.T) {
	t.Parallel()
	now := time.Now()
	job := NewJob(JobTypeLockWeek, testWeek, nil)
	job.NotBefore = timePtr(now.Add(90 * time.Second))

	pub, exchange, err := testQueue(true).publishing(job, now)
	if err != nil {
		t.Fatalf("publishing() error = %v", err)
	}
	if exchange != DefaultDelayedExchangeName {
		t.Errorf("exchange = %q, want %q", exchange, DefaultDelayedExchangeName)
	}
	if got := pub.Headers["x-delay"]; got != int64(90000) {
		t.Errorf("x-delay = %v, want 90000", got)
	}
}

func TestPublishing_DelayedWithoutPlugin(t *testing.T) {
	t.Parallel()
	now := time.Now()
	job := NewJob(JobTypeLockWeek, testWeek, nil)
	job.NotBefore = timePtr(now.Add(time.Minute))

	_, exchange, err := testQueue(false).publishing(job, now)
	if err != nil {
		t.Fatalf("publishing() error = %v", err)
	}
	if exchange != DefaultExchangeName {
		t.Errorf("exchange = %q, want %q when delayed exchange is missing", exchange, DefaultExchangeName)
	}
}

func TestPublishing_Expiration(t *testing.T) {
	t.Parallel()
	now := time.Now()
	job := NewJob(JobTypeGenerateWeek, testWeek, nil)
	job.NotAfter = timePtr(now.Add(2 * time.Second))

	pub, _, err := testQueue(true).publishing(job, now)
	if err != nil {
		t.Fatalf("publishing() error = %v", err)
	}
	if pub.Expiration != "2000" {
		t.Errorf("Expiration = %q, want %q", pub.Expiration, "2000")
	}
}

func TestExpiredBefore(t *testing.T) {
	t.Parallel()
	cutoff := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		ts   time.Time
		want bool
	}{
		{"zero timestamp", time.Time{}, true},
		{"older", cutoff.Add(-time.Second), true},
		{"equal", cutoff, false},
		{"younger", cutoff.Add(time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := expiredBefore(tt.ts, cutoff); got != tt.want {
				t.Errorf("expiredBefore() = %v, want %v", got, tt.want)
			}
		})
	}
}

type recordingAcknowledger struct {
	acked   []uint64
	nacked  []uint64
	requeue bool
}

func (r *recordingAcknowledger) Ack(tag uint64, _ bool) error {
	r.acked = append(r.acked, tag)
	return nil
}

func (r *recordingAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	r.nacked = append(r.nacked, tag)
	r.requeue = requeue
	return nil
}

func TestMessage_AckNack(t *testing.T) {
	t.Parallel()
	ch := &recordingAcknowledger{}
	job := NewJob(JobTypeGenerateWeek, testWeek, nil)
	msg := &Message{Job: job, DeliveryTag: 7, Channel: ch}

	if msg.GetJob() != job {
		t.Error("GetJob() did not return the wrapped job")
	}
	if err := msg.Ack(); err != nil {
		t.Fatalf("Ack() error = %v", err)
	}
	if err := msg.Nack(true); err != nil {
		t.Fatalf("Nack() error = %v", err)
	}
	if len(ch.acked) != 1 || ch.acked[0] != 7 {
		t.Errorf("acked = %v, want [7]", ch.acked)
	}
	if len(ch.nacked) != 1 || !ch.requeue {
		t.Errorf("nacked = %v requeue = %v, want one requeued nack", ch.nacked, ch.requeue)
	}
}
