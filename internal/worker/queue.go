// AngelaMos | 2026
// queue.go

package worker

import (
	"context"
	"errors"
)

var (
	ErrQueueClosed = errors.New("queue closed")
	ErrQueueFull   = errors.New("queue full")
)

type Job struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Payload []byte `json:"payload"`
}

// HandleFunc does the work for a job.
type HandleFunc func(ctx context.Context, job Job) error

// CompleteFunc observes the outcome of every handled job, including
// failures and recovered panics, so no job finishes unrecorded.
type CompleteFunc func(ctx context.Context, job Job, err error)

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	// Run consumes jobs until ctx is cancelled or the queue is closed.
	Run(ctx context.Context, handle HandleFunc, complete CompleteFunc) error
	Close() error
}
