// AngelaMos | 2026
// sqs.go

package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type SQSClient interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, opts ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, opts ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, opts ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// SQSQueue ships jobs through an SQS queue. A job whose handler fails is
// left on the queue and becomes visible again for retry.
type SQSQueue struct {
	client     SQSClient
	queueURL   string
	wait       time.Duration
	jobTimeout time.Duration
	logger     *slog.Logger
	closed     atomic.Bool
}

func NewSQSQueue(ctx context.Context, queueURL string, wait, jobTimeout time.Duration, logger *slog.Logger) (*SQSQueue, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewSQSQueueWithClient(sqs.NewFromConfig(awsCfg), queueURL, wait, jobTimeout, logger), nil
}

func NewSQSQueueWithClient(
	client SQSClient,
	queueURL string,
	wait, jobTimeout time.Duration,
	logger *slog.Logger,
) *SQSQueue {
	if logger == nil {
		logger = slog.Default()
	}
	if wait <= 0 || wait > 20*time.Second {
		wait = 20 * time.Second
	}
	if jobTimeout <= 0 {
		jobTimeout = 2 * time.Minute
	}
	return &SQSQueue{
		client:     client,
		queueURL:   queueURL,
		wait:       wait,
		jobTimeout: jobTimeout,
		logger:     logger,
	}
}

func (q *SQSQueue) Enqueue(ctx context.Context, job Job) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}

	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("send job %s: %w", job.ID, err)
	}

	return nil
}

func (q *SQSQueue) Run(ctx context.Context, handle HandleFunc, complete CompleteFunc) error {
	visibility := int32(q.jobTimeout.Seconds()) + 30

	for {
		if ctx.Err() != nil || q.closed.Load() {
			return nil
		}

		resp, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(q.queueURL),
			MaxNumberOfMessages: 5,
			WaitTimeSeconds:     int32(q.wait.Seconds()),
			VisibilityTimeout:   visibility,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			q.logger.ErrorContext(ctx, "sqs receive failed", "error", err)
			if !sleepCtx(ctx, 5*time.Second) {
				return nil
			}
			continue
		}

		for _, m := range resp.Messages {
			q.handleMessage(ctx, m, handle, complete)
		}
	}
}

func (q *SQSQueue) handleMessage(
	ctx context.Context,
	m sqstypes.Message,
	handle HandleFunc,
	complete CompleteFunc,
) {
	if m.Body == nil {
		q.deleteMessage(ctx, m)
		return
	}

	var job Job
	if err := json.Unmarshal([]byte(*m.Body), &job); err != nil {
		q.logger.ErrorContext(ctx, "dropping malformed job message", "error", err)
		q.deleteMessage(ctx, m)
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, q.jobTimeout)
	err := runSafely(jobCtx, job, handle)
	cancel()

	if complete != nil {
		complete(context.WithoutCancel(ctx), job, err)
	}

	if err != nil {
		q.logger.ErrorContext(ctx, "job failed, leaving for retry",
			"job_id", job.ID,
			"error", err,
		)
		return
	}

	q.deleteMessage(ctx, m)
}

func (q *SQSQueue) deleteMessage(ctx context.Context, m sqstypes.Message) {
	if m.ReceiptHandle == nil {
		return
	}
	_, err := q.client.DeleteMessage(context.WithoutCancel(ctx), &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: m.ReceiptHandle,
	})
	if err != nil {
		q.logger.ErrorContext(ctx, "failed to delete sqs message", "error", err)
	}
}

func (q *SQSQueue) Close() error {
	q.closed.Store(true)
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

var _ Queue = (*SQSQueue)(nil)
