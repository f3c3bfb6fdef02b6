// AngelaMos | 2026
// worker_test.go

package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type outcomes struct {
	mu   sync.Mutex
	errs map[string]error
}

func newOutcomes() *outcomes {
	return &outcomes{errs: make(map[string]error)}
}

func (o *outcomes) complete(_ context.Context, job Job, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errs[job.ID] = err
}

func (o *outcomes) get(id string) (error, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	err, ok := o.errs[id]
	return err, ok
}

func TestPoolRunsEveryJobAndReportsCompletion(t *testing.T) {
	p := NewPool(3, 16)
	out := newOutcomes()
	boom := errors.New("boom")

	handle := func(_ context.Context, job Job) error {
		switch job.ID {
		case "fail":
			return boom
		case "panic":
			panic("kaboom")
		}
		return nil
	}

	ids := []string{"a", "b", "c", "fail", "panic"}
	for _, id := range ids {
		if err := p.Enqueue(context.Background(), Job{ID: id, Type: "test"}); err != nil {
			t.Fatalf("Enqueue(%s) error = %v", id, err)
		}
	}
	_ = p.Close()

	if err := p.Run(context.Background(), handle, out.complete); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, id := range []string{"a", "b", "c"} {
		err, ok := out.get(id)
		if !ok || err != nil {
			t.Errorf("job %s completion = (%v, %v), want (nil, true)", id, err, ok)
		}
	}

	if err, _ := out.get("fail"); !errors.Is(err, boom) {
		t.Errorf("fail completion = %v, want %v", err, boom)
	}
	if err, ok := out.get("panic"); !ok || err == nil {
		t.Errorf("panic completion = (%v, %v), want an error", err, ok)
	}
}

func TestPoolRejectsWhenClosedOrFull(t *testing.T) {
	p := NewPool(1, 1)

	if err := p.Enqueue(context.Background(), Job{ID: "1"}); err != nil {
		t.Fatalf("first Enqueue error = %v", err)
	}
	if err := p.Enqueue(context.Background(), Job{ID: "2"}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("second Enqueue error = %v, want ErrQueueFull", err)
	}

	_ = p.Close()
	_ = p.Close()

	if err := p.Enqueue(context.Background(), Job{ID: "3"}); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("Enqueue after Close error = %v, want ErrQueueClosed", err)
	}
}

func TestPoolJobTimeout(t *testing.T) {
	p := NewPool(1, 1, WithJobTimeout(20*time.Millisecond))
	out := newOutcomes()

	_ = p.Enqueue(context.Background(), Job{ID: "slow"})
	_ = p.Close()

	handle := func(ctx context.Context, _ Job) error {
		<-ctx.Done()
		return ctx.Err()
	}

	if err := p.Run(context.Background(), handle, out.complete); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if err, _ := out.get("slow"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("slow completion = %v, want deadline exceeded", err)
	}
}

func TestPoolCancelCompletesBufferedJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewPool(1, 8)
	out := newOutcomes()

	ids := []string{"0", "1", "2", "3", "4"}
	for _, id := range ids {
		if err := p.Enqueue(ctx, Job{ID: id}); err != nil {
			t.Fatalf("Enqueue(%s) error = %v", id, err)
		}
	}

	handle := func(ctx context.Context, job Job) error {
		if job.ID == "0" {
			cancel()
			return nil
		}
		return ctx.Err()
	}

	if err := p.Run(ctx, handle, out.complete); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if err, ok := out.get("0"); !ok || err != nil {
		t.Errorf("job 0 completion = (%v, %v), want (nil, true)", err, ok)
	}
	for _, id := range ids[1:] {
		err, ok := out.get(id)
		if !ok {
			t.Errorf("job %s was never completed", id)
			continue
		}
		if !errors.Is(err, ErrQueueClosed) && !errors.Is(err, context.Canceled) {
			t.Errorf("job %s completion = %v, want ErrQueueClosed or canceled", id, err)
		}
	}

	if err := p.Enqueue(context.Background(), Job{ID: "late"}); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Enqueue after Run error = %v, want ErrQueueClosed", err)
	}
}

type fakeSQS struct {
	mu       sync.Mutex
	messages []sqstypes.Message
	deleted  []string
	cancel   context.CancelFunc
}

func (f *fakeSQS) SendMessage(
	_ context.Context,
	in *sqs.SendMessageInput,
	_ ...func(*sqs.Options),
) (*sqs.SendMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	handle := "rh-" + string(rune('a'+len(f.messages)))
	f.messages = append(f.messages, sqstypes.Message{
		Body:          in.MessageBody,
		ReceiptHandle: aws.String(handle),
	})
	return &sqs.SendMessageOutput{}, nil
}

func (f *fakeSQS) ReceiveMessage(
	_ context.Context,
	_ *sqs.ReceiveMessageInput,
	_ ...func(*sqs.Options),
) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		f.cancel()
		return &sqs.ReceiveMessageOutput{}, nil
	}
	msgs := f.messages
	f.messages = nil
	return &sqs.ReceiveMessageOutput{Messages: msgs}, nil
}

func (f *fakeSQS) DeleteMessage(
	_ context.Context,
	in *sqs.DeleteMessageInput,
	_ ...func(*sqs.Options),
) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func TestSQSQueueDeletesOnlySucceededJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &fakeSQS{cancel: cancel}
	q := NewSQSQueueWithClient(client, "https://sqs.local/queue", time.Second, time.Second, nil)

	if err := q.Enqueue(ctx, Job{ID: "ok", Type: "edit", Payload: []byte(`{"x":1}`)}); err != nil {
		t.Fatalf("Enqueue(ok) error = %v", err)
	}
	if err := q.Enqueue(ctx, Job{ID: "bad", Type: "edit"}); err != nil {
		t.Fatalf("Enqueue(bad) error = %v", err)
	}

	out := newOutcomes()
	var payload string
	handle := func(_ context.Context, job Job) error {
		if job.ID == "bad" {
			return errors.New("provider down")
		}
		payload = string(job.Payload)
		return nil
	}

	if err := q.Run(ctx, handle, out.complete); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if payload != `{"x":1}` {
		t.Errorf("payload = %q, want round-tripped bytes", payload)
	}
	if len(client.deleted) != 1 || client.deleted[0] != "rh-a" {
		t.Errorf("deleted = %v, want [rh-a]", client.deleted)
	}
	if err, ok := out.get("bad"); !ok || err == nil {
		t.Errorf("bad completion = (%v, %v), want an error", err, ok)
	}

	_ = q.Close()
	if err := q.Enqueue(ctx, Job{ID: "late"}); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Enqueue after Close error = %v, want ErrQueueClosed", err)
	}
}
