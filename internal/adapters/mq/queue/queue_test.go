package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	model "github.com/okian/armpredict/internal/domain/model"
)

func job(session string, attempt uint64) Job {
	return model.ReviewJob{
		SessionID: session,
		Attempt:   attempt,
		Request:   model.ReviewRequest{Athlete1Name: "A", Athlete2Name: "B"},
	}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if c := q.Cap(); c != 2 {
		t.Errorf("expected capacity 2, got %d", c)
	}

	if err := q.Enqueue(ctx, job("s1", 1)); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}
	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	dctx, cancel := context.WithCancel(ctx)
	defer cancel()
	j := <-q.Dequeue(dctx)
	if j.SessionID != "s1" || j.Attempt != 1 {
		t.Errorf("unexpected job %+v", j)
	}
	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	for i := uint64(1); i <= 2; i++ {
		if err := q.Enqueue(ctx, job("s", i)); err != nil {
			t.Fatalf("expected enqueue %d to succeed, got %v", i, err)
		}
	}
	if err := q.Enqueue(ctx, job("s", 3)); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull when full, got %v", err)
	}
	if l := q.Len(); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.Enqueue(ctx, job("s", 1)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(16))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	const producers, perProducer = 8, 50

	var seenMu sync.Mutex
	seen := make(map[string]bool)
	var consumers sync.WaitGroup
	for range 4 {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			for j := range q.Dequeue(ctx) {
				seenMu.Lock()
				seen[fmt.Sprintf("%s/%d", j.SessionID, j.Attempt)] = true
				seenMu.Unlock()
			}
		}()
	}

	var producersWG sync.WaitGroup
	for p := range producers {
		producersWG.Add(1)
		go func(id int) {
			defer producersWG.Done()
			for a := uint64(1); a <= perProducer; a++ {
				for q.Enqueue(ctx, job(fmt.Sprintf("s%d", id), a)) != nil {
					time.Sleep(time.Millisecond)
				}
			}
		}(p)
	}
	producersWG.Wait()
	_ = q.Close()
	consumers.Wait()

	if len(seen) != producers*perProducer {
		t.Errorf("expected %d distinct jobs, got %d", producers*perProducer, len(seen))
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	if err := q.Enqueue(ctx, job("s", 1)); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}
	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected second close to be a no-op, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if err := q.Enqueue(ctx, job("s", 2)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after closing, got %v", err)
	}

	// The job queued before Close is still delivered, then the channel closes.
	ch := q.Dequeue(ctx)
	timeout := time.After(time.Second)
	var got []Job
	for {
		select {
		case j, ok := <-ch:
			if !ok {
				if len(got) != 1 || got[0].Attempt != 1 {
					t.Errorf("expected the pending job before close, got %+v", got)
				}
				return
			}
			got = append(got, j)
		case <-timeout:
			t.Fatal("expected dequeue channel to be closed within timeout")
		}
	}
}
