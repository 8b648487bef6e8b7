package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"pagemotion/internal/jobs"
)

func job(id string) jobs.Job {
	return jobs.New(id, jobs.MetadataPayload{DocumentKey: id + ".pptx"})
}

func TestMemoryQueueFIFO(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := q.Push(ctx, job(fmt.Sprintf("job-%d", i))); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}
	if n, _ := q.Len(ctx); n != 5 {
		t.Errorf("expected length 5, got %d", n)
	}

	for i := 0; i < 5; i++ {
		got, err := q.Pop(ctx)
		if err != nil {
			t.Fatalf("Pop: %v", err)
		}
		if want := fmt.Sprintf("job-%d", i); got.ID != want {
			t.Errorf("pop %d: got %s, want %s", i, got.ID, want)
		}
	}
}

func TestMemoryQueuePopBlocksUntilPush(t *testing.T) {
	q := NewMemoryQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result := make(chan jobs.Job, 1)
	go func() {
		j, err := q.Pop(ctx)
		if err == nil {
			result <- j
		}
	}()

	time.Sleep(20 * time.Millisecond)
	if err := q.Push(ctx, job("job-late")); err != nil {
		t.Fatal(err)
	}

	select {
	case j := <-result:
		if j.ID != "job-late" {
			t.Errorf("got %s", j.ID)
		}
	case <-ctx.Done():
		t.Fatal("Pop did not wake after Push")
	}
}

func TestMemoryQueuePopHonoursContext(t *testing.T) {
	q := NewMemoryQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Pop(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestMemoryQueueConcurrentPush(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	const producers, perProducer = 8, 50
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_ = q.Push(ctx, job(fmt.Sprintf("job-%d-%d", p, i)))
			}
		}(p)
	}
	wg.Wait()

	// Per-producer order survives interleaving.
	last := make(map[string]int)
	for i := 0; i < producers*perProducer; i++ {
		j, err := q.Pop(ctx)
		if err != nil {
			t.Fatal(err)
		}
		var p, n int
		if _, err := fmt.Sscanf(j.ID, "job-%d-%d", &p, &n); err != nil {
			t.Fatal(err)
		}
		key := fmt.Sprint(p)
		if prev, ok := last[key]; ok && n <= prev {
			t.Fatalf("producer %d out of order: %d after %d", p, n, prev)
		}
		last[key] = n
	}
	if n, _ := q.Len(ctx); n != 0 {
		t.Errorf("expected drained queue, got %d", n)
	}
}
