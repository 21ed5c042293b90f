package application_test

import (
	"context"
	"sync"
	"testing"

	"contex/contexts/context-routing/event-log-service/adapters/memory"
	"contex/contexts/context-routing/event-log-service/application"
)

func TestAppendSequencesAreStrictlyIncreasing(t *testing.T) {
	svc := &application.Service{Repo: memory.NewStore()}

	for i := 1; i <= 5; i++ {
		event, err := svc.Append(context.Background(), "proj-1", "", "data_published", nil)
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if event.Sequence != int64(i) {
			t.Fatalf("expected sequence %d, got %d", i, event.Sequence)
		}
	}
}

func TestAppendIsSafeUnderConcurrency(t *testing.T) {
	svc := &application.Service{Repo: memory.NewStore()}

	const n = 100
	var wg sync.WaitGroup
	seqs := make(chan int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			event, err := svc.Append(context.Background(), "proj-concurrent", "", "data_published", nil)
			if err != nil {
				t.Errorf("append: %v", err)
				return
			}
			seqs <- event.Sequence
		}()
	}
	wg.Wait()
	close(seqs)

	seen := make(map[int64]bool)
	for seq := range seqs {
		if seen[seq] {
			t.Fatalf("duplicate sequence %d", seq)
		}
		seen[seq] = true
	}
	if len(seen) != n {
		t.Fatalf("expected %d distinct sequences, got %d", n, len(seen))
	}
}

func TestReadSinceBeyondMaxSequenceReturnsEmpty(t *testing.T) {
	svc := &application.Service{Repo: memory.NewStore()}

	if _, err := svc.Append(context.Background(), "proj-2", "", "data_published", nil); err != nil {
		t.Fatalf("append: %v", err)
	}

	events, err := svc.Read(context.Background(), "proj-2", 999, 10)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}

func TestReadRejectsLimitAboveMax(t *testing.T) {
	svc := &application.Service{Repo: memory.NewStore()}
	if _, err := svc.Read(context.Background(), "proj-3", 0, 1001); err == nil {
		t.Fatal("expected error for limit above max")
	}
}
