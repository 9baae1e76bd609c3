package resilience

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestPool_BoundsConcurrency(t *testing.T) {
	pool := NewPool(2)
	var active, maxActive int32
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pool.Execute(context.Background(), func() error {
				mu.Lock()
				active++
				if active > maxActive {
					maxActive = active
				}
				mu.Unlock()

				time.Sleep(10 * time.Millisecond)

				mu.Lock()
				active--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	if maxActive > 2 {
		t.Fatalf("expected at most 2 concurrent executions, observed %d", maxActive)
	}
}

func TestPool_ExhaustedReturnsErrorOnContextCancel(t *testing.T) {
	pool := NewPool(1)

	release := make(chan struct{})
	go func() {
		_ = pool.Execute(context.Background(), func() error {
			<-release
			return nil
		})
	}()
	time.Sleep(5 * time.Millisecond) // let the goroutine claim the only slot

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := pool.Execute(ctx, func() error { return nil })
	if err != ErrPoolExhausted {
		t.Fatalf("expected ErrPoolExhausted, got %v", err)
	}

	close(release)
}

func TestPool_CapacityAndInUse(t *testing.T) {
	pool := NewPool(3)
	if pool.Capacity() != 3 {
		t.Fatalf("expected capacity 3, got %d", pool.Capacity())
	}
	if pool.InUse() != 0 {
		t.Fatalf("expected 0 in use initially, got %d", pool.InUse())
	}
}
