package poll

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerRunsPeriodically(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var ticks int32
	s.Every("test", 10*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&ticks, 1)
		return nil
	})

	time.Sleep(100 * time.Millisecond)

	if atomic.LoadInt32(&ticks) < 2 {
		t.Errorf("ожидалось несколько тиков, получили %d", ticks)
	}
}

func TestTaskStopHaltsPolling(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var ticks int32
	task := s.Every("test", 10*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&ticks, 1)
		return nil
	})

	time.Sleep(50 * time.Millisecond)
	task.Stop()
	task.Stop() // повторная остановка безопасна

	after := atomic.LoadInt32(&ticks)
	time.Sleep(50 * time.Millisecond)

	if got := atomic.LoadInt32(&ticks); got != after {
		t.Errorf("после Stop тики продолжились: %d -> %d", after, got)
	}
}

func TestReregisterStopsPrevious(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var first, second int32
	s.Every("chat", 10*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&first, 1)
		return nil
	})
	time.Sleep(30 * time.Millisecond)

	s.Every("chat", 10*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&second, 1)
		return nil
	})

	snapshot := atomic.LoadInt32(&first)
	time.Sleep(50 * time.Millisecond)

	if got := atomic.LoadInt32(&first); got != snapshot {
		t.Errorf("прежняя задача продолжила работать: %d -> %d", snapshot, got)
	}
	if atomic.LoadInt32(&second) == 0 {
		t.Error("новая задача не запустилась")
	}
}

func TestSchedulerStopWaitsForTasks(t *testing.T) {
	s := NewScheduler()

	s.Every("a", 5*time.Millisecond, func(ctx context.Context) error { return nil })
	s.Every("b", 5*time.Millisecond, func(ctx context.Context) error { return nil })

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop не завершился")
	}

	// После остановки новые задачи не регистрируются
	var ticks int32
	s.Every("c", 5*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&ticks, 1)
		return nil
	})
	time.Sleep(30 * time.Millisecond)
	if atomic.LoadInt32(&ticks) != 0 {
		t.Error("задача запустилась после остановки планировщика")
	}
}
