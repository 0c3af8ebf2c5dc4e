package poll

import (
	"context"
	"log"
	"sync"
	"time"
)

// Scheduler владеет всеми периодическими опросами приложения.
// Каждый опрос обслуживается собственной горутиной с тикером; остановка
// задачи или всего планировщика гарантированно гасит тикер, чтобы после
// ухода с экрана не оставалось осиротевших таймеров.
type Scheduler struct {
	mu      sync.Mutex
	wg      sync.WaitGroup
	stopped bool
	tasks   map[string]*Task
}

// Task представляет один зарегистрированный периодический опрос
type Task struct {
	name   string
	cancel context.CancelFunc
	once   sync.Once
}

// NewScheduler создает новый планировщик опросов
func NewScheduler() *Scheduler {
	return &Scheduler{tasks: make(map[string]*Task)}
}

// Every регистрирует периодический вызов fn с заданным интервалом.
// Ошибки fn логируются и не прерывают опрос: неудачный тик оставляет
// последнее успешное состояние на месте. Повторная регистрация под тем же
// именем останавливает предыдущую задачу.
func (s *Scheduler) Every(name string, interval time.Duration, fn func(ctx context.Context) error) *Task {
	ctx, cancel := context.WithCancel(context.Background())
	task := &Task{name: name, cancel: cancel}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		cancel()
		return task
	}
	if prev, ok := s.tasks[name]; ok {
		prev.Stop()
	}
	s.tasks[name] = task
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := fn(ctx); err != nil && ctx.Err() == nil {
					log.Printf("Ошибка фонового опроса %s: %v", name, err)
				}
			}
		}
	}()

	return task
}

// Stop останавливает задачу. Повторные вызовы безопасны.
func (t *Task) Stop() {
	t.once.Do(t.cancel)
}

// Stop останавливает все задачи и дожидается завершения их горутин
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	tasks := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.tasks = map[string]*Task{}
	s.mu.Unlock()

	for _, t := range tasks {
		t.Stop()
	}
	s.wg.Wait()
}
