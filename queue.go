package main

import (
	"context"
	"log"
	"sync"
)

// Имена фоновых задач.
const (
	taskSendReminders = "send_daily_reminders"
	taskSendFollowUp  = "send_related_habits_notification"
	taskMarkOverdue   = "mark_overdue_habits"
	taskResetStatuses = "reset_habit_statuses"
)

// Task описывает фоновую задачу с аргументами.
type Task struct {
	Name        string
	HabitID     uint
	UserID      int64
	Periodicity Periodicity
}

// Enqueuer ставит задачу в очередь без ожидания результата.
type Enqueuer interface {
	Enqueue(task Task) bool
}

// TaskHandler выполняет одну фоновую задачу.
type TaskHandler func(ctx context.Context, task Task) error

// TaskQueue — очередь задач в памяти с пулом воркеров.
// Обработчики HTTP кладут задачи и не ждут их выполнения.
type TaskQueue struct {
	tasks   chan Task
	handler TaskHandler
	workers int
	wg      sync.WaitGroup
}

// NewTaskQueue создает очередь заданного размера с handler для задач.
func NewTaskQueue(size, workers int, handler TaskHandler) *TaskQueue {
	return &TaskQueue{
		tasks:   make(chan Task, size),
		handler: handler,
		workers: workers,
	}
}

// Enqueue кладет задачу в очередь. При переполнении задача отбрасывается:
// уведомления доставляются по мере возможности.
func (q *TaskQueue) Enqueue(task Task) bool {
	select {
	case q.tasks <- task:
		return true
	default:
		log.Printf("task queue is full, dropping %s", task.Name)
		return false
	}
}

// Start запускает воркеров до отмены контекста.
func (q *TaskQueue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work(ctx)
	}
}

// work обрабатывает задачи по одной; ошибка одной задачи не останавливает воркера.
func (q *TaskQueue) work(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case task := <-q.tasks:
			if err := q.handler(ctx, task); err != nil {
				log.Printf("task %s failed: %v", task.Name, err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Wait дожидается остановки всех воркеров.
func (q *TaskQueue) Wait() {
	q.wg.Wait()
}
