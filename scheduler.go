package main

import (
	"github.com/robfig/cron/v3"
)

// Scheduler ставит периодические задачи в очередь по расписанию.
// Выполняют задачи воркеры очереди, а не сам планировщик.
type Scheduler struct {
	cron  *cron.Cron
	queue Enqueuer
}

// NewScheduler настраивает расписание фоновых задач.
// reminderSpec — cron-выражение для ежедневных напоминаний.
func NewScheduler(queue Enqueuer, reminderSpec string) (*Scheduler, error) {
	s := &Scheduler{cron: cron.New(), queue: queue}

	jobs := []struct {
		spec string
		task Task
	}{
		{reminderSpec, Task{Name: taskSendReminders}},
		// Просроченные отмечаются в конце дня, до ночного сброса статусов.
		{"55 23 * * *", Task{Name: taskMarkOverdue}},
		{"0 0 * * *", Task{Name: taskResetStatuses, Periodicity: PeriodicityDaily}},
		{"0 0 * * 1", Task{Name: taskResetStatuses, Periodicity: PeriodicityWeekly}},
		{"0 0 1 * *", Task{Name: taskResetStatuses, Periodicity: PeriodicityMonthly}},
	}

	for _, job := range jobs {
		task := job.task
		if _, err := s.cron.AddFunc(job.spec, func() { s.queue.Enqueue(task) }); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Start запускает планировщик.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop останавливает планировщик.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
