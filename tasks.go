package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// MessageSender отправляет текст в чат мессенджера.
type MessageSender interface {
	SendMessage(chatID int64, text string) error
}

// Notifier формирует и отправляет уведомления о привычках.
// Клиент мессенджера передается явно, а не через глобальное состояние.
type Notifier struct {
	store  *HabitsStore
	sender MessageSender
}

// NewNotifier создает Notifier с заданным хранилищем и отправителем.
func NewNotifier(store *HabitsStore, sender MessageSender) *Notifier {
	return &Notifier{store: store, sender: sender}
}

// HandleTask выполняет фоновую задачу по имени.
func (n *Notifier) HandleTask(ctx context.Context, task Task) error {
	switch task.Name {
	case taskSendReminders:
		return n.SendDailyReminders(ctx)
	case taskSendFollowUp:
		return n.SendCompletionFollowUp(ctx, task.HabitID, task.UserID)
	case taskMarkOverdue:
		count, err := n.store.MarkOverdue(ctx, time.Now())
		if count > 0 {
			log.Printf("marked %d habits overdue", count)
		}
		return err
	case taskResetStatuses:
		count, err := n.store.ResetStatuses(ctx, task.Periodicity)
		if count > 0 {
			log.Printf("reset %d %s habits to active", count, task.Periodicity)
		}
		return err
	default:
		return fmt.Errorf("unknown task %q", task.Name)
	}
}

// SendDailyReminders отправляет каждому пользователю с привязанным чатом
// одно сообщение со списком его активных основных привычек.
// Ошибка отправки одному пользователю не прерывает рассылку остальным.
func (n *Notifier) SendDailyReminders(ctx context.Context) error {
	users, err := n.store.UsersWithTelegramChat(ctx)
	if err != nil {
		return err
	}

	for _, user := range users {
		habits, err := n.store.ActiveMainHabits(ctx, user.ID)
		if err != nil {
			log.Printf("reminders: cannot list habits for user %d: %v", user.ID, err)
			continue
		}
		if len(habits) == 0 {
			continue
		}

		lines := []string{
			"🔔 Основные привычки на сегодня:",
			"Следующие привычки требуют выполнения:",
		}
		for _, habit := range habits {
			lines = append(lines, formatHabitLine(habit))
		}

		if err := n.sender.SendMessage(user.TelegramChatID, strings.Join(lines, "\n")); err != nil {
			log.Printf("reminders: cannot send to user %d: %v", user.ID, err)
		}
	}
	return nil
}

// SendCompletionFollowUp отправляет сообщение после выполнения привычки:
// список активных связанных привычек, либо вознаграждение, либо ничего.
func (n *Notifier) SendCompletionFollowUp(ctx context.Context, habitID uint, userID int64) error {
	habit, err := n.store.HabitByID(ctx, habitID)
	if err != nil {
		return err
	}
	user, err := n.store.UserByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.TelegramChatID == 0 {
		return nil
	}

	chained, err := n.store.ActiveChainedHabits(ctx, habit.ID)
	if err != nil {
		return err
	}

	lines := []string{
		"🎉 Основная привычка выполнена!",
		"Теперь можно вознаградить себя и выполнить:",
	}

	switch {
	case len(chained) > 0:
		for _, h := range chained {
			lines = append(lines, formatHabitLine(h))
		}
	case habit.Reward != "":
		lines = append(lines, habit.Reward)
	default:
		return nil
	}

	return n.sender.SendMessage(user.TelegramChatID, strings.Join(lines, "\n"))
}

// formatHabitLine форматирует привычку как строку списка в уведомлении.
func formatHabitLine(habit Habit) string {
	return fmt.Sprintf("- %s в %s (%s)", habit.Action, habit.Time, habit.Place)
}
