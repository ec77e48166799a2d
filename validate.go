package main

import (
	"strings"
	"time"
)

// ValidationError перечисляет нарушенные правила при сохранении привычки.
type ValidationError struct {
	Messages []string
}

// Error объединяет сообщения о нарушениях в одну строку.
func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

// validateHabit проверяет инварианты привычки перед записью.
// related — загруженная связанная привычка, nil если ссылка не задана.
// Единый набор правил для всех путей записи: API, бот, фикстуры.
func validateHabit(habit Habit, related *Habit) error {
	var messages []string

	if strings.TrimSpace(habit.Place) == "" {
		messages = append(messages, "Необходимо указать место выполнения.")
	}
	if strings.TrimSpace(habit.Action) == "" {
		messages = append(messages, "Необходимо указать действие.")
	}
	if _, err := time.Parse("15:04", habit.Time); err != nil {
		messages = append(messages, "Время выполнения должно быть в формате ЧЧ:ММ.")
	}
	if habit.Duration < 1 || habit.Duration > 120 {
		messages = append(messages, "Время на выполнение должно быть от 1 до 120 секунд.")
	}

	switch habit.Periodicity {
	case PeriodicityDaily, PeriodicityWeekly, PeriodicityMonthly:
	default:
		messages = append(messages, "Периодичность должна быть daily, weekly или monthly.")
	}

	if habit.Reward != "" && habit.RelatedHabitID != nil {
		messages = append(messages, "Можно указать либо вознаграждение, либо связанную привычку, но не оба поля одновременно.")
	}
	if habit.RelatedHabitID != nil && related != nil && !related.IsPleasant {
		messages = append(messages, "Связанная привычка должна быть приятной.")
	}
	if habit.IsPleasant && (habit.Reward != "" || habit.RelatedHabitID != nil) {
		messages = append(messages, "Приятная привычка не может иметь вознаграждения или связанной привычки.")
	}

	if len(messages) > 0 {
		return &ValidationError{Messages: messages}
	}
	return nil
}
