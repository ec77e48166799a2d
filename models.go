package main

import "time"

// Periodicity задает, как часто привычка должна выполняться.
type Periodicity string

// Возможные значения периодичности.
const (
	PeriodicityDaily   Periodicity = "daily"
	PeriodicityWeekly  Periodicity = "weekly"
	PeriodicityMonthly Periodicity = "monthly"
)

// HabitStatus описывает состояние выполнения привычки.
type HabitStatus string

// Возможные статусы привычки.
const (
	StatusActive    HabitStatus = "Active"
	StatusCompleted HabitStatus = "Completed"
	StatusOverdue   HabitStatus = "Overdue"
)

// User описывает пользователя сервиса.
// TelegramChatID равен нулю, пока пользователь не привязал чат через бота.
type User struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	Email          string    `gorm:"uniqueIndex;size:255" json:"email"`
	PasswordHash   string    `gorm:"size:255" json:"-"`
	TelegramChatID int64     `gorm:"index" json:"telegram_chat_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Habit описывает привычку пользователя.
// При удалении владельца или связанной привычки ссылка обнуляется, запись сохраняется.
type Habit struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	UserID         *int64      `gorm:"index" json:"user_id"`
	Place          string      `gorm:"size:255" json:"place"`
	Time           string      `gorm:"size:5" json:"time"`
	Action         string      `gorm:"size:255" json:"action"`
	IsPleasant     bool        `gorm:"default:false" json:"is_pleasant"`
	RelatedHabitID *uint       `gorm:"index" json:"related_habit"`
	Periodicity    Periodicity `gorm:"size:10;default:daily" json:"periodicity"`
	Status         HabitStatus `gorm:"size:20;default:Active" json:"status"`
	Reward         string      `gorm:"size:255" json:"reward,omitempty"`
	Duration       int         `json:"duration"`
	IsPublic       bool        `gorm:"default:false" json:"is_public"`
	CreatedAt      time.Time   `json:"created_at"`
}

// OwnedBy сообщает, принадлежит ли привычка указанному пользователю.
func (h Habit) OwnedBy(userID int64) bool {
	return h.UserID != nil && *h.UserID == userID
}
