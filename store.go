package main

import (
	"context"
	"errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// HabitsStore управляет хранением пользователей и привычек через GORM.
type HabitsStore struct {
	db *gorm.DB
}

// NewHabitsStore создает подключение к PostgreSQL и выполняет миграции.
func NewHabitsStore(databaseURL string) (*HabitsStore, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	return newHabitsStore(postgres.Open(databaseURL))
}

// newHabitsStore открывает базу по произвольному диалекту. Тесты передают sqlite.
func newHabitsStore(dialector gorm.Dialector) (*HabitsStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.WithContext(context.Background()).AutoMigrate(&User{}, &Habit{}); err != nil {
		return nil, err
	}

	return &HabitsStore{db: db}, nil
}

// Close закрывает соединение с базой данных.
func (s *HabitsStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateUser регистрирует пользователя с хешем пароля.
func (s *HabitsStore) CreateUser(ctx context.Context, email, passwordHash string) (User, error) {
	user := User{Email: email, PasswordHash: passwordHash}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return User{}, err
	}
	return user, nil
}

// UserByEmail возвращает пользователя по email.
func (s *HabitsStore) UserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, errUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// UserByID возвращает пользователя по идентификатору.
func (s *HabitsStore) UserByID(ctx context.Context, id int64) (User, error) {
	var user User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, errUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// UserByTelegramChatID возвращает пользователя с привязанным чатом.
func (s *HabitsStore) UserByTelegramChatID(ctx context.Context, chatID int64) (User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("telegram_chat_id = ?", chatID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, errUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// SetTelegramChatID привязывает Telegram-чат к пользователю.
func (s *HabitsStore) SetTelegramChatID(ctx context.Context, userID, chatID int64) error {
	return s.db.WithContext(ctx).
		Model(&User{}).
		Where("id = ?", userID).
		Update("telegram_chat_id", chatID).Error
}

// UsersWithTelegramChat возвращает пользователей с привязанным чатом.
func (s *HabitsStore) UsersWithTelegramChat(ctx context.Context) ([]User, error) {
	var users []User
	err := s.db.WithContext(ctx).
		Where("telegram_chat_id <> 0").
		Order("id asc").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// CreateHabit сохраняет новую привычку после проверки инвариантов.
func (s *HabitsStore) CreateHabit(ctx context.Context, habit Habit) (Habit, error) {
	if habit.Periodicity == "" {
		habit.Periodicity = PeriodicityDaily
	}
	if habit.Status == "" {
		habit.Status = StatusActive
	}
	if err := s.validate(ctx, habit); err != nil {
		return Habit{}, err
	}
	if err := s.db.WithContext(ctx).Create(&habit).Error; err != nil {
		return Habit{}, err
	}
	return habit, nil
}

// SaveHabit сохраняет измененную привычку после проверки инвариантов.
func (s *HabitsStore) SaveHabit(ctx context.Context, habit Habit) error {
	if err := s.validate(ctx, habit); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Save(&habit).Error
}

// validate применяет единый набор правил ко всем путям записи.
func (s *HabitsStore) validate(ctx context.Context, habit Habit) error {
	var related *Habit
	if habit.RelatedHabitID != nil {
		found, err := s.HabitByID(ctx, *habit.RelatedHabitID)
		if errors.Is(err, errHabitNotFound) {
			return &ValidationError{Messages: []string{"Связанная привычка не найдена."}}
		}
		if err != nil {
			return err
		}
		related = &found
	}
	return validateHabit(habit, related)
}

// HabitByID возвращает привычку по идентификатору.
func (s *HabitsStore) HabitByID(ctx context.Context, id uint) (Habit, error) {
	var habit Habit
	err := s.db.WithContext(ctx).First(&habit, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Habit{}, errHabitNotFound
	}
	if err != nil {
		return Habit{}, err
	}
	return habit, nil
}

// ListHabits возвращает привычки, видимые пользователю: свои и публичные.
// Для неавторизованного вызова (userID == nil) — только публичные.
func (s *HabitsStore) ListHabits(ctx context.Context, userID *int64, limit, offset int) ([]Habit, error) {
	query := s.db.WithContext(ctx).Model(&Habit{})
	if userID != nil {
		query = query.Where("user_id = ? OR is_public = ?", *userID, true)
	} else {
		query = query.Where("is_public = ?", true)
	}

	var habits []Habit
	err := query.
		Order("created_at desc, id desc").
		Limit(limit).
		Offset(offset).
		Find(&habits).Error
	if err != nil {
		return nil, err
	}
	return habits, nil
}

// DeleteHabit удаляет привычку, предварительно обнуляя ссылки на нее.
func (s *HabitsStore) DeleteHabit(ctx context.Context, id uint) (bool, error) {
	err := s.db.WithContext(ctx).
		Model(&Habit{}).
		Where("related_habit_id = ?", id).
		Update("related_habit_id", nil).Error
	if err != nil {
		return false, err
	}

	res := s.db.WithContext(ctx).Delete(&Habit{}, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CompleteHabit атомарно переводит привычку в статус Completed.
// Возвращает false, если привычка уже была выполнена: из двух
// конкурентных вызовов переход достанется ровно одному.
func (s *HabitsStore) CompleteHabit(ctx context.Context, id uint) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&Habit{}).
		Where("id = ? AND status <> ?", id, StatusCompleted).
		Update("status", StatusCompleted)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ActiveMainHabits возвращает активные основные привычки пользователя.
// Основная привычка не ссылается на связанную.
func (s *HabitsStore) ActiveMainHabits(ctx context.Context, userID int64) ([]Habit, error) {
	var habits []Habit
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND related_habit_id IS NULL", userID, StatusActive).
		Order("time asc, id asc").
		Find(&habits).Error
	if err != nil {
		return nil, err
	}
	return habits, nil
}

// ActiveChainedHabits возвращает активные привычки, связанные с данной.
func (s *HabitsStore) ActiveChainedHabits(ctx context.Context, habitID uint) ([]Habit, error) {
	var habits []Habit
	err := s.db.WithContext(ctx).
		Where("related_habit_id = ? AND status = ?", habitID, StatusActive).
		Order("time asc, id asc").
		Find(&habits).Error
	if err != nil {
		return nil, err
	}
	return habits, nil
}

// HasActiveChainedHabits проверяет наличие активных связанных привычек.
func (s *HabitsStore) HasActiveChainedHabits(ctx context.Context, habitID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&Habit{}).
		Where("related_habit_id = ? AND status = ?", habitID, StatusActive).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkOverdue помечает просроченными активные привычки, время которых уже прошло.
// Время хранится как "ЧЧ:ММ", поэтому сравнение строк совпадает с хронологическим.
func (s *HabitsStore) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&Habit{}).
		Where("status = ? AND time < ?", StatusActive, now.Format("15:04")).
		Update("status", StatusOverdue)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// ResetStatuses возвращает привычки заданной периодичности в статус Active
// в начале нового периода.
func (s *HabitsStore) ResetStatuses(ctx context.Context, periodicity Periodicity) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&Habit{}).
		Where("periodicity = ? AND status <> ?", periodicity, StatusActive).
		Update("status", StatusActive)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
