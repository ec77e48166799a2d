package main

import (
	"context"
	"errors"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/crypto/bcrypt"
)

// TelegramBot привязывает чаты к пользователям и отправляет уведомления.
type TelegramBot struct {
	store *HabitsStore
	api   *tgbotapi.BotAPI
}

// NewTelegramBot создает клиент Telegram с доступом к хранилищу.
func NewTelegramBot(store *HabitsStore, token string) (*TelegramBot, error) {
	if token == "" {
		return nil, errMissingBotToken
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	api.Debug = false

	return &TelegramBot{store: store, api: api}, nil
}

// SendMessage отправляет текст в указанный чат. Реализует MessageSender.
func (b *TelegramBot) SendMessage(chatID int64, text string) error {
	_, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// Start запускает цикл получения обновлений.
func (b *TelegramBot) Start(ctx context.Context) error {
	log.Printf("Authorized on account %s", b.api.Self.UserName)

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := b.api.GetUpdatesChan(updateConfig)

	for {
		select {
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			chatID := update.Message.Chat.ID
			reply := b.handleMessage(ctx, chatID, strings.TrimSpace(update.Message.Text))
			if err := b.SendMessage(chatID, reply); err != nil {
				log.Printf("send message error: %v", err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// handleMessage маршрутизирует команду пользователя.
func (b *TelegramBot) handleMessage(ctx context.Context, chatID int64, text string) string {
	if text == "" {
		return "Пришлите команду. Используйте /help для справки."
	}
	fields := strings.Fields(text)

	switch fields[0] {
	case "/start":
		return startMessage()
	case "/help":
		return helpMessage()
	case "/link":
		return b.handleLink(ctx, chatID, fields)
	case "/habits":
		return b.handleHabits(ctx, chatID)
	default:
		return "Неизвестная команда. Используйте /help."
	}
}

// handleLink привязывает чат к аккаунту по email и паролю.
func (b *TelegramBot) handleLink(ctx context.Context, chatID int64, fields []string) string {
	if len(fields) < 3 {
		return "Используйте /link <email> <пароль>"
	}

	user, err := b.store.UserByEmail(ctx, fields[1])
	if errors.Is(err, errUserNotFound) {
		return "Неверный email или пароль."
	}
	if err != nil {
		return "Не удалось проверить учетные данные. Попробуйте позже."
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(fields[2])) != nil {
		return "Неверный email или пароль."
	}

	if err := b.store.SetTelegramChatID(ctx, user.ID, chatID); err != nil {
		return "Не удалось привязать чат. Попробуйте позже."
	}
	return "Чат привязан. Напоминания о привычках будут приходить сюда."
}

// handleHabits возвращает активные основные привычки владельца чата.
func (b *TelegramBot) handleHabits(ctx context.Context, chatID int64) string {
	user, err := b.store.UserByTelegramChatID(ctx, chatID)
	if errors.Is(err, errUserNotFound) {
		return "Сначала привяжите чат: /link <email> <пароль>."
	}
	if err != nil {
		return "Не удалось получить привычки. Попробуйте позже."
	}

	habits, err := b.store.ActiveMainHabits(ctx, user.ID)
	if err != nil {
		return "Не удалось получить привычки. Попробуйте позже."
	}
	if len(habits) == 0 {
		return "Активных привычек на сегодня нет."
	}

	lines := make([]string, 0, len(habits)+1)
	lines = append(lines, "Ваши активные привычки:")
	for _, habit := range habits {
		lines = append(lines, formatHabitLine(habit))
	}
	return strings.Join(lines, "\n")
}

// startMessage возвращает приветственное сообщение.
func startMessage() string {
	return "Привет! Я напоминаю о ваших привычках. Привяжите аккаунт: /link <email> <пароль>."
}

// helpMessage возвращает справку по командам бота.
func helpMessage() string {
	return strings.Join([]string{
		"Доступные команды:",
		"/link <email> <пароль> — привязать чат к аккаунту",
		"/habits — активные привычки на сегодня",
		"/help — справка",
	}, "\n")
}
