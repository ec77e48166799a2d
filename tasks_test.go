package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	chatID int64
	text   string
}

// fakeSender записывает отправленные сообщения вместо похода в Telegram.
type fakeSender struct {
	messages []sentMessage
	failFor  map[int64]bool
}

func (f *fakeSender) SendMessage(chatID int64, text string) error {
	if f.failFor[chatID] {
		return errors.New("telegram unavailable")
	}
	f.messages = append(f.messages, sentMessage{chatID: chatID, text: text})
	return nil
}

func TestSendDailyReminders(t *testing.T) {
	store := newTestStore(t)
	sender := &fakeSender{}
	notifier := NewNotifier(store, sender)

	runner := createTestUser(t, store, "runner@example.com")
	require.NoError(t, store.SetTelegramChatID(context.Background(), runner.ID, 100))

	idle := createTestUser(t, store, "idle@example.com")
	require.NoError(t, store.SetTelegramChatID(context.Background(), idle.ID, 200))

	// Пользователь без привязанного чата рассылку не получает.
	unlinked := createTestUser(t, store, "unlinked@example.com")
	createTestHabit(t, store, mainHabit(unlinked.ID))

	habit := mainHabit(runner.ID)
	habit.Action = "Бегать"
	habit.Time = "07:00"
	habit.Place = "Парк"
	createTestHabit(t, store, habit)

	require.NoError(t, notifier.SendDailyReminders(context.Background()))

	require.Len(t, sender.messages, 1)
	msg := sender.messages[0]
	assert.Equal(t, int64(100), msg.chatID)
	assert.Contains(t, msg.text, "Бегать")
	assert.Contains(t, msg.text, "07:00")
	assert.Contains(t, msg.text, "Парк")
	assert.Contains(t, msg.text, "Основные привычки на сегодня")
}

func TestSendDailyRemindersSkipsChainedAndCompleted(t *testing.T) {
	store := newTestStore(t)
	sender := &fakeSender{}
	notifier := NewNotifier(store, sender)

	user := createTestUser(t, store, "runner@example.com")
	require.NoError(t, store.SetTelegramChatID(context.Background(), user.ID, 100))

	done := mainHabit(user.ID)
	done.Status = StatusCompleted
	createTestHabit(t, store, done)

	pleasant := mainHabit(user.ID)
	pleasant.IsPleasant = true
	target := createTestHabit(t, store, pleasant)

	chained := mainHabit(user.ID)
	chained.RelatedHabitID = &target.ID
	chained.Action = "Почитать"
	createTestHabit(t, store, chained)

	require.NoError(t, notifier.SendDailyReminders(context.Background()))

	// target — активная основная привычка, она одна и попадает в письмо.
	require.Len(t, sender.messages, 1)
	assert.NotContains(t, sender.messages[0].text, "Почитать")
}

func TestSendDailyRemindersIsolatesFailures(t *testing.T) {
	store := newTestStore(t)
	sender := &fakeSender{failFor: map[int64]bool{100: true}}
	notifier := NewNotifier(store, sender)

	first := createTestUser(t, store, "first@example.com")
	require.NoError(t, store.SetTelegramChatID(context.Background(), first.ID, 100))
	createTestHabit(t, store, mainHabit(first.ID))

	second := createTestUser(t, store, "second@example.com")
	require.NoError(t, store.SetTelegramChatID(context.Background(), second.ID, 200))
	createTestHabit(t, store, mainHabit(second.ID))

	// Сбой отправки первому не прерывает рассылку второму.
	require.NoError(t, notifier.SendDailyReminders(context.Background()))
	require.Len(t, sender.messages, 1)
	assert.Equal(t, int64(200), sender.messages[0].chatID)
}

func TestFollowUpWithReward(t *testing.T) {
	store := newTestStore(t)
	sender := &fakeSender{}
	notifier := NewNotifier(store, sender)

	user := createTestUser(t, store, "owner@example.com")
	require.NoError(t, store.SetTelegramChatID(context.Background(), user.ID, 100))

	habit := mainHabit(user.ID)
	habit.Reward = "Кофе"
	created := createTestHabit(t, store, habit)

	require.NoError(t, notifier.SendCompletionFollowUp(context.Background(), created.ID, user.ID))

	require.Len(t, sender.messages, 1)
	assert.Contains(t, sender.messages[0].text, "Кофе")
	assert.Contains(t, sender.messages[0].text, "Основная привычка выполнена")
}

func TestFollowUpWithChainedHabits(t *testing.T) {
	store := newTestStore(t)
	sender := &fakeSender{}
	notifier := NewNotifier(store, sender)

	user := createTestUser(t, store, "owner@example.com")
	require.NoError(t, store.SetTelegramChatID(context.Background(), user.ID, 100))

	pleasant := mainHabit(user.ID)
	pleasant.IsPleasant = true
	target := createTestHabit(t, store, pleasant)

	chained := mainHabit(user.ID)
	chained.Action = "Почитать"
	chained.RelatedHabitID = &target.ID
	createTestHabit(t, store, chained)

	require.NoError(t, notifier.SendCompletionFollowUp(context.Background(), target.ID, user.ID))

	require.Len(t, sender.messages, 1)
	assert.Contains(t, sender.messages[0].text, "Почитать")
}

func TestFollowUpNothingToSend(t *testing.T) {
	store := newTestStore(t)
	sender := &fakeSender{}
	notifier := NewNotifier(store, sender)

	user := createTestUser(t, store, "owner@example.com")
	require.NoError(t, store.SetTelegramChatID(context.Background(), user.ID, 100))

	created := createTestHabit(t, store, mainHabit(user.ID))

	// Ни вознаграждения, ни связанных привычек — тишина.
	require.NoError(t, notifier.SendCompletionFollowUp(context.Background(), created.ID, user.ID))
	assert.Empty(t, sender.messages)
}

func TestFollowUpWithoutChat(t *testing.T) {
	store := newTestStore(t)
	sender := &fakeSender{}
	notifier := NewNotifier(store, sender)

	user := createTestUser(t, store, "owner@example.com")
	habit := mainHabit(user.ID)
	habit.Reward = "Кофе"
	created := createTestHabit(t, store, habit)

	require.NoError(t, notifier.SendCompletionFollowUp(context.Background(), created.ID, user.ID))
	assert.Empty(t, sender.messages)
}

func TestFollowUpMissingHabit(t *testing.T) {
	store := newTestStore(t)
	notifier := NewNotifier(store, &fakeSender{})

	user := createTestUser(t, store, "owner@example.com")

	err := notifier.SendCompletionFollowUp(context.Background(), 999, user.ID)
	assert.ErrorIs(t, err, errHabitNotFound)
}

func TestHandleTaskUnknownName(t *testing.T) {
	store := newTestStore(t)
	notifier := NewNotifier(store, &fakeSender{})

	err := notifier.HandleTask(context.Background(), Task{Name: "nope"})
	assert.Error(t, err)
}
