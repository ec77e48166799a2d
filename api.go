package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// API описывает HTTP API для работы с привычками.
type API struct {
	store *HabitsStore
	queue Enqueuer
	auth  Authenticator
}

// NewAPI создает API с заданным хранилищем и очередью задач.
func NewAPI(store *HabitsStore, queue Enqueuer) *API {
	return &API{
		store: store,
		queue: queue,
		auth:  Authenticator{store: store},
	}
}

// Handler возвращает http.Handler со всеми маршрутами API.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/users", a.handleUsers)
	mux.HandleFunc("/habits", a.handleHabits)
	mux.HandleFunc("/habits/", a.handleHabitByID)

	return LoggingMiddleware(mux)
}

// handleUsers обрабатывает регистрацию пользователей.
func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeDetail(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid payload")
		return
	}
	payload.Email = strings.TrimSpace(payload.Email)
	if payload.Email == "" || payload.Password == "" {
		writeDetail(w, http.StatusBadRequest, "Необходимо указать email и пароль.")
		return
	}

	if _, err := a.store.UserByEmail(r.Context(), payload.Email); err == nil {
		writeDetail(w, http.StatusBadRequest, "Пользователь с таким email уже существует.")
		return
	} else if !errors.Is(err, errUserNotFound) {
		writeDetail(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	user, err := a.store.CreateUser(r.Context(), payload.Email, string(hash))
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// handleHabits обрабатывает создание и получение списка привычек.
func (a *API) handleHabits(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.handleListHabits(w, r)
	case http.MethodPost:
		a.handleCreateHabit(w, r)
	default:
		writeDetail(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleHabitByID маршрутизирует запросы для конкретной привычки.
func (a *API) handleHabitByID(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.TrimPrefix(r.URL.Path, "/habits/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}

	id, err := strconv.Atoi(parts[0])
	if err != nil || id <= 0 {
		writeDetail(w, http.StatusBadRequest, "invalid id")
		return
	}
	habitID := uint(id)

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			a.handleRetrieveHabit(w, r, habitID)
		case http.MethodPut, http.MethodPatch:
			a.handleUpdateHabit(w, r, habitID)
		case http.MethodDelete:
			a.handleDeleteHabit(w, r, habitID)
		default:
			writeDetail(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	if len(parts) == 2 && parts[1] == "perform" {
		if r.Method != http.MethodPost {
			writeDetail(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		a.handlePerformHabit(w, r, habitID)
		return
	}

	http.NotFound(w, r)
}

// handleListHabits возвращает привычки, видимые вызывающему:
// свои и публичные для авторизованного, только публичные для анонимного.
func (a *API) handleListHabits(w http.ResponseWriter, r *http.Request) {
	user, ok := a.optionalUser(w, r)
	if !ok {
		return
	}

	var userID *int64
	if user != nil {
		userID = &user.ID
	}

	limit := intFromQuery(r, "limit", 20)
	if limit > 100 {
		limit = 100
	}
	offset := intFromQuery(r, "offset", 0)

	habits, err := a.store.ListHabits(r.Context(), userID, limit, offset)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "failed to list habits")
		return
	}

	writeJSON(w, http.StatusOK, habits)
}

// handleCreateHabit создает привычку; владельцем становится вызывающий.
func (a *API) handleCreateHabit(w http.ResponseWriter, r *http.Request) {
	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	var payload habitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid payload")
		return
	}

	habit := Habit{UserID: &user.ID}
	payload.apply(&habit)

	created, err := a.store.CreateHabit(r.Context(), habit)
	if err != nil {
		writeHabitError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// handleRetrieveHabit возвращает привычку, если она видима вызывающему.
func (a *API) handleRetrieveHabit(w http.ResponseWriter, r *http.Request, id uint) {
	user, ok := a.optionalUser(w, r)
	if !ok {
		return
	}

	habit, err := a.store.HabitByID(r.Context(), id)
	if errors.Is(err, errHabitNotFound) {
		writeDetail(w, http.StatusNotFound, "Привычка не найдена.")
		return
	}
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "failed to load habit")
		return
	}

	if !habit.IsPublic && (user == nil || !habit.OwnedBy(user.ID)) {
		writeDetail(w, http.StatusNotFound, "Привычка не найдена.")
		return
	}

	writeJSON(w, http.StatusOK, habit)
}

// handleUpdateHabit изменяет привычку владельца. Поддерживает частичное обновление.
func (a *API) handleUpdateHabit(w http.ResponseWriter, r *http.Request, id uint) {
	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	habit, err := a.store.HabitByID(r.Context(), id)
	if errors.Is(err, errHabitNotFound) {
		writeDetail(w, http.StatusNotFound, "Привычка не найдена.")
		return
	}
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "failed to load habit")
		return
	}

	if !habit.OwnedBy(user.ID) {
		writeDetail(w, http.StatusForbidden, "Вы не можете изменять чужие привычки")
		return
	}

	var payload habitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid payload")
		return
	}
	payload.apply(&habit)

	if err := a.store.SaveHabit(r.Context(), habit); err != nil {
		writeHabitError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, habit)
}

// handleDeleteHabit удаляет привычку владельца.
func (a *API) handleDeleteHabit(w http.ResponseWriter, r *http.Request, id uint) {
	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	habit, err := a.store.HabitByID(r.Context(), id)
	if errors.Is(err, errHabitNotFound) {
		writeDetail(w, http.StatusNotFound, "Привычка не найдена.")
		return
	}
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "failed to load habit")
		return
	}

	if !habit.OwnedBy(user.ID) {
		writeDetail(w, http.StatusForbidden, "Вы не можете удалять чужие привычки")
		return
	}

	if _, err := a.store.DeleteHabit(r.Context(), id); err != nil {
		writeDetail(w, http.StatusInternalServerError, "failed to delete habit")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handlePerformHabit отмечает привычку выполненной и ставит в очередь
// задачу с уведомлением о связанных привычках.
func (a *API) handlePerformHabit(w http.ResponseWriter, r *http.Request, id uint) {
	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	habit, err := a.store.HabitByID(r.Context(), id)
	if errors.Is(err, errHabitNotFound) {
		writeDetail(w, http.StatusNotFound, "Привычка не найдена.")
		return
	}
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "failed to load habit")
		return
	}

	if !habit.OwnedBy(user.ID) {
		writeDetail(w, http.StatusForbidden, "Вы не можете отмечать выполнение чужих привычек")
		return
	}

	completed, err := a.store.CompleteHabit(r.Context(), id)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "failed to complete habit")
		return
	}
	if !completed {
		writeDetail(w, http.StatusBadRequest, "Эта привычка уже выполнена")
		return
	}

	a.queue.Enqueue(Task{Name: taskSendFollowUp, HabitID: habit.ID, UserID: user.ID})

	hasRelated, err := a.store.HasActiveChainedHabits(r.Context(), habit.ID)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "failed to check related habits")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "success",
		"message":     "Привычка отмечена как выполненная",
		"habit_id":    habit.ID,
		"action":      habit.Action,
		"has_related": hasRelated,
	})
}

// habitPayload — поля привычки, доступные клиенту для записи.
// Владелец, статус и дата создания назначаются системой.
type habitPayload struct {
	Place          *string      `json:"place"`
	Time           *string      `json:"time"`
	Action         *string      `json:"action"`
	IsPleasant     *bool        `json:"is_pleasant"`
	RelatedHabitID *uint        `json:"related_habit"`
	Periodicity    *Periodicity `json:"periodicity"`
	Reward         *string      `json:"reward"`
	Duration       *int         `json:"duration"`
	IsPublic       *bool        `json:"is_public"`
}

// apply переносит заданные поля в привычку. Нулевой related_habit снимает связь.
func (p habitPayload) apply(habit *Habit) {
	if p.Place != nil {
		habit.Place = *p.Place
	}
	if p.Time != nil {
		habit.Time = *p.Time
	}
	if p.Action != nil {
		habit.Action = *p.Action
	}
	if p.IsPleasant != nil {
		habit.IsPleasant = *p.IsPleasant
	}
	if p.RelatedHabitID != nil {
		if *p.RelatedHabitID == 0 {
			habit.RelatedHabitID = nil
		} else {
			id := *p.RelatedHabitID
			habit.RelatedHabitID = &id
		}
	}
	if p.Periodicity != nil {
		habit.Periodicity = *p.Periodicity
	}
	if p.Reward != nil {
		habit.Reward = *p.Reward
	}
	if p.Duration != nil {
		habit.Duration = *p.Duration
	}
	if p.IsPublic != nil {
		habit.IsPublic = *p.IsPublic
	}
}

// optionalUser аутентифицирует запрос, допуская анонимный доступ.
func (a *API) optionalUser(w http.ResponseWriter, r *http.Request) (*User, bool) {
	user, err := a.auth.Authenticate(r)
	if errors.Is(err, errInvalidCredentials) {
		w.Header().Set("WWW-Authenticate", "Basic realm=habits")
		writeDetail(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "authentication failed")
		return nil, false
	}
	return user, true
}

// requireUser аутентифицирует запрос и требует авторизации.
func (a *API) requireUser(w http.ResponseWriter, r *http.Request) (*User, bool) {
	user, ok := a.optionalUser(w, r)
	if !ok {
		return nil, false
	}
	if user == nil {
		w.Header().Set("WWW-Authenticate", "Basic realm=habits")
		writeDetail(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	return user, true
}

// writeHabitError преобразует ошибку записи привычки в HTTP-ответ.
func writeHabitError(w http.ResponseWriter, err error) {
	var validation *ValidationError
	if errors.As(err, &validation) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": validation.Messages})
		return
	}
	writeDetail(w, http.StatusInternalServerError, "failed to save habit")
}

// intFromQuery извлекает неотрицательное число из параметров запроса.
func intFromQuery(r *http.Request, key string, fallback int) int {
	value, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

// writeDetail отправляет ответ с одним сообщением в поле detail.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeJSON сериализует ответ в JSON.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
