package main

import (
	"errors"
	"log"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Authenticator проверяет Basic Auth по таблице пользователей.
type Authenticator struct {
	store *HabitsStore
}

// Authenticate возвращает пользователя из заголовка Authorization.
// Без заголовка возвращает nil без ошибки: запрос анонимный.
func (a Authenticator) Authenticate(r *http.Request) (*User, error) {
	email, password, ok := r.BasicAuth()
	if !ok {
		return nil, nil
	}

	user, err := a.store.UserByEmail(r.Context(), email)
	if errors.Is(err, errUserNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, errInvalidCredentials
	}
	return &user, nil
}

// LoggingMiddleware выводит в лог информацию о запросе.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("http %s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
