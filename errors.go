package main

import "errors"

// errMissingBotToken возвращается при отсутствии токена бота.
var errMissingBotToken = errors.New("BOT_TOKEN is not set")

// errHabitNotFound используется, когда привычка не найдена.
var errHabitNotFound = errors.New("habit not found")

// errUserNotFound используется, когда пользователь не найден.
var errUserNotFound = errors.New("user not found")

// errInvalidCredentials возвращается при неверной паре email/пароль.
var errInvalidCredentials = errors.New("invalid credentials")
