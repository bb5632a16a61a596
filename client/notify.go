package client

import (
	"log/slog"
)

type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notification - сообщение для пользователя о результате операции
type Notification struct {
	Level   Level
	Message string
	Err     error
}

type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc позволяет использовать функцию как Notifier
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// LogNotifier пишет уведомления в slog
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(n Notification) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if n.Level == LevelError {
		logger.Error(n.Message, "error", n.Err)
		return
	}
	logger.Info(n.Message)
}
