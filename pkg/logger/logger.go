package logger

import (
	"log/slog"
	"os"
	"sync"
)

var (
	log  *slog.Logger
	once sync.Once
)

// Init configures the process-wide JSON logger. Safe to call more than once.
func Init() {
	once.Do(func() {
		log = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	})
}

func get() *slog.Logger {
	if log == nil {
		Init()
	}
	return log
}

func attrs(fields map[string]interface{}) []any {
	out := make([]any, 0, len(fields)*2)
	for key, value := range fields {
		out = append(out, key, value)
	}
	return out
}

func Info(event string, fields map[string]interface{}) {
	get().Info(event, attrs(fields)...)
}

func Warn(event string, fields map[string]interface{}) {
	get().Warn(event, attrs(fields)...)
}

func Error(event string, err error, fields map[string]interface{}) {
	args := attrs(fields)
	if err != nil {
		args = append(args, "error", err.Error())
	}
	get().Error(event, args...)
}

func InfoWithUser(userID, event string, fields map[string]interface{}) {
	get().Info(event, append(attrs(fields), "user_id", userID)...)
}

func WarnWithUser(userID, event string, fields map[string]interface{}) {
	get().Warn(event, append(attrs(fields), "user_id", userID)...)
}
