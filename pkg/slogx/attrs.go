// Package slogx provides small helpers for structured logging attributes.
package slogx

import (
	"fmt"
	"log/slog"
)

// KeyLoggerName is the attribute key identifying a named logger.
const KeyLoggerName = "logger"

// Error returns an attribute with key "error" and the error's message.
func Error(err error) slog.Attr {
	return slog.String("error", err.Error())
}

// Stringer returns an attribute holding the string form of value.
func Stringer(key string, value fmt.Stringer) slog.Attr {
	return slog.String(key, value.String())
}

// LoggerName returns an attribute naming the logger a record came from.
func LoggerName(name string) slog.Attr {
	return slog.String(KeyLoggerName, name)
}
