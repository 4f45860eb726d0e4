package utils

import (
	"os"
	"os/signal"
	"syscall"

	"direct2url/pkg/logger"
)

var QuitChan = make(chan os.Signal, 1)

// NotifyQuit routes SIGINT and SIGTERM to QuitChan.
func NotifyQuit() {
	signal.Notify(QuitChan, syscall.SIGINT, syscall.SIGTERM)
}

// Shutdown logs reason and exits with a non-zero status.
func Shutdown(reason string, err error) {
	logger.Log.Error().Err(err).Msgf("🚨 %s", reason)
	os.Exit(1)
}
