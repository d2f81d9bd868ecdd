// Package logging provides the package-level zap logger shared by every
// component of the RPC runtime.
package logging

import "go.uber.org/zap"

var log = must(zap.NewProduction())

func must(l *zap.Logger, err error) *zap.Logger {
	if err != nil {
		panic(err)
	}
	return l
}

// SetLogger replaces the package-level logger, e.g. with a development
// logger in tests or a custom sink in an embedding application.
func SetLogger(l *zap.Logger) {
	if l == nil {
		return
	}
	log = l
}

func Debug(msg string, fields ...zap.Field) { log.Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { log.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { log.Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { log.Error(msg, fields...) }
