// Package logger wraps logr with the verbosity levels used across iml-device.
package logger

import (
	"fmt"
	"strconv"

	"github.com/go-logr/logr"
	"k8s.io/klog/v2/textlogger"
)

const (
	ErrorLevel   Verbosity = "0"
	WarningLevel Verbosity = "1"
	InfoLevel    Verbosity = "2"
	DebugLevel   Verbosity = "3"
	TraceLevel   Verbosity = "4"
)

const (
	warnLvl = iota + 1
	infoLvl
	debugLvl
	traceLvl
)

type Verbosity string

// ParseVerbosity accepts either a numeric level or one of
// error, warning, info, debug, trace.
func ParseVerbosity(s string) (Verbosity, error) {
	switch s {
	case "", "info":
		return InfoLevel, nil
	case "error":
		return ErrorLevel, nil
	case "warning", "warn":
		return WarningLevel, nil
	case "debug":
		return DebugLevel, nil
	case "trace":
		return TraceLevel, nil
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 && v <= traceLvl {
		return Verbosity(s), nil
	}
	return "", fmt.Errorf("unknown log level %q", s)
}

type Logger struct {
	log logr.Logger
}

func NewLogger(level Verbosity) (Logger, error) {
	v, err := strconv.Atoi(string(level))
	if err != nil {
		return Logger{}, err
	}

	log := textlogger.NewLogger(textlogger.NewConfig(textlogger.Verbosity(v))).WithCallDepth(1)

	return Logger{log: log}, nil
}

func NewLoggerWrap(log logr.Logger) Logger {
	return Logger{log: log}
}

// Discard returns a Logger that drops everything.
func Discard() Logger {
	return Logger{log: logr.Discard()}
}

// WithName returns a Logger with an additional name component identifying the
// source of messages.
func (l Logger) WithName(name string) Logger {
	return NewLoggerWrap(l.log.WithName(name))
}

// WithValues returns a Logger that adds keysAndValues to every message.
func (l Logger) WithValues(keysAndValues ...any) Logger {
	return NewLoggerWrap(l.log.WithValues(keysAndValues...))
}

func (l Logger) GetLogger() logr.Logger {
	return l.log
}

func (l Logger) Error(err error, message string, keysAndValues ...any) {
	l.log.WithValues("level", "ERROR").Error(err, message, keysAndValues...)
}

func (l Logger) Warning(message string, keysAndValues ...any) {
	l.log.V(warnLvl).WithValues("level", "WARNING").Info(message, keysAndValues...)
}

func (l Logger) Info(message string, keysAndValues ...any) {
	l.log.V(infoLvl).WithValues("level", "INFO").Info(message, keysAndValues...)
}

func (l Logger) Debug(message string, keysAndValues ...any) {
	l.log.V(debugLvl).WithValues("level", "DEBUG").Info(message, keysAndValues...)
}

func (l Logger) Trace(message string, keysAndValues ...any) {
	l.log.V(traceLvl).WithValues("level", "TRACE").Info(message, keysAndValues...)
}
