package main

import (
	"fmt"

	"github.com/rs/zerolog"
)

// zerologAdapter bridges the models.Logger interface onto a zerolog.Logger.
type zerologAdapter struct {
	log zerolog.Logger
}

func (a *zerologAdapter) Debug(msg string, keysAndValues ...any) {
	a.emit(a.log.Debug(), msg, keysAndValues)
}

func (a *zerologAdapter) Info(msg string, keysAndValues ...any) {
	a.emit(a.log.Info(), msg, keysAndValues)
}

func (a *zerologAdapter) Warn(msg string, keysAndValues ...any) {
	a.emit(a.log.Warn(), msg, keysAndValues)
}

func (a *zerologAdapter) Error(msg string, keysAndValues ...any) {
	a.emit(a.log.Error(), msg, keysAndValues)
}

// emit attaches alternating key-value pairs to the event. Non-string keys
// and trailing unpaired values are preserved rather than dropped.
func (a *zerologAdapter) emit(e *zerolog.Event, msg string, kv []any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		e = e.Interface(key, kv[i+1])
	}
	if len(kv)%2 == 1 {
		e = e.Interface("extra", kv[len(kv)-1])
	}
	e.Msg(msg)
}
