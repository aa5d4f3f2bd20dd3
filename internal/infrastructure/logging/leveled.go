package logging

import "go.uber.org/zap"

// Leveled adapts Logger to the key/value leveled logger interface used by
// hashicorp/go-retryablehttp, so retry attempts land in the structured log.
type Leveled struct {
	sugar *zap.SugaredLogger
}

// Leveled returns the retryablehttp-compatible view of l.
func (l *Logger) Leveled() *Leveled {
	return &Leveled{sugar: l.Logger.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (l *Leveled) Error(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}

func (l *Leveled) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

// Debug is where retryablehttp reports every request; keep it at debug.
func (l *Leveled) Debug(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l *Leveled) Warn(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}
