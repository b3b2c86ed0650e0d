// Package notifier implements the upload notification capability. The
// service has no browser toast to show, so notifications land in the log
// stream and in an in-memory ring the API can expose per tab.
package notifier

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Notification is one user-visible upload message.
type Notification struct {
	TabID   string    `json:"tab_id"`
	Message string    `json:"message"`
	TS      time.Time `json:"ts"`
}

const ringSize = 32

// Log records notifications to zap and keeps the most recent ones for the
// API to serve. ShowUpload always confirms; there is no interactive dismiss.
type Log struct {
	logger *zap.Logger

	mu     sync.Mutex
	recent []Notification
}

// NewLog builds a Log notifier.
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

// ShowUpload implements the upload-toast capability.
func (l *Log) ShowUpload(_ context.Context, message string) (bool, error) {
	l.logger.Info("upload notification", zap.String("message", message))
	l.record(Notification{Message: message, TS: time.Now().UTC()})
	return true, nil
}

// ForTab returns an ordered copy of retained notifications. TabID filtering
// is a no-op for now because ShowUpload carries no tab; the parameter keeps
// the API stable while that plumbs through.
func (l *Log) ForTab(string) []Notification {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Notification, len(l.recent))
	copy(out, l.recent)
	return out
}

func (l *Log) record(n Notification) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recent = append(l.recent, n)
	if len(l.recent) > ringSize {
		l.recent = l.recent[len(l.recent)-ringSize:]
	}
}
