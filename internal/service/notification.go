package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Strob0t/Boardroom/internal/port/notifier"
)

// Notification sources.
const (
	SourcePendingHuman  = "pitch.pending_human"
	SourceRevisionStall = "pitch.revision_stalled"
)

const notifyTimeout = 10 * time.Second

// NotificationService fans notifications out to every configured notifier.
// Delivery is fire-and-forget; failures are logged.
type NotificationService struct {
	notifiers     []notifier.Notifier
	enabledEvents map[string]bool
	wg            sync.WaitGroup
}

// NewNotificationService creates a NotificationService. An empty
// enabledEvents list enables every source.
func NewNotificationService(notifiers []notifier.Notifier, enabledEvents []string) *NotificationService {
	enabled := make(map[string]bool, len(enabledEvents))
	for _, e := range enabledEvents {
		enabled[e] = true
	}
	return &NotificationService{
		notifiers:     notifiers,
		enabledEvents: enabled,
	}
}

// Notify sends n to every notifier in the background. The caller's
// cancellation does not cut deliveries short.
func (s *NotificationService) Notify(ctx context.Context, n notifier.Notification) {
	if len(s.enabledEvents) > 0 && !s.enabledEvents[n.Source] {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, provider := range s.notifiers {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			sendCtx, cancel := context.WithTimeout(ctx, notifyTimeout)
			defer cancel()
			if err := provider.Send(sendCtx, n); err != nil {
				slog.WarnContext(ctx, "notification send failed",
					"provider", provider.Name(),
					"post_id", n.PostID,
					"error", err,
				)
				return
			}
			slog.DebugContext(ctx, "notification sent", "provider", provider.Name(), "post_id", n.PostID)
		}()
	}
}

// Wait blocks until in-flight deliveries finish.
func (s *NotificationService) Wait() {
	s.wg.Wait()
}

// NotifierCount returns the number of registered notifiers.
func (s *NotificationService) NotifierCount() int {
	return len(s.notifiers)
}
