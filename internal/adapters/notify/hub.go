package notify

import (
	"context"
	"strings"
	"sync"

	"github.com/bnema/livesync-cli/internal/domain"
	"github.com/bnema/livesync-cli/internal/ports"
	"pkt.systems/pslog"
)

const (
	RelayRuleName    = "notification-relay"
	relayRulePattern = `^notification: (\S+)(?:\s+(.*))?$`
)

// Hub is an in-process notification observer registry. Post delivers to
// the observers registered for the notification name at the time of the
// call, so observers may detach themselves while being notified.
type Hub struct {
	mu        sync.Mutex
	observers map[string][]ports.Observer
	log       pslog.Logger
}

var _ ports.NotificationObserver = (*Hub)(nil)

func NewHub(logger pslog.Logger) *Hub {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}

	return &Hub{
		observers: make(map[string][]ports.Observer),
		log:       logger,
	}
}

func (h *Hub) AddObserver(name string, observer ports.Observer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.observers[name] = append(h.observers[name], observer)
}

// RemoveObserver detaches one registration of observer. Unknown observers
// are ignored.
func (h *Hub) RemoveObserver(name string, observer ports.Observer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	current := h.observers[name]
	for i, candidate := range current {
		if candidate != observer {
			continue
		}

		next := make([]ports.Observer, 0, len(current)-1)
		next = append(next, current[:i]...)
		next = append(next, current[i+1:]...)
		if len(next) == 0 {
			delete(h.observers, name)
		} else {
			h.observers[name] = next
		}
		return
	}
}

func (h *Hub) ObserverCount(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.observers[name])
}

func (h *Hub) Post(notification domain.Notification) int {
	h.mu.Lock()
	targets := append([]ports.Observer(nil), h.observers[notification.Name]...)
	h.mu.Unlock()

	h.log.Debug("notification posted", "name", notification.Name, "device", notification.DeviceID, "observers", len(targets))
	for _, observer := range targets {
		observer.Notify(notification)
	}

	return len(targets)
}

// RelayRule returns a log rule that posts a notification for every
// "notification: <name> [payload]" line.
func (h *Hub) RelayRule() domain.ParseRule {
	return domain.ParseRule{
		Name:    RelayRuleName,
		Pattern: relayRulePattern,
		Handler: func(match domain.RuleMatch) {
			h.Post(domain.Notification{
				Name:     match.Group(1),
				DeviceID: match.DeviceID,
				Payload:  strings.TrimSpace(match.Group(2)),
			})
		},
	}
}
