package application

import (
	"context"
	"fmt"

	"github.com/bnema/livesync-cli/internal/ports"
	"pkt.systems/pslog"
)

type CoordinatorDeps struct {
	Observer ports.NotificationObserver
	Sources  []ports.LogSource
	Clock    ports.Clock
	Logger   pslog.Logger
}

// Coordinator owns one instance of every session and device communication
// component. Several coordinators can coexist, e.g. in tests.
type Coordinator struct {
	Sessions      *SessionRegistry
	Logs          *LogRouter
	Channels      *ChannelCache
	Notifications *NotificationWaiter
	Debugger      *DebuggerPortService
}

func NewCoordinator(deps CoordinatorDeps) (*Coordinator, error) {
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	if deps.Observer == nil {
		return nil, fmt.Errorf("notification observer is required")
	}

	router := NewLogRouter(logger.With("component", "logs"), deps.Sources...)
	debugger, err := NewDebuggerPortService(router, deps.Clock, logger.With("component", "debugger"))
	if err != nil {
		return nil, err
	}

	return &Coordinator{
		Sessions:      NewSessionRegistry(logger.With("component", "sessions")),
		Logs:          router,
		Channels:      NewChannelCache(logger.With("component", "channels")),
		Notifications: NewNotificationWaiter(deps.Observer, deps.Clock, logger.With("component", "notifications")),
		Debugger:      debugger,
	}, nil
}

// Shutdown releases subscriptions and drops all cached state.
func (c *Coordinator) Shutdown() {
	c.Logs.Close()
	c.Channels.Clear()
	c.Sessions.Shutdown()
}
