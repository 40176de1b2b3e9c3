package ports

import "github.com/bnema/livesync-cli/internal/domain"

type Observer interface {
	Notify(notification domain.Notification)
}

// NotificationObserver is the device-side observer API of the agent.
type NotificationObserver interface {
	AddObserver(name string, observer Observer)
	RemoveObserver(name string, observer Observer)
}
