package application

import (
	"time"

	"github.com/bnema/livesync-cli/internal/domain"
)

type AddDevicesCommand struct {
	ProjectDir       string
	SyncToPreviewApp bool
	Devices          []domain.DeviceDescriptor
}

type RemoveDevicesCommand struct {
	ProjectDir  string
	Identifiers []string
}

type AwaitNotificationCommand struct {
	DeviceID     string
	Notification string
	Timeout      time.Duration
}

type DebuggerPortQuery struct {
	DeviceID string
	AppID    string
	Timeout  time.Duration
}
