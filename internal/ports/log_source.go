package ports

import "github.com/bnema/livesync-cli/internal/domain"

// LogMessage is one raw chunk of device output. It may hold several lines.
// Platform is empty when the source cannot tell (preview app logs).
type LogMessage struct {
	Message  string
	DeviceID string
	Platform domain.Platform
}

type LogSource interface {
	Subscribe(handler func(LogMessage)) (unsubscribe func())
}
