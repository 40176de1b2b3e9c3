package domain

import (
	"fmt"
	"time"
)

type Notification struct {
	Name     string
	DeviceID string
	Payload  string
}

type NotificationTimeoutError struct {
	Name    string
	Timeout time.Duration
}

func (e *NotificationTimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for notification %q", e.Timeout, e.Name)
}

func (e *NotificationTimeoutError) Is(target error) bool {
	return target == ErrNotificationTimeout
}
