package domain

import "time"

// SessionSnapshot is the persisted part of a project's live-sync session.
type SessionSnapshot struct {
	ProjectDir        string
	SessionID         string
	SyncToPreviewApp  bool
	Stopped           bool
	DeviceDescriptors []DeviceDescriptor
	UpdatedAt         time.Time
}
