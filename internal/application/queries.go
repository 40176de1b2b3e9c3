package application

import (
	"github.com/bnema/livesync-cli/internal/domain"
)

// SessionData is a read-only view of one project's live-sync session.
type SessionData struct {
	ProjectDir        string
	SessionID         string
	Stopped           bool
	SyncToPreviewApp  bool
	DeviceDescriptors []domain.DeviceDescriptor
	// CurrentAction is the tail of the project's action chain.
	CurrentAction *Action `json:"-"`
}

func (d SessionData) Snapshot() domain.SessionSnapshot {
	return domain.SessionSnapshot{
		ProjectDir:        d.ProjectDir,
		SessionID:         d.SessionID,
		SyncToPreviewApp:  d.SyncToPreviewApp,
		Stopped:           d.Stopped,
		DeviceDescriptors: cloneDescriptors(d.DeviceDescriptors),
	}
}
