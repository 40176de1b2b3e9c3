package toml

import "fmt"

const currentSessionsSchemaVersion = 1

type sessionsFileSchema struct {
	Version  int             `toml:"version"`
	Sessions []sessionSchema `toml:"sessions"`
}

func (s *sessionsFileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSessionsSchemaVersion
	}
}

func (s sessionsFileSchema) validateVersion() error {
	if s.Version > currentSessionsSchemaVersion {
		return fmt.Errorf("unsupported sessions schema version %d (current %d)", s.Version, currentSessionsSchemaVersion)
	}

	return nil
}

type sessionSchema struct {
	ProjectDir       string         `toml:"project_dir"`
	SessionID        string         `toml:"session_id"`
	SyncToPreviewApp bool           `toml:"sync_to_preview_app"`
	Stopped          bool           `toml:"stopped"`
	UpdatedAt        string         `toml:"updated_at,omitempty"`
	Devices          []deviceSchema `toml:"devices,omitempty"`
}

type deviceSchema struct {
	Identifier string `toml:"identifier"`
	Platform   string `toml:"platform"`
	Name       string `toml:"name,omitempty"`
	Model      string `toml:"model,omitempty"`
	Emulator   bool   `toml:"emulator,omitempty"`
}
