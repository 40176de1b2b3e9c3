package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bnema/livesync-cli/internal/domain"
	"github.com/bnema/livesync-cli/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	SessionsPathKey    = "sessions.path"
	ConfigDir          = ".livesync"
	sessionsConfigFile = "sessions.toml"
	stateFileMode      = 0o600
	stateDirMode       = 0o700
	tempFilePattern    = ".sessions-*.toml.tmp"
)

type SessionRepository struct {
	path string
	mu   *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.SessionRepository = (*SessionRepository)(nil)

func NewSessionRepository(cfg *viper.Viper) (*SessionRepository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	path := cfg.GetString(SessionsPathKey)
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(homeDir, ConfigDir, sessionsConfigFile)
	}

	path, err := normalizePath(path)
	if err != nil {
		return nil, err
	}

	return &SessionRepository{path: path, mu: lockForPath(path)}, nil
}

func (r *SessionRepository) Path() string {
	return r.path
}

func (r *SessionRepository) Save(ctx context.Context, snapshot domain.SessionSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	encoded := toSessionSchema(snapshot)
	updated := false
	for i := range file.Sessions {
		if file.Sessions[i].ProjectDir == encoded.ProjectDir {
			file.Sessions[i] = encoded
			updated = true
			break
		}
	}
	if !updated {
		file.Sessions = append(file.Sessions, encoded)
	}
	sort.Slice(file.Sessions, func(i, j int) bool {
		return file.Sessions[i].ProjectDir < file.Sessions[j].ProjectDir
	})

	if err := ctx.Err(); err != nil {
		return err
	}

	return r.writeSchema(file)
}

func (r *SessionRepository) GetByProjectDir(ctx context.Context, projectDir string) (domain.SessionSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.SessionSnapshot{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.SessionSnapshot{}, err
	}

	for _, entry := range file.Sessions {
		if entry.ProjectDir == projectDir {
			return fromSessionSchema(entry), nil
		}
	}

	return domain.SessionSnapshot{}, domain.ErrSessionNotFound
}

func (r *SessionRepository) List(ctx context.Context) ([]domain.SessionSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	snapshots := make([]domain.SessionSnapshot, 0, len(file.Sessions))
	for _, entry := range file.Sessions {
		snapshots = append(snapshots, fromSessionSchema(entry))
	}

	return snapshots, nil
}

func (r *SessionRepository) Delete(ctx context.Context, projectDir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	kept := file.Sessions[:0]
	found := false
	for _, entry := range file.Sessions {
		if entry.ProjectDir == projectDir {
			found = true
			continue
		}
		kept = append(kept, entry)
	}
	if !found {
		return domain.ErrSessionNotFound
	}
	file.Sessions = kept

	return r.writeSchema(file)
}

func (r *SessionRepository) readSchema() (sessionsFileSchema, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			file := sessionsFileSchema{}
			file.applyDefaults()
			return file, nil
		}
		return sessionsFileSchema{}, fmt.Errorf("read sessions file: %w", err)
	}

	var file sessionsFileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return sessionsFileSchema{}, fmt.Errorf("decode sessions file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return sessionsFileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func normalizePath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", path, err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func (r *SessionRepository) writeSchema(file sessionsFileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.path), stateDirMode); err != nil {
		return fmt.Errorf("create sessions directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode sessions file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp sessions file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp sessions file: %w", err)
	}

	if err := tempFile.Chmod(stateFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp sessions file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp sessions file: %w", err)
	}

	if err := os.Rename(tempName, r.path); err != nil {
		return fmt.Errorf("replace sessions file: %w", err)
	}

	cleanup = false
	return nil
}

func toSessionSchema(snapshot domain.SessionSnapshot) sessionSchema {
	devices := make([]deviceSchema, 0, len(snapshot.DeviceDescriptors))
	for _, device := range snapshot.DeviceDescriptors {
		devices = append(devices, deviceSchema{
			Identifier: device.Identifier,
			Platform:   string(device.Platform),
			Name:       device.Name,
			Model:      device.Model,
			Emulator:   device.Emulator,
		})
	}

	return sessionSchema{
		ProjectDir:       snapshot.ProjectDir,
		SessionID:        snapshot.SessionID,
		SyncToPreviewApp: snapshot.SyncToPreviewApp,
		Stopped:          snapshot.Stopped,
		UpdatedAt:        formatTime(snapshot.UpdatedAt),
		Devices:          devices,
	}
}

func fromSessionSchema(entry sessionSchema) domain.SessionSnapshot {
	devices := make([]domain.DeviceDescriptor, 0, len(entry.Devices))
	for _, device := range entry.Devices {
		devices = append(devices, domain.DeviceDescriptor{
			Identifier: device.Identifier,
			Platform:   domain.Platform(device.Platform),
			Name:       device.Name,
			Model:      device.Model,
			Emulator:   device.Emulator,
		})
	}

	return domain.SessionSnapshot{
		ProjectDir:        entry.ProjectDir,
		SessionID:         entry.SessionID,
		SyncToPreviewApp:  entry.SyncToPreviewApp,
		Stopped:           entry.Stopped,
		DeviceDescriptors: devices,
		UpdatedAt:         parseTime(entry.UpdatedAt),
	}
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.UTC().Format(time.RFC3339)
}
