package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/livesync-cli/internal/domain"
	"github.com/bnema/livesync-cli/internal/ports"
)

// SessionService keeps the in-memory registry and the persisted session
// snapshots in step.
type SessionService struct {
	registry *SessionRegistry
	repo     ports.SessionRepository
	clock    ports.Clock
}

func NewSessionService(registry *SessionRegistry, repo ports.SessionRepository, clock ports.Clock) *SessionService {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &SessionService{registry: registry, repo: repo, clock: clock}
}

func (s *SessionService) AddDevices(ctx context.Context, cmd AddDevicesCommand) (SessionData, error) {
	for _, device := range cmd.Devices {
		if err := device.Validate(); err != nil {
			return SessionData{}, err
		}
	}

	if err := s.restore(ctx, cmd.ProjectDir); err != nil {
		return SessionData{}, err
	}

	data := s.registry.Persist(cmd.ProjectDir, SyncInfo{SyncToPreviewApp: cmd.SyncToPreviewApp}, cmd.Devices...)
	if err := s.save(ctx, data); err != nil {
		return SessionData{}, err
	}

	return data, nil
}

func (s *SessionService) RemoveDevices(ctx context.Context, cmd RemoveDevicesCommand) (SessionData, error) {
	if err := s.restore(ctx, cmd.ProjectDir); err != nil {
		return SessionData{}, err
	}

	if err := s.registry.RemoveDeviceDescriptors(cmd.ProjectDir, cmd.Identifiers...); err != nil {
		return SessionData{}, err
	}

	return s.saveCurrent(ctx, cmd.ProjectDir)
}

func (s *SessionService) Stop(ctx context.Context, projectDir string) (SessionData, error) {
	if err := s.restore(ctx, projectDir); err != nil {
		return SessionData{}, err
	}

	if err := s.registry.Stop(projectDir); err != nil {
		return SessionData{}, err
	}

	return s.saveCurrent(ctx, projectDir)
}

// List returns every known session, persisted or in memory.
func (s *SessionService) List(ctx context.Context) ([]SessionData, error) {
	snapshots, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list session snapshots: %w", err)
	}
	for _, snapshot := range snapshots {
		s.registry.Restore(snapshot)
	}

	return s.registry.GetAllData(), nil
}

func (s *SessionService) Get(ctx context.Context, projectDir string) (SessionData, error) {
	if err := s.restore(ctx, projectDir); err != nil {
		return SessionData{}, err
	}

	data, ok := s.registry.GetData(projectDir)
	if !ok {
		return SessionData{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, projectDir)
	}

	return data, nil
}

func (s *SessionService) restore(ctx context.Context, projectDir string) error {
	snapshot, err := s.repo.GetByProjectDir(ctx, projectDir)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil
		}
		return fmt.Errorf("get session snapshot: %w", err)
	}

	s.registry.Restore(snapshot)
	return nil
}

func (s *SessionService) saveCurrent(ctx context.Context, projectDir string) (SessionData, error) {
	data, ok := s.registry.GetData(projectDir)
	if !ok {
		return SessionData{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, projectDir)
	}

	if err := s.save(ctx, data); err != nil {
		return SessionData{}, err
	}

	return data, nil
}

func (s *SessionService) save(ctx context.Context, data SessionData) error {
	snapshot := data.Snapshot()
	snapshot.UpdatedAt = s.clock.Now()

	if err := s.repo.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("save session snapshot: %w", err)
	}

	return nil
}

// Forget deletes the persisted snapshot of projectDir. In-memory sessions
// live until the registry shuts down.
func (s *SessionService) Forget(ctx context.Context, projectDir string) error {
	if err := s.repo.Delete(ctx, projectDir); err != nil {
		return fmt.Errorf("delete session snapshot: %w", err)
	}

	return nil
}
