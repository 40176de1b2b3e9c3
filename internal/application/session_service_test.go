package application

import (
	"context"
	"errors"
	"testing"

	"github.com/bnema/livesync-cli/internal/domain"
	"github.com/bnema/livesync-cli/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSessionServiceAddDevicesRestoresAndSaves(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	repo := &mocks.SessionRepository{}
	repo.On("GetByProjectDir", mock.Anything, "/work/app").Return(domain.SessionSnapshot{
		ProjectDir:        "/work/app",
		SessionID:         "s-1",
		DeviceDescriptors: []domain.DeviceDescriptor{{Identifier: "d1", Platform: domain.PlatformIOS}},
	}, nil)
	repo.On("Save", mock.Anything, mock.MatchedBy(func(snapshot domain.SessionSnapshot) bool {
		return snapshot.SessionID == "s-1" &&
			len(snapshot.DeviceDescriptors) == 2 &&
			snapshot.SyncToPreviewApp &&
			snapshot.UpdatedAt.Equal(clock.Now())
	})).Return(nil).Once()

	svc := NewSessionService(NewSessionRegistry(nil), repo, clock)

	data, err := svc.AddDevices(context.Background(), AddDevicesCommand{
		ProjectDir:       "/work/app",
		SyncToPreviewApp: true,
		Devices:          []domain.DeviceDescriptor{{Identifier: "d2", Platform: domain.PlatformAndroid}},
	})
	require.NoError(t, err)
	assert.Equal(t, "s-1", data.SessionID)
	assert.Equal(t, []string{"d1", "d2"}, identifiers(data.DeviceDescriptors))
	repo.AssertExpectations(t)
}

func TestSessionServiceAddDevicesRejectsInvalidDescriptor(t *testing.T) {
	t.Parallel()

	repo := &mocks.SessionRepository{}
	svc := NewSessionService(NewSessionRegistry(nil), repo, newTestClock())

	_, err := svc.AddDevices(context.Background(), AddDevicesCommand{
		ProjectDir: "/work/app",
		Devices:    []domain.DeviceDescriptor{{Identifier: ""}},
	})
	require.ErrorIs(t, err, domain.ErrInvalidDevice)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestSessionServiceWrapsRepositoryErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk full")
	repo := &mocks.SessionRepository{}
	repo.On("GetByProjectDir", mock.Anything, "/work/app").Return(domain.SessionSnapshot{}, domain.ErrSessionNotFound)
	repo.On("Save", mock.Anything, mock.Anything).Return(boom)

	svc := NewSessionService(NewSessionRegistry(nil), repo, newTestClock())

	_, err := svc.AddDevices(context.Background(), AddDevicesCommand{
		ProjectDir: "/work/app",
		Devices:    []domain.DeviceDescriptor{{Identifier: "d1"}},
	})
	require.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "save session snapshot")
}

func TestSessionServiceStopUnknownProject(t *testing.T) {
	t.Parallel()

	repo := &mocks.SessionRepository{}
	repo.On("GetByProjectDir", mock.Anything, "/work/app").Return(domain.SessionSnapshot{}, domain.ErrSessionNotFound)

	svc := NewSessionService(NewSessionRegistry(nil), repo, newTestClock())

	_, err := svc.Stop(context.Background(), "/work/app")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionServiceStopPersistsStoppedFlag(t *testing.T) {
	t.Parallel()

	registry := NewSessionRegistry(nil)
	repo := &mocks.SessionRepository{}
	repo.On("GetByProjectDir", mock.Anything, "/work/app").Return(domain.SessionSnapshot{ProjectDir: "/work/app", SessionID: "s-1"}, nil)
	repo.On("Save", mock.Anything, mock.MatchedBy(func(snapshot domain.SessionSnapshot) bool {
		return snapshot.Stopped
	})).Return(nil).Once()

	svc := NewSessionService(registry, repo, newTestClock())

	data, err := svc.Stop(context.Background(), "/work/app")
	require.NoError(t, err)
	assert.True(t, data.Stopped)
	assert.True(t, registry.IsStopped("/work/app"))
	repo.AssertExpectations(t)
}

func TestSessionServiceRemoveDevices(t *testing.T) {
	t.Parallel()

	repo := &mocks.SessionRepository{}
	repo.On("GetByProjectDir", mock.Anything, "/work/app").Return(domain.SessionSnapshot{
		ProjectDir: "/work/app",
		DeviceDescriptors: []domain.DeviceDescriptor{
			{Identifier: "d1"},
			{Identifier: "d2"},
		},
	}, nil)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)

	svc := NewSessionService(NewSessionRegistry(nil), repo, newTestClock())

	data, err := svc.RemoveDevices(context.Background(), RemoveDevicesCommand{
		ProjectDir:  "/work/app",
		Identifiers: []string{"d1"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"d2"}, identifiers(data.DeviceDescriptors))
}

func TestSessionServiceListPrefersInMemorySessions(t *testing.T) {
	t.Parallel()

	registry := NewSessionRegistry(nil)
	live := registry.Persist("/work/a", SyncInfo{}, domain.DeviceDescriptor{Identifier: "live"})

	repo := &mocks.SessionRepository{}
	repo.On("List", mock.Anything).Return([]domain.SessionSnapshot{
		{ProjectDir: "/work/a", SessionID: "stale", DeviceDescriptors: []domain.DeviceDescriptor{{Identifier: "old"}}},
		{ProjectDir: "/work/b", SessionID: "s-b"},
	}, nil)

	svc := NewSessionService(registry, repo, newTestClock())

	sessions, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, live.SessionID, sessions[0].SessionID)
	assert.Equal(t, []string{"live"}, identifiers(sessions[0].DeviceDescriptors))
	assert.Equal(t, "s-b", sessions[1].SessionID)
}

func TestSessionServiceGetAndForget(t *testing.T) {
	t.Parallel()

	repo := &mocks.SessionRepository{}
	repo.On("GetByProjectDir", mock.Anything, "/work/app").Return(domain.SessionSnapshot{ProjectDir: "/work/app", SessionID: "s-1"}, nil)
	repo.On("GetByProjectDir", mock.Anything, "/work/none").Return(domain.SessionSnapshot{}, domain.ErrSessionNotFound)
	repo.On("Delete", mock.Anything, "/work/app").Return(nil)
	repo.On("Delete", mock.Anything, "/work/none").Return(domain.ErrSessionNotFound)

	svc := NewSessionService(NewSessionRegistry(nil), repo, newTestClock())

	data, err := svc.Get(context.Background(), "/work/app")
	require.NoError(t, err)
	assert.Equal(t, "s-1", data.SessionID)

	_, err = svc.Get(context.Background(), "/work/none")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	require.NoError(t, svc.Forget(context.Background(), "/work/app"))
	require.ErrorIs(t, svc.Forget(context.Background(), "/work/none"), domain.ErrSessionNotFound)
}

func identifiers(descriptors []domain.DeviceDescriptor) []string {
	out := make([]string, 0, len(descriptors))
	for _, descriptor := range descriptors {
		out = append(out, descriptor.Identifier)
	}
	return out
}
