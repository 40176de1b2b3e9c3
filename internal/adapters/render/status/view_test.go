package status

import (
	"context"
	"testing"

	"github.com/bnema/livesync-cli/internal/application"
	"github.com/bnema/livesync-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEmptySessions(t *testing.T) {
	output, err := Render(nil, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "Live Sync Sessions")
	assert.Contains(t, output, "sessions: 0")
	assert.Contains(t, output, "No live sync sessions.")
}

func TestRenderSingleSession(t *testing.T) {
	output, err := Render([]application.SessionData{
		{
			ProjectDir:       "/work/app",
			SessionID:        "6f1c1d1e-0000-4000-8000-000000000001",
			SyncToPreviewApp: true,
			DeviceDescriptors: []domain.DeviceDescriptor{
				{Identifier: "emulator-5554", Platform: domain.PlatformAndroid, Name: "Pixel 8", Emulator: true},
				{Identifier: "00008030-AB", Platform: domain.PlatformIOS, Model: "iPhone15,2"},
			},
		},
	}, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "sessions: 1")
	assert.Contains(t, output, "/work/app")
	assert.Contains(t, output, "[idle]")
	assert.Contains(t, output, "[preview app]")
	assert.Contains(t, output, "devices: 2")
	assert.Contains(t, output, "- Pixel 8 (Android, emulator-5554, emulator)")
	assert.Contains(t, output, "- 00008030-AB (iOS)")
	assert.NotContains(t, output, "session: ")
	assert.NotContains(t, output, "iPhone15,2")
}

func TestRenderVerboseShowsSessionIDAndModel(t *testing.T) {
	output, err := Render([]application.SessionData{
		{
			ProjectDir: "/work/app",
			SessionID:  "s-1",
			DeviceDescriptors: []domain.DeviceDescriptor{
				{Identifier: "00008030-AB", Platform: domain.PlatformIOS, Model: "iPhone15,2"},
			},
		},
	}, RenderOptions{Verbose: true})

	require.NoError(t, err)
	assert.Contains(t, output, "session: s-1")
	assert.Contains(t, output, "(iOS, iPhone15,2)")
}

func TestRenderMarksStoppedSession(t *testing.T) {
	output, err := Render([]application.SessionData{
		{ProjectDir: "/work/a", Stopped: true},
		{ProjectDir: "/work/b"},
	}, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "sessions: 2")
	assert.Contains(t, output, "[stopped]")
	assert.Contains(t, output, "devices: none")
	assert.NotContains(t, output, "[preview app]")
}

func TestRenderMarksSessionWithPendingAction(t *testing.T) {
	registry := application.NewSessionRegistry(nil)
	registry.Persist("/work/app", application.SyncInfo{}, domain.DeviceDescriptor{Identifier: "d1", Platform: domain.PlatformIOS})

	release := make(chan struct{})
	action, err := registry.Enqueue(context.Background(), "/work/app", func(context.Context) error {
		<-release
		return nil
	})
	require.NoError(t, err)

	data, ok := registry.GetData("/work/app")
	require.True(t, ok)

	output, err := Render([]application.SessionData{data}, RenderOptions{})
	require.NoError(t, err)
	assert.Contains(t, output, "[syncing]")

	close(release)
	<-action.Done()

	output, err = Render([]application.SessionData{data}, RenderOptions{})
	require.NoError(t, err)
	assert.Contains(t, output, "[idle]")
}
