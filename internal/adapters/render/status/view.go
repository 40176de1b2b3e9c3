package status

import (
	"fmt"
	"strings"

	"github.com/bnema/livesync-cli/internal/application"
	"github.com/bnema/livesync-cli/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

type RenderOptions struct {
	// Verbose adds session ids and device models.
	Verbose bool
}

func renderView(sessions []application.SessionData, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Live Sync Sessions"),
		s.header.Render(fmt.Sprintf("sessions: %d", len(sessions))),
	}

	if len(sessions) == 0 {
		lines = append(lines, s.empty.Render("No live sync sessions."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, session := range sessions {
		lines = append(lines, s.section.Render(renderSession(session, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderSession(session application.SessionData, opts RenderOptions, s styles) string {
	title := lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.project.Render(session.ProjectDir),
		" ",
		stateBadge(session, s),
	)
	if session.SyncToPreviewApp {
		title += " " + s.badge.Render("[preview app]")
	}

	parts := []string{title}
	if opts.Verbose && session.SessionID != "" {
		parts = append(parts, s.meta.Render("session: "+session.SessionID))
	}

	parts = append(parts, s.detail.Render(devicesLabel(len(session.DeviceDescriptors))))
	for _, device := range session.DeviceDescriptors {
		parts = append(parts, s.device.Render(deviceLine(device, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func stateBadge(session application.SessionData, s styles) string {
	if session.Stopped {
		return s.warning.Render("[stopped]")
	}
	if actionPending(session.CurrentAction) {
		return s.active.Render("[syncing]")
	}

	return s.active.Render("[idle]")
}

func actionPending(action *application.Action) bool {
	if action == nil {
		return false
	}

	select {
	case <-action.Done():
		return false
	default:
		return true
	}
}

func devicesLabel(count int) string {
	switch count {
	case 0:
		return "devices: none"
	case 1:
		return "devices: 1"
	default:
		return fmt.Sprintf("devices: %d", count)
	}
}

func deviceLine(device domain.DeviceDescriptor, opts RenderOptions, s styles) string {
	details := []string{platformLabel(device.Platform)}
	if device.DisplayName() != device.Identifier {
		details = append(details, device.Identifier)
	}
	if opts.Verbose && device.Model != "" {
		details = append(details, device.Model)
	}
	if device.Emulator {
		details = append(details, "emulator")
	}

	return fmt.Sprintf("- %s %s", device.DisplayName(), s.platform.Render("("+strings.Join(details, ", ")+")"))
}

func platformLabel(platform domain.Platform) string {
	switch platform.Normalize() {
	case domain.PlatformIOS:
		return "iOS"
	case domain.PlatformAndroid:
		return "Android"
	case "":
		return "unknown"
	default:
		return string(platform)
	}
}
