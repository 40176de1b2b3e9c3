package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	statusadapter "github.com/bnema/livesync-cli/internal/adapters/render/status"
	"github.com/bnema/livesync-cli/internal/application"
	"github.com/bnema/livesync-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newSessionCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage per-project live sync sessions",
	}

	cmd.AddCommand(
		newSessionAddCmd(app),
		newSessionListCmd(app),
		newSessionStopCmd(app),
		newSessionRemoveCmd(app),
	)

	return cmd
}

func newSessionAddCmd(app *app) *cobra.Command {
	var projectDir string
	var platform string
	var name string
	var model string
	var emulator bool
	var previewApp bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "add [device-id...]",
		Short: "Record devices for a project's live sync session",
		Long:  "Creates the project's session when missing and merges the given devices into it. A device already present is replaced in place.",
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := resolveProjectDir(projectDir)
			if err != nil {
				return err
			}

			devices := make([]domain.DeviceDescriptor, 0, len(args))
			for _, id := range args {
				devices = append(devices, domain.DeviceDescriptor{
					Identifier: id,
					Platform:   domain.Platform(platform).Normalize(),
					Name:       name,
					Model:      model,
					Emulator:   emulator,
				})
			}

			rt, err := app.newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.coordinator.Shutdown()

			data, err := rt.sessions.AddDevices(cmd.Context(), application.AddDevicesCommand{
				ProjectDir:       project,
				SyncToPreviewApp: previewApp,
				Devices:          devices,
			})
			if err != nil {
				return fmt.Errorf("add devices: %w", err)
			}

			rt.log.Info("session updated", "project", project, "devices", len(data.DeviceDescriptors))
			return writeSessionsOutput(cmd, app, []application.SessionData{data}, false, asJSON)
		},
	}

	addProjectFlag(cmd, &projectDir)
	cmd.Flags().StringVar(&platform, "platform", "", "Device platform (ios or android)")
	cmd.Flags().StringVar(&name, "name", "", "Device display name")
	cmd.Flags().StringVar(&model, "model", "", "Device model")
	cmd.Flags().BoolVar(&emulator, "emulator", false, "Mark devices as emulators or simulators")
	cmd.Flags().BoolVar(&previewApp, "preview-app", false, "Sync to the preview app instead of a local build")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func newSessionListCmd(app *app) *cobra.Command {
	var verbose bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls", "status"},
		Short:   "List known live sync sessions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := app.newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.coordinator.Shutdown()

			sessions, err := rt.sessions.List(cmd.Context())
			if err != nil {
				return err
			}

			return writeSessionsOutput(cmd, app, sessions, verbose, asJSON)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show session ids and device models")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func newSessionStopCmd(app *app) *cobra.Command {
	var projectDir string

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Mark a project's live sync session as stopped",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			project, err := resolveProjectDir(projectDir)
			if err != nil {
				return err
			}

			rt, err := app.newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.coordinator.Shutdown()

			if _, err := rt.sessions.Stop(cmd.Context(), project); err != nil {
				return fmt.Errorf("stop session: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Stopped live sync for %s\n", project)
			return err
		},
	}

	addProjectFlag(cmd, &projectDir)

	return cmd
}

func newSessionRemoveCmd(app *app) *cobra.Command {
	var projectDir string

	cmd := &cobra.Command{
		Use:   "remove [device-id...]",
		Short: "Remove devices from a session, or forget the session when no device is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := resolveProjectDir(projectDir)
			if err != nil {
				return err
			}

			rt, err := app.newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.coordinator.Shutdown()

			if len(args) == 0 {
				if err := rt.sessions.Forget(cmd.Context(), project); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Removed session for %s\n", project)
				return err
			}

			data, err := rt.sessions.RemoveDevices(cmd.Context(), application.RemoveDevicesCommand{
				ProjectDir:  project,
				Identifiers: args,
			})
			if err != nil {
				return fmt.Errorf("remove devices: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d device(s); %d left for %s\n", len(args), len(data.DeviceDescriptors), project)
			return err
		},
	}

	addProjectFlag(cmd, &projectDir)

	return cmd
}

func addProjectFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "project", "p", "", "Project directory (default: current directory)")
}

func resolveProjectDir(projectDir string) (string, error) {
	if projectDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve working directory: %w", err)
		}
		projectDir = wd
	}

	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return "", fmt.Errorf("resolve project directory %q: %w", projectDir, err)
	}

	return filepath.Clean(abs), nil
}

func writeSessionsOutput(cmd *cobra.Command, app *app, sessions []application.SessionData, verbose, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(sessions)
	}

	rendered, err := app.statusRenderer(sessions, statusadapter.RenderOptions{Verbose: verbose})
	if err != nil {
		return fmt.Errorf("render sessions: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}
