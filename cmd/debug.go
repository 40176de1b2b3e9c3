package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bnema/livesync-cli/internal/application"
	"github.com/bnema/livesync-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newDebugCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debug",
		Short: "Wait for device-side notifications and debugger ports",
	}

	cmd.AddCommand(
		newDebugAwaitCmd(app),
		newDebugPortCmd(app),
		newDebugAttachCmd(app),
	)

	return cmd
}

func newDebugAwaitCmd(app *app) *cobra.Command {
	var flags streamFlags
	var timeout time.Duration
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "await <notification>",
		Short: "Wait for a named notification reported in a device log",
		Long:  "Reads \"notification: <name> [payload]\" lines from a device log and returns once the named notification arrives or the timeout elapses.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if timeout <= 0 {
				timeout = app.notificationTimeout()
			}
			command := application.AwaitNotificationCommand{
				DeviceID:     flags.deviceID,
				Notification: args[0],
				Timeout:      timeout,
			}

			rt, err := app.newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.coordinator.Shutdown()

			if err := rt.coordinator.Logs.AddRule(rt.hub.RelayRule()); err != nil {
				return err
			}

			pending := rt.coordinator.Notifications.Begin(command.Notification, command.Timeout)

			source, release, err := flags.open(cmd, rt)
			if err != nil {
				return err
			}
			defer release()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go func() {
				_ = source.Run(ctx)
			}()

			var notification domain.Notification
			err = runWaitSpinner(ctx, cmd.ErrOrStderr(), fmt.Sprintf("Waiting for notification %q...", command.Notification), func(ctx context.Context) error {
				var waitErr error
				notification, waitErr = pending.Wait(ctx)
				return waitErr
			})
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(notification)
			}

			line := fmt.Sprintf("Received %s from %s", notification.Name, notification.DeviceID)
			if notification.Payload != "" {
				line += ": " + notification.Payload
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), line)
			return err
		},
	}

	flags.register(cmd, "")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "How long to wait (default: notification.timeout from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func newDebugPortCmd(app *app) *cobra.Command {
	var flags streamFlags
	var appID string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "port",
		Short: "Wait for the inspector port an iOS app reports in its device log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if timeout <= 0 {
				timeout = app.debuggerPortTimeout()
			}
			query := application.DebuggerPortQuery{
				DeviceID: flags.deviceID,
				AppID:    appID,
				Timeout:  timeout,
			}

			rt, err := app.newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.coordinator.Shutdown()

			source, release, err := flags.open(cmd, rt)
			if err != nil {
				return err
			}
			defer release()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go func() {
				_ = source.Run(ctx)
			}()

			var port int
			err = runWaitSpinner(ctx, cmd.ErrOrStderr(), fmt.Sprintf("Waiting for debugger port of %s...", appID), func(ctx context.Context) error {
				var waitErr error
				port, waitErr = rt.coordinator.Debugger.GetPort(ctx, query)
				return waitErr
			})
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), port)
			return err
		},
	}

	flags.register(cmd, domain.PlatformIOS)
	cmd.Flags().StringVar(&appID, "app", "", "Application identifier")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "How long to wait (default: debugger.port_timeout from config)")
	_ = cmd.MarkFlagRequired("app")

	return cmd
}

func newDebugAttachCmd(app *app) *cobra.Command {
	var flags streamFlags
	var appID string
	var notificationName string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "attach",
		Short: "Wait for an app launch notification, then for its inspector port",
		Long:  "Follows one iOS device log: first waits for the launch notification, then reads the inspector port the app reports on the same stream.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			notifyTimeout := timeout
			if notifyTimeout <= 0 {
				notifyTimeout = app.notificationTimeout()
			}
			portTimeout := timeout
			if portTimeout <= 0 {
				portTimeout = app.debuggerPortTimeout()
			}

			rt, err := app.newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.coordinator.Shutdown()

			if err := rt.coordinator.Logs.AddRule(rt.hub.RelayRule()); err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			pending := rt.coordinator.Notifications.Begin(notificationName, notifyTimeout)
			source, release, err := flags.open(cmd, rt)
			if err != nil {
				return err
			}
			defer release()
			go func() {
				_ = source.Run(ctx)
			}()

			err = runWaitSpinner(ctx, cmd.ErrOrStderr(), fmt.Sprintf("Waiting for notification %q...", notificationName), func(ctx context.Context) error {
				_, waitErr := pending.Wait(ctx)
				return waitErr
			})
			if err != nil {
				return err
			}

			// The launch stream is still cached for the device and keeps feeding
			// the debugger port rule.
			portSource, releasePort, err := flags.open(cmd, rt)
			if err != nil {
				return err
			}
			defer releasePort()
			if portSource != source {
				go func() {
					_ = portSource.Run(ctx)
				}()
			}

			var port int
			err = runWaitSpinner(ctx, cmd.ErrOrStderr(), fmt.Sprintf("Waiting for debugger port of %s...", appID), func(ctx context.Context) error {
				var waitErr error
				port, waitErr = rt.coordinator.Debugger.GetPort(ctx, application.DebuggerPortQuery{
					DeviceID: flags.deviceID,
					AppID:    appID,
					Timeout:  portTimeout,
				})
				return waitErr
			})
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), port)
			return err
		},
	}

	flags.register(cmd, domain.PlatformIOS)
	cmd.Flags().StringVar(&appID, "app", "", "Application identifier")
	cmd.Flags().StringVar(&notificationName, "notification", "AppLaunching", "Notification that marks the app as launched")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "How long to wait for each step (default: values from config)")
	_ = cmd.MarkFlagRequired("app")

	return cmd
}
