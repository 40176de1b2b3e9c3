package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/bnema/livesync-cli/internal/adapters/stream"
	"github.com/bnema/livesync-cli/internal/domain"
	"github.com/spf13/cobra"
)

type streamFlags struct {
	input    string
	deviceID string
	platform string
}

func (f *streamFlags) register(cmd *cobra.Command, defaultPlatform domain.Platform) {
	cmd.Flags().StringVarP(&f.input, "input", "i", "-", "Device log file to read (- for stdin)")
	cmd.Flags().StringVarP(&f.deviceID, "device", "d", "", "Identifier of the device that produced the log")
	cmd.Flags().StringVar(&f.platform, "platform", string(defaultPlatform), "Platform of the device (ios, android, or empty for preview app logs)")
	_ = cmd.MarkFlagRequired("device")
}

// open returns the device stream and a func releasing the underlying file.
// A live stream already cached for the device is reused.
func (f *streamFlags) open(cmd *cobra.Command, rt *runtime) (*stream.ReaderSource, func(), error) {
	if cached, ok := rt.coordinator.Channels.Get(f.deviceID); ok {
		if source, ok := cached.(*stream.ReaderSource); ok && !isClosed(source.Done()) {
			return source, func() {}, nil
		}
	}

	var reader io.Reader
	release := func() {}

	if f.input == "-" {
		reader = cmd.InOrStdin()
	} else {
		file, err := os.Open(f.input)
		if err != nil {
			return nil, nil, fmt.Errorf("open device log: %w", err)
		}
		reader = file
		release = func() { _ = file.Close() }
	}

	source := stream.NewReaderSource(reader, f.deviceID, domain.Platform(f.platform), rt.log.With("component", "stream"))
	rt.coordinator.Logs.AddSource(source)
	rt.coordinator.Channels.Add(f.deviceID, source)

	return source, release, nil
}

func isClosed(done <-chan struct{}) bool {
	select {
	case <-done:
		return true
	default:
		return false
	}
}
