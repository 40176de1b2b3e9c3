package stream

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/bnema/livesync-cli/internal/domain"
	"github.com/bnema/livesync-cli/internal/ports"
	"pkt.systems/pslog"
)

const maxLineBytes = 1024 * 1024

// ReaderSource turns a line-oriented device log stream into log messages.
// It also acts as the device channel for that stream: Done closes once the
// reader is drained or Run is canceled.
type ReaderSource struct {
	reader   io.Reader
	deviceID string
	platform domain.Platform
	log      pslog.Logger

	mu       sync.Mutex
	nextID   int
	handlers map[int]func(ports.LogMessage)

	runOnce   sync.Once
	closeOnce sync.Once
	done      chan struct{}
	err       error
}

var (
	_ ports.LogSource     = (*ReaderSource)(nil)
	_ ports.DeviceChannel = (*ReaderSource)(nil)
)

func NewReaderSource(reader io.Reader, deviceID string, platform domain.Platform, logger pslog.Logger) *ReaderSource {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}

	return &ReaderSource{
		reader:   reader,
		deviceID: deviceID,
		platform: platform.Normalize(),
		log:      logger.With("device", deviceID),
		handlers: make(map[int]func(ports.LogMessage)),
		done:     make(chan struct{}),
	}
}

func (s *ReaderSource) DeviceID() string {
	return s.deviceID
}

func (s *ReaderSource) Subscribe(handler func(ports.LogMessage)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.handlers[id] = handler
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.handlers, id)
			s.mu.Unlock()
		})
	}
}

// Run reads the stream until EOF, a read error, or ctx cancellation. Only
// the first call reads; later calls wait for the first to finish.
func (s *ReaderSource) Run(ctx context.Context) error {
	s.runOnce.Do(func() {
		s.finish(s.pump(ctx))
	})

	<-s.done
	return s.err
}

func (s *ReaderSource) pump(ctx context.Context) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		scanner := bufio.NewScanner(s.reader)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-scanErr:
			if err != nil {
				return fmt.Errorf("read device log stream: %w", err)
			}
			return nil
		case line := <-lines:
			s.dispatch(ports.LogMessage{Message: line, DeviceID: s.deviceID, Platform: s.platform})
		}
	}
}

func (s *ReaderSource) dispatch(msg ports.LogMessage) {
	s.mu.Lock()
	handlers := make([]func(ports.LogMessage), 0, len(s.handlers))
	for id := 0; id < s.nextID; id++ {
		if handler, ok := s.handlers[id]; ok {
			handlers = append(handlers, handler)
		}
	}
	s.mu.Unlock()

	for _, handler := range handlers {
		handler(msg)
	}
}

func (s *ReaderSource) finish(err error) {
	s.closeOnce.Do(func() {
		s.err = err
		if err != nil {
			s.log.Debug("device stream closed", "error", err)
		} else {
			s.log.Debug("device stream drained")
		}
		close(s.done)
	})
}

func (s *ReaderSource) Done() <-chan struct{} {
	return s.done
}

// Err reports why the stream stopped. It is nil until Done is closed.
func (s *ReaderSource) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}
